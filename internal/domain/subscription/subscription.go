package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/domain/payment"
)

// Status is the subscription lifecycle state. Rows are never deleted, only
// marked expired.
type Status string

const (
	StatusTrial   Status = "trial"
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// Subscription is the aggregate root for a user's access entitlement.
// A trial has no plan, no end date and no payment. At most one subscription
// per user may be trial or active at any time.
type Subscription struct {
	id        uuid.UUID
	userID    uuid.UUID
	status    Status
	planType  *payment.PlanType
	startDate time.Time
	endDate   *time.Time
	paymentID *uuid.UUID
	createdAt time.Time
	updatedAt time.Time
}

// NewTrial creates an open-ended trial subscription.
func NewTrial(userID uuid.UUID) *Subscription {
	now := time.Now().UTC()
	return &Subscription{
		id:        uuid.New(),
		userID:    userID,
		status:    StatusTrial,
		startDate: now,
		createdAt: now,
		updatedAt: now,
	}
}

// NewActive creates a paid subscription starting at start. The end date is
// calendar-correct: months and years are added to the date fields rather
// than a fixed number of days.
func NewActive(userID uuid.UUID, plan payment.PlanType, paymentID uuid.UUID, start time.Time) *Subscription {
	months, years := plan.Duration()
	end := start.AddDate(years, months, 0)
	now := time.Now().UTC()
	return &Subscription{
		id:        uuid.New(),
		userID:    userID,
		status:    StatusActive,
		planType:  &plan,
		startDate: start,
		endDate:   &end,
		paymentID: &paymentID,
		createdAt: now,
		updatedAt: now,
	}
}

// Reconstruct rebuilds a Subscription from persistence.
func Reconstruct(id, userID uuid.UUID, status Status, planType *payment.PlanType, startDate time.Time, endDate *time.Time, paymentID *uuid.UUID, createdAt, updatedAt time.Time) *Subscription {
	return &Subscription{
		id: id, userID: userID, status: status, planType: planType,
		startDate: startDate, endDate: endDate, paymentID: paymentID,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// Expire marks the subscription expired.
func (s *Subscription) Expire() {
	s.status = StatusExpired
	s.updatedAt = time.Now().UTC()
}

// IsCurrent reports whether the subscription grants access (trial or active).
func (s *Subscription) IsCurrent() bool {
	return s.status == StatusTrial || s.status == StatusActive
}

// Getters.
func (s *Subscription) ID() uuid.UUID               { return s.id }
func (s *Subscription) UserID() uuid.UUID           { return s.userID }
func (s *Subscription) Status() Status              { return s.status }
func (s *Subscription) PlanType() *payment.PlanType { return s.planType }
func (s *Subscription) StartDate() time.Time        { return s.startDate }
func (s *Subscription) EndDate() *time.Time         { return s.endDate }
func (s *Subscription) PaymentID() *uuid.UUID       { return s.paymentID }
func (s *Subscription) CreatedAt() time.Time        { return s.createdAt }
func (s *Subscription) UpdatedAt() time.Time        { return s.updatedAt }
