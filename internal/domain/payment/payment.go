package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/domain"
)

// PlanType is one of the fixed subscription durations.
type PlanType string

const (
	Plan3Months PlanType = "3_months"
	Plan6Months PlanType = "6_months"
	Plan1Year   PlanType = "1_year"
)

// Currency is the single settlement currency. Fixed contract with billing.
const Currency = "RUB"

// planPrices is the fixed base price table, in currency units.
var planPrices = map[PlanType]int64{
	Plan3Months: 750,
	Plan6Months: 1300,
	Plan1Year:   2200,
}

// BasePrice resolves the base price for a plan type.
func BasePrice(plan PlanType) (int64, bool) {
	price, ok := planPrices[plan]
	return price, ok
}

// Duration returns the calendar duration of a plan as (months, years).
func (p PlanType) Duration() (months, years int) {
	switch p {
	case Plan3Months:
		return 3, 0
	case Plan6Months:
		return 6, 0
	case Plan1Year:
		return 0, 1
	}
	return 0, 0
}

// IsValid reports whether p names a known plan.
func (p PlanType) IsValid() bool {
	_, ok := planPrices[p]
	return ok
}

// Status is the payment lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSucceeded Status = "succeeded"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status permits no further transition.
func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusCancelled
}

// Payment is the aggregate root for a single purchase attempt. It is created
// pending and moves to exactly one terminal status via the gateway webhook.
type Payment struct {
	id               uuid.UUID
	userID           uuid.UUID
	gatewayPaymentID string
	amount           int64
	discountAmount   int64
	currency         string
	status           Status
	planType         PlanType
	promoCode        string
	confirmationURL  string
	createdAt        time.Time
	updatedAt        time.Time
}

// NewPayment creates a pending payment for a gateway-registered intent.
func NewPayment(userID uuid.UUID, plan PlanType, gatewayPaymentID string, amount, discountAmount int64, promoCode, confirmationURL string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		id:               uuid.New(),
		userID:           userID,
		gatewayPaymentID: gatewayPaymentID,
		amount:           amount,
		discountAmount:   discountAmount,
		currency:         Currency,
		status:           StatusPending,
		planType:         plan,
		promoCode:        promoCode,
		confirmationURL:  confirmationURL,
		createdAt:        now,
		updatedAt:        now,
	}
}

// Reconstitute rebuilds a Payment from persisted data.
func Reconstitute(id, userID uuid.UUID, gatewayPaymentID string, amount, discountAmount int64, currency string, status Status, planType PlanType, promoCode, confirmationURL string, createdAt, updatedAt time.Time) *Payment {
	return &Payment{
		id: id, userID: userID, gatewayPaymentID: gatewayPaymentID,
		amount: amount, discountAmount: discountAmount, currency: currency,
		status: status, planType: planType, promoCode: promoCode,
		confirmationURL: confirmationURL, createdAt: createdAt, updatedAt: updatedAt,
	}
}

// MarkSucceeded transitions pending -> succeeded.
func (p *Payment) MarkSucceeded() error {
	return p.transition(StatusSucceeded)
}

// MarkCancelled transitions pending -> cancelled.
func (p *Payment) MarkCancelled() error {
	return p.transition(StatusCancelled)
}

func (p *Payment) transition(to Status) error {
	if p.status != StatusPending {
		return domain.NewInvalidStateError(string(p.status), string(to))
	}
	p.status = to
	p.updatedAt = time.Now().UTC()
	return nil
}

// Getters.
func (p *Payment) ID() uuid.UUID            { return p.id }
func (p *Payment) UserID() uuid.UUID        { return p.userID }
func (p *Payment) GatewayPaymentID() string { return p.gatewayPaymentID }
func (p *Payment) Amount() int64            { return p.amount }
func (p *Payment) DiscountAmount() int64    { return p.discountAmount }
func (p *Payment) Currency() string         { return p.currency }
func (p *Payment) Status() Status           { return p.status }
func (p *Payment) PlanType() PlanType       { return p.planType }
func (p *Payment) PromoCode() string        { return p.promoCode }
func (p *Payment) ConfirmationURL() string  { return p.confirmationURL }
func (p *Payment) CreatedAt() time.Time     { return p.createdAt }
func (p *Payment) UpdatedAt() time.Time     { return p.updatedAt }
