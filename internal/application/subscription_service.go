package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/domain"
	paymentDomain "github.com/myfocus-app/service-billing/internal/domain/payment"
	subDomain "github.com/myfocus-app/service-billing/internal/domain/subscription"
)

// SubscriptionDTO is the API response for a subscription.
type SubscriptionDTO struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Status    string     `json:"status"`
	PlanType  *string    `json:"plan_type,omitempty"`
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	PaymentID *uuid.UUID `json:"payment_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// PlanDTO is one row of the fixed plan price table.
type PlanDTO struct {
	PlanType string `json:"planType"`
	Price    int64  `json:"price"`
	Currency string `json:"currency"`
}

// SubscriptionService handles subscription use cases.
type SubscriptionService struct {
	repo   subDomain.SubscriptionRepository
	logger *zap.Logger
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(repo subDomain.SubscriptionRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{repo: repo, logger: logger}
}

// GetPlans returns the fixed plan price table.
func (s *SubscriptionService) GetPlans() []PlanDTO {
	plans := []paymentDomain.PlanType{
		paymentDomain.Plan3Months,
		paymentDomain.Plan6Months,
		paymentDomain.Plan1Year,
	}

	dtos := make([]PlanDTO, 0, len(plans))
	for _, plan := range plans {
		price, _ := paymentDomain.BasePrice(plan)
		dtos = append(dtos, PlanDTO{
			PlanType: string(plan),
			Price:    price,
			Currency: paymentDomain.Currency,
		})
	}
	return dtos
}

// GetMySubscription returns the user's current trial or active subscription.
func (s *SubscriptionService) GetMySubscription(ctx context.Context, userID uuid.UUID) (*SubscriptionDTO, error) {
	sub, err := s.repo.FindCurrentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	dto := toSubscriptionDTO(sub)
	return &dto, nil
}

// StartTrial provisions a trial subscription unless the user already holds a
// trial or active one. Called from the user-registered event consumer, so a
// duplicate event is a no-op rather than an error.
func (s *SubscriptionService) StartTrial(ctx context.Context, userID uuid.UUID) error {
	existing, err := s.repo.FindCurrentByUserID(ctx, userID)
	if err == nil {
		s.logger.Info("user already has a current subscription, skipping trial",
			zap.String("user_id", userID.String()),
			zap.String("status", string(existing.Status())),
		)
		return nil
	}
	if !domain.IsKind(err, domain.ErrNotFound) {
		return err
	}

	sub := subDomain.NewTrial(userID)
	if err := s.repo.Save(ctx, sub); err != nil {
		return err
	}

	s.logger.Info("trial subscription provisioned", zap.String("user_id", userID.String()))
	return nil
}

func toSubscriptionDTO(sub *subDomain.Subscription) SubscriptionDTO {
	var plan *string
	if sub.PlanType() != nil {
		v := string(*sub.PlanType())
		plan = &v
	}
	return SubscriptionDTO{
		ID:        sub.ID(),
		UserID:    sub.UserID(),
		Status:    string(sub.Status()),
		PlanType:  plan,
		StartDate: sub.StartDate(),
		EndDate:   sub.EndDate(),
		PaymentID: sub.PaymentID(),
		CreatedAt: sub.CreatedAt(),
	}
}
