package saga

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/domain"
	"github.com/myfocus-app/service-billing/internal/domain/payment"
	"github.com/myfocus-app/service-billing/internal/domain/promo"
	"github.com/myfocus-app/service-billing/internal/events"
	"github.com/myfocus-app/service-billing/internal/kafka"
)

// SagaStep represents a single step in a saga with execute and compensate actions.
type SagaStep struct {
	Name       string
	Execute    func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// Saga orchestrates a sequence of steps with compensating transactions on failure.
type Saga struct {
	name   string
	steps  []SagaStep
	logger *zap.Logger
}

// NewSaga creates a new saga orchestrator.
func NewSaga(name string, logger *zap.Logger) *Saga {
	return &Saga{
		name:   name,
		steps:  make([]SagaStep, 0),
		logger: logger,
	}
}

// AddStep appends a step to the saga.
func (s *Saga) AddStep(step SagaStep) {
	s.steps = append(s.steps, step)
}

// Execute runs all saga steps in order. On failure, it compensates executed steps in reverse order.
func (s *Saga) Execute(ctx context.Context) error {
	s.logger.Info("saga started", zap.String("saga", s.name))

	executedSteps := make([]SagaStep, 0, len(s.steps))

	for _, step := range s.steps {
		s.logger.Info("executing saga step",
			zap.String("saga", s.name),
			zap.String("step", step.Name),
		)

		if err := step.Execute(ctx); err != nil {
			s.logger.Error("saga step failed, starting compensation",
				zap.String("saga", s.name),
				zap.String("step", step.Name),
				zap.Error(err),
			)

			// Compensate executed steps in reverse order
			for i := len(executedSteps) - 1; i >= 0; i-- {
				compensateStep := executedSteps[i]
				if compensateStep.Compensate != nil {
					s.logger.Info("compensating saga step",
						zap.String("saga", s.name),
						zap.String("step", compensateStep.Name),
					)
					if compErr := compensateStep.Compensate(ctx); compErr != nil {
						s.logger.Error("compensation failed",
							zap.String("saga", s.name),
							zap.String("step", compensateStep.Name),
							zap.Error(compErr),
						)
					}
				}
			}

			return fmt.Errorf("saga '%s' failed at step '%s': %w", s.name, step.Name, err)
		}

		executedSteps = append(executedSteps, step)
	}

	s.logger.Info("saga completed successfully", zap.String("saga", s.name))
	return nil
}

// PaymentSagaService orchestrates the payment initiation workflow.
type PaymentSagaService struct {
	payments payment.PaymentRepository
	promos   promo.PromoRepository
	gateway  adapter.PaymentGateway
	producer kafka.Publisher
	logger   *zap.Logger
}

// NewPaymentSagaService creates a new PaymentSagaService.
func NewPaymentSagaService(
	payments payment.PaymentRepository,
	promos promo.PromoRepository,
	gateway adapter.PaymentGateway,
	producer kafka.Publisher,
	logger *zap.Logger,
) *PaymentSagaService {
	return &PaymentSagaService{
		payments: payments,
		promos:   promos,
		gateway:  gateway,
		producer: producer,
		logger:   logger,
	}
}

// InitiatePaymentSaga consumes the promo usage, registers the payment with the
// gateway, persists the pending record, and publishes an event. The promo code
// (when present) must already have passed the usability checks.
//
// Compensations are deliberately nil: a consumed promo use stays consumed even
// when a later step fails, and a gateway payment created before a local save
// failure is left to expire unpaid on the gateway side.
func (s *PaymentSagaService) InitiatePaymentSaga(
	ctx context.Context,
	userID uuid.UUID,
	plan payment.PlanType,
	code *promo.PromoCode,
) (*payment.Payment, error) {
	basePrice, ok := payment.BasePrice(plan)
	if !ok {
		return nil, domain.NewValidationError(fmt.Sprintf("unknown plan type %q", plan))
	}

	var discount int64
	promoCode := ""
	if code != nil {
		discount = code.Discount(basePrice)
		promoCode = code.Code()
	}
	amount := basePrice - discount

	var p *payment.Payment
	var gw *adapter.GatewayPayment

	sg := NewSaga("initiate_payment", s.logger)

	// Step 1: Consume one promo use (atomic against the cap)
	if code != nil {
		sg.AddStep(SagaStep{
			Name: "consume_promo_use",
			Execute: func(ctx context.Context) error {
				return s.promos.ConsumeUse(ctx, code.ID())
			},
			Compensate: nil, // Consumed uses are never returned
		})
	}

	// Step 2: Register the payment with the gateway
	sg.AddStep(SagaStep{
		Name: "create_gateway_payment",
		Execute: func(ctx context.Context) error {
			var err error
			gw, err = s.gateway.CreatePayment(ctx, adapter.CreatePaymentRequest{
				Amount:         amount,
				Currency:       payment.Currency,
				Description:    fmt.Sprintf("Subscription %s", plan),
				IdempotenceKey: uuid.New(),
				Metadata: adapter.PaymentMetadata{
					UserID:    userID.String(),
					PlanType:  string(plan),
					PromoCode: promoCode,
				},
			})
			return err
		},
		Compensate: nil, // Unpaid gateway payments expire on their own
	})

	// Step 3: Persist the pending payment
	sg.AddStep(SagaStep{
		Name: "save_payment",
		Execute: func(ctx context.Context) error {
			p = payment.NewPayment(userID, plan, gw.ID, amount, discount, promoCode, gw.ConfirmationURL)
			return s.payments.Save(ctx, p)
		},
		Compensate: nil,
	})

	// Step 4: Publish PaymentInitiatedEvent
	sg.AddStep(SagaStep{
		Name: "publish_payment_initiated_event",
		Execute: func(ctx context.Context) error {
			event := events.PaymentInitiatedEvent{
				PaymentID:        p.ID(),
				UserID:           p.UserID(),
				GatewayPaymentID: p.GatewayPaymentID(),
				PlanType:         string(p.PlanType()),
				Amount:           p.Amount(),
				DiscountAmount:   p.DiscountAmount(),
				Currency:         p.Currency(),
				PromoCode:        p.PromoCode(),
				OccurredAt:       time.Now().UTC(),
			}
			cloudEvent, err := kafka.NewCloudEvent("service-billing", events.PaymentInitiated, event)
			if err != nil {
				return fmt.Errorf("failed to create cloud event: %w", err)
			}
			return s.producer.PublishEvent(ctx, events.TopicBillingEvents, cloudEvent)
		},
		Compensate: nil, // Event publishing has no compensating action
	})

	if err := sg.Execute(ctx); err != nil {
		return nil, err
	}

	return p, nil
}
