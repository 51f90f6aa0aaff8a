package application

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/domain"
	paymentDomain "github.com/myfocus-app/service-billing/internal/domain/payment"
	promoDomain "github.com/myfocus-app/service-billing/internal/domain/promo"
	subDomain "github.com/myfocus-app/service-billing/internal/domain/subscription"
	"github.com/myfocus-app/service-billing/internal/events"
	"github.com/myfocus-app/service-billing/internal/kafka"
	"github.com/myfocus-app/service-billing/internal/saga"
)

// InitiatePaymentRequest is the DTO for initiating a payment.
type InitiatePaymentRequest struct {
	PlanType  string `json:"planType" binding:"required"`
	PromoCode string `json:"promoCode"`
}

// PaymentInitiationDTO is the API response for a successful initiation. The
// caller follows ConfirmationURL to the gateway's checkout page.
type PaymentInitiationDTO struct {
	PaymentID       uuid.UUID `json:"paymentId"`
	ConfirmationURL string    `json:"confirmationUrl"`
	Amount          int64     `json:"amount"`
	DiscountAmount  int64     `json:"discountAmount"`
}

// PaymentDTO is the full API representation of a payment.
type PaymentDTO struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	Amount           int64     `json:"amount"`
	DiscountAmount   int64     `json:"discount_amount"`
	Currency         string    `json:"currency"`
	Status           string    `json:"status"`
	PlanType         string    `json:"plan_type"`
	PromoCode        string    `json:"promo_code,omitempty"`
	ConfirmationURL  string    `json:"confirmation_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// gatewayEventKind is the closed set of webhook outcomes. Every notification
// classifies to exactly one of these; unknown event names are acknowledged
// and ignored rather than failed.
type gatewayEventKind int

const (
	gatewayEventIgnored gatewayEventKind = iota
	gatewayEventSucceeded
	gatewayEventCancelled
)

func classifyGatewayEvent(event string) gatewayEventKind {
	switch event {
	case adapter.WebhookPaymentSucceeded:
		return gatewayEventSucceeded
	case adapter.WebhookPaymentCanceled:
		return gatewayEventCancelled
	default:
		return gatewayEventIgnored
	}
}

// PaymentService orchestrates payment initiation and webhook reconciliation.
type PaymentService struct {
	payments paymentDomain.PaymentRepository
	subs     subDomain.SubscriptionRepository
	promoSvc *PromoService
	sagaSvc  *saga.PaymentSagaService
	producer kafka.Publisher
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	payments paymentDomain.PaymentRepository,
	subs subDomain.SubscriptionRepository,
	promoSvc *PromoService,
	sagaSvc *saga.PaymentSagaService,
	producer kafka.Publisher,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		payments: payments,
		subs:     subs,
		promoSvc: promoSvc,
		sagaSvc:  sagaSvc,
		producer: producer,
		logger:   logger,
	}
}

// InitiatePayment validates the plan and optional promo code, then runs the
// initiation saga. A rejected promo aborts the whole operation before any
// side effect.
func (s *PaymentService) InitiatePayment(ctx context.Context, userID uuid.UUID, req InitiatePaymentRequest) (*PaymentInitiationDTO, error) {
	plan := paymentDomain.PlanType(req.PlanType)
	if !plan.IsValid() {
		return nil, domain.NewValidationError("unknown plan type: " + req.PlanType)
	}

	var code *promoDomain.PromoCode
	if strings.TrimSpace(req.PromoCode) != "" {
		var err error
		code, err = s.promoSvc.ResolveUsable(ctx, req.PromoCode)
		if err != nil {
			return nil, err
		}
	}

	s.logger.Info("initiating payment",
		zap.String("user_id", userID.String()),
		zap.String("plan_type", string(plan)),
		zap.Bool("promo", code != nil),
	)

	p, err := s.sagaSvc.InitiatePaymentSaga(ctx, userID, plan, code)
	if err != nil {
		s.logger.Error("failed to initiate payment", zap.Error(err))
		return nil, err
	}

	return &PaymentInitiationDTO{
		PaymentID:       p.ID(),
		ConfirmationURL: p.ConfirmationURL(),
		Amount:          p.Amount(),
		DiscountAmount:  p.DiscountAmount(),
	}, nil
}

// GetPayment retrieves one of the caller's payments.
func (s *PaymentService) GetPayment(ctx context.Context, userID, paymentID uuid.UUID) (*PaymentDTO, error) {
	p, err := s.payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if p.UserID() != userID {
		// Other users' payments are invisible, same as missing rows.
		return nil, domain.NewNotFoundError("payment", paymentID.String())
	}

	dto := toPaymentDTO(p)
	return &dto, nil
}

// HandleGatewayNotification reconciles an asynchronous gateway notification.
// Returning an error makes the webhook endpoint answer non-2xx, which prompts
// the gateway to redeliver; the whole path is therefore safe to re-run with
// an identical payload.
func (s *PaymentService) HandleGatewayNotification(ctx context.Context, n adapter.WebhookNotification) error {
	kind := classifyGatewayEvent(n.Event)
	if kind == gatewayEventIgnored {
		s.logger.Debug("ignoring unhandled gateway event", zap.String("event", n.Event))
		return nil
	}

	// Malformed upstream data cannot be proceeded on.
	if n.Object.ID == "" {
		return domain.NewValidationError("gateway notification is missing the payment id")
	}
	if n.Object.Metadata.UserID == "" || n.Object.Metadata.PlanType == "" {
		return domain.NewValidationError("gateway notification is missing user_id or plan_type metadata")
	}
	if _, err := uuid.Parse(n.Object.Metadata.UserID); err != nil {
		return domain.NewValidationError("gateway notification carries a malformed user_id")
	}

	s.logger.Info("handling gateway notification",
		zap.String("event", n.Event),
		zap.String("gateway_payment_id", n.Object.ID),
	)

	switch kind {
	case gatewayEventSucceeded:
		return s.handlePaymentSucceeded(ctx, n.Object.ID)
	case gatewayEventCancelled:
		return s.handlePaymentCancelled(ctx, n.Object.ID)
	}
	return nil
}

// handlePaymentSucceeded applies the terminal transition and provisions the
// subscription. Redelivery lands in the applied=false branch: the transition
// is a no-op, but provisioning is repaired if a prior invocation crashed
// between the status update and the subscription insert.
func (s *PaymentService) handlePaymentSucceeded(ctx context.Context, gatewayPaymentID string) error {
	applied, err := s.payments.TransitionStatus(ctx, gatewayPaymentID, paymentDomain.StatusSucceeded)
	if err != nil {
		return err
	}

	p, err := s.payments.FindByGatewayID(ctx, gatewayPaymentID)
	if err != nil {
		return err
	}

	if !applied {
		if _, err := s.subs.FindActiveByPaymentID(ctx, p.ID()); err == nil {
			s.logger.Info("webhook redelivery, payment already provisioned",
				zap.String("gateway_payment_id", gatewayPaymentID),
			)
			return nil
		} else if !domain.IsKind(err, domain.ErrNotFound) {
			return err
		}
		s.logger.Warn("payment succeeded but no subscription found, provisioning",
			zap.String("gateway_payment_id", gatewayPaymentID),
		)
	} else {
		s.publishPaymentEvent(ctx, events.PaymentSucceeded, p)
	}

	return s.provisionSubscription(ctx, p)
}

// handlePaymentCancelled applies the terminal transition. Cancellation has no
// downstream provisioning.
func (s *PaymentService) handlePaymentCancelled(ctx context.Context, gatewayPaymentID string) error {
	applied, err := s.payments.TransitionStatus(ctx, gatewayPaymentID, paymentDomain.StatusCancelled)
	if err != nil {
		return err
	}
	if !applied {
		s.logger.Info("webhook redelivery of cancellation, no-op",
			zap.String("gateway_payment_id", gatewayPaymentID),
		)
		return nil
	}

	p, err := s.payments.FindByGatewayID(ctx, gatewayPaymentID)
	if err != nil {
		return err
	}
	s.publishPaymentEvent(ctx, events.PaymentCancelled, p)
	return nil
}

// provisionSubscription expires all of the user's trial/active rows and
// inserts one active subscription referencing the payment. The expire-then-
// insert order keeps at most one trial/active row per user.
func (s *PaymentService) provisionSubscription(ctx context.Context, p *paymentDomain.Payment) error {
	expired, err := s.subs.ExpireCurrent(ctx, p.UserID())
	if err != nil {
		return err
	}

	sub := subDomain.NewActive(p.UserID(), p.PlanType(), p.ID(), time.Now().UTC())
	if err := s.subs.Save(ctx, sub); err != nil {
		return err
	}

	s.logger.Info("subscription provisioned",
		zap.String("user_id", p.UserID().String()),
		zap.String("plan_type", string(p.PlanType())),
		zap.Int64("expired_rows", expired),
	)

	event := events.SubscriptionActivatedEvent{
		SubscriptionID: sub.ID(),
		UserID:         sub.UserID(),
		PaymentID:      p.ID(),
		PlanType:       string(p.PlanType()),
		EndDate:        *sub.EndDate(),
		OccurredAt:     time.Now().UTC(),
	}
	cloudEvent, err := kafka.NewCloudEvent("service-billing", events.SubscriptionActivated, event)
	if err != nil {
		s.logger.Error("failed to create subscription activated event", zap.Error(err))
		return nil
	}
	if err := s.producer.PublishEvent(ctx, events.TopicBillingEvents, cloudEvent); err != nil {
		// The subscription is already provisioned; a lost event must not
		// fail the webhook and trigger a redelivery loop.
		s.logger.Error("failed to publish subscription activated event", zap.Error(err))
	}
	return nil
}

// publishPaymentEvent publishes a terminal payment event, best effort.
func (s *PaymentService) publishPaymentEvent(ctx context.Context, eventType string, p *paymentDomain.Payment) {
	var payload interface{}
	switch eventType {
	case events.PaymentSucceeded:
		payload = events.PaymentSucceededEvent{
			PaymentID:        p.ID(),
			UserID:           p.UserID(),
			GatewayPaymentID: p.GatewayPaymentID(),
			PlanType:         string(p.PlanType()),
			Amount:           p.Amount(),
			OccurredAt:       time.Now().UTC(),
		}
	case events.PaymentCancelled:
		payload = events.PaymentCancelledEvent{
			PaymentID:        p.ID(),
			UserID:           p.UserID(),
			GatewayPaymentID: p.GatewayPaymentID(),
			OccurredAt:       time.Now().UTC(),
		}
	default:
		return
	}

	cloudEvent, err := kafka.NewCloudEvent("service-billing", eventType, payload)
	if err != nil {
		s.logger.Error("failed to create payment event", zap.Error(err))
		return
	}
	if err := s.producer.PublishEvent(ctx, events.TopicBillingEvents, cloudEvent); err != nil {
		s.logger.Error("failed to publish payment event",
			zap.String("type", eventType),
			zap.Error(err),
		)
	}
}

// --- Admin methods ---

// PaymentStatsDTO holds payment statistics for the admin dashboard.
type PaymentStatsDTO struct {
	TotalPayments int64            `json:"total_payments"`
	ByStatus      map[string]int64 `json:"by_status"`
}

// ListAllPayments returns a paginated list of all payments (admin).
func (s *PaymentService) ListAllPayments(ctx context.Context, page, limit int) ([]PaymentDTO, int64, error) {
	payments, total, err := s.payments.ListAll(ctx, page, limit)
	if err != nil {
		return nil, 0, err
	}

	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	return dtos, total, nil
}

// GetPaymentStats returns aggregate payment counts (admin).
func (s *PaymentService) GetPaymentStats(ctx context.Context) (*PaymentStatsDTO, error) {
	counts, err := s.payments.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	var total int64
	for _, c := range counts {
		total += c
	}

	return &PaymentStatsDTO{TotalPayments: total, ByStatus: counts}, nil
}

// toPaymentDTO maps a domain Payment to a PaymentDTO.
func toPaymentDTO(p *paymentDomain.Payment) PaymentDTO {
	return PaymentDTO{
		ID:               p.ID(),
		UserID:           p.UserID(),
		GatewayPaymentID: p.GatewayPaymentID(),
		Amount:           p.Amount(),
		DiscountAmount:   p.DiscountAmount(),
		Currency:         p.Currency(),
		Status:           string(p.Status()),
		PlanType:         string(p.PlanType()),
		PromoCode:        p.PromoCode(),
		ConfirmationURL:  p.ConfirmationURL(),
		CreatedAt:        p.CreatedAt(),
		UpdatedAt:        p.UpdatedAt(),
	}
}
