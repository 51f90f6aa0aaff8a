package application

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/domain"
	paymentDomain "github.com/myfocus-app/service-billing/internal/domain/payment"
	promoDomain "github.com/myfocus-app/service-billing/internal/domain/promo"
	subDomain "github.com/myfocus-app/service-billing/internal/domain/subscription"
	"github.com/myfocus-app/service-billing/internal/events"
	"github.com/myfocus-app/service-billing/internal/saga"
)

type paymentFixture struct {
	promoRepo   *mockPromoRepo
	paymentRepo *mockPaymentRepo
	subRepo     *mockSubRepo
	gateway     *mockGateway
	publisher   *mockPublisher
	service     *PaymentService
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	logger := zap.NewNop()

	promoRepo := newMockPromoRepo()
	paymentRepo := newMockPaymentRepo()
	subRepo := newMockSubRepo()
	gateway := &mockGateway{}
	publisher := &mockPublisher{}

	sagaSvc := saga.NewPaymentSagaService(paymentRepo, promoRepo, gateway, publisher, logger)
	promoSvc := NewPromoService(promoRepo, logger)
	service := NewPaymentService(paymentRepo, subRepo, promoSvc, sagaSvc, publisher, logger)

	return &paymentFixture{
		promoRepo:   promoRepo,
		paymentRepo: paymentRepo,
		subRepo:     subRepo,
		gateway:     gateway,
		publisher:   publisher,
		service:     service,
	}
}

func (f *paymentFixture) seedPromo(t *testing.T, code string, percent, maxUses, currentUses int) *promoDomain.PromoCode {
	t.Helper()
	p := promoDomain.Reconstruct(
		uuid.New(), promoDomain.NormalizeCode(code), percent, true,
		maxUses, currentUses,
		time.Now().UTC().Add(-time.Hour), nil,
		time.Now().UTC(), time.Now().UTC(),
	)
	f.promoRepo.put(p)
	return p
}

func (f *paymentFixture) seedPendingPayment(t *testing.T, userID uuid.UUID, plan paymentDomain.PlanType, gatewayID string) *paymentDomain.Payment {
	t.Helper()
	price, ok := paymentDomain.BasePrice(plan)
	require.True(t, ok)
	p := paymentDomain.NewPayment(userID, plan, gatewayID, price, 0, "", "https://gw.test/confirm")
	require.NoError(t, f.paymentRepo.Save(context.Background(), p))
	return p
}

func succeededNotification(userID uuid.UUID, plan paymentDomain.PlanType, gatewayID string) adapter.WebhookNotification {
	return adapter.WebhookNotification{
		Type:  "notification",
		Event: adapter.WebhookPaymentSucceeded,
		Object: adapter.WebhookObject{
			ID:     gatewayID,
			Status: "succeeded",
			Paid:   true,
			Metadata: adapter.PaymentMetadata{
				UserID:   userID.String(),
				PlanType: string(plan),
			},
		},
	}
}

// Plan 3_months (750) with a 20% promo: final 600, discount 150, and the
// promo use is consumed exactly once.
func TestInitiatePayment_WithPromo(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPromo(t, "SAVE10", 20, 5, 0)
	userID := uuid.New()

	dto, err := f.service.InitiatePayment(context.Background(), userID, InitiatePaymentRequest{
		PlanType:  "3_months",
		PromoCode: "save10",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(600), dto.Amount)
	assert.Equal(t, int64(150), dto.DiscountAmount)
	assert.NotEmpty(t, dto.ConfirmationURL)

	assert.Equal(t, 1, f.promoRepo.consumeCalls)
	stored, err := f.promoRepo.FindByCode(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentUses())

	// The gateway saw the discounted amount and the full metadata.
	require.Len(t, f.gateway.requests, 1)
	req := f.gateway.requests[0]
	assert.Equal(t, int64(600), req.Amount)
	assert.Equal(t, "RUB", req.Currency)
	assert.Equal(t, userID.String(), req.Metadata.UserID)
	assert.Equal(t, "3_months", req.Metadata.PlanType)
	assert.Equal(t, "SAVE10", req.Metadata.PromoCode)
	assert.NotEqual(t, uuid.Nil, req.IdempotenceKey)

	// A pending payment row exists and the initiated event went out.
	p, err := f.paymentRepo.FindByID(context.Background(), dto.PaymentID)
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.StatusPending, p.Status())
	assert.Contains(t, f.publisher.typesPublished(), events.PaymentInitiated)
}

func TestInitiatePayment_WithoutPromo(t *testing.T) {
	f := newPaymentFixture(t)

	dto, err := f.service.InitiatePayment(context.Background(), uuid.New(), InitiatePaymentRequest{
		PlanType: "6_months",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1300), dto.Amount)
	assert.Zero(t, dto.DiscountAmount)
	assert.Zero(t, f.promoRepo.consumeCalls)
}

// A rejected promo aborts the whole initiation: no usage consumed, no
// gateway call, no payment row.
func TestInitiatePayment_RejectedPromo_NoSideEffects(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPromo(t, "SAVE10", 20, 5, 5) // cap reached

	_, err := f.service.InitiatePayment(context.Background(), uuid.New(), InitiatePaymentRequest{
		PlanType:  "3_months",
		PromoCode: "SAVE10",
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrRejected))

	assert.Zero(t, f.promoRepo.consumeCalls)
	assert.Empty(t, f.gateway.requests)
	_, total, _ := f.paymentRepo.ListAll(context.Background(), 1, 10)
	assert.Zero(t, total)
}

// A gateway failure after consumption leaves the usage consumed and writes
// no payment row.
func TestInitiatePayment_GatewayFailure_UsageStaysConsumed(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPromo(t, "SAVE10", 20, 5, 0)
	f.gateway.fail = true

	_, err := f.service.InitiatePayment(context.Background(), uuid.New(), InitiatePaymentRequest{
		PlanType:  "3_months",
		PromoCode: "SAVE10",
	})
	require.Error(t, err)

	assert.Equal(t, 1, f.promoRepo.consumeCalls)
	stored, err := f.promoRepo.FindByCode(context.Background(), "SAVE10")
	require.NoError(t, err)
	assert.Equal(t, 1, stored.CurrentUses())

	_, total, _ := f.paymentRepo.ListAll(context.Background(), 1, 10)
	assert.Zero(t, total)
}

func TestInitiatePayment_UnknownPlan(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.service.InitiatePayment(context.Background(), uuid.New(), InitiatePaymentRequest{
		PlanType: "lifetime",
	})
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrValidation))
}

func TestWebhook_Succeeded_ProvisionsSubscription(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()

	// The user holds a trial that must be expired by provisioning.
	require.NoError(t, f.subRepo.Save(context.Background(), subDomain.NewTrial(userID)))
	p := f.seedPendingPayment(t, userID, paymentDomain.Plan1Year, "yk_hook_1")

	err := f.service.HandleGatewayNotification(context.Background(),
		succeededNotification(userID, paymentDomain.Plan1Year, "yk_hook_1"))
	require.NoError(t, err)

	stored, err := f.paymentRepo.FindByGatewayID(context.Background(), "yk_hook_1")
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.StatusSucceeded, stored.Status())

	sub, err := f.subRepo.FindActiveByPaymentID(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, subDomain.StatusActive, sub.Status())
	require.NotNil(t, sub.EndDate())
	wantEnd := sub.StartDate().AddDate(1, 0, 0)
	assert.True(t, wantEnd.Equal(*sub.EndDate()))

	assert.Equal(t, 1, f.subRepo.currentCount(userID), "trial must be expired")
	published := f.publisher.typesPublished()
	assert.Contains(t, published, events.PaymentSucceeded)
	assert.Contains(t, published, events.SubscriptionActivated)
}

// Delivering payment.succeeded twice for the same gateway payment id leaves
// exactly one active subscription.
func TestWebhook_Redelivery_SingleActiveSubscription(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()
	f.seedPendingPayment(t, userID, paymentDomain.Plan1Year, "yk_hook_2")

	n := succeededNotification(userID, paymentDomain.Plan1Year, "yk_hook_2")
	require.NoError(t, f.service.HandleGatewayNotification(context.Background(), n))
	require.NoError(t, f.service.HandleGatewayNotification(context.Background(), n))

	assert.Equal(t, 1, f.subRepo.currentCount(userID))
}

// A crash between the status update and the subscription insert is repaired
// on redelivery: the already-succeeded payment gets its subscription.
func TestWebhook_Redelivery_RepairsLostProvisioning(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()
	p := f.seedPendingPayment(t, userID, paymentDomain.Plan6Months, "yk_hook_3")
	require.NoError(t, p.MarkSucceeded()) // succeeded, but never provisioned

	err := f.service.HandleGatewayNotification(context.Background(),
		succeededNotification(userID, paymentDomain.Plan6Months, "yk_hook_3"))
	require.NoError(t, err)

	sub, err := f.subRepo.FindActiveByPaymentID(context.Background(), p.ID())
	require.NoError(t, err)
	assert.Equal(t, subDomain.StatusActive, sub.Status())
	assert.Equal(t, 1, f.subRepo.currentCount(userID))
}

func TestWebhook_Cancelled(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()
	f.seedPendingPayment(t, userID, paymentDomain.Plan3Months, "yk_hook_4")

	n := adapter.WebhookNotification{
		Event: adapter.WebhookPaymentCanceled,
		Object: adapter.WebhookObject{
			ID:     "yk_hook_4",
			Status: "canceled",
			Metadata: adapter.PaymentMetadata{
				UserID:   userID.String(),
				PlanType: "3_months",
			},
		},
	}
	require.NoError(t, f.service.HandleGatewayNotification(context.Background(), n))

	stored, err := f.paymentRepo.FindByGatewayID(context.Background(), "yk_hook_4")
	require.NoError(t, err)
	assert.Equal(t, paymentDomain.StatusCancelled, stored.Status())
	assert.Zero(t, f.subRepo.currentCount(userID), "cancellation provisions nothing")
	assert.Contains(t, f.publisher.typesPublished(), events.PaymentCancelled)

	// Redelivery is a no-op.
	require.NoError(t, f.service.HandleGatewayNotification(context.Background(), n))
}

func TestWebhook_MissingMetadataIsFatal(t *testing.T) {
	f := newPaymentFixture(t)
	f.seedPendingPayment(t, uuid.New(), paymentDomain.Plan3Months, "yk_hook_5")

	n := adapter.WebhookNotification{
		Event:  adapter.WebhookPaymentSucceeded,
		Object: adapter.WebhookObject{ID: "yk_hook_5", Status: "succeeded"},
	}
	err := f.service.HandleGatewayNotification(context.Background(), n)
	require.Error(t, err)

	// The payment was not touched.
	stored, ferr := f.paymentRepo.FindByGatewayID(context.Background(), "yk_hook_5")
	require.NoError(t, ferr)
	assert.Equal(t, paymentDomain.StatusPending, stored.Status())
}

func TestWebhook_UnknownEventIsAcknowledged(t *testing.T) {
	f := newPaymentFixture(t)

	n := adapter.WebhookNotification{Event: "refund.succeeded"}
	assert.NoError(t, f.service.HandleGatewayNotification(context.Background(), n))
	assert.Empty(t, f.publisher.typesPublished())
}

func TestWebhook_ConflictingTerminalStatus(t *testing.T) {
	f := newPaymentFixture(t)
	userID := uuid.New()
	p := f.seedPendingPayment(t, userID, paymentDomain.Plan3Months, "yk_hook_6")
	require.NoError(t, p.MarkCancelled())

	err := f.service.HandleGatewayNotification(context.Background(),
		succeededNotification(userID, paymentDomain.Plan3Months, "yk_hook_6"))
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrInvalidState))
}

func TestGetPayment_OtherUsersPaymentHidden(t *testing.T) {
	f := newPaymentFixture(t)
	owner := uuid.New()
	p := f.seedPendingPayment(t, owner, paymentDomain.Plan3Months, "yk_hook_7")

	_, err := f.service.GetPayment(context.Background(), uuid.New(), p.ID())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrNotFound))

	dto, err := f.service.GetPayment(context.Background(), owner, p.ID())
	require.NoError(t, err)
	assert.Equal(t, p.ID(), dto.ID)
}
