package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/domain"
	paymentDomain "github.com/myfocus-app/service-billing/internal/domain/payment"
	promoDomain "github.com/myfocus-app/service-billing/internal/domain/promo"
	subDomain "github.com/myfocus-app/service-billing/internal/domain/subscription"
	"github.com/myfocus-app/service-billing/internal/kafka"
)

// mockPromoRepo is an in-memory PromoRepository mirroring the atomic
// ConsumeUse semantics of the GORM implementation.
type mockPromoRepo struct {
	mu     sync.Mutex
	byID   map[uuid.UUID]*promoDomain.PromoCode
	byCode map[string]*promoDomain.PromoCode

	consumeCalls int
	consumeErr   error
}

func newMockPromoRepo() *mockPromoRepo {
	return &mockPromoRepo{
		byID:   make(map[uuid.UUID]*promoDomain.PromoCode),
		byCode: make(map[string]*promoDomain.PromoCode),
	}
}

func (r *mockPromoRepo) put(p *promoDomain.PromoCode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[p.ID()] = p
	r.byCode[p.Code()] = p
}

func (r *mockPromoRepo) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	r.put(p)
	return nil
}

func (r *mockPromoRepo) Update(ctx context.Context, p *promoDomain.PromoCode) error {
	r.put(p)
	return nil
}

func (r *mockPromoRepo) FindByCode(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byCode[promoDomain.NormalizeCode(code)]
	if !ok {
		return nil, domain.NewNotFoundError("promo code", code)
	}
	return p, nil
}

func (r *mockPromoRepo) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byID[id]
	if !ok {
		return nil, domain.NewNotFoundError("promo code", id.String())
	}
	return p, nil
}

func (r *mockPromoRepo) ListAll(ctx context.Context) ([]*promoDomain.PromoCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*promoDomain.PromoCode, 0, len(r.byID))
	for _, p := range r.byID {
		out = append(out, p)
	}
	return out, nil
}

func (r *mockPromoRepo) ConsumeUse(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumeCalls++
	if r.consumeErr != nil {
		return r.consumeErr
	}

	p, ok := r.byID[id]
	if !ok {
		return domain.NewNotFoundError("promo code", id.String())
	}
	if p.MaxUses() > 0 && p.CurrentUses() >= p.MaxUses() {
		return domain.NewRejectionError(promoDomain.ReasonUsageCapReached.Message())
	}

	updated := promoDomain.Reconstruct(
		p.ID(), p.Code(), p.DiscountPercent(), p.Active(),
		p.MaxUses(), p.CurrentUses()+1,
		p.ValidFrom(), p.ValidUntil(),
		p.CreatedAt(), p.UpdatedAt(),
	)
	r.byID[updated.ID()] = updated
	r.byCode[updated.Code()] = updated
	return nil
}

// mockPaymentRepo is an in-memory PaymentRepository with the same
// conditional TransitionStatus semantics as the GORM implementation.
type mockPaymentRepo struct {
	mu        sync.Mutex
	byGateway map[string]*paymentDomain.Payment

	saveErr error
}

func newMockPaymentRepo() *mockPaymentRepo {
	return &mockPaymentRepo{byGateway: make(map[string]*paymentDomain.Payment)}
}

func (r *mockPaymentRepo) Save(ctx context.Context, p *paymentDomain.Payment) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byGateway[p.GatewayPaymentID()] = p
	return nil
}

func (r *mockPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byGateway {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, domain.NewNotFoundError("payment", id.String())
}

func (r *mockPaymentRepo) FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*paymentDomain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byGateway[gatewayPaymentID]
	if !ok {
		return nil, domain.NewNotFoundError("payment", gatewayPaymentID)
	}
	return p, nil
}

func (r *mockPaymentRepo) TransitionStatus(ctx context.Context, gatewayPaymentID string, to paymentDomain.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byGateway[gatewayPaymentID]
	if !ok {
		return false, domain.NewNotFoundError("payment", gatewayPaymentID)
	}
	if p.Status() == paymentDomain.StatusPending {
		var err error
		if to == paymentDomain.StatusSucceeded {
			err = p.MarkSucceeded()
		} else {
			err = p.MarkCancelled()
		}
		return err == nil, err
	}
	if p.Status() != to {
		return false, domain.NewInvalidStateError(string(p.Status()), string(to))
	}
	return false, nil
}

func (r *mockPaymentRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*paymentDomain.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*paymentDomain.Payment
	for _, p := range r.byGateway {
		if p.UserID() == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *mockPaymentRepo) ListAll(ctx context.Context, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*paymentDomain.Payment, 0, len(r.byGateway))
	for _, p := range r.byGateway {
		out = append(out, p)
	}
	return out, int64(len(out)), nil
}

func (r *mockPaymentRepo) CountByStatus(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]int64)
	for _, p := range r.byGateway {
		counts[string(p.Status())]++
	}
	return counts, nil
}

// mockSubRepo is an in-memory SubscriptionRepository.
type mockSubRepo struct {
	mu   sync.Mutex
	subs []*subDomain.Subscription
}

func newMockSubRepo() *mockSubRepo { return &mockSubRepo{} }

func (r *mockSubRepo) Save(ctx context.Context, s *subDomain.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = append(r.subs, s)
	return nil
}

func (r *mockSubRepo) FindCurrentByUserID(ctx context.Context, userID uuid.UUID) (*subDomain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.UserID() == userID && s.IsCurrent() {
			return s, nil
		}
	}
	return nil, domain.NewNotFoundError("subscription", userID.String())
}

func (r *mockSubRepo) FindActiveByPaymentID(ctx context.Context, paymentID uuid.UUID) (*subDomain.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		if s.PaymentID() != nil && *s.PaymentID() == paymentID && s.Status() == subDomain.StatusActive {
			return s, nil
		}
	}
	return nil, domain.NewNotFoundError("subscription for payment", paymentID.String())
}

func (r *mockSubRepo) ExpireCurrent(ctx context.Context, userID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, s := range r.subs {
		if s.UserID() == userID && s.IsCurrent() {
			s.Expire()
			n++
		}
	}
	return n, nil
}

// currentCount counts the user's trial/active rows.
func (r *mockSubRepo) currentCount(userID uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subs {
		if s.UserID() == userID && s.IsCurrent() {
			n++
		}
	}
	return n
}

// mockGateway records create-payment requests and can be told to fail.
type mockGateway struct {
	mu       sync.Mutex
	requests []adapter.CreatePaymentRequest
	fail     bool
}

func (g *mockGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (*adapter.GatewayPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.fail {
		return nil, domain.NewDependencyError("gateway unreachable", nil)
	}
	id := fmt.Sprintf("yk_test_%d", len(g.requests))
	return &adapter.GatewayPayment{
		ID:              id,
		Status:          "pending",
		ConfirmationURL: "https://gw.test/confirm/" + id,
	}, nil
}

// mockPublisher collects published CloudEvents per topic.
type mockPublisher struct {
	mu     sync.Mutex
	events []kafka.CloudEvent
}

func (p *mockPublisher) PublishEvent(ctx context.Context, topic string, ce kafka.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ce)
	return nil
}

func (p *mockPublisher) typesPublished() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ce := range p.events {
		out[i] = ce.Type
	}
	return out
}
