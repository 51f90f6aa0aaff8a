package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/domain"
	promoDomain "github.com/myfocus-app/service-billing/internal/domain/promo"
)

// ValidatePromoRequest holds data to validate a promo code.
type ValidatePromoRequest struct {
	Code string `json:"code"`
}

// PromoValidationDTO is the result of the standalone promo pre-check.
// Graceful rejections still return HTTP 200 with Valid=false.
type PromoValidationDTO struct {
	Valid           bool   `json:"valid"`
	DiscountPercent int    `json:"discountPercent,omitempty"`
	Error           string `json:"error,omitempty"`
}

// CreatePromoRequest holds data to create a promo code (admin).
type CreatePromoRequest struct {
	Code            string  `json:"code" binding:"required"`
	DiscountPercent int     `json:"discount_percent" binding:"required"`
	MaxUses         int     `json:"max_uses"`
	ValidFrom       string  `json:"valid_from"`
	ValidUntil      *string `json:"valid_until"`
}

// PromoDTO is the API response representation of a promo code.
type PromoDTO struct {
	ID              uuid.UUID  `json:"id"`
	Code            string     `json:"code"`
	DiscountPercent int        `json:"discount_percent"`
	IsActive        bool       `json:"is_active"`
	MaxUses         int        `json:"max_uses"`
	CurrentUses     int        `json:"current_uses"`
	ValidFrom       time.Time  `json:"valid_from"`
	ValidUntil      *time.Time `json:"valid_until,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// PromoService handles promo code use cases.
type PromoService struct {
	repo   promoDomain.PromoRepository
	logger *zap.Logger
}

// NewPromoService creates a new PromoService.
func NewPromoService(repo promoDomain.PromoRepository, logger *zap.Logger) *PromoService {
	return &PromoService{repo: repo, logger: logger}
}

// ValidatePromo runs the ordered usability checks as a read-only pre-check.
// A missing code is an input error; every other failed check is a graceful
// rejection carried in the DTO.
func (s *PromoService) ValidatePromo(ctx context.Context, code string) (*PromoValidationDTO, error) {
	if promoDomain.NormalizeCode(code) == "" {
		return nil, domain.NewValidationError(promoDomain.ReasonCodeRequired.Message())
	}

	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return &PromoValidationDTO{Valid: false, Error: promoDomain.ReasonNotFound.Message()}, nil
		}
		return nil, err
	}

	if reason, ok := p.Check(time.Now().UTC()); !ok {
		return &PromoValidationDTO{Valid: false, Error: reason.Message()}, nil
	}

	return &PromoValidationDTO{Valid: true, DiscountPercent: p.DiscountPercent()}, nil
}

// ResolveUsable re-runs the usability checks and returns the aggregate for a
// code that passed. Failures come back as rejection errors so that payment
// initiation aborts with the specific reason.
func (s *PromoService) ResolveUsable(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	if promoDomain.NormalizeCode(code) == "" {
		return nil, domain.NewValidationError(promoDomain.ReasonCodeRequired.Message())
	}

	p, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if domain.IsKind(err, domain.ErrNotFound) {
			return nil, domain.NewRejectionError(promoDomain.ReasonNotFound.Message())
		}
		return nil, err
	}

	if reason, ok := p.Check(time.Now().UTC()); !ok {
		return nil, domain.NewRejectionError(reason.Message())
	}

	return p, nil
}

// CreatePromo creates a new promo code (admin only).
func (s *PromoService) CreatePromo(ctx context.Context, req CreatePromoRequest) (*PromoDTO, error) {
	validFrom := time.Now().UTC()
	if req.ValidFrom != "" {
		t, err := time.Parse(time.RFC3339, req.ValidFrom)
		if err != nil {
			return nil, domain.NewValidationError("invalid valid_from format (use RFC3339)")
		}
		validFrom = t
	}

	var validUntil *time.Time
	if req.ValidUntil != nil {
		t, err := time.Parse(time.RFC3339, *req.ValidUntil)
		if err != nil {
			return nil, domain.NewValidationError("invalid valid_until format (use RFC3339)")
		}
		validUntil = &t
	}

	p, err := promoDomain.NewPromoCode(req.Code, req.DiscountPercent, req.MaxUses, validFrom, validUntil)
	if err != nil {
		return nil, domain.NewValidationError(err.Error())
	}

	if err := s.repo.Save(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("promo code created",
		zap.String("code", p.Code()),
		zap.Int("discount_percent", p.DiscountPercent()),
	)
	dto := toPromoDTO(p)
	return &dto, nil
}

// ListPromos returns every promo code (admin only).
func (s *PromoService) ListPromos(ctx context.Context) ([]PromoDTO, error) {
	promos, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	dtos := make([]PromoDTO, len(promos))
	for i, p := range promos {
		dtos[i] = toPromoDTO(p)
	}
	return dtos, nil
}

// DeactivatePromo disables a promo code without deleting it (admin only).
func (s *PromoService) DeactivatePromo(ctx context.Context, id uuid.UUID) (*PromoDTO, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	p.Deactivate()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	s.logger.Info("promo code deactivated", zap.String("code", p.Code()))
	dto := toPromoDTO(p)
	return &dto, nil
}

func toPromoDTO(p *promoDomain.PromoCode) PromoDTO {
	return PromoDTO{
		ID:              p.ID(),
		Code:            p.Code(),
		DiscountPercent: p.DiscountPercent(),
		IsActive:        p.Active(),
		MaxUses:         p.MaxUses(),
		CurrentUses:     p.CurrentUses(),
		ValidFrom:       p.ValidFrom(),
		ValidUntil:      p.ValidUntil(),
		CreatedAt:       p.CreatedAt(),
	}
}
