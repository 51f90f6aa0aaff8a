package promo

import (
	"context"

	"github.com/google/uuid"
)

// PromoRepository defines persistence operations for promo codes.
type PromoRepository interface {
	Save(ctx context.Context, p *PromoCode) error
	Update(ctx context.Context, p *PromoCode) error

	// FindByCode returns the promo with the given normalized code, active or not.
	FindByCode(ctx context.Context, code string) (*PromoCode, error)
	FindByID(ctx context.Context, id uuid.UUID) (*PromoCode, error)
	ListAll(ctx context.Context) ([]*PromoCode, error)

	// ConsumeUse atomically increments current_uses, but only while the cap
	// (when set) is not yet reached. It returns a rejection error when the
	// cap has been reached by a concurrent use.
	ConsumeUse(ctx context.Context, id uuid.UUID) error
}
