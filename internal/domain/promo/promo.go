package promo

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RejectReason identifies why a promo code cannot be used. The reasons mirror
// the ordered usability checks; validation stops at the first failure.
type RejectReason string

const (
	ReasonCodeRequired    RejectReason = "code_required"
	ReasonNotFound        RejectReason = "not_found"
	ReasonNotYetValid     RejectReason = "not_yet_valid"
	ReasonExpired         RejectReason = "expired"
	ReasonUsageCapReached RejectReason = "usage_cap_reached"
)

// Message returns the user-facing text for the reason.
func (r RejectReason) Message() string {
	switch r {
	case ReasonCodeRequired:
		return "promo code is required"
	case ReasonNotFound:
		return "promo code not found"
	case ReasonNotYetValid:
		return "promo code is not yet valid"
	case ReasonExpired:
		return "promo code has expired"
	case ReasonUsageCapReached:
		return "promo code usage cap reached"
	default:
		return "promo code is not usable"
	}
}

// NormalizeCode uppercases and trims a user-supplied code. Codes are
// case-insensitive everywhere.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PromoCode is the aggregate root for promotional discount codes.
// MaxUses of zero means no usage cap; a nil ValidUntil means no expiry.
type PromoCode struct {
	id              uuid.UUID
	code            string
	discountPercent int
	active          bool
	maxUses         int
	currentUses     int
	validFrom       time.Time
	validUntil      *time.Time
	createdAt       time.Time
	updatedAt       time.Time
}

// NewPromoCode creates a new promo code.
func NewPromoCode(code string, discountPercent, maxUses int, validFrom time.Time, validUntil *time.Time) (*PromoCode, error) {
	code = NormalizeCode(code)
	if code == "" {
		return nil, fmt.Errorf("promo code is required")
	}
	if discountPercent <= 0 || discountPercent > 100 {
		return nil, fmt.Errorf("discount percent must be in (0, 100], got %d", discountPercent)
	}
	if maxUses < 0 {
		return nil, fmt.Errorf("max uses cannot be negative")
	}
	if validUntil != nil && validUntil.Before(validFrom) {
		return nil, fmt.Errorf("valid_until must be after valid_from")
	}

	now := time.Now().UTC()
	return &PromoCode{
		id:              uuid.New(),
		code:            code,
		discountPercent: discountPercent,
		active:          true,
		maxUses:         maxUses,
		currentUses:     0,
		validFrom:       validFrom,
		validUntil:      validUntil,
		createdAt:       now,
		updatedAt:       now,
	}, nil
}

// Reconstruct rebuilds a PromoCode from persistence.
func Reconstruct(id uuid.UUID, code string, discountPercent int, active bool, maxUses, currentUses int, validFrom time.Time, validUntil *time.Time, createdAt, updatedAt time.Time) *PromoCode {
	return &PromoCode{
		id: id, code: code, discountPercent: discountPercent, active: active,
		maxUses: maxUses, currentUses: currentUses,
		validFrom: validFrom, validUntil: validUntil,
		createdAt: createdAt, updatedAt: updatedAt,
	}
}

// Check runs the ordered usability checks against now. It returns the first
// failing reason, or ok=true when the code is usable.
func (p *PromoCode) Check(now time.Time) (RejectReason, bool) {
	if !p.active {
		// Inactive codes are invisible, same as a missing row.
		return ReasonNotFound, false
	}
	if now.Before(p.validFrom) {
		return ReasonNotYetValid, false
	}
	if p.validUntil != nil && now.After(*p.validUntil) {
		return ReasonExpired, false
	}
	if p.maxUses > 0 && p.currentUses >= p.maxUses {
		return ReasonUsageCapReached, false
	}
	return "", true
}

// Discount computes the discount for a base amount, rounding ties half-up.
func (p *PromoCode) Discount(baseAmount int64) int64 {
	return int64(math.Round(float64(baseAmount) * float64(p.discountPercent) / 100.0))
}

// Deactivate disables the code without deleting it.
func (p *PromoCode) Deactivate() {
	p.active = false
	p.updatedAt = time.Now().UTC()
}

// Getters.
func (p *PromoCode) ID() uuid.UUID          { return p.id }
func (p *PromoCode) Code() string           { return p.code }
func (p *PromoCode) DiscountPercent() int   { return p.discountPercent }
func (p *PromoCode) Active() bool           { return p.active }
func (p *PromoCode) MaxUses() int           { return p.maxUses }
func (p *PromoCode) CurrentUses() int       { return p.currentUses }
func (p *PromoCode) ValidFrom() time.Time   { return p.validFrom }
func (p *PromoCode) ValidUntil() *time.Time { return p.validUntil }
func (p *PromoCode) CreatedAt() time.Time   { return p.createdAt }
func (p *PromoCode) UpdatedAt() time.Time   { return p.updatedAt }
