package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/myfocus-app/service-billing/internal/domain"
	promoDomain "github.com/myfocus-app/service-billing/internal/domain/promo"
)

// PromoModel is the GORM model for the promo_codes table.
type PromoModel struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey"`
	Code            string     `gorm:"type:varchar(50);uniqueIndex;not null"`
	DiscountPercent int        `gorm:"not null"`
	IsActive        bool       `gorm:"not null;default:true"`
	MaxUses         int        `gorm:"not null;default:0"`
	CurrentUses     int        `gorm:"not null;default:0"`
	ValidFrom       time.Time  `gorm:"type:timestamptz;not null"`
	ValidUntil      *time.Time `gorm:"type:timestamptz"`
	CreatedAt       time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt       time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (PromoModel) TableName() string { return "promo_codes" }

// GormPromoRepository implements PromoRepository using GORM.
type GormPromoRepository struct {
	db *gorm.DB
}

// NewGormPromoRepository creates a new GormPromoRepository.
func NewGormPromoRepository(db *gorm.DB) *GormPromoRepository {
	return &GormPromoRepository{db: db}
}

// Save persists a new promo code.
func (r *GormPromoRepository) Save(ctx context.Context, p *promoDomain.PromoCode) error {
	model := toPromoModel(p)
	return r.db.WithContext(ctx).Create(&model).Error
}

// Update updates a promo code.
func (r *GormPromoRepository) Update(ctx context.Context, p *promoDomain.PromoCode) error {
	model := toPromoModel(p)
	return r.db.WithContext(ctx).Save(&model).Error
}

// FindByCode returns a promo code by its normalized code string.
func (r *GormPromoRepository) FindByCode(ctx context.Context, code string) (*promoDomain.PromoCode, error) {
	var model PromoModel
	if err := r.db.WithContext(ctx).Where("code = ?", promoDomain.NormalizeCode(code)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("promo code", code)
		}
		return nil, err
	}
	return toPromoDomain(&model), nil
}

// FindByID returns a promo code by ID.
func (r *GormPromoRepository) FindByID(ctx context.Context, id uuid.UUID) (*promoDomain.PromoCode, error) {
	var model PromoModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("promo code", id.String())
		}
		return nil, err
	}
	return toPromoDomain(&model), nil
}

// ListAll returns every promo code, newest first (admin).
func (r *GormPromoRepository) ListAll(ctx context.Context) ([]*promoDomain.PromoCode, error) {
	var models []PromoModel
	if err := r.db.WithContext(ctx).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	promos := make([]*promoDomain.PromoCode, len(models))
	for i := range models {
		promos[i] = toPromoDomain(&models[i])
	}
	return promos, nil
}

// ConsumeUse atomically increments current_uses while the cap allows it.
// The single conditional update closes the check-then-use race between
// concurrent initiations of a near-cap code.
func (r *GormPromoRepository) ConsumeUse(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Model(&PromoModel{}).
		Where("id = ? AND (max_uses = 0 OR current_uses < max_uses)", id).
		Updates(map[string]interface{}{
			"current_uses": gorm.Expr("current_uses + 1"),
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&PromoModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return domain.NewNotFoundError("promo code", id.String())
		}
		return domain.NewRejectionError(promoDomain.ReasonUsageCapReached.Message())
	}
	return nil
}

func toPromoModel(p *promoDomain.PromoCode) PromoModel {
	return PromoModel{
		ID:              p.ID(),
		Code:            p.Code(),
		DiscountPercent: p.DiscountPercent(),
		IsActive:        p.Active(),
		MaxUses:         p.MaxUses(),
		CurrentUses:     p.CurrentUses(),
		ValidFrom:       p.ValidFrom(),
		ValidUntil:      p.ValidUntil(),
		CreatedAt:       p.CreatedAt(),
		UpdatedAt:       p.UpdatedAt(),
	}
}

func toPromoDomain(m *PromoModel) *promoDomain.PromoCode {
	return promoDomain.Reconstruct(
		m.ID, m.Code, m.DiscountPercent, m.IsActive,
		m.MaxUses, m.CurrentUses,
		m.ValidFrom, m.ValidUntil,
		m.CreatedAt, m.UpdatedAt,
	)
}
