package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/myfocus-app/service-billing/internal/domain"
	paymentDomain "github.com/myfocus-app/service-billing/internal/domain/payment"
	subDomain "github.com/myfocus-app/service-billing/internal/domain/subscription"
)

// SubscriptionModel is the GORM model for the subscriptions table.
type SubscriptionModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status    string     `gorm:"type:varchar(20);not null"`
	PlanType  *string    `gorm:"type:varchar(20)"`
	StartDate time.Time  `gorm:"type:timestamptz;not null"`
	EndDate   *time.Time `gorm:"type:timestamptz"`
	PaymentID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt time.Time  `gorm:"type:timestamptz;not null"`
	UpdatedAt time.Time  `gorm:"type:timestamptz;not null"`
}

// TableName sets the table name.
func (SubscriptionModel) TableName() string { return "subscriptions" }

// GormSubscriptionRepository implements SubscriptionRepository using GORM.
type GormSubscriptionRepository struct {
	db *gorm.DB
}

// NewGormSubscriptionRepository creates a new GormSubscriptionRepository.
func NewGormSubscriptionRepository(db *gorm.DB) *GormSubscriptionRepository {
	return &GormSubscriptionRepository{db: db}
}

// Save persists a new subscription row.
func (r *GormSubscriptionRepository) Save(ctx context.Context, s *subDomain.Subscription) error {
	model := toSubModel(s)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindCurrentByUserID returns the user's trial or active subscription.
func (r *GormSubscriptionRepository) FindCurrentByUserID(ctx context.Context, userID uuid.UUID) (*subDomain.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND status IN ?", userID, []string{string(subDomain.StatusTrial), string(subDomain.StatusActive)}).
		Order("created_at DESC").
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("subscription", userID.String())
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// FindActiveByPaymentID returns the active subscription provisioned for a payment.
func (r *GormSubscriptionRepository) FindActiveByPaymentID(ctx context.Context, paymentID uuid.UUID) (*subDomain.Subscription, error) {
	var model SubscriptionModel
	if err := r.db.WithContext(ctx).
		Where("payment_id = ? AND status = ?", paymentID, string(subDomain.StatusActive)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("subscription for payment", paymentID.String())
		}
		return nil, err
	}
	return toSubDomain(&model), nil
}

// ExpireCurrent marks all of the user's trial/active subscriptions expired.
func (r *GormSubscriptionRepository) ExpireCurrent(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&SubscriptionModel{}).
		Where("user_id = ? AND status IN ?", userID, []string{string(subDomain.StatusTrial), string(subDomain.StatusActive)}).
		Updates(map[string]interface{}{
			"status":     string(subDomain.StatusExpired),
			"updated_at": time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}

func toSubModel(s *subDomain.Subscription) SubscriptionModel {
	var plan *string
	if s.PlanType() != nil {
		v := string(*s.PlanType())
		plan = &v
	}
	return SubscriptionModel{
		ID: s.ID(), UserID: s.UserID(), Status: string(s.Status()),
		PlanType: plan, StartDate: s.StartDate(), EndDate: s.EndDate(),
		PaymentID: s.PaymentID(), CreatedAt: s.CreatedAt(), UpdatedAt: s.UpdatedAt(),
	}
}

func toSubDomain(m *SubscriptionModel) *subDomain.Subscription {
	var plan *paymentDomain.PlanType
	if m.PlanType != nil {
		v := paymentDomain.PlanType(*m.PlanType)
		plan = &v
	}
	return subDomain.Reconstruct(
		m.ID, m.UserID, subDomain.Status(m.Status), plan,
		m.StartDate, m.EndDate, m.PaymentID,
		m.CreatedAt, m.UpdatedAt,
	)
}
