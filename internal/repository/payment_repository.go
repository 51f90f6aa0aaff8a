package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/myfocus-app/service-billing/internal/domain"
	paymentDomain "github.com/myfocus-app/service-billing/internal/domain/payment"
)

// PaymentModel is the GORM persistence model for the payments table.
type PaymentModel struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID `gorm:"type:uuid;not null;index"`
	GatewayPaymentID string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Amount           int64     `gorm:"not null"`
	DiscountAmount   int64     `gorm:"not null;default:0"`
	Currency         string    `gorm:"type:varchar(3);not null;default:'RUB'"`
	Status           string    `gorm:"type:varchar(20);not null;default:'pending'"`
	PlanType         string    `gorm:"type:varchar(20);not null"`
	PromoCode        string    `gorm:"type:varchar(50)"`
	ConfirmationURL  string    `gorm:"type:text"`
	CreatedAt        time.Time `gorm:"type:timestamptz;not null"`
	UpdatedAt        time.Time `gorm:"type:timestamptz;not null"`
}

// TableName specifies the table name for GORM.
func (PaymentModel) TableName() string { return "payments" }

// PaymentRepositoryImpl is the GORM-based implementation of PaymentRepository.
type PaymentRepositoryImpl struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new GORM-based payment repository.
func NewPaymentRepository(db *gorm.DB) *PaymentRepositoryImpl {
	return &PaymentRepositoryImpl{db: db}
}

// Save persists a new pending payment.
func (r *PaymentRepositoryImpl) Save(ctx context.Context, p *paymentDomain.Payment) error {
	model := toPaymentModel(p)
	return r.db.WithContext(ctx).Create(&model).Error
}

// FindByID retrieves a payment by its unique ID.
func (r *PaymentRepositoryImpl) FindByID(ctx context.Context, id uuid.UUID) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("payment", id.String())
		}
		return nil, err
	}
	return toPaymentDomain(&model), nil
}

// FindByGatewayID retrieves a payment by the external gateway's payment id.
func (r *PaymentRepositoryImpl) FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*paymentDomain.Payment, error) {
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.NewNotFoundError("payment", gatewayPaymentID)
		}
		return nil, err
	}
	return toPaymentDomain(&model), nil
}

// TransitionStatus moves a pending payment to a terminal status. The
// conditional update makes redelivered webhooks a no-op: a payment that is
// already terminal is left untouched and applied=false is returned.
func (r *PaymentRepositoryImpl) TransitionStatus(ctx context.Context, gatewayPaymentID string, to paymentDomain.Status) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&PaymentModel{}).
		Where("gateway_payment_id = ? AND status = ?", gatewayPaymentID, string(paymentDomain.StatusPending)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	// Nothing transitioned: either the payment is unknown or already terminal.
	var model PaymentModel
	if err := r.db.WithContext(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.NewNotFoundError("payment", gatewayPaymentID)
		}
		return false, err
	}
	if model.Status != string(to) {
		return false, domain.NewInvalidStateError(model.Status, string(to))
	}
	return false, nil
}

// ListByUser retrieves a user's payments, newest first.
func (r *PaymentRepositoryImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*paymentDomain.Payment, error) {
	var models []PaymentModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, err
	}

	payments := make([]*paymentDomain.Payment, len(models))
	for i := range models {
		payments[i] = toPaymentDomain(&models[i])
	}
	return payments, nil
}

// ListAll retrieves all payments with pagination (admin).
func (r *PaymentRepositoryImpl) ListAll(ctx context.Context, page, limit int) ([]*paymentDomain.Payment, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&PaymentModel{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []PaymentModel
	offset := (page - 1) * limit
	if err := r.db.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&models).Error; err != nil {
		return nil, 0, err
	}

	payments := make([]*paymentDomain.Payment, len(models))
	for i := range models {
		payments[i] = toPaymentDomain(&models[i])
	}
	return payments, total, nil
}

// CountByStatus returns payment counts grouped by status (admin).
func (r *PaymentRepositoryImpl) CountByStatus(ctx context.Context) (map[string]int64, error) {
	type statusCount struct {
		Status string
		Count  int64
	}
	var results []statusCount
	if err := r.db.WithContext(ctx).Model(&PaymentModel{}).
		Select("status, count(*) as count").
		Group("status").
		Find(&results).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(results))
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

func toPaymentModel(p *paymentDomain.Payment) PaymentModel {
	return PaymentModel{
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

func toPaymentDomain(m *PaymentModel) *paymentDomain.Payment {
	return paymentDomain.Reconstitute(
		m.ID, m.UserID, m.GatewayPaymentID,
		m.Amount, m.DiscountAmount, m.Currency,
		paymentDomain.Status(m.Status), paymentDomain.PlanType(m.PlanType),
		m.PromoCode, m.ConfirmationURL,
		m.CreatedAt, m.UpdatedAt,
	)
}
