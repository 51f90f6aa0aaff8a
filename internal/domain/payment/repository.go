package payment

import (
	"context"

	"github.com/google/uuid"
)

// PaymentRepository defines the persistence contract for Payment aggregates.
type PaymentRepository interface {
	// Save persists a new pending payment.
	Save(ctx context.Context, p *Payment) error

	// FindByID retrieves a payment by its unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*Payment, error)

	// FindByGatewayID retrieves a payment by the external gateway's payment id.
	FindByGatewayID(ctx context.Context, gatewayPaymentID string) (*Payment, error)

	// TransitionStatus moves the payment with the given gateway id from
	// pending to the terminal status. It reports applied=false when the
	// payment was already terminal, which callers treat as a redelivery.
	TransitionStatus(ctx context.Context, gatewayPaymentID string, to Status) (applied bool, err error)

	// ListByUser retrieves a user's payments, newest first.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Payment, error)

	// ListAll retrieves all payments with pagination (admin).
	ListAll(ctx context.Context, page, limit int) ([]*Payment, int64, error)

	// CountByStatus returns payment counts grouped by status (admin).
	CountByStatus(ctx context.Context) (map[string]int64, error)
}
