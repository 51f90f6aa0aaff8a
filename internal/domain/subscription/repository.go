package subscription

import (
	"context"

	"github.com/google/uuid"
)

// SubscriptionRepository defines persistence operations for subscriptions.
type SubscriptionRepository interface {
	Save(ctx context.Context, s *Subscription) error

	// FindCurrentByUserID returns the user's trial or active subscription.
	FindCurrentByUserID(ctx context.Context, userID uuid.UUID) (*Subscription, error)

	// FindActiveByPaymentID returns the active subscription provisioned for
	// a payment, if any. Used to detect webhook redelivery.
	FindActiveByPaymentID(ctx context.Context, paymentID uuid.UUID) (*Subscription, error)

	// ExpireCurrent marks all of the user's trial/active subscriptions
	// expired, returning the number of rows touched.
	ExpireCurrent(ctx context.Context, userID uuid.UUID) (int64, error)
}
