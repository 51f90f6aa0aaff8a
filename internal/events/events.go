package events

import (
	"time"

	"github.com/google/uuid"
)

// Kafka topics.
const (
	TopicUserEvents    = "user.events"
	TopicBillingEvents = "billing.events"
)

// Event types carried in the CloudEvent envelope.
const (
	UserRegistered = "user.registered"

	PaymentInitiated      = "billing.payment.initiated"
	PaymentSucceeded      = "billing.payment.succeeded"
	PaymentCancelled      = "billing.payment.cancelled"
	SubscriptionActivated = "billing.subscription.activated"
)

// UserRegisteredEvent is published by the user service when a new account is
// created. Billing reacts by provisioning the trial subscription.
type UserRegisteredEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}

// PaymentInitiatedEvent is published when a pending payment has been
// registered with the gateway.
type PaymentInitiatedEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	PlanType         string    `json:"plan_type"`
	Amount           int64     `json:"amount"`
	DiscountAmount   int64     `json:"discount_amount"`
	Currency         string    `json:"currency"`
	PromoCode        string    `json:"promo_code,omitempty"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// PaymentSucceededEvent is published when a webhook confirms the payment.
type PaymentSucceededEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	PlanType         string    `json:"plan_type"`
	Amount           int64     `json:"amount"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// PaymentCancelledEvent is published when a webhook reports cancellation.
type PaymentCancelledEvent struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	UserID           uuid.UUID `json:"user_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// SubscriptionActivatedEvent is published after a paid subscription is
// provisioned for a succeeded payment.
type SubscriptionActivatedEvent struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
	UserID         uuid.UUID `json:"user_id"`
	PaymentID      uuid.UUID `json:"payment_id"`
	PlanType       string    `json:"plan_type"`
	EndDate        time.Time `json:"end_date"`
	OccurredAt     time.Time `json:"occurred_at"`
}
