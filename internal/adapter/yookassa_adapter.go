package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/domain"
)

const yookassaAPIURL = "https://api.yookassa.ru/v3/payments"

// Webhook event names sent by YooKassa.
const (
	WebhookPaymentSucceeded = "payment.succeeded"
	WebhookPaymentCanceled  = "payment.canceled"
)

// PaymentMetadata travels to the gateway on creation and comes back verbatim
// in webhook notifications. It is the only link from a notification back to
// the purchasing user.
type PaymentMetadata struct {
	UserID    string `json:"user_id"`
	PlanType  string `json:"plan_type"`
	PromoCode string `json:"promo_code,omitempty"`
}

// CreatePaymentRequest describes a payment to register with the gateway.
type CreatePaymentRequest struct {
	Amount         int64
	Currency       string
	Description    string
	IdempotenceKey uuid.UUID
	Metadata       PaymentMetadata
}

// GatewayPayment is the gateway's view of a created payment.
type GatewayPayment struct {
	ID              string
	Status          string
	ConfirmationURL string
}

// WebhookNotification is the body YooKassa POSTs to the webhook endpoint.
type WebhookNotification struct {
	Type   string        `json:"type"`
	Event  string        `json:"event"`
	Object WebhookObject `json:"object"`
}

// WebhookObject is the payment object embedded in a notification.
type WebhookObject struct {
	ID       string          `json:"id"`
	Status   string          `json:"status"`
	Paid     bool            `json:"paid"`
	Metadata PaymentMetadata `json:"metadata"`
}

// PaymentGateway is the Anti-Corruption Layer interface for the external
// payment provider. The application layer never sees provider wire formats.
type PaymentGateway interface {
	// CreatePayment registers a payment and returns the gateway payment id
	// plus the confirmation URL the user is redirected to.
	CreatePayment(ctx context.Context, req CreatePaymentRequest) (*GatewayPayment, error)
}

// YooKassaGateway talks to the YooKassa REST API.
type YooKassaGateway struct {
	baseURL   string
	shopID    string
	secretKey string
	returnURL string
	client    *http.Client
	logger    *zap.Logger
}

// NewYooKassaGateway creates a gateway client with shop credentials.
func NewYooKassaGateway(shopID, secretKey, returnURL string, logger *zap.Logger) *YooKassaGateway {
	return &YooKassaGateway{
		baseURL:   yookassaAPIURL,
		shopID:    shopID,
		secretKey: secretKey,
		returnURL: returnURL,
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

type yookassaAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yookassaConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type yookassaCreateRequest struct {
	Amount       yookassaAmount       `json:"amount"`
	Confirmation yookassaConfirmation `json:"confirmation"`
	Capture      bool                 `json:"capture"`
	Description  string               `json:"description"`
	Metadata     PaymentMetadata      `json:"metadata"`
}

type yookassaCreateResponse struct {
	ID           string               `json:"id"`
	Status       string               `json:"status"`
	Confirmation yookassaConfirmation `json:"confirmation"`
}

// CreatePayment registers the payment with YooKassa. The Idempotence-Key
// header makes retries of the same initiation safe on the gateway side.
func (g *YooKassaGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*GatewayPayment, error) {
	body := yookassaCreateRequest{
		Amount: yookassaAmount{
			Value:    fmt.Sprintf("%d.00", req.Amount),
			Currency: req.Currency,
		},
		Confirmation: yookassaConfirmation{
			Type:      "redirect",
			ReturnURL: g.returnURL,
		},
		Capture:     true,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal gateway request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	httpReq.SetBasicAuth(g.shopID, g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", req.IdempotenceKey.String())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewDependencyError("payment gateway unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewDependencyError("failed to read gateway response", err)
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("gateway rejected payment creation",
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		return nil, domain.NewDependencyError(
			fmt.Sprintf("gateway returned status %d", resp.StatusCode), nil)
	}

	var created yookassaCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, domain.NewDependencyError("failed to decode gateway response", err)
	}

	g.logger.Info("gateway payment created",
		zap.String("gateway_payment_id", created.ID),
		zap.String("status", created.Status),
	)

	return &GatewayPayment{
		ID:              created.ID,
		Status:          created.Status,
		ConfirmationURL: created.Confirmation.ConfirmationURL,
	}, nil
}

// MockGateway is a development/testing implementation of PaymentGateway.
// It fabricates gateway ids without calling out.
type MockGateway struct {
	logger *zap.Logger
}

// NewMockGateway creates a mock gateway for development.
func NewMockGateway(logger *zap.Logger) *MockGateway {
	return &MockGateway{logger: logger}
}

// CreatePayment simulates registering a payment.
func (m *MockGateway) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*GatewayPayment, error) {
	id := fmt.Sprintf("yk_mock_%s", uuid.New().String()[:8])

	m.logger.Info("[MOCK GATEWAY] payment created",
		zap.String("gateway_payment_id", id),
		zap.Int64("amount", req.Amount),
		zap.String("currency", req.Currency),
		zap.String("plan_type", req.Metadata.PlanType),
	)

	return &GatewayPayment{
		ID:              id,
		Status:          "pending",
		ConfirmationURL: fmt.Sprintf("https://mock.gateway/confirm/%s", id),
	}, nil
}
