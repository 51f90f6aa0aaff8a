package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/myfocus-app/service-billing/internal/domain"
)

func newTestGateway(serverURL string) *YooKassaGateway {
	g := NewYooKassaGateway("shop-42", "sk_test_secret", "https://app.test/return", zap.NewNop())
	g.baseURL = serverURL
	return g
}

func sampleRequest() CreatePaymentRequest {
	return CreatePaymentRequest{
		Amount:         600,
		Currency:       "RUB",
		Description:    "Subscription 3_months",
		IdempotenceKey: uuid.New(),
		Metadata: PaymentMetadata{
			UserID:    uuid.New().String(),
			PlanType:  "3_months",
			PromoCode: "SAVE10",
		},
	}
}

func TestCreatePayment_WireFormat(t *testing.T) {
	req := sampleRequest()

	var captured *http.Request
	var capturedBody yookassaCreateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r
		require.NoError(t, json.NewDecoder(r.Body).Decode(&capturedBody))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(yookassaCreateResponse{
			ID:     "yk_abc123",
			Status: "pending",
			Confirmation: yookassaConfirmation{
				Type:            "redirect",
				ConfirmationURL: "https://yookassa.test/confirm/yk_abc123",
			},
		})
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	created, err := gw.CreatePayment(context.Background(), req)
	require.NoError(t, err)

	// Shop credentials ride on Basic auth, idempotence on the header.
	user, pass, ok := captured.BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "shop-42", user)
	assert.Equal(t, "sk_test_secret", pass)
	assert.Equal(t, req.IdempotenceKey.String(), captured.Header.Get("Idempotence-Key"))
	assert.Equal(t, "application/json", captured.Header.Get("Content-Type"))

	// Whole-ruble amounts are serialized with a fixed ".00" fraction.
	assert.Equal(t, "600.00", capturedBody.Amount.Value)
	assert.Equal(t, "RUB", capturedBody.Amount.Currency)
	assert.True(t, capturedBody.Capture)
	assert.Equal(t, "redirect", capturedBody.Confirmation.Type)
	assert.Equal(t, "https://app.test/return", capturedBody.Confirmation.ReturnURL)
	assert.Equal(t, req.Metadata.UserID, capturedBody.Metadata.UserID)
	assert.Equal(t, "3_months", capturedBody.Metadata.PlanType)
	assert.Equal(t, "SAVE10", capturedBody.Metadata.PromoCode)

	assert.Equal(t, "yk_abc123", created.ID)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "https://yookassa.test/confirm/yk_abc123", created.ConfirmationURL)
}

func TestCreatePayment_GatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"type":"error","code":"invalid_credentials"}`))
	}))
	defer server.Close()

	gw := newTestGateway(server.URL)
	_, err := gw.CreatePayment(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrDependency))
}

func TestCreatePayment_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	gw := newTestGateway(server.URL)
	_, err := gw.CreatePayment(context.Background(), sampleRequest())
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrDependency))
}

func TestMockGateway(t *testing.T) {
	gw := NewMockGateway(zap.NewNop())

	created, err := gw.CreatePayment(context.Background(), sampleRequest())
	require.NoError(t, err)
	assert.Contains(t, created.ID, "yk_mock_")
	assert.Equal(t, "pending", created.Status)
	assert.Contains(t, created.ConfirmationURL, created.ID)
}

func TestWebhookNotification_Decode(t *testing.T) {
	raw := `{
		"type": "notification",
		"event": "payment.succeeded",
		"object": {
			"id": "yk_abc123",
			"status": "succeeded",
			"paid": true,
			"metadata": {"user_id": "u-1", "plan_type": "1_year", "promo_code": "SAVE10"}
		}
	}`

	var n WebhookNotification
	require.NoError(t, json.Unmarshal([]byte(raw), &n))
	assert.Equal(t, WebhookPaymentSucceeded, n.Event)
	assert.Equal(t, "yk_abc123", n.Object.ID)
	assert.True(t, n.Object.Paid)
	assert.Equal(t, "1_year", n.Object.Metadata.PlanType)
}
