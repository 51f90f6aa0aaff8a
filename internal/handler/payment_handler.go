package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/adapter"
	"github.com/myfocus-app/service-billing/internal/application"
	"github.com/myfocus-app/service-billing/internal/auth"
	"github.com/myfocus-app/service-billing/internal/middleware"
	"github.com/myfocus-app/service-billing/internal/response"
)

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	service *application.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *application.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers authenticated payment routes on the given router group.
func (h *PaymentHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	payments := r.Group("/payments")
	payments.Use(middleware.AuthMiddleware(jwtManager))
	{
		payments.POST("", h.InitiatePayment)
		payments.GET("/:id", h.GetPayment)
	}
}

// RegisterWebhookRoutes registers the gateway webhook outside the JWT group.
// The gateway, not the user's browser, calls this endpoint.
func (h *PaymentHandler) RegisterWebhookRoutes(r *gin.RouterGroup) {
	r.POST("/payments/webhook/yookassa", h.GatewayWebhook)
}

// InitiatePayment handles POST /api/v1/payments.
func (h *PaymentHandler) InitiatePayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.InitiatePayment(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GetPayment handles GET /api/v1/payments/:id.
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid payment ID")
		return
	}

	dto, err := h.service.GetPayment(c.Request.Context(), userID, paymentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// GatewayWebhook handles POST /api/v1/payments/webhook/yookassa.
// Handled and ignored events both acknowledge with {received: true}; fatal
// processing errors answer non-2xx so the gateway redelivers.
func (h *PaymentHandler) GatewayWebhook(c *gin.Context) {
	var notification adapter.WebhookNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		response.BadRequest(c, "malformed notification body")
		return
	}

	if err := h.service.HandleGatewayNotification(c.Request.Context(), notification); err != nil {
		// Any processing failure is fatal for this invocation; a 500 tells
		// the gateway to redeliver.
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
