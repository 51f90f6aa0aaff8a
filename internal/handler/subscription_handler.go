package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/myfocus-app/service-billing/internal/application"
	"github.com/myfocus-app/service-billing/internal/auth"
	"github.com/myfocus-app/service-billing/internal/middleware"
	"github.com/myfocus-app/service-billing/internal/response"
)

// SubscriptionHandler handles HTTP requests for subscription queries.
type SubscriptionHandler struct {
	service *application.SubscriptionService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(service *application.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{service: service}
}

// RegisterRoutes registers subscription routes. The plan table is public;
// the current-subscription query requires auth.
func (h *SubscriptionHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	subs := r.Group("/subscriptions")
	{
		subs.GET("/plans", h.GetPlans)
		subs.GET("/me", middleware.AuthMiddleware(jwtManager), h.GetMySubscription)
	}
}

// GetPlans handles GET /api/v1/subscriptions/plans.
func (h *SubscriptionHandler) GetPlans(c *gin.Context) {
	response.Success(c, h.service.GetPlans())
}

// GetMySubscription handles GET /api/v1/subscriptions/me.
func (h *SubscriptionHandler) GetMySubscription(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dto, err := h.service.GetMySubscription(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
