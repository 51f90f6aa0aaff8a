package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/myfocus-app/service-billing/internal/application"
	"github.com/myfocus-app/service-billing/internal/auth"
	"github.com/myfocus-app/service-billing/internal/middleware"
	"github.com/myfocus-app/service-billing/internal/response"
)

// PromoHandler handles HTTP requests for promo code validation.
type PromoHandler struct {
	service *application.PromoService
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(service *application.PromoService) *PromoHandler {
	return &PromoHandler{service: service}
}

// RegisterRoutes registers promo routes on the given router group.
func (h *PromoHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	promos := r.Group("/promos")
	promos.Use(middleware.AuthMiddleware(jwtManager))
	{
		promos.POST("/validate", h.ValidatePromo)
	}
}

// ValidatePromo handles POST /api/v1/promos/validate.
// Graceful rejections come back as 200 with valid=false; a missing code is a
// 400 input error.
func (h *PromoHandler) ValidatePromo(c *gin.Context) {
	var req application.ValidatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.ValidatePromo(c.Request.Context(), req.Code)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}
