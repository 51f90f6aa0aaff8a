package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/myfocus-app/service-billing/internal/application"
	"github.com/myfocus-app/service-billing/internal/auth"
	"github.com/myfocus-app/service-billing/internal/middleware"
	"github.com/myfocus-app/service-billing/internal/response"
)

// AdminHandler handles admin HTTP requests for promo and payment management.
type AdminHandler struct {
	promoService   *application.PromoService
	paymentService *application.PaymentService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(promoService *application.PromoService, paymentService *application.PaymentService) *AdminHandler {
	return &AdminHandler{
		promoService:   promoService,
		paymentService: paymentService,
	}
}

// RegisterRoutes registers admin routes.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtManager), middleware.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/promos", h.CreatePromo)
		admin.GET("/promos", h.ListPromos)
		admin.DELETE("/promos/:id", h.DeactivatePromo)
		admin.GET("/payments", h.ListPayments)
		admin.GET("/stats/payments", h.PaymentStats)
	}
}

// CreatePromo handles POST /api/v1/admin/promos.
func (h *AdminHandler) CreatePromo(c *gin.Context) {
	var req application.CreatePromoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.promoService.CreatePromo(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// ListPromos handles GET /api/v1/admin/promos.
func (h *AdminHandler) ListPromos(c *gin.Context) {
	promos, err := h.promoService.ListPromos(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, promos)
}

// DeactivatePromo handles DELETE /api/v1/admin/promos/:id.
// Codes are never deleted, only deactivated.
func (h *AdminHandler) DeactivatePromo(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid promo ID")
		return
	}

	dto, err := h.promoService.DeactivatePromo(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ListPayments handles GET /api/v1/admin/payments.
func (h *AdminHandler) ListPayments(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	payments, total, err := h.paymentService.ListAllPayments(c.Request.Context(), page, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Paginated(c, payments, total, page, limit)
}

// PaymentStats handles GET /api/v1/admin/stats/payments.
func (h *AdminHandler) PaymentStats(c *gin.Context) {
	stats, err := h.paymentService.GetPaymentStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, stats)
}
