package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/myfocus-app/service-billing/internal/application"
	"github.com/myfocus-app/service-billing/internal/auth"
	"github.com/myfocus-app/service-billing/internal/middleware"
	"github.com/myfocus-app/service-billing/internal/response"
)

// HabitHandler handles HTTP requests for the habit progression engine.
type HabitHandler struct {
	service *application.HabitService
}

// NewHabitHandler creates a new HabitHandler.
func NewHabitHandler(service *application.HabitService) *HabitHandler {
	return &HabitHandler{service: service}
}

// RegisterRoutes registers habit routes on the given router group.
func (h *HabitHandler) RegisterRoutes(r *gin.RouterGroup, jwtManager *auth.JWTManager) {
	habits := r.Group("/habits")
	habits.Use(middleware.AuthMiddleware(jwtManager))
	{
		habits.GET("/goals", h.ListGoals)
		habits.POST("", h.StartHabit)
		habits.GET("/me", h.GetHabit)
		habits.POST("/me/steps/:day/toggle", h.ToggleStep)
		habits.DELETE("/me", h.ResetHabit)
	}
}

// ListGoals handles GET /api/v1/habits/goals.
func (h *HabitHandler) ListGoals(c *gin.Context) {
	response.Success(c, h.service.ListGoals())
}

// StartHabit handles POST /api/v1/habits.
func (h *HabitHandler) StartHabit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req application.StartHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	dto, err := h.service.StartHabit(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto)
}

// GetHabit handles GET /api/v1/habits/me.
func (h *HabitHandler) GetHabit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	dto, err := h.service.GetHabit(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ToggleStep handles POST /api/v1/habits/me/steps/:day/toggle.
func (h *HabitHandler) ToggleStep(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	day, err := strconv.Atoi(c.Param("day"))
	if err != nil || day < 1 {
		response.BadRequest(c, "invalid step day")
		return
	}

	dto, err := h.service.ToggleStep(c.Request.Context(), userID, day)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, dto)
}

// ResetHabit handles DELETE /api/v1/habits/me.
func (h *HabitHandler) ResetHabit(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	if err := h.service.ResetHabit(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, gin.H{"reset": true})
}
