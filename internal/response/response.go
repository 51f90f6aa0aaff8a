package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/myfocus-app/service-billing/internal/domain"
)

// Success writes a 200 with the payload.
func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

// Created writes a 201 with the payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

// BadRequest writes a 400 with the message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}

// Paginated writes a 200 with the payload and paging metadata.
func Paginated(c *gin.Context, data interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"data": data,
		"meta": gin.H{"total": total, "page": page, "limit": limit},
	})
}

// Error maps a domain error kind to an HTTP status and writes it.
func Error(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsKind(err, domain.ErrValidation), domain.IsKind(err, domain.ErrRejected):
		status = http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case domain.IsKind(err, domain.ErrConflict), domain.IsKind(err, domain.ErrInvalidState):
		status = http.StatusConflict
	case domain.IsKind(err, domain.ErrDependency):
		status = http.StatusInternalServerError
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
