package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"event-marketplace-server/services"
)

// respondServiceError maps the service error taxonomy onto HTTP statuses.
// Anything outside the taxonomy is a store failure and stays opaque.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	case errors.Is(err, services.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
