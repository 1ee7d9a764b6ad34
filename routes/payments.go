package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"event-marketplace-server/database"
	"event-marketplace-server/models"
	"event-marketplace-server/services"
	"event-marketplace-server/utils"
)

// RegisterPaymentRoutes sets up payment session endpoints. Session creation
// against a real provider is out of scope; confirmation is what feeds the
// notification pipeline.
func RegisterPaymentRoutes(router *gin.RouterGroup) {
	payments := router.Group("/payments")
	{
		payments.POST("", createPaymentSession)
		payments.POST("/:id/confirm", confirmPayment)
	}
}

func createPaymentSession(c *gin.Context) {
	userID := c.GetUint("user_id")

	var request struct {
		EventID uint    `json:"event_id" binding:"required"`
		Amount  float64 `json:"amount" binding:"required,gt=0"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var event models.Event
	if err := database.DB.Where("id = ? AND user_id = ?", request.EventID, userID).First(&event).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	sessionID, err := utils.RandomToken(16)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment session"})
		return
	}

	payment := models.Payment{
		EventID:   event.ID,
		UserID:    userID,
		Amount:    request.Amount,
		Status:    models.PaymentStatusPending,
		SessionID: sessionID,
	}

	if err := database.DB.Create(&payment).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create payment session"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"payment": payment,
	})
}

func confirmPayment(c *gin.Context) {
	userID := c.GetUint("user_id")

	paymentID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID"})
		return
	}

	var payment models.Payment
	if err := database.DB.Where("id = ? AND user_id = ?", paymentID, userID).First(&payment).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Payment not found"})
		return
	}

	if payment.Status == models.PaymentStatusPaid {
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"payment": payment,
		})
		return
	}

	now := time.Now()
	if err := database.DB.Model(&payment).Updates(map[string]interface{}{
		"status":  models.PaymentStatusPaid,
		"paid_at": now,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm payment"})
		return
	}
	payment.Status = models.PaymentStatusPaid
	payment.PaidAt = &now

	notificationService.Publish(services.DomainEvent{
		Type:    services.DomainPaymentReceived,
		Payment: &payment,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"payment": payment,
	})
}
