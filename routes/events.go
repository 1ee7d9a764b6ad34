package routes

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"event-marketplace-server/database"
	"event-marketplace-server/models"
	"event-marketplace-server/services"
)

// RegisterEventRoutes sets up the event CRUD slice. It exists to exercise
// the booking relationship chat validates against and the notification
// triggers; it is deliberately thin.
func RegisterEventRoutes(router *gin.RouterGroup) {
	events := router.Group("/events")
	{
		events.POST("", createEvent)
		events.GET("", listEvents)
		events.GET("/:id", getEvent)
		events.PUT("/:id", updateEvent)
		events.POST("/:id/assign-vendor", assignVendor)
	}
}

func createEvent(c *gin.Context) {
	userID := c.GetUint("user_id")

	var request struct {
		Name        string    `json:"name" binding:"required"`
		Description string    `json:"description"`
		Venue       string    `json:"venue"`
		City        string    `json:"city"`
		Date        time.Time `json:"date" binding:"required"`
		GuestCount  int       `json:"guest_count"`
		Budget      *float64  `json:"budget"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	event := models.Event{
		UserID:      userID,
		Name:        request.Name,
		Description: request.Description,
		Venue:       request.Venue,
		City:        request.City,
		Date:        request.Date,
		GuestCount:  request.GuestCount,
		Budget:      request.Budget,
		Status:      models.EventStatusPlanned,
	}

	if err := database.DB.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	notificationService.Publish(services.DomainEvent{
		Type:  services.DomainEventCreated,
		Event: &event,
	})

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"event":   event,
	})
}

func listEvents(c *gin.Context) {
	user := c.MustGet("user").(models.User)

	query := database.DB.Preload("Vendor")
	switch user.Role {
	case models.RoleAdmin:
		// Moderators see everything
	case models.RoleVendor:
		var vendor models.Vendor
		if err := database.DB.Where("user_id = ?", user.ID).First(&vendor).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load vendor profile"})
			return
		}
		query = query.Where("vendor_id = ?", vendor.ID)
	default:
		query = query.Where("user_id = ?", user.ID)
	}

	var events []models.Event
	if err := query.Order("date ASC").Find(&events).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch events"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"events":  events,
	})
}

func getEvent(c *gin.Context) {
	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return
	}

	var event models.Event
	if err := database.DB.Preload("Vendor").Preload("User").First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"event":   event,
	})
}

func updateEvent(c *gin.Context) {
	event, ok := loadOwnedEvent(c)
	if !ok {
		return
	}

	var request struct {
		Name        *string    `json:"name"`
		Description *string    `json:"description"`
		Venue       *string    `json:"venue"`
		City        *string    `json:"city"`
		Date        *time.Time `json:"date"`
		GuestCount  *int       `json:"guest_count"`
		Budget      *float64   `json:"budget"`
		Status      *string    `json:"status"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	updates := map[string]interface{}{}
	if request.Name != nil {
		updates["name"] = *request.Name
	}
	if request.Description != nil {
		updates["description"] = *request.Description
	}
	if request.Venue != nil {
		updates["venue"] = *request.Venue
	}
	if request.City != nil {
		updates["city"] = *request.City
	}
	if request.Date != nil {
		updates["date"] = *request.Date
	}
	if request.GuestCount != nil {
		updates["guest_count"] = *request.GuestCount
	}
	if request.Budget != nil {
		updates["budget"] = *request.Budget
	}
	if request.Status != nil {
		updates["status"] = *request.Status
	}

	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
		return
	}

	if err := database.DB.Model(event).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update event"})
		return
	}

	notificationService.Publish(services.DomainEvent{
		Type:  services.DomainEventUpdated,
		Event: event,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"event":   event,
	})
}

func assignVendor(c *gin.Context) {
	event, ok := loadOwnedEvent(c)
	if !ok {
		return
	}

	var request struct {
		VendorID uint `json:"vendor_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var vendor models.Vendor
	if err := database.DB.First(&vendor, request.VendorID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
		return
	}

	if err := database.DB.Model(event).Updates(map[string]interface{}{
		"vendor_id": vendor.ID,
		"status":    models.EventStatusBooked,
	}).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign vendor"})
		return
	}
	event.VendorID = &vendor.ID

	notificationService.Publish(services.DomainEvent{
		Type:     services.DomainVendorAssigned,
		Event:    event,
		VendorID: vendor.ID,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"event":   event,
	})
}

// loadOwnedEvent fetches the event in :id and checks the caller owns it or
// is a moderator. Writes the error response itself when the check fails.
func loadOwnedEvent(c *gin.Context) (*models.Event, bool) {
	user := c.MustGet("user").(models.User)

	eventID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event ID"})
		return nil, false
	}

	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return nil, false
	}

	if event.UserID != user.ID && user.Role != models.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return nil, false
	}

	return &event, true
}
