package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// RegisterNotificationRoutes sets up the durable-notification endpoints.
// These are what a reconnecting client pulls to recover anything it missed
// while offline; the realtime layer offers no replay.
func RegisterNotificationRoutes(router *gin.RouterGroup) {
	notifications := router.Group("/notifications")
	{
		notifications.GET("", getUserNotifications)
		notifications.GET("/unread-count", getNotificationUnreadCount)
		notifications.POST("/mark-read/:id", markNotificationAsRead)
		notifications.POST("/mark-all-read", markAllNotificationsAsRead)
	}
}

func getUserNotifications(c *gin.Context) {
	userID := c.GetUint("user_id")

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	unreadOnly := c.Query("unread_only") == "true"

	notifications, err := notificationService.ListForUser(userID, limit, offset, unreadOnly)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": notifications,
	})
}

func getNotificationUnreadCount(c *gin.Context) {
	userID := c.GetUint("user_id")

	count, err := notificationService.UnreadCount(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"count":   count,
	})
}

func markNotificationAsRead(c *gin.Context) {
	userID := c.GetUint("user_id")

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
		return
	}

	if err := notificationService.MarkRead(uint(id), userID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Notification marked as read",
	})
}

func markAllNotificationsAsRead(c *gin.Context) {
	userID := c.GetUint("user_id")

	count, err := notificationService.MarkAllRead(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"updated": count,
	})
}
