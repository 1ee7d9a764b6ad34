package routes

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"event-marketplace-server/database"
	"event-marketplace-server/middleware"
	"event-marketplace-server/models"
	"event-marketplace-server/services"
	"event-marketplace-server/utils"
	ws "event-marketplace-server/websocket"
)

var (
	chatHub     *ws.Hub
	chatService *services.ChatService
)

// ChatRoutes sets up chat endpoints and wires the conversation join handler
// into the hub's inbound message dispatch.
func ChatRoutes(router *gin.Engine, hub *ws.Hub, chat *services.ChatService) {
	chatHub = hub
	chatService = chat

	// Conversation rooms are joined lazily, on explicit request from the
	// socket, and only after the same ownership check the REST routes run.
	hub.MessageHandlers["join_conversation"] = handleJoinConversation
	hub.MessageHandlers["leave_conversation"] = handleLeaveConversation

	group := router.Group("/api/v1/chat")
	{
		// WebSocket connection - authenticated before the upgrade
		group.GET("/ws", middleware.WebSocketAuthMiddleware(), handleWebSocketConnection)

		authed := group.Group("", middleware.AuthMiddleware())
		{
			authed.POST("/conversations/get-or-create", getOrCreateConversation)
			authed.GET("/conversations", listConversations)
			authed.GET("/conversations/:id", getConversation)
			authed.DELETE("/conversations/:id", deactivateConversation)

			authed.GET("/conversations/:id/messages", getMessages)
			authed.POST("/conversations/:id/messages", postMessage)
			authed.POST("/conversations/:id/attachments", postAttachment)
			authed.POST("/conversations/:id/mark-read", markConversationRead)

			authed.GET("/unread-total", getUnreadTotal)
		}
	}
}

// handleWebSocketConnection upgrades an authenticated request. Registration
// with the hub joins the identity and role groups automatically.
func handleWebSocketConnection(c *gin.Context) {
	userID := c.GetUint("user_id")
	role := c.GetString("role")

	ws.ServeWebSocket(chatHub, c.Writer, c.Request, userID, role)
}

// handleJoinConversation admits a live connection into a conversation group
// after resolving its party in the conversation.
func handleJoinConversation(client *ws.Client, msg *ws.InboundMessage) error {
	if msg.ConversationID == 0 {
		return nil
	}
	if _, err := chatService.Authorize(client.ID, msg.ConversationID); err != nil {
		return err
	}
	chatHub.JoinGroup(client.ID, ws.ConversationGroup(msg.ConversationID))
	return nil
}

func handleLeaveConversation(client *ws.Client, msg *ws.InboundMessage) error {
	if msg.ConversationID == 0 {
		return nil
	}
	chatHub.LeaveGroup(client.ID, ws.ConversationGroup(msg.ConversationID))
	return nil
}

func getOrCreateConversation(c *gin.Context) {
	userID := c.GetUint("user_id")

	var request struct {
		UserID   uint `json:"user_id" binding:"required"`
		VendorID uint `json:"vendor_id" binding:"required"`
		EventID  uint `json:"event_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	// The caller must be one of the two parties being connected
	if userID != request.UserID {
		if _, err := vendorOwnedBy(userID, request.VendorID); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}
	}

	conversation, err := chatService.GetOrCreate(request.UserID, request.VendorID, request.EventID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"conversation": conversation,
	})
}

func listConversations(c *gin.Context) {
	userID := c.GetUint("user_id")

	conversations, err := chatService.ListConversations(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"conversations": conversations,
	})
}

func getConversation(c *gin.Context) {
	userID := c.GetUint("user_id")
	conversationID, ok := paramID(c)
	if !ok {
		return
	}

	conversation, err := chatService.Get(userID, conversationID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"conversation": conversation,
	})
}

func deactivateConversation(c *gin.Context) {
	userID := c.GetUint("user_id")
	conversationID, ok := paramID(c)
	if !ok {
		return
	}

	if err := chatService.Deactivate(userID, conversationID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Conversation closed",
	})
}

func getMessages(c *gin.Context) {
	userID := c.GetUint("user_id")
	conversationID, ok := paramID(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := chatService.ListMessages(userID, conversationID, limit, offset)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"messages": messages,
		"pagination": gin.H{
			"limit":  limit,
			"offset": offset,
		},
	})
}

func postMessage(c *gin.Context) {
	userID := c.GetUint("user_id")
	conversationID, ok := paramID(c)
	if !ok {
		return
	}

	var request struct {
		Content string `json:"content" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	message, err := chatService.SendMessage(userID, conversationID, request.Content, "")
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": message,
	})
}

// postAttachment uploads an image and delivers it as a message carrying the
// attachment URL
func postAttachment(c *gin.Context) {
	userID := c.GetUint("user_id")
	conversationID, ok := paramID(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided"})
		return
	}
	defer file.Close()

	name := strings.ToLower(header.Filename)
	if !strings.HasSuffix(name, ".jpg") && !strings.HasSuffix(name, ".jpeg") && !strings.HasSuffix(name, ".png") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only .jpg, .jpeg and .png files are supported"})
		return
	}
	if header.Size > 10<<20 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "File size too large. Maximum 10MB allowed"})
		return
	}

	url, err := utils.UploadChatAttachment(file, header.Filename)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload attachment"})
		return
	}

	content := c.PostForm("content")
	if content == "" {
		content = "📷 Photo"
	}

	message, err := chatService.SendMessage(userID, conversationID, content, url)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": message,
	})
}

func markConversationRead(c *gin.Context) {
	userID := c.GetUint("user_id")
	conversationID, ok := paramID(c)
	if !ok {
		return
	}

	if err := chatService.MarkRead(userID, conversationID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Messages marked as read",
	})
}

func getUnreadTotal(c *gin.Context) {
	userID := c.GetUint("user_id")

	total, err := chatService.TotalUnread(userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"total":   total,
	})
}

// vendorOwnedBy checks that vendorID is the vendor profile owned by userID
func vendorOwnedBy(userID, vendorID uint) (*models.Vendor, error) {
	var vendor models.Vendor
	if err := database.DB.Where("id = ? AND user_id = ?", vendorID, userID).First(&vendor).Error; err != nil {
		return nil, err
	}
	return &vendor, nil
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return 0, false
	}
	return uint(id), true
}
