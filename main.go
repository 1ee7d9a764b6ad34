package main

import (
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"event-marketplace-server/config"
	"event-marketplace-server/database"
	"event-marketplace-server/jobs"
	"event-marketplace-server/middleware"
	"event-marketplace-server/routes"
	"event-marketplace-server/services"
	ws "event-marketplace-server/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	// Load configuration
	config.Load()

	// Initialize database
	if err := database.Initialize(); err != nil {
		log.Fatal("Failed to initialize database:", err)
	}

	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Disable automatic redirects for trailing slashes
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Security middleware stack
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.RateLimitMiddleware())
	router.Use(middleware.CORSMiddleware())
	middleware.StartRateLimiterCleanup()

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Event Marketplace Server is running",
			"time":    time.Now().UTC(),
		})
	})

	// Realtime hub
	hub := ws.NewHub()
	go hub.Run()

	// Core services
	notificationService := services.NewNotificationService(database.DB, hub, config.AppConfig.Notifications.EventBuffer)
	go notificationService.Run()
	defer notificationService.Stop()

	chatService := services.NewChatService(database.DB, hub)
	chatService.SetMaxMessageLength(config.AppConfig.Chat.MaxMessageLength)

	// Chat routes own the WebSocket endpoint and the hub's join handlers
	routes.ChatRoutes(router, hub, chatService)

	// API routes
	api := router.Group("/api/v1")
	{
		// Auth routes (no authentication required) - with strict rate limiting
		authRoutes := api.Group("/auth")
		authRoutes.Use(middleware.AuthRateLimitMiddleware())
		routes.RegisterAuthRoutes(authRoutes, notificationService)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			routes.RegisterMeRoute(protected)
			routes.RegisterEventRoutes(protected)
			routes.RegisterPaymentRoutes(protected)
			routes.RegisterVendorRoutes(protected)
			routes.RegisterNotificationRoutes(protected)
		}
	}

	// Notification retention job
	retentionJob := jobs.NewRetentionJob(notificationService, config.AppConfig.Notifications.RetentionDays)
	retentionJob.Start()
	defer retentionJob.Stop()

	// Get port from environment or use default
	port := config.AppConfig.Server.Port

	log.Printf("Server starting on port %s", port)
	if err := router.Run("0.0.0.0:" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
