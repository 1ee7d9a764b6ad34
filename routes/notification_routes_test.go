package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"event-marketplace-server/config"
	"event-marketplace-server/database"
	"event-marketplace-server/middleware"
	"event-marketplace-server/models"
	"event-marketplace-server/services"
	"event-marketplace-server/utils"
	ws "event-marketplace-server/websocket"
)

func setupNotificationRoutes(t *testing.T) (*gin.Engine, models.User) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.Load()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	database.DB = db

	notificationService = services.NewNotificationService(db, ws.NewHub(), 0)

	user := models.User{FullName: "Test User", Email: "routes@example.com", PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	router := gin.New()
	protected := router.Group("/api/v1", middleware.AuthMiddleware())
	RegisterNotificationRoutes(protected)
	return router, user
}

func TestUnreadCountResponseShape(t *testing.T) {
	router, user := setupNotificationRoutes(t)

	if _, err := notificationService.Create(user.ID, models.NotificationUserLogin, "Welcome Back", "hi", nil); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	read, err := notificationService.Create(user.ID, models.NotificationUserLogin, "Welcome Back", "hi again", nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if err := notificationService.MarkRead(read.ID, user.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/unread-count", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Success bool  `json:"success"`
		Count   int64 `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !body.Success {
		t.Fatal("expected the success envelope on the unread-count response")
	}
	if body.Count != 1 {
		t.Fatalf("expected count 1, got %d", body.Count)
	}
}
