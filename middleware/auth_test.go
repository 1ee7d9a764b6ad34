package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"event-marketplace-server/config"
	"event-marketplace-server/database"
	"event-marketplace-server/models"
	"event-marketplace-server/utils"
)

func setupAuthTest(t *testing.T) models.User {
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

	user := models.User{FullName: "Test User", Email: "auth@example.com", PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return user
}

func protectedRouter(middleware gin.HandlerFunc, reached *bool) *gin.Engine {
	router := gin.New()
	router.GET("/protected", middleware, func(c *gin.Context) {
		*reached = true
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetUint("user_id")})
	})
	return router
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	setupAuthTest(t)
	reached := false
	router := protectedRouter(AuthMiddleware(), &reached)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
	if reached {
		t.Fatal("handler must not run without credentials")
	}
}

func TestAuthMiddlewareRejectsMalformedAndInvalidTokens(t *testing.T) {
	setupAuthTest(t)
	reached := false
	router := protectedRouter(AuthMiddleware(), &reached)

	for _, header := range []string{"garbage", "Bearer not.a.real.token"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: expected 401, got %d", header, w.Code)
		}
	}
	if reached {
		t.Fatal("handler must not run with bad credentials")
	}
}

func TestAuthMiddlewareAcceptsValidToken(t *testing.T) {
	user := setupAuthTest(t)
	reached := false
	router := protectedRouter(AuthMiddleware(), &reached)

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !reached {
		t.Fatal("handler never ran for a valid token")
	}
}

func TestAuthMiddlewareRejectsDeactivatedUser(t *testing.T) {
	user := setupAuthTest(t)
	reached := false
	router := protectedRouter(AuthMiddleware(), &reached)

	if err := database.DB.Model(&models.User{}).Where("id = ?", user.ID).
		Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for deactivated user, got %d", w.Code)
	}
	if reached {
		t.Fatal("handler must not run for a deactivated user")
	}
}

func TestWebSocketAuthMiddlewareUsesQueryToken(t *testing.T) {
	user := setupAuthTest(t)
	reached := false
	router := protectedRouter(WebSocketAuthMiddleware(), &reached)

	// No token: rejected before the handler, so nothing ever reaches the hub
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if reached {
		t.Fatal("handler must not run without a token")
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/protected?token="+token, nil)
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with query token, got %d: %s", w.Code, w.Body.String())
	}
	if !reached {
		t.Fatal("handler never ran for a valid query token")
	}
}

func TestRequireRole(t *testing.T) {
	user := setupAuthTest(t)
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/admin-only", AuthMiddleware(), RequireRole(models.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		t.Fatalf("failed to generate token: %v", err)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong role, got %d", w.Code)
	}
}
