package routes

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"event-marketplace-server/database"
	"event-marketplace-server/models"
	"event-marketplace-server/services"
	"event-marketplace-server/utils"
)

var notificationService *services.NotificationService

// RegisterAuthRoutes sets up authentication endpoints
func RegisterAuthRoutes(router *gin.RouterGroup, notifications *services.NotificationService) {
	notificationService = notifications

	router.POST("/register", signUp)
	router.POST("/login", signIn)
}

// RegisterMeRoute exposes the current-user endpoint on a protected group
func RegisterMeRoute(router *gin.RouterGroup) {
	router.GET("/auth/me", getCurrentUser)
}

func signUp(c *gin.Context) {
	var request struct {
		FullName     string `json:"full_name" binding:"required"`
		Email        string `json:"email" binding:"required,email"`
		Password     string `json:"password" binding:"required,min=8"`
		Role         string `json:"role"`
		BusinessName string `json:"business_name"`
		Category     string `json:"category"`
		City         string `json:"city"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	role := models.UserRole(request.Role)
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleVendor {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid role"})
		return
	}
	if role == models.RoleVendor && request.BusinessName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Business name is required for vendors"})
		return
	}

	var existing models.User
	if err := database.DB.Where("email = ?", request.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	hash, err := utils.HashPassword(request.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
		return
	}

	user := models.User{
		FullName:     request.FullName,
		Email:        request.Email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := database.DB.Create(&user).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
		return
	}

	if role == models.RoleVendor {
		vendor := models.Vendor{
			UserID:       user.ID,
			BusinessName: request.BusinessName,
			Category:     request.Category,
			City:         request.City,
		}
		if err := database.DB.Create(&vendor).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create vendor profile"})
			return
		}
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func signIn(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}

	var user models.User
	if err := database.DB.Where("email = ?", request.Email).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !utils.CheckPasswordHash(request.Password, user.PasswordHash) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Account is deactivated"})
		return
	}

	token, err := utils.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue token"})
		return
	}

	// Fire-and-forget: a failing notification pipeline never fails a login
	notificationService.Publish(services.DomainEvent{
		Type: services.DomainUserLogin,
		User: &user,
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"user":    user,
	})
}

func getCurrentUser(c *gin.Context) {
	user := c.MustGet("user").(models.User)

	response := gin.H{
		"success": true,
		"user":    user,
	}

	if user.Role == models.RoleVendor {
		var vendor models.Vendor
		if err := database.DB.Where("user_id = ?", user.ID).First(&vendor).Error; err == nil {
			response["vendor"] = vendor
		}
	}

	c.JSON(http.StatusOK, response)
}
