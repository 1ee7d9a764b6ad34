package routes

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"event-marketplace-server/database"
	"event-marketplace-server/models"
)

// RegisterVendorRoutes sets up vendor browsing endpoints
func RegisterVendorRoutes(router *gin.RouterGroup) {
	vendors := router.Group("/vendors")
	{
		vendors.GET("", listVendors)
		vendors.GET("/:id", getVendor)
	}
}

func listVendors(c *gin.Context) {
	query := database.DB.Preload("User")

	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	if city := c.Query("city"); city != "" {
		query = query.Where("city = ?", city)
	}

	var vendors []models.Vendor
	if err := query.Order("business_name ASC").Find(&vendors).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch vendors"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"vendors": vendors,
	})
}

func getVendor(c *gin.Context) {
	vendorID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vendor ID"})
		return
	}

	var vendor models.Vendor
	if err := database.DB.Preload("User").First(&vendor, vendorID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vendor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"vendor":  vendor,
	})
}
