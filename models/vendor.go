package models

import (
	"time"
)

// Vendor is the business profile owned by a vendor-role user.
type Vendor struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	UserID       uint      `json:"user_id" gorm:"not null;uniqueIndex"`
	BusinessName string    `json:"business_name" gorm:"size:255;not null"`
	Category     string    `json:"category" gorm:"size:100;not null"` // catering, venue, photography, music, decor
	Description  string    `json:"description" gorm:"type:text"`
	City         string    `json:"city" gorm:"size:100"`
	BasePrice    *float64  `json:"base_price" gorm:"type:decimal(10,2)"`
	IsVerified   bool      `json:"is_verified" gorm:"default:false"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for the Vendor model
func (Vendor) TableName() string {
	return "vendors"
}
