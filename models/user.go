package models

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser   UserRole = "user"
	RoleVendor UserRole = "vendor"
	RoleAdmin  UserRole = "admin"
)

type User struct {
	ID                uint      `json:"id" gorm:"primaryKey"`
	FullName          string    `json:"full_name" gorm:"size:255;not null"`
	Email             string    `json:"email" gorm:"size:255;uniqueIndex;not null"`
	PasswordHash      string    `json:"-" gorm:"size:255;not null"` // Hidden from JSON
	Role              UserRole  `json:"role" gorm:"type:varchar(20);not null;default:'user';check:role IN ('user','vendor','admin')"`
	ProfilePictureURL *string   `json:"profile_picture_url" gorm:"size:255"`
	IsActive          bool      `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Events []Event `json:"events,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// BeforeCreate is a GORM hook that runs before creating a user
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// IsValidRole checks if the user role is valid
func (u *User) IsValidRole() bool {
	switch u.Role {
	case RoleUser, RoleVendor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsVendor checks if the user is a vendor
func (u *User) IsVendor() bool {
	return u.Role == RoleVendor
}

// IsAdmin checks if the user is a platform moderator
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
