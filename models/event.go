package models

import (
	"time"
)

type EventStatus string

const (
	EventStatusPlanned   EventStatus = "planned"
	EventStatusBooked    EventStatus = "booked"
	EventStatusCompleted EventStatus = "completed"
	EventStatusCancelled EventStatus = "cancelled"
)

// Event is a booked occasion owned by a user, optionally assigned to a vendor.
type Event struct {
	ID          uint        `json:"id" gorm:"primaryKey"`
	UserID      uint        `json:"user_id" gorm:"not null"`
	VendorID    *uint       `json:"vendor_id"` // Can be null until a vendor is assigned
	Name        string      `json:"name" gorm:"size:200;not null"`
	Description string      `json:"description" gorm:"type:text"`
	Venue       string      `json:"venue" gorm:"size:255"`
	City        string      `json:"city" gorm:"size:100"`
	Date        time.Time   `json:"date" gorm:"not null"`
	GuestCount  int         `json:"guest_count" gorm:"default:0"`
	Budget      *float64    `json:"budget" gorm:"type:decimal(10,2)"`
	Status      EventStatus `json:"status" gorm:"type:varchar(20);not null;default:'planned';check:status IN ('planned','booked','completed','cancelled')"`
	CreatedAt   time.Time   `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time   `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User   User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Vendor *Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
}

// TableName specifies the table name for the Event model
func (Event) TableName() string {
	return "events"
}
