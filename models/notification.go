package models

import (
	"time"
)

const (
	NotificationEventCreated    = "EVENT_CREATED"
	NotificationEventUpdated    = "EVENT_UPDATED"
	NotificationPaymentReceived = "PAYMENT_RECEIVED"
	NotificationVendorAssigned  = "VENDOR_ASSIGNED"
	NotificationUserLogin       = "USER_LOGIN"
)

// Notification is an append-only, per-user record. is_read only ever moves
// false -> true; long-read rows are pruned by the retention job, so there is
// no soft-delete column here.
type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    uint      `json:"user_id" gorm:"not null;index"`
	Type      string    `json:"type" gorm:"type:varchar(50);not null"`
	Title     string    `json:"title" gorm:"size:255;not null"`
	Message   string    `json:"message" gorm:"type:text;not null"`
	Data      string    `json:"data" gorm:"type:text"` // opaque JSON payload, parsed only at the point of use
	IsRead    bool      `json:"is_read" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`

	// Relations
	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for the Notification model
func (Notification) TableName() string {
	return "notifications"
}
