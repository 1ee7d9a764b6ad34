package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// Payment is a payment session for an event booking. Session creation is
// plumbing; confirmation is what feeds the notification pipeline.
type Payment struct {
	ID        uint          `json:"id" gorm:"primaryKey"`
	EventID   uint          `json:"event_id" gorm:"not null"`
	UserID    uint          `json:"user_id" gorm:"not null"`
	Amount    float64       `json:"amount" gorm:"type:decimal(10,2);not null"`
	Status    PaymentStatus `json:"status" gorm:"type:varchar(20);not null;default:'pending';check:status IN ('pending','paid','failed')"`
	SessionID string        `json:"session_id" gorm:"size:64;uniqueIndex"`
	PaidAt    *time.Time    `json:"paid_at"`
	CreatedAt time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time     `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	Event Event `json:"event,omitempty" gorm:"foreignKey:EventID"`
	User  User  `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name for the Payment model
func (Payment) TableName() string {
	return "payments"
}
