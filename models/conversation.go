package models

import (
	"time"
)

// Party identifies which side of a conversation an actor represents.
type Party string

const (
	PartyUser   Party = "user"
	PartyVendor Party = "vendor"
)

// Opposite returns the other side of the conversation.
func (p Party) Opposite() Party {
	if p == PartyUser {
		return PartyVendor
	}
	return PartyUser
}

// Valid checks that the party is one of the two known sides
func (p Party) Valid() bool {
	return p == PartyUser || p == PartyVendor
}

// Conversation is the durable chat thread tying one user, one vendor and one
// event together. At most one active conversation exists per triple; the
// unique index makes concurrent creation converge on a single row.
type Conversation struct {
	ID                uint       `json:"id" gorm:"primaryKey"`
	UserID            uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_conversations_triple"`
	VendorID          uint       `json:"vendor_id" gorm:"not null;uniqueIndex:idx_conversations_triple"`
	EventID           uint       `json:"event_id" gorm:"not null;uniqueIndex:idx_conversations_triple"`
	LastMessageID     *uint      `json:"last_message_id"` // weak back-reference, never owns the message
	LastMessageAt     *time.Time `json:"last_message_at"`
	UserUnreadCount   int        `json:"user_unread_count" gorm:"default:0"`
	VendorUnreadCount int        `json:"vendor_unread_count" gorm:"default:0"`
	IsActive          bool       `json:"is_active" gorm:"default:true"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	// Relationships
	User   User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Vendor Vendor `json:"vendor,omitempty" gorm:"foreignKey:VendorID"`
	Event  Event  `json:"event,omitempty" gorm:"foreignKey:EventID"`
}

const MessageStatusSent = "sent" // reserved for future delivery states

// Message is a single entry in a conversation's append-only log. Immutable
// once created except for is_read and status.
type Message struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	ConversationID uint       `json:"conversation_id" gorm:"not null;index"`
	SenderID       uint       `json:"sender_id" gorm:"not null"`
	SenderType     Party      `json:"sender_type" gorm:"type:varchar(10);not null"`
	Content        string     `json:"content" gorm:"type:text;not null"`
	Status         string     `json:"status" gorm:"type:varchar(20);not null;default:'sent'"`
	AttachmentURL  string     `json:"attachment_url,omitempty" gorm:"size:500"`
	IsRead         bool       `json:"is_read" gorm:"default:false"`
	ReadAt         *time.Time `json:"read_at"`
	CreatedAt      time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName specifies the table name for the Conversation model
func (Conversation) TableName() string {
	return "conversations"
}

// TableName specifies the table name for the Message model
func (Message) TableName() string {
	return "messages"
}
