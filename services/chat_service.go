package services

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"event-marketplace-server/models"
	ws "event-marketplace-server/websocket"
)

const DefaultMaxMessageLength = 2000

// ChatService owns the conversation registry and the per-conversation
// message log, and pushes realtime events after every durable write.
type ChatService struct {
	db               *gorm.DB
	hub              Publisher
	maxMessageLength int
}

// NewChatService creates a chat service on top of a database and hub
func NewChatService(db *gorm.DB, hub Publisher) *ChatService {
	return &ChatService{
		db:               db,
		hub:              hub,
		maxMessageLength: DefaultMaxMessageLength,
	}
}

// SetMaxMessageLength overrides the message body cap
func (s *ChatService) SetMaxMessageLength(n int) {
	if n > 0 {
		s.maxMessageLength = n
	}
}

// GetOrCreate returns the active conversation for a (user, vendor, event)
// triple, creating or reactivating it as needed. The event must bind the
// user and vendor together; without that booking relationship the request
// fails as not found. Two concurrent calls converge on one row through the
// unique index on the triple, not through any application lock.
func (s *ChatService) GetOrCreate(userID, vendorID, eventID uint) (*models.Conversation, error) {
	var event models.Event
	if err := s.db.First(&event, eventID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if event.UserID != userID || event.VendorID == nil || *event.VendorID != vendorID {
		return nil, ErrNotFound
	}

	conv := models.Conversation{
		UserID:   userID,
		VendorID: vendorID,
		EventID:  eventID,
		IsActive: true,
	}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "vendor_id"}, {Name: "event_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"is_active": true}),
	}).Create(&conv).Error
	if err != nil {
		return nil, err
	}

	// Re-read by the triple so an upsert that hit an existing row still
	// returns that row's id and counters.
	var result models.Conversation
	err = s.db.
		Preload("User").
		Preload("Vendor").
		Preload("Event").
		Where("user_id = ? AND vendor_id = ? AND event_id = ?", userID, vendorID, eventID).
		First(&result).Error
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Get returns one conversation the caller is a party of
func (s *ChatService) Get(callerID, conversationID uint) (*models.Conversation, error) {
	conv, _, err := s.authorized(callerID, conversationID)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// ListConversations returns the caller's active conversations, most recent
// activity first. A caller holding both sides (a vendor chatting about its
// own event) sees each conversation once.
func (s *ChatService) ListConversations(callerID uint) ([]models.Conversation, error) {
	ownership := s.db.Where("user_id = ?", callerID)
	var vendor models.Vendor
	if err := s.db.Where("user_id = ?", callerID).First(&vendor).Error; err == nil {
		ownership = ownership.Or("vendor_id = ?", vendor.ID)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var convs []models.Conversation
	err := s.db.
		Preload("User").
		Preload("Vendor").
		Preload("Event").
		Where("is_active = ?", true).
		Where(ownership).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// SendMessage appends a message to a conversation the caller is a party of.
// Write order is: insert message, increment the recipient's unread counter,
// touch the last-message pointer. A crash mid-sequence under-counts rather
// than over-counts the unread badge.
func (s *ChatService) SendMessage(callerID, conversationID uint, content, attachmentURL string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrValidation
	}
	// The cap counts characters, not bytes
	if utf8.RuneCountInString(content) > s.maxMessageLength {
		return nil, ErrValidation
	}

	conv, party, err := s.authorized(callerID, conversationID)
	if err != nil {
		return nil, err
	}

	message := models.Message{
		ConversationID: conv.ID,
		SenderID:       callerID,
		SenderType:     party,
		Content:        content,
		AttachmentURL:  attachmentURL,
		Status:         models.MessageStatusSent,
		IsRead:         false,
	}
	if err := s.db.Create(&message).Error; err != nil {
		return nil, err
	}

	recipient := party.Opposite()
	column := unreadColumn(recipient)
	if err := s.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		UpdateColumn(column, gorm.Expr(column+" + 1")).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Updates(map[string]interface{}{
			"last_message_id": message.ID,
			"last_message_at": now,
		}).Error; err != nil {
		return nil, err
	}

	s.hub.PublishToGroupExcept(ws.ConversationGroup(conv.ID), "new_message", message, callerID)

	// Badge update for the recipient whether or not they have the
	// conversation open.
	if recipientUserID, err := s.partyUserID(conv, recipient); err == nil {
		s.hub.PublishToIdentity(recipientUserID, "conversation_updated", map[string]interface{}{
			"conversation_id": conv.ID,
			"last_message_id": message.ID,
		})
	}

	return &message, nil
}

// ListMessages returns a page of a conversation's log, oldest first. Readers
// needing strict order must sort by these persisted timestamps; realtime
// arrival order is not a guarantee.
func (s *ChatService) ListMessages(callerID, conversationID uint, limit, offset int) ([]models.Message, error) {
	if _, _, err := s.authorized(callerID, conversationID); err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var messages []models.Message
	err := s.db.
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead marks everything the other side sent as read and zeroes the
// caller's unread counter. Calling it again is a no-op.
func (s *ChatService) MarkRead(callerID, conversationID uint) error {
	conv, party, err := s.authorized(callerID, conversationID)
	if err != nil {
		return err
	}

	now := time.Now()
	err = s.db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conv.ID, party.Opposite(), false).
		Updates(map[string]interface{}{
			"is_read": true,
			"read_at": now,
		}).Error
	if err != nil {
		return err
	}

	err = s.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		UpdateColumn(unreadColumn(party), 0).Error
	if err != nil {
		return err
	}

	s.hub.PublishToGroupExcept(ws.ConversationGroup(conv.ID), "messages_read", map[string]interface{}{
		"conversation_id": conv.ID,
		"reader_party":    party,
		"read_at":         now,
	}, callerID)

	return nil
}

// TotalUnread sums the caller's unread counters across all active
// conversations, on both sides the caller may hold.
func (s *ChatService) TotalUnread(callerID uint) (int64, error) {
	var userSide int64
	err := s.db.Model(&models.Conversation{}).
		Select("COALESCE(SUM(user_unread_count), 0)").
		Where("user_id = ? AND is_active = ?", callerID, true).
		Scan(&userSide).Error
	if err != nil {
		return 0, err
	}

	var vendor models.Vendor
	if err := s.db.Where("user_id = ?", callerID).First(&vendor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return userSide, nil
		}
		return 0, err
	}

	var vendorSide int64
	err = s.db.Model(&models.Conversation{}).
		Select("COALESCE(SUM(vendor_unread_count), 0)").
		Where("vendor_id = ? AND is_active = ?", vendor.ID, true).
		Scan(&vendorSide).Error
	if err != nil {
		return 0, err
	}

	return userSide + vendorSide, nil
}

// Deactivate soft-deletes a conversation. The row stays so the triple's
// uniqueness holds and a later GetOrCreate reactivates it.
func (s *ChatService) Deactivate(callerID, conversationID uint) error {
	conv, _, err := s.authorized(callerID, conversationID)
	if err != nil {
		return err
	}
	return s.db.Model(&models.Conversation{}).
		Where("id = ?", conv.ID).
		Update("is_active", false).Error
}

// Authorize reports which party a caller is in a conversation. Exposed for
// the WebSocket join handler, which must access-check before joining a
// conversation group.
func (s *ChatService) Authorize(callerID, conversationID uint) (models.Party, error) {
	_, party, err := s.authorized(callerID, conversationID)
	return party, err
}

// authorized loads an active conversation and resolves the caller's party
func (s *ChatService) authorized(callerID, conversationID uint) (*models.Conversation, models.Party, error) {
	var conv models.Conversation
	err := s.db.Where("id = ? AND is_active = ?", conversationID, true).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}

	party, err := ResolveParty(s.db, &conv, callerID)
	if err != nil {
		return nil, "", err
	}
	return &conv, party, nil
}

// partyUserID maps a conversation party to the user identity behind it
func (s *ChatService) partyUserID(conv *models.Conversation, party models.Party) (uint, error) {
	if party == models.PartyUser {
		return conv.UserID, nil
	}
	var vendor models.Vendor
	if err := s.db.First(&vendor, conv.VendorID).Error; err != nil {
		return 0, err
	}
	return vendor.UserID, nil
}

func unreadColumn(p models.Party) string {
	if p == models.PartyVendor {
		return "vendor_unread_count"
	}
	return "user_unread_count"
}
