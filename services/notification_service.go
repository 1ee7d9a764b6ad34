package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"event-marketplace-server/models"
)

// DomainEventType tags the domain events CRUD handlers publish
type DomainEventType string

const (
	DomainEventCreated    DomainEventType = "event_created"
	DomainEventUpdated    DomainEventType = "event_updated"
	DomainPaymentReceived DomainEventType = "payment_received"
	DomainVendorAssigned  DomainEventType = "vendor_assigned"
	DomainUserLogin       DomainEventType = "user_login"
)

// DomainEvent is what CRUD handlers drop into the notification pipeline.
// Publishing is decoupled from consumption so a slow or failing fan-out can
// never fail the primary operation that triggered it.
type DomainEvent struct {
	Type     DomainEventType
	Event    *models.Event
	Payment  *models.Payment
	User     *models.User
	VendorID uint
}

// NotificationService owns the durable notification store and consumes
// domain events into persistence plus realtime fan-out.
type NotificationService struct {
	db     *gorm.DB
	hub    Publisher
	events chan DomainEvent
	stop   chan struct{}
}

// NewNotificationService creates a notification service. bufferSize bounds
// the domain-event queue; Publish drops and logs once it is full.
func NewNotificationService(db *gorm.DB, hub Publisher, bufferSize int) *NotificationService {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &NotificationService{
		db:     db,
		hub:    hub,
		events: make(chan DomainEvent, bufferSize),
		stop:   make(chan struct{}),
	}
}

// Publish queues a domain event without blocking the caller
func (s *NotificationService) Publish(ev DomainEvent) {
	select {
	case s.events <- ev:
	default:
		log.Printf("⚠️ Domain event queue full, dropping %s event", ev.Type)
	}
}

// Run consumes domain events until Stop is called
func (s *NotificationService) Run() {
	for {
		select {
		case ev := <-s.events:
			s.dispatch(ev)
		case <-s.stop:
			return
		}
	}
}

// Stop terminates the consumer loop
func (s *NotificationService) Stop() {
	close(s.stop)
}

func (s *NotificationService) dispatch(ev DomainEvent) {
	switch ev.Type {
	case DomainEventCreated:
		s.OnEventCreated(ev.Event)
	case DomainEventUpdated:
		s.OnEventUpdated(ev.Event)
	case DomainPaymentReceived:
		s.OnPaymentReceived(ev.Payment)
	case DomainVendorAssigned:
		s.OnVendorAssigned(ev.Event, ev.VendorID)
	case DomainUserLogin:
		s.OnUserLogin(ev.User)
	default:
		log.Printf("⚠️ Unknown domain event type: %s", ev.Type)
	}
}

// Create appends a notification row and returns it
func (s *NotificationService) Create(userID uint, ntype, title, message string, data map[string]interface{}) (*models.Notification, error) {
	payload := ""
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		payload = string(raw)
	}

	notification := models.Notification{
		UserID:  userID,
		Type:    ntype,
		Title:   title,
		Message: message,
		Data:    payload,
		IsRead:  false,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		return nil, err
	}
	return &notification, nil
}

// ListForUser returns a user's notifications, newest first
func (s *NotificationService) ListForUser(userID uint, limit, offset int, unreadOnly bool) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := s.db.Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var notifications []models.Notification
	err := query.
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount counts a user's unread notifications
func (s *NotificationService) UnreadCount(userID uint) (int64, error) {
	var count int64
	err := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	return count, err
}

// MarkRead flips one notification's read flag, scoped to the owning user.
// Another user's notification, a missing one and an already-read one all
// come back as ErrNotFound so existence never leaks.
func (s *NotificationService) MarkRead(id, userID uint) error {
	result := s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ? AND is_read = ?", id, userID, false).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllRead flips every unread notification for a user, returning how
// many rows changed
func (s *NotificationService) MarkAllRead(userID uint) (int64, error) {
	result := s.db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

// PruneRead hard-deletes notifications that were read more than
// olderThanDays ago. Only the retention job calls this, never a request path.
func (s *NotificationService) PruneRead(olderThanDays int) (int64, error) {
	if olderThanDays <= 0 {
		return 0, fmt.Errorf("invalid retention window: %d days", olderThanDays)
	}
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	result := s.db.
		Where("is_read = ? AND updated_at < ?", true, cutoff).
		Delete(&models.Notification{})
	return result.RowsAffected, result.Error
}

// OnEventCreated fans a new event out to the vendor and admin role groups.
// Role broadcasts are realtime only: no per-recipient rows are written, so
// members offline at send time will not see this one later.
func (s *NotificationService) OnEventCreated(event *models.Event) {
	if event == nil {
		return
	}
	payload := map[string]interface{}{
		"event_id":    event.ID,
		"name":        event.Name,
		"city":        event.City,
		"date":        event.Date,
		"guest_count": event.GuestCount,
		"budget":      event.Budget,
	}
	s.hub.PublishToRole(string(models.RoleVendor), "event_created", payload)
	s.hub.PublishToRole(string(models.RoleAdmin), "event_created", payload)
}

// OnEventUpdated notifies the event's owner and, when one is assigned, the
// vendor behind it
func (s *NotificationService) OnEventUpdated(event *models.Event) {
	if event == nil {
		return
	}
	data := map[string]interface{}{
		"event_id": event.ID,
		"status":   event.Status,
	}
	title := "Event Updated"
	body := fmt.Sprintf("Your event %q has been updated.", event.Name)
	if err := s.notify(event.UserID, models.NotificationEventUpdated, title, body, data); err != nil {
		log.Printf("❌ Failed to notify user %d about event %d update: %v", event.UserID, event.ID, err)
	}

	if event.VendorID == nil {
		return
	}
	vendorUserID, err := s.vendorUserID(*event.VendorID)
	if err != nil {
		log.Printf("❌ Failed to resolve vendor %d for event %d update: %v", *event.VendorID, event.ID, err)
		return
	}
	body = fmt.Sprintf("The event %q you are booked for has been updated.", event.Name)
	if err := s.notify(vendorUserID, models.NotificationEventUpdated, title, body, data); err != nil {
		log.Printf("❌ Failed to notify vendor user %d about event %d update: %v", vendorUserID, event.ID, err)
	}
}

// OnPaymentReceived notifies the paying user
func (s *NotificationService) OnPaymentReceived(payment *models.Payment) {
	if payment == nil {
		return
	}
	data := map[string]interface{}{
		"payment_id": payment.ID,
		"event_id":   payment.EventID,
		"amount":     payment.Amount,
	}
	body := fmt.Sprintf("Your payment of %.2f has been received.", payment.Amount)
	if err := s.notify(payment.UserID, models.NotificationPaymentReceived, "Payment Received", body, data); err != nil {
		log.Printf("❌ Failed to notify user %d about payment %d: %v", payment.UserID, payment.ID, err)
	}
}

// OnVendorAssigned notifies a newly assigned vendor
func (s *NotificationService) OnVendorAssigned(event *models.Event, vendorID uint) {
	if event == nil || vendorID == 0 {
		return
	}
	vendorUserID, err := s.vendorUserID(vendorID)
	if err != nil {
		log.Printf("❌ Failed to resolve vendor %d for assignment on event %d: %v", vendorID, event.ID, err)
		return
	}
	data := map[string]interface{}{
		"event_id": event.ID,
		"name":     event.Name,
		"date":     event.Date,
	}
	body := fmt.Sprintf("You have been assigned to the event %q.", event.Name)
	if err := s.notify(vendorUserID, models.NotificationVendorAssigned, "New Event Assignment", body, data); err != nil {
		log.Printf("❌ Failed to notify vendor user %d about assignment on event %d: %v", vendorUserID, event.ID, err)
	}
}

// OnUserLogin sends a welcome-back notification. Failures are logged and
// swallowed; a broken notification store must never fail a login.
func (s *NotificationService) OnUserLogin(user *models.User) {
	if user == nil {
		return
	}
	body := fmt.Sprintf("Welcome back, %s!", user.FullName)
	if err := s.notify(user.ID, models.NotificationUserLogin, "Welcome Back", body, nil); err != nil {
		log.Printf("❌ Failed to create login notification for user %d: %v", user.ID, err)
	}
}

// notify persists a notification row and pushes it to the owner's identity
// group. Persistence happens first; the realtime push is fire-and-forget.
func (s *NotificationService) notify(userID uint, ntype, title, message string, data map[string]interface{}) error {
	notification, err := s.Create(userID, ntype, title, message, data)
	if err != nil {
		return err
	}
	s.hub.PublishToIdentity(userID, "notification", notification)
	return nil
}

func (s *NotificationService) vendorUserID(vendorID uint) (uint, error) {
	var vendor models.Vendor
	if err := s.db.First(&vendor, vendorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return vendor.UserID, nil
}
