package services

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"event-marketplace-server/models"
	ws "event-marketplace-server/websocket"
)

func TestGetOrCreateConvergesOnOneConversation(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	first, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("first GetOrCreate failed: %v", err)
	}
	second, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("second GetOrCreate failed: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected one conversation, got ids %d and %d", first.ID, second.ID)
	}

	var count int64
	db.Model(&models.Conversation{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 conversation row, found %d", count)
	}
}

func TestGetOrCreateConcurrentCallsConverge(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	const callers = 8
	ids := make(chan uint, callers)
	errs := make(chan error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
			if err != nil {
				errs <- err
				return
			}
			ids <- conv.ID
		}()
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent GetOrCreate failed: %v", err)
	}

	var first uint
	for id := range ids {
		if first == 0 {
			first = id
		} else if id != first {
			t.Fatalf("concurrent calls produced conversations %d and %d", first, id)
		}
	}

	var count int64
	db.Model(&models.Conversation{}).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 conversation row, found %d", count)
	}
}

func TestGetOrCreateReactivatesDeactivated(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if err := svc.Deactivate(fx.User.ID, conv.ID); err != nil {
		t.Fatalf("Deactivate failed: %v", err)
	}

	revived, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate after deactivate failed: %v", err)
	}
	if revived.ID != conv.ID {
		t.Fatalf("expected conversation %d to be reused, got %d", conv.ID, revived.ID)
	}
	if !revived.IsActive {
		t.Fatal("expected reused conversation to be active again")
	}
}

func TestGetOrCreateRequiresBookingRelationship(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	other := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	// The event belongs to fx.User and fx.Vendor, not to this pairing
	if _, err := svc.GetOrCreate(other.User.ID, fx.Vendor.ID, fx.Event.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for foreign user, got %v", err)
	}
	if _, err := svc.GetOrCreate(fx.User.ID, other.Vendor.ID, fx.Event.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for wrong vendor, got %v", err)
	}
	if _, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, 9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing event, got %v", err)
	}
}

func TestSendMessageIncrementsOnlyRecipientCounter(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	pub := &recordingPublisher{}
	svc := NewChatService(db, pub)

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	msg, err := svc.SendMessage(fx.VendorUser.ID, conv.ID, "Hello, checking in about the menu", "")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if msg.SenderType != models.PartyVendor {
		t.Fatalf("expected sender type %q, got %q", models.PartyVendor, msg.SenderType)
	}

	var got models.Conversation
	if err := db.First(&got, conv.ID).Error; err != nil {
		t.Fatalf("failed to reload conversation: %v", err)
	}
	if got.UserUnreadCount != 1 {
		t.Fatalf("expected user unread count 1, got %d", got.UserUnreadCount)
	}
	if got.VendorUnreadCount != 0 {
		t.Fatalf("expected vendor unread count 0, got %d", got.VendorUnreadCount)
	}
	if got.LastMessageID == nil || *got.LastMessageID != msg.ID {
		t.Fatal("expected conversation last message to point at new message")
	}
	if got.LastMessageAt == nil {
		t.Fatal("expected conversation last message timestamp to be set")
	}

	if evt := pub.find(ws.ConversationGroup(conv.ID), "new_message"); evt == nil {
		t.Fatal("expected new_message publish to the conversation group")
	} else if evt.Exclude != fx.VendorUser.ID {
		t.Fatalf("expected sender %d excluded from fan-out, got %d", fx.VendorUser.ID, evt.Exclude)
	}
	if pub.find(ws.IdentityGroup(fx.User.ID), "conversation_updated") == nil {
		t.Fatal("expected conversation_updated publish to the recipient identity")
	}
}

func TestSendMessageValidation(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})
	svc.SetMaxMessageLength(16)

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if _, err := svc.SendMessage(fx.User.ID, conv.ID, "   ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for blank content, got %v", err)
	}
	if _, err := svc.SendMessage(fx.User.ID, conv.ID, strings.Repeat("a", 17), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for oversized content, got %v", err)
	}
	if _, err := svc.SendMessage(fx.User.ID, conv.ID, strings.Repeat("é", 17), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation for a 17-rune message, got %v", err)
	}

	var got models.Conversation
	db.First(&got, conv.ID)
	if got.UserUnreadCount != 0 || got.VendorUnreadCount != 0 {
		t.Fatal("rejected messages must not touch unread counters")
	}

	// The cap is in characters: 16 two-byte runes are within the limit
	if _, err := svc.SendMessage(fx.User.ID, conv.ID, strings.Repeat("é", 16), ""); err != nil {
		t.Fatalf("expected a 16-rune multibyte message accepted, got %v", err)
	}
}

func TestSendMessageRejectsOutsiders(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	other := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	if _, err := svc.SendMessage(other.User.ID, conv.ID, "let me in", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outside user, got %v", err)
	}
	if _, err := svc.SendMessage(other.VendorUser.ID, conv.ID, "let me in", ""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outside vendor, got %v", err)
	}

	var count int64
	db.Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&count)
	if count != 0 {
		t.Fatalf("expected no messages stored, found %d", count)
	}
}

func TestMarkReadResetsOwnCounterOnly(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	pub := &recordingPublisher{}
	svc := NewChatService(db, pub)

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	// Traffic in both directions
	if _, err := svc.SendMessage(fx.VendorUser.ID, conv.ID, "menu draft attached", ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, err := svc.SendMessage(fx.VendorUser.ID, conv.ID, "and the quote", ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}
	if _, err := svc.SendMessage(fx.User.ID, conv.ID, "thanks, reading now", ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := svc.MarkRead(fx.User.ID, conv.ID); err != nil {
		t.Fatalf("MarkRead failed: %v", err)
	}

	var got models.Conversation
	db.First(&got, conv.ID)
	if got.UserUnreadCount != 0 {
		t.Fatalf("expected user unread count 0 after mark-read, got %d", got.UserUnreadCount)
	}
	if got.VendorUnreadCount != 1 {
		t.Fatalf("mark-read must not touch the vendor counter, got %d", got.VendorUnreadCount)
	}

	var unreadVendorMessages int64
	db.Model(&models.Message{}).
		Where("conversation_id = ? AND sender_type = ? AND is_read = ?", conv.ID, models.PartyVendor, false).
		Count(&unreadVendorMessages)
	if unreadVendorMessages != 0 {
		t.Fatalf("expected vendor messages flagged read, %d still unread", unreadVendorMessages)
	}

	if pub.find(ws.ConversationGroup(conv.ID), "messages_read") == nil {
		t.Fatal("expected messages_read publish to the conversation group")
	}

	// Idempotent
	if err := svc.MarkRead(fx.User.ID, conv.ID); err != nil {
		t.Fatalf("repeated MarkRead failed: %v", err)
	}
	db.First(&got, conv.ID)
	if got.UserUnreadCount != 0 || got.VendorUnreadCount != 1 {
		t.Fatal("repeated mark-read changed counters")
	}
}

func TestMarkReadRejectsOutsiders(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	other := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := svc.SendMessage(fx.VendorUser.ID, conv.ID, "ping", ""); err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	if err := svc.MarkRead(other.User.ID, conv.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}

	var got models.Conversation
	db.First(&got, conv.ID)
	if got.UserUnreadCount != 1 {
		t.Fatalf("unauthorized mark-read changed the counter to %d", got.UserUnreadCount)
	}
}

func TestListMessagesOldestFirst(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	for _, content := range []string{"one", "two", "three"} {
		if _, err := svc.SendMessage(fx.User.ID, conv.ID, content, ""); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}

	msgs, err := svc.ListMessages(fx.VendorUser.ID, conv.ID, 0, 0)
	if err != nil {
		t.Fatalf("ListMessages failed: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"one", "two", "three"} {
		if msgs[i].Content != want {
			t.Fatalf("message %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}

	limited, err := svc.ListMessages(fx.VendorUser.ID, conv.ID, 2, 1)
	if err != nil {
		t.Fatalf("ListMessages with paging failed: %v", err)
	}
	if len(limited) != 2 || limited[0].Content != "two" {
		t.Fatalf("unexpected page: %+v", limited)
	}
}

func TestTotalUnreadSumsBothSides(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	secondEvent := models.Event{
		UserID:   fx.User.ID,
		VendorID: &fx.Vendor.ID,
		Name:     "Birthday",
		Date:     fx.Event.Date,
		Status:   models.EventStatusBooked,
	}
	if err := db.Create(&secondEvent).Error; err != nil {
		t.Fatalf("failed to seed second event: %v", err)
	}

	convA, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	convB, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, secondEvent.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	mustSend := func(senderID, convID uint, content string) {
		t.Helper()
		if _, err := svc.SendMessage(senderID, convID, content, ""); err != nil {
			t.Fatalf("SendMessage failed: %v", err)
		}
	}
	mustSend(fx.VendorUser.ID, convA.ID, "a1")
	mustSend(fx.VendorUser.ID, convA.ID, "a2")
	mustSend(fx.VendorUser.ID, convB.ID, "b1")
	mustSend(fx.User.ID, convB.ID, "u1")

	userTotal, err := svc.TotalUnread(fx.User.ID)
	if err != nil {
		t.Fatalf("TotalUnread failed: %v", err)
	}
	if userTotal != 3 {
		t.Fatalf("expected user total unread 3, got %d", userTotal)
	}

	vendorTotal, err := svc.TotalUnread(fx.VendorUser.ID)
	if err != nil {
		t.Fatalf("TotalUnread failed: %v", err)
	}
	if vendorTotal != 1 {
		t.Fatalf("expected vendor total unread 1, got %d", vendorTotal)
	}
}

func TestListConversationsScopedToCaller(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	other := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	if _, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	if _, err := svc.GetOrCreate(other.User.ID, other.Vendor.ID, other.Event.ID); err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	mine, err := svc.ListConversations(fx.User.ID)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(mine) != 1 || mine[0].UserID != fx.User.ID {
		t.Fatalf("expected only the caller's conversation, got %d rows", len(mine))
	}

	vendorSide, err := svc.ListConversations(fx.VendorUser.ID)
	if err != nil {
		t.Fatalf("ListConversations failed: %v", err)
	}
	if len(vendorSide) != 1 || vendorSide[0].VendorID != fx.Vendor.ID {
		t.Fatalf("expected only the vendor's conversation, got %d rows", len(vendorSide))
	}
}

func TestAuthorizeMatchesMembership(t *testing.T) {
	db := newTestDB(t)
	fx := seedFixture(t, db)
	other := seedFixture(t, db)
	svc := NewChatService(db, &recordingPublisher{})

	conv, err := svc.GetOrCreate(fx.User.ID, fx.Vendor.ID, fx.Event.ID)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}

	party, err := svc.Authorize(fx.User.ID, conv.ID)
	if err != nil {
		t.Fatalf("expected user side authorized: %v", err)
	}
	if party != models.PartyUser {
		t.Fatalf("expected party %q, got %q", models.PartyUser, party)
	}

	party, err = svc.Authorize(fx.VendorUser.ID, conv.ID)
	if err != nil {
		t.Fatalf("expected vendor side authorized: %v", err)
	}
	if party != models.PartyVendor {
		t.Fatalf("expected party %q, got %q", models.PartyVendor, party)
	}

	if _, err := svc.Authorize(other.User.ID, conv.ID); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for outsider, got %v", err)
	}
}
