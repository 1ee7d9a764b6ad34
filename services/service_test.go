package services

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"event-marketplace-server/database"
	"event-marketplace-server/models"
	ws "event-marketplace-server/websocket"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// A single connection keeps every session on the same in-memory database
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get underlying database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return db
}

// published is one recorded fan-out call
type published struct {
	Group   string
	Event   string
	Payload interface{}
	Exclude uint
}

// recordingPublisher captures hub publishes for assertions
type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (r *recordingPublisher) PublishToIdentity(id uint, event string, payload interface{}) {
	r.record(ws.IdentityGroup(id), event, payload, 0)
}

func (r *recordingPublisher) PublishToRole(role string, event string, payload interface{}) {
	r.record(ws.RoleGroup(role), event, payload, 0)
}

func (r *recordingPublisher) PublishToGroup(group string, event string, payload interface{}) {
	r.record(group, event, payload, 0)
}

func (r *recordingPublisher) PublishToGroupExcept(group string, event string, payload interface{}, exclude uint) {
	r.record(group, event, payload, exclude)
}

func (r *recordingPublisher) PublishToAll(event string, payload interface{}) {
	r.record("", event, payload, 0)
}

func (r *recordingPublisher) record(group, event string, payload interface{}, exclude uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, published{Group: group, Event: event, Payload: payload, Exclude: exclude})
}

func (r *recordingPublisher) find(group, event string) *published {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].Group == group && r.events[i].Event == event {
			return &r.events[i]
		}
	}
	return nil
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

// fixture is the minimal world for chat tests: a user, a vendor-role user
// with a vendor profile, and an event binding them together.
type fixture struct {
	User       models.User
	VendorUser models.User
	Vendor     models.Vendor
	Event      models.Event
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	user := models.User{FullName: "Ana Customer", Email: uniqueEmail("ana"), PasswordHash: "x", Role: models.RoleUser, IsActive: true}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	vendorUser := models.User{FullName: "Vic Vendor", Email: uniqueEmail("vic"), PasswordHash: "x", Role: models.RoleVendor, IsActive: true}
	if err := db.Create(&vendorUser).Error; err != nil {
		t.Fatalf("failed to seed vendor user: %v", err)
	}

	vendor := models.Vendor{UserID: vendorUser.ID, BusinessName: "Vic Catering", Category: "catering"}
	if err := db.Create(&vendor).Error; err != nil {
		t.Fatalf("failed to seed vendor: %v", err)
	}

	event := models.Event{
		UserID:   user.ID,
		VendorID: &vendor.ID,
		Name:     "Garden Wedding",
		Date:     time.Now().Add(30 * 24 * time.Hour),
		Status:   models.EventStatusBooked,
	}
	if err := db.Create(&event).Error; err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}

	return fixture{User: user, VendorUser: vendorUser, Vendor: vendor, Event: event}
}

var emailSeq int

func uniqueEmail(prefix string) string {
	emailSeq++
	return fmt.Sprintf("%s%d@example.com", prefix, emailSeq)
}
