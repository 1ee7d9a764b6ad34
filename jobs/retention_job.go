package jobs

import (
	"log"
	"time"

	"event-marketplace-server/services"
)

// RetentionJob prunes notifications that were read long ago. It runs off
// the request path entirely; pruning is maintenance, never transactional
// with notification creation.
type RetentionJob struct {
	notifications *services.NotificationService
	retentionDays int
	stopChan      chan bool
}

// NewRetentionJob creates a retention job
func NewRetentionJob(notifications *services.NotificationService, retentionDays int) *RetentionJob {
	return &RetentionJob{
		notifications: notifications,
		retentionDays: retentionDays,
		stopChan:      make(chan bool),
	}
}

// Start begins the retention job
func (j *RetentionJob) Start() {
	go j.run()
	log.Println("🚀 Notification retention job started")
}

// Stop stops the retention job
func (j *RetentionJob) Stop() {
	j.stopChan <- true
	log.Println("🛑 Notification retention job stopped")
}

func (j *RetentionJob) run() {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.prune()
		case <-j.stopChan:
			return
		}
	}
}

func (j *RetentionJob) prune() {
	pruned, err := j.notifications.PruneRead(j.retentionDays)
	if err != nil {
		log.Printf("❌ Notification pruning failed: %v", err)
		return
	}
	if pruned > 0 {
		log.Printf("🧹 Pruned %d read notifications older than %d days", pruned, j.retentionDays)
	}
}
