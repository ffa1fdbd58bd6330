package tasks

import (
	"time"

	"github.com/mikestefanello/backlite"
)

// Queue names. They double as the task type accepted by the HTTP API.
const (
	QueueEnrichBook         = "enrich_book"
	QueueEnrichAllBooks     = "enrich_all_books"
	QueueOverdueScan        = "overdue_scan"
	QueueCleanupAuditEvents = "cleanup_audit_events"
)

// Config holds configuration for the task queue system.
type Config struct {
	Workers         int
	ReleaseAfter    time.Duration // stuck tasks go back to the queue after this
	CleanupInterval time.Duration // how often finished tasks are purged

	// AuditRetentionDays is used by audit cleanup tasks that carry no value of their own.
	AuditRetentionDays int
}

func DefaultConfig() Config {
	return Config{
		Workers:            2,
		ReleaseAfter:       15 * time.Minute,
		CleanupInterval:    time.Hour,
		AuditRetentionDays: 90,
	}
}

// queueConfig keeps finished tasks for keep, retaining the payload of failed ones only.
func queueConfig(name string, attempts int, backoff, timeout, keep time.Duration) backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        name,
		MaxAttempts: attempts,
		Backoff:     backoff,
		Timeout:     timeout,
		Retention: &backlite.Retention{
			Duration: keep,
			Data:     &backlite.RetainData{OnlyFailed: true},
		},
	}
}
