package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/sirupsen/logrus"
)

// AuditEventCleaner purges audit events older than a retention window.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// CleanupAuditEventsTask purges audit history. Zero RetentionDays falls back
// to the default retention.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return queueConfig(QueueCleanupAuditEvents, 3, 5*time.Minute, 2*time.Minute, 24*time.Hour)
}

func (t CleanupAuditEventsTask) days() int {
	if t.RetentionDays > 0 {
		return t.RetentionDays
	}
	return DefaultConfig().AuditRetentionDays
}

func CleanupAuditEventsProcessor(cleaner AuditEventCleaner, log logrus.FieldLogger) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		if cleaner == nil {
			return errors.New("no audit cleaner registered")
		}

		days := task.days()
		n, err := cleaner.DeleteOldEvents(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("purge audit events older than %d days: %w", days, err)
		}

		log.WithFields(logrus.Fields{"deleted": n, "retention_days": days}).Info("audit history purged")
		return nil
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner, log logrus.FieldLogger) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner, log))
}
