package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/services"
)

// DefaultSchedule runs the overdue scan at the top of every hour.
const DefaultSchedule = "0 * * * *"

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// OverdueScanner finds loans past their due date.
type OverdueScanner interface {
	ScanOverdue(ctx context.Context) (*services.OverdueReport, error)
}

// ScanEnqueuer hands a scan to the background task queue.
type ScanEnqueuer interface {
	EnqueueOverdueScan() (string, error)
}

// CleanupEnqueuer hands audit retention cleanup to the task queue.
type CleanupEnqueuer interface {
	EnqueueAuditCleanup() (string, error)
}

// Config controls the overdue scan schedule.
type Config struct {
	Enabled  bool
	Schedule string

	// AuditCleanupSchedule runs audit retention when a CleanupEnqueuer is
	// attached. Empty disables it.
	AuditCleanupSchedule string
}

// OverdueScanScheduler manages periodic overdue loan scans.
// When a queue is set, runs are enqueued as tasks; otherwise they run inline.
type OverdueScanScheduler struct {
	config  Config
	scanner OverdueScanner
	queue   ScanEnqueuer
	cleanup CleanupEnqueuer
	log     logrus.FieldLogger

	cron       *cron.Cron
	entryID    cron.EntryID
	cleanupID  cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	cancelFunc context.CancelFunc
}

// NewOverdueScanScheduler creates a new scheduler instance. queue may be nil.
func NewOverdueScanScheduler(cfg Config, scanner OverdueScanner, queue ScanEnqueuer, log logrus.FieldLogger) *OverdueScanScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &OverdueScanScheduler{
		config:  cfg,
		scanner: scanner,
		queue:   queue,
		log:     log.WithField("component", "overdue_scheduler"),
		cron:    cron.New(cron.WithParser(parser)),
	}
}

// WithAuditCleanup attaches the queue used for scheduled audit retention.
// Must be called before Start.
func (s *OverdueScanScheduler) WithAuditCleanup(q CleanupEnqueuer) *OverdueScanScheduler {
	s.cleanup = q
	return s
}

func (s *OverdueScanScheduler) cleanupEnabled() bool {
	return s.cleanup != nil && s.config.AuditCleanupSchedule != ""
}

// Start begins the scheduler if scanning or audit cleanup is enabled.
func (s *OverdueScanScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	if !s.config.Enabled && !s.cleanupEnabled() {
		s.log.Info("overdue scan scheduler disabled")
		return nil
	}

	if s.config.Enabled {
		entryID, err := s.schedule(s.config.Schedule, s.runScan)
		if err != nil {
			return fmt.Errorf("failed to schedule overdue scan: %w", err)
		}
		s.entryID = entryID
	}
	if s.cleanupEnabled() {
		entryID, err := s.schedule(s.config.AuditCleanupSchedule, s.runCleanup)
		if err != nil {
			s.cron.Remove(s.entryID)
			return fmt.Errorf("failed to schedule audit cleanup: %w", err)
		}
		s.cleanupID = entryID
	}

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	fields := logrus.Fields{"overdue_scan": s.config.Enabled}
	if s.config.Enabled {
		fields["schedule"] = s.config.Schedule
		fields["next_run"], _ = NextRunTime(s.config.Schedule, time.Now())
	}
	if s.cleanupEnabled() {
		fields["audit_cleanup_schedule"] = s.config.AuditCleanupSchedule
	}
	s.log.WithFields(fields).Info("overdue scan scheduler started")

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running scan to finish and stops the scheduler.
func (s *OverdueScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.cron.Remove(s.entryID)
	s.cron.Remove(s.cleanupID)
	s.entryID, s.cleanupID = 0, 0
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	s.isRunning = false
	s.cancelFunc = nil

	s.log.Info("overdue scan scheduler stopped")
}

// RunNow triggers an immediate scan in the background.
func (s *OverdueScanScheduler) RunNow() {
	go s.runScan()
}

// IsRunning returns whether the scheduler is active.
func (s *OverdueScanScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRunTime returns when the next scan will occur.
func (s *OverdueScanScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *OverdueScanScheduler) runScan() {
	if s.queue != nil {
		id, err := s.queue.EnqueueOverdueScan()
		if err != nil {
			s.log.WithError(err).Error("failed to enqueue overdue scan")
			return
		}
		s.log.WithField("task_id", id).Debug("overdue scan enqueued")
		return
	}

	if s.scanner == nil {
		s.log.Warn("overdue scan skipped: no scanner configured")
		return
	}
	if _, err := s.scanner.ScanOverdue(context.Background()); err != nil {
		s.log.WithError(err).Error("overdue scan failed")
	}
}

func (s *OverdueScanScheduler) runCleanup() {
	id, err := s.cleanup.EnqueueAuditCleanup()
	if err != nil {
		s.log.WithError(err).Error("failed to enqueue audit cleanup")
		return
	}
	s.log.WithField("task_id", id).Debug("audit cleanup enqueued")
}

func (s *OverdueScanScheduler) schedule(expr string, fn func()) (cron.EntryID, error) {
	if err := ValidateCronSchedule(expr); err != nil {
		return 0, fmt.Errorf("invalid cron schedule '%s': %w", expr, err)
	}
	return s.cron.AddFunc(expr, fn)
}

// ValidateCronSchedule validates a five-field cron schedule string.
func ValidateCronSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime returns the first activation of schedule after from.
func NextRunTime(schedule string, from time.Time) (time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return time.Time{}, err
	}
	return sched.Next(from), nil
}
