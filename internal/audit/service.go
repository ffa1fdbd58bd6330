package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
)

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
	log  logrus.FieldLogger
	wg   sync.WaitGroup
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, log: log}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

// LogAsync records an audit event in the background (non-blocking).
func (s *Service) LogAsync(event *entities.AuditEvent) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.repo.LogEvent(event); err != nil {
			s.log.WithError(err).WithField("action", event.Action).Error("failed to log audit event")
		}
	}()
}

// Wait blocks until all pending async events are written.
func (s *Service) Wait() {
	s.wg.Wait()
}

// LogLend records a successful lend.
func (s *Service) LogLend(actorID string, loan *entities.Loan) {
	s.LogAsync(&entities.AuditEvent{
		EventType: entities.AuditEventLoan,
		Action:    "lend",
		Description: fmt.Sprintf("Lent book %s to user %s until %s",
			loan.BookID, loan.BorrowerID, loan.DueAt.Format(time.DateOnly)),
		EntityID: loan.ID,
		ActorID:  optional(actorID),
		Status:   entities.AuditStatusSuccess,
	})
}

// LogReturn records a successful return.
func (s *Service) LogReturn(actorID string, loan *entities.Loan) {
	s.LogAsync(&entities.AuditEvent{
		EventType:   entities.AuditEventLoan,
		Action:      "return",
		Description: fmt.Sprintf("Returned book %s from user %s", loan.BookID, loan.BorrowerID),
		EntityID:    loan.ID,
		ActorID:     optional(actorID),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogDelete records a deletion of a book, loan or user.
func (s *Service) LogDelete(eventType entities.AuditEventType, entityID, actorID, description string) {
	s.LogAsync(&entities.AuditEvent{
		EventType:   eventType,
		Action:      "delete",
		Description: truncate(description, 500),
		EntityID:    entityID,
		ActorID:     optional(actorID),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogStatusChange records a manual book status overwrite.
func (s *Service) LogStatusChange(bookID, actorID string, status entities.BookStatus) {
	s.LogAsync(&entities.AuditEvent{
		EventType:   entities.AuditEventBook,
		Action:      "status",
		Description: "Set status to " + string(status),
		EntityID:    bookID,
		ActorID:     optional(actorID),
		Status:      entities.AuditStatusSuccess,
	})
}

// LogOverdueScan records the outcome of an overdue scan.
func (s *Service) LogOverdueScan(overdue int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventLoan,
		Action:      "overdue_scan",
		Description: fmt.Sprintf("Found %d overdue loan(s)", overdue),
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.LogAsync(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(q audit.Query) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(q)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func optional(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
