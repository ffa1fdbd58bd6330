package services

import (
	"context"
	"time"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
)

// Store is the transactional entity store the services run against.
// *database.Database implements it.
type Store interface {
	Repositories(ctx context.Context) *database.Repositories
	Transaction(ctx context.Context, fn func(repos *database.Repositories) error) error
}

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// AuditLogger receives lifecycle events after a successful commit.
type AuditLogger interface {
	LogLend(actorID string, loan *entities.Loan)
	LogReturn(actorID string, loan *entities.Loan)
	LogDelete(eventType entities.AuditEventType, entityID, actorID, description string)
	LogStatusChange(bookID, actorID string, status entities.BookStatus)
	LogOverdueScan(overdue int, err error)
}

type nopAudit struct{}

func (nopAudit) LogLend(string, *entities.Loan) {}
func (nopAudit) LogReturn(string, *entities.Loan) {}
func (nopAudit) LogDelete(entities.AuditEventType, string, string, string) {}
func (nopAudit) LogStatusChange(string, string, entities.BookStatus) {}
func (nopAudit) LogOverdueScan(int, error) {}

func auditOrNop(a AuditLogger) AuditLogger {
	if a == nil {
		return nopAudit{}
	}
	return a
}
