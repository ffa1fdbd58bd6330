package http

import (
	"context"

	"github.com/mikestefanello/backlite"

	auditrepo "github.com/mrlokans/library/internal/database/audit"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/services"
)

// This file consolidates the service interfaces used by HTTP controllers.
// The concrete implementations live in internal/services, internal/metadata,
// internal/tasks and internal/audit; tests substitute small fakes.

// UserService manages library members.
type UserService interface {
	List(ctx context.Context, filter services.UserFilter) ([]entities.User, error)
	Get(ctx context.Context, id string) (*entities.User, error)
	Create(ctx context.Context, in services.UserInput) (*entities.User, error)
	Update(ctx context.Context, id string, in services.UserInput) (*entities.User, error)
	Delete(ctx context.Context, id, actorID string) error
	Loans(ctx context.Context, id string) ([]entities.Loan, error)
	OwnedBooks(ctx context.Context, id string) ([]entities.Book, error)
}

// EligibilityChecker answers whether a member may borrow right now.
type EligibilityChecker interface {
	CanBorrow(ctx context.Context, userID string) (*services.Eligibility, error)
}

// BookService manages the catalogue and guards book deletion.
type BookService interface {
	List(ctx context.Context, filter services.BookFilter) ([]entities.Book, error)
	Get(ctx context.Context, id string) (*entities.Book, error)
	Create(ctx context.Context, in services.BookInput) (*entities.Book, error)
	CreateFromISBN(ctx context.Context, isbn string, ownerID *string) (*entities.Book, bool, error)
	LookupISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error)
	Update(ctx context.Context, id string, in services.BookInput) (*entities.Book, error)
	Remove(ctx context.Context, bookID, actorID string) error
	SetStatus(ctx context.Context, bookID string, status entities.BookStatus, actorID string) (*entities.Book, error)
}

// LoanService runs the lend / return lifecycle.
type LoanService interface {
	Lend(ctx context.Context, actorID, bookID, borrowerID string, days int) (*entities.Loan, error)
	ReturnLoan(ctx context.Context, loanID, actorID string) (*entities.Loan, error)
	List(ctx context.Context, filter services.LoanFilter) ([]entities.Loan, error)
	Get(ctx context.Context, id string) (*entities.Loan, error)
	Delete(ctx context.Context, id, actorID string) error
}

// BookEnricher refreshes a stored book from the metadata providers.
type BookEnricher interface {
	EnrichBook(ctx context.Context, bookID string) (*metadata.EnrichmentResult, error)
}

// ThumbnailCache serves local copies of remote book thumbnails.
type ThumbnailCache interface {
	Get(ctx context.Context, bookID, sourceURL string) (string, error)
	Invalidate(bookID string) error
}

// TaskQueue enqueues background tasks and reports their status.
type TaskQueue interface {
	Enqueue(task backlite.Task) (string, error)
	Status(ctx context.Context, taskID string) (backlite.TaskStatus, error)
}

// AuditReader lists recorded audit events.
type AuditReader interface {
	GetEvents(q auditrepo.Query) ([]entities.AuditEvent, int64, error)
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}
