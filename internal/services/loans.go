package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
)

const (
	msgBookNotAvailable   = "Book not available"
	msgRentalNotFound     = "Rental not found"
	msgReturnForbidden    = "You do not have permission to return this book"
	msgAlreadyReturned    = "Loan already returned"
	msgLoanNotFound       = "Loan not found"
	msgActiveLoanDeletion = "Cannot delete an active loan. Please return the book first."
)

// LoanFilter narrows List. Set fields are AND-combined.
type LoanFilter struct {
	BookID     string
	BorrowerID string
	Overdue    bool
}

type LoanService struct {
	store       Store
	now         Clock
	audit       AuditLogger
	log         logrus.FieldLogger
	defaultDays int
}

type LoanServiceConfig struct {
	Store Store
	Now   Clock
	Audit AuditLogger
	Log   logrus.FieldLogger
	// DefaultDays applies when Lend is called with days = 0.
	DefaultDays int
}

func NewLoanService(cfg LoanServiceConfig) *LoanService {
	s := &LoanService{
		store:       cfg.Store,
		now:         cfg.Now,
		audit:       auditOrNop(cfg.Audit),
		log:         cfg.Log,
		defaultDays: cfg.DefaultDays,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.defaultDays < entities.MinLoanDays || s.defaultDays > entities.MaxLoanDays {
		s.defaultDays = entities.DefaultLoanDays
	}
	return s
}

// Lend creates an active loan and marks the book LENT in one transaction.
// days = 0 uses the configured default.
func (s *LoanService) Lend(ctx context.Context, actorID, bookID, borrowerID string, days int) (*entities.Loan, error) {
	if days == 0 {
		days = s.defaultDays
	}
	if days < entities.MinLoanDays || days > entities.MaxLoanDays {
		return nil, Validation(fmt.Sprintf("days must be between %d and %d", entities.MinLoanDays, entities.MaxLoanDays))
	}

	var loan *entities.Loan
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		book, err := repos.Books.GetByID(bookID)
		if err != nil {
			if isRecordNotFound(err) {
				return Conflict(msgBookNotAvailable)
			}
			return fmt.Errorf("failed to load book: %w", err)
		}
		if book.Status != entities.BookStatusAvailable {
			return Conflict(msgBookNotAvailable)
		}

		now := s.now().UTC()
		eligibility, err := evaluateEligibility(repos, borrowerID, now)
		if err != nil {
			return err
		}
		if !eligibility.CanBorrow {
			return Conflict(eligibility.Reason)
		}

		loan = &entities.Loan{
			BookID:     bookID,
			BorrowerID: borrowerID,
			LentAt:     now,
			DueAt:      now.Add(time.Duration(days) * 24 * time.Hour),
		}
		if err := repos.Loans.Create(loan); err != nil {
			return fmt.Errorf("failed to create loan: %w", err)
		}

		lent, err := repos.Books.MarkLent(bookID)
		if err != nil {
			return fmt.Errorf("failed to mark book lent: %w", err)
		}
		if !lent {
			return Conflict(msgBookNotAvailable)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id":     loan.ID,
		"book_id":     bookID,
		"borrower_id": borrowerID,
		"due_at":      loan.DueAt,
	}).Info("book lent")
	s.audit.LogLend(actorID, loan)

	return loan, nil
}

// ReturnLoan closes an active loan and makes the book AVAILABLE again.
// When actorID is set, only an admin, the borrower or the book owner may return.
func (s *LoanService) ReturnLoan(ctx context.Context, loanID, actorID string) (*entities.Loan, error) {
	var loan *entities.Loan
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		var err error
		loan, err = repos.Loans.GetByID(loanID)
		if err != nil {
			return notFoundOr(err, msgRentalNotFound)
		}

		if actorID != "" {
			allowed, err := canReturn(repos, loan, actorID)
			if err != nil {
				return err
			}
			if !allowed {
				return Forbidden(msgReturnForbidden)
			}
		}

		if !loan.IsActive() {
			return Conflict(msgAlreadyReturned)
		}

		now := s.now().UTC()
		returned, err := repos.Loans.MarkReturned(loanID, now)
		if err != nil {
			return fmt.Errorf("failed to mark loan returned: %w", err)
		}
		if !returned {
			return Conflict(msgAlreadyReturned)
		}
		if err := repos.Books.MarkAvailable(loan.BookID); err != nil {
			return fmt.Errorf("failed to mark book available: %w", err)
		}

		loan.ReturnedAt = &now
		if loan.Book != nil {
			loan.Book.Status = entities.BookStatusAvailable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"loan_id": loan.ID,
		"book_id": loan.BookID,
	}).Info("book returned")
	s.audit.LogReturn(actorID, loan)

	return loan, nil
}

func canReturn(repos *database.Repositories, loan *entities.Loan, actorID string) (bool, error) {
	if actorID == loan.BorrowerID {
		return true, nil
	}
	if loan.Book != nil && loan.Book.OwnerID != nil && *loan.Book.OwnerID == actorID {
		return true, nil
	}

	actor, err := repos.Users.GetByID(actorID)
	if err != nil {
		if isRecordNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load acting user: %w", err)
	}
	return actor.IsAdmin(), nil
}

// List returns loans with book and borrower, most recent first.
func (s *LoanService) List(ctx context.Context, filter LoanFilter) ([]entities.Loan, error) {
	f := loans.Filter{BookID: filter.BookID, BorrowerID: filter.BorrowerID}
	if filter.Overdue {
		f.OverdueAt = s.now().UTC()
	}
	result, err := s.store.Repositories(ctx).Loans.Find(f)
	if err != nil {
		return nil, fmt.Errorf("failed to list loans: %w", err)
	}
	return result, nil
}

func (s *LoanService) Get(ctx context.Context, id string) (*entities.Loan, error) {
	loan, err := s.store.Repositories(ctx).Loans.GetByID(id)
	if err != nil {
		return nil, notFoundOr(err, msgLoanNotFound)
	}
	return loan, nil
}

// Delete removes a returned loan record. Active loans must be returned first.
func (s *LoanService) Delete(ctx context.Context, id, actorID string) error {
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		loan, err := repos.Loans.GetByID(id)
		if err != nil {
			return notFoundOr(err, msgLoanNotFound)
		}
		if loan.IsActive() {
			return Conflict(msgActiveLoanDeletion)
		}
		_, err = repos.Loans.Delete(id)
		return err
	})
	if err != nil {
		return err
	}

	s.audit.LogDelete(entities.AuditEventLoan, id, actorID, "Deleted loan "+id)
	return nil
}
