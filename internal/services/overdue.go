package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/entities"
)

// OverdueReport is the result of one overdue scan.
type OverdueReport struct {
	ScannedAt time.Time       `json:"scannedAt"`
	Loans     []entities.Loan `json:"loans"`
}

// ScanOverdue lists active loans past their due date, logging one line per
// loan, and records the outcome in the audit log.
func (s *LoanService) ScanOverdue(ctx context.Context) (*OverdueReport, error) {
	now := s.now().UTC()
	overdue, err := s.List(ctx, LoanFilter{Overdue: true})
	if err != nil {
		s.audit.LogOverdueScan(0, err)
		return nil, err
	}

	for i := range overdue {
		loan := &overdue[i]
		fields := logrus.Fields{
			"loan_id":      loan.ID,
			"book_id":      loan.BookID,
			"borrower_id":  loan.BorrowerID,
			"due_at":       loan.DueAt,
			"days_overdue": daysOverdue(loan.DueAt, now),
		}
		if loan.Book != nil {
			fields["title"] = loan.Book.Title
		}
		if loan.Borrower != nil {
			fields["borrower_email"] = loan.Borrower.Email
		}
		s.log.WithFields(fields).Warn("loan overdue")
	}

	s.log.WithField("count", len(overdue)).Info("overdue scan complete")
	s.audit.LogOverdueScan(len(overdue), nil)

	return &OverdueReport{ScannedAt: now, Loans: overdue}, nil
}

func daysOverdue(dueAt, now time.Time) int {
	return int(math.Ceil(now.Sub(dueAt).Hours() / 24))
}
