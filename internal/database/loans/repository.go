// Package loans provides database operations for the loan lifecycle.
//
// # Usage
//
//	repo := loans.NewRepository(db)
//	ok, err := repo.MarkReturned(loanID, time.Now())
package loans

import (
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Filter narrows Find. Set fields are AND-combined.
type Filter struct {
	BookID     string
	BorrowerID string
	// ActiveOnly restricts to loans with no return date.
	ActiveOnly bool
	// OverdueAt, when non-zero, restricts to active loans due before it.
	OverdueAt time.Time
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(loan *entities.Loan) error {
	return r.db.Omit("Book", "Borrower").Create(loan).Error
}

// GetByID retrieves a loan with its book, the book owner and the borrower.
func (r *Repository) GetByID(id string) (*entities.Loan, error) {
	var loan entities.Loan
	err := r.db.
		Preload("Book").
		Preload("Book.Owner").
		Preload("Borrower").
		First(&loan, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// Find lists loans most recently lent first, with book and borrower preloaded.
func (r *Repository) Find(filter Filter) ([]entities.Loan, error) {
	var loans []entities.Loan
	query := r.db.Model(&entities.Loan{}).Preload("Book").Preload("Borrower")

	if filter.BookID != "" {
		query = query.Where("book_id = ?", filter.BookID)
	}
	if filter.BorrowerID != "" {
		query = query.Where("borrower_id = ?", filter.BorrowerID)
	}
	if filter.ActiveOnly {
		query = query.Where("returned_at IS NULL")
	}
	if !filter.OverdueAt.IsZero() {
		query = query.Where("returned_at IS NULL AND due_at < ?", filter.OverdueAt)
	}

	err := query.Order("lent_at DESC").Find(&loans).Error
	return loans, err
}

// ActiveForBorrower lists the borrower's unreturned loans.
func (r *Repository) ActiveForBorrower(borrowerID string) ([]entities.Loan, error) {
	var loans []entities.Loan
	err := r.db.Where("borrower_id = ? AND returned_at IS NULL", borrowerID).Find(&loans).Error
	return loans, err
}

// CountActiveForBorrower counts the borrower's unreturned loans.
func (r *Repository) CountActiveForBorrower(borrowerID string) (int64, error) {
	var count int64
	err := r.db.Model(&entities.Loan{}).
		Where("borrower_id = ? AND returned_at IS NULL", borrowerID).
		Count(&count).Error
	return count, err
}

// MarkReturned stamps the return time on an active loan.
// Returns false when the loan was already returned.
func (r *Repository) MarkReturned(id string, at time.Time) (bool, error) {
	result := r.db.Model(&entities.Loan{}).
		Where("id = ? AND returned_at IS NULL", id).
		Update("returned_at", at)
	return result.RowsAffected == 1, result.Error
}

func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.Loan{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteByBook(bookID string) (int64, error) {
	result := r.db.Where("book_id = ?", bookID).Delete(&entities.Loan{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteByBorrower(borrowerID string) (int64, error) {
	result := r.db.Where("borrower_id = ?", borrowerID).Delete(&entities.Loan{})
	return result.RowsAffected, result.Error
}

func (r *Repository) DeleteAll() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&entities.Loan{})
	return result.RowsAffected, result.Error
}
