// Package books provides database operations for book management.
//
// Status transitions used by the loan lifecycle are guarded: MarkLent only
// changes a book that is currently AVAILABLE and reports whether it did.
//
// # Usage
//
//	repo := books.NewRepository(db)
//	book, err := repo.GetByID(id)
package books

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// PlaceholderAuthor marks books created without resolved metadata.
const PlaceholderAuthor = "Unknown"

// Filter narrows Find. Empty fields are ignored; set fields are AND-combined.
type Filter struct {
	// Query matches a title substring or an exact ISBN-10 / ISBN-13.
	Query   string
	Author  string
	Status  entities.BookStatus
	OwnerID string
}

// Repository handles all book database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new books repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func activeLoans(db *gorm.DB) *gorm.DB {
	return db.Where("returned_at IS NULL")
}

// Create inserts a new book. Status defaults to AVAILABLE.
func (r *Repository) Create(book *entities.Book) error {
	return r.db.Omit("Owner", "Loans").Create(book).Error
}

// GetByID retrieves a book without associations.
func (r *Repository) GetByID(id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetWithAllLoans retrieves a book with every loan, active or returned.
func (r *Repository) GetWithAllLoans(id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Preload("Loans").First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// GetDetailed retrieves a book with its owner and active loans including borrowers.
func (r *Repository) GetDetailed(id string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.
		Preload("Owner").
		Preload("Loans", activeLoans).
		Preload("Loans.Borrower").
		First(&book, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Find lists books matching the filter, newest first, with active loans preloaded.
func (r *Repository) Find(filter Filter) ([]entities.Book, error) {
	var books []entities.Book
	query := r.db.Model(&entities.Book{}).
		Preload("Owner").
		Preload("Loans", activeLoans).
		Preload("Loans.Borrower")

	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(title) LIKE LOWER(?) OR isbn10 = ? OR isbn13 = ?", "%"+q+"%", q, q)
	}
	if filter.Author != "" {
		query = query.Where("LOWER(author) LIKE LOWER(?)", "%"+filter.Author+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}

	err := query.Order("created_at DESC").Find(&books).Error
	return books, err
}

// FindPlaceholders lists books whose metadata was never resolved.
func (r *Repository) FindPlaceholders() ([]entities.Book, error) {
	var books []entities.Book
	err := r.db.Where("author = ?", PlaceholderAuthor).Order("created_at ASC").Find(&books).Error
	return books, err
}

// FindByISBN retrieves the first book with the given ISBN-10 or ISBN-13.
func (r *Repository) FindByISBN(isbn string) (*entities.Book, error) {
	var book entities.Book
	err := r.db.Where("isbn10 = ? OR isbn13 = ?", isbn, isbn).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

// Update applies a partial set of column updates. Returns the number of rows changed.
func (r *Repository) Update(id string, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

// SetStatus overwrites the status unconditionally.
func (r *Repository) SetStatus(id string, status entities.BookStatus) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("id = ?", id).Update("status", status)
	return result.RowsAffected, result.Error
}

// MarkLent flips an AVAILABLE book to LENT. Returns false when the book was not AVAILABLE.
func (r *Repository) MarkLent(id string) (bool, error) {
	result := r.db.Model(&entities.Book{}).
		Where("id = ? AND status = ?", id, entities.BookStatusAvailable).
		Update("status", entities.BookStatusLent)
	return result.RowsAffected == 1, result.Error
}

// MarkAvailable sets the book back to AVAILABLE.
func (r *Repository) MarkAvailable(id string) error {
	return r.db.Model(&entities.Book{}).Where("id = ?", id).
		Update("status", entities.BookStatusAvailable).Error
}

// ClearOwner drops the owner reference from every book owned by ownerID.
func (r *Repository) ClearOwner(ownerID string) (int64, error) {
	result := r.db.Model(&entities.Book{}).Where("owner_id = ?", ownerID).Update("owner_id", nil)
	return result.RowsAffected, result.Error
}

// Delete removes a book row. Callers must remove its loans first.
func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.Book{})
	return result.RowsAffected, result.Error
}

// DeleteAll removes every book. Callers must remove loans first.
func (r *Repository) DeleteAll() (int64, error) {
	result := r.db.Where("1 = 1").Delete(&entities.Book{})
	return result.RowsAffected, result.Error
}
