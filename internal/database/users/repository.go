// Package users provides database operations for user management.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.GetByID(id)
package users

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/entities"
)

// Filter narrows Find. Empty fields are ignored; set fields are AND-combined.
type Filter struct {
	// Query matches a case-insensitive substring of name or email.
	Query string
	Email string
	Role  entities.UserRole
	Tier  entities.UserTier
}

// Repository handles all user database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user. The ID is generated when empty.
func (r *Repository) Create(user *entities.User) error {
	return r.db.Create(user).Error
}

// GetByID retrieves a user without associations.
func (r *Repository) GetByID(id string) (*entities.User, error) {
	var user entities.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetWithActiveLoans retrieves a user with its unreturned loans and their books.
func (r *Repository) GetWithActiveLoans(id string) (*entities.User, error) {
	var user entities.User
	err := r.db.
		Preload("Loans", "returned_at IS NULL").
		Preload("Loans.Book").
		First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail retrieves a user by exact email.
func (r *Repository) GetByEmail(email string) (*entities.User, error) {
	var user entities.User
	err := r.db.Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Find lists users matching the filter ordered by name.
func (r *Repository) Find(filter Filter) ([]entities.User, error) {
	var users []entities.User
	query := r.db.Model(&entities.User{})

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("LOWER(name) LIKE LOWER(?) OR LOWER(email) LIKE LOWER(?)", pattern, pattern)
	}
	if filter.Email != "" {
		query = query.Where("email = ?", filter.Email)
	}
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Tier != "" {
		query = query.Where("tier = ?", filter.Tier)
	}

	err := query.Order("name ASC").Find(&users).Error
	return users, err
}

// Update applies a partial set of column updates. Returns the number of rows changed.
func (r *Repository) Update(id string, updates map[string]any) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}
	result := r.db.Model(&entities.User{}).Where("id = ?", id).Updates(updates)
	return result.RowsAffected, result.Error
}

// Delete removes a user row. Returns the number of rows deleted.
func (r *Repository) Delete(id string) (int64, error) {
	result := r.db.Where("id = ?", id).Delete(&entities.User{})
	return result.RowsAffected, result.Error
}
