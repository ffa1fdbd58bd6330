package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRole string

const (
	RoleUser  UserRole = "USER"
	RoleAdmin UserRole = "ADMIN"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type UserTier string

const (
	Tier1 UserTier = "TIER_1"
	Tier2 UserTier = "TIER_2"
	Tier3 UserTier = "TIER_3"
	Tier4 UserTier = "TIER_4"
)

// Valid reports whether t is a known tier.
func (t UserTier) Valid() bool {
	switch t {
	case Tier1, Tier2, Tier3, Tier4:
		return true
	}
	return false
}

// BorrowLimit returns the maximum number of concurrent active loans for the tier.
// Unknown tiers get the most restrictive limit.
func (t UserTier) BorrowLimit() int {
	switch t {
	case Tier1, Tier2:
		return 3
	case Tier3:
		return 2
	default:
		return 1
	}
}

type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"index;size:255;not null" json:"name"`
	Email     string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Role      UserRole  `gorm:"size:10;not null;default:'USER'" json:"role"`
	Tier      UserTier  `gorm:"size:10;not null;default:'TIER_4'" json:"tier"`
	Phone     *string   `gorm:"size:50" json:"phone,omitempty"`
	Address   *string   `gorm:"size:500" json:"address,omitempty"`
	Loans     []Loan    `gorm:"foreignKey:BorrowerID" json:"loans,omitempty"`
	Books     []Book    `gorm:"foreignKey:OwnerID" json:"books,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsAdmin reports whether the user has the ADMIN role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserSummary is the subset of user fields embedded in book and loan responses.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (u *User) Summary() *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{ID: u.ID, Name: u.Name, Email: u.Email}
}
