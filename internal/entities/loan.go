package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultLoanDays = 14
	MinLoanDays     = 1
	MaxLoanDays     = 365
)

// Loan records one lending of a book. A loan is active while ReturnedAt is nil
// and becomes returned exactly once.
type Loan struct {
	ID         string     `gorm:"primaryKey;size:36" json:"id"`
	BookID     string     `gorm:"index;size:36;not null" json:"bookId"`
	BorrowerID string     `gorm:"index;size:36;not null" json:"borrowerId"`
	LentAt     time.Time  `gorm:"not null" json:"lentAt"`
	DueAt      time.Time  `gorm:"index;not null" json:"dueAt"`
	ReturnedAt *time.Time `gorm:"index" json:"returnedAt"`
	Book       *Book      `gorm:"foreignKey:BookID" json:"book,omitempty"`
	Borrower   *User      `gorm:"foreignKey:BorrowerID" json:"borrower,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

func (Loan) TableName() string {
	return "loans"
}

func (l *Loan) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	return nil
}

func (l *Loan) IsActive() bool {
	return l.ReturnedAt == nil
}

// IsOverdue reports whether the loan is active and past its due date at now.
func (l *Loan) IsOverdue(now time.Time) bool {
	return l.IsActive() && l.DueAt.Before(now)
}
