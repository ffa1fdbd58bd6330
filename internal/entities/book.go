package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BookStatus string

const (
	BookStatusAvailable BookStatus = "AVAILABLE"
	BookStatusLent      BookStatus = "LENT"
	BookStatusLost      BookStatus = "LOST"
)

// Valid reports whether s is a known book status.
func (s BookStatus) Valid() bool {
	switch s {
	case BookStatusAvailable, BookStatusLent, BookStatusLost:
		return true
	}
	return false
}

type Book struct {
	ID          string     `gorm:"primaryKey;size:36" json:"id"`
	Title       string     `gorm:"index;size:512;not null" json:"title"`
	Author      string     `gorm:"index;size:256;not null" json:"author"`
	Publisher   *string    `gorm:"size:256" json:"publisher,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ISBN10      *string    `gorm:"column:isbn10;index;size:10" json:"isbn10,omitempty"`
	ISBN13      *string    `gorm:"column:isbn13;index;size:13" json:"isbn13,omitempty"`
	Comment     *string    `gorm:"type:text" json:"comment,omitempty"`
	Description *string    `gorm:"type:text" json:"description,omitempty"`
	Thumbnail   *string    `gorm:"size:2048" json:"thumbnail,omitempty"`
	Status      BookStatus `gorm:"index;size:10;not null;default:'AVAILABLE'" json:"status"`
	OwnerID     *string    `gorm:"index;size:36" json:"ownerId,omitempty"`
	Owner       *User      `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"owner,omitempty"`
	Loans       []Loan     `gorm:"foreignKey:BookID" json:"loans,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (Book) TableName() string {
	return "books"
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Status == "" {
		b.Status = BookStatusAvailable
	}
	return nil
}

// HasActiveLoan reports whether any of the loaded loans is still out.
// Only meaningful when Loans were preloaded.
func (b *Book) HasActiveLoan() bool {
	for i := range b.Loans {
		if b.Loans[i].IsActive() {
			return true
		}
	}
	return false
}
