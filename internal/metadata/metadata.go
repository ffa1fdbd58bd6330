package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mrlokans/library/internal/entities"
)

// UnknownAuthor fills author and title when a provider omits them.
const UnknownAuthor = "Unknown"

var (
	ErrNotFound    = errors.New("isbn not found")
	ErrInvalidISBN = errors.New("invalid ISBN")
)

// BookMetadata is the provider-independent result of an ISBN lookup.
type BookMetadata struct {
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Publisher   string     `json:"publisher,omitempty"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	ISBN10      string     `json:"isbn10,omitempty"`
	ISBN13      string     `json:"isbn13,omitempty"`
	Description string     `json:"description,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Source      string     `json:"source,omitempty"`
}

// Provider looks up a single ISBN against one external catalogue.
type Provider interface {
	Name() string
	LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error)
}

// Placeholder is the record used when no provider knows the ISBN.
func Placeholder(isbn string) *BookMetadata {
	return &BookMetadata{
		Title:  PlaceholderTitle(isbn),
		Author: UnknownAuthor,
		ISBN13: isbn,
	}
}

func PlaceholderTitle(isbn string) string {
	return fmt.Sprintf("Book with ISBN %s", isbn)
}

// IsPlaceholderTitle reports whether title was generated by Placeholder.
func IsPlaceholderTitle(title string) bool {
	return strings.HasPrefix(title, "Book with ISBN ")
}

// NewBook builds an unsaved AVAILABLE book from the metadata.
func (m *BookMetadata) NewBook(ownerID *string) *entities.Book {
	return &entities.Book{
		Title:       m.Title,
		Author:      m.Author,
		Publisher:   nonEmpty(m.Publisher),
		PublishedAt: m.PublishedAt,
		ISBN10:      nonEmpty(m.ISBN10),
		ISBN13:      nonEmpty(m.ISBN13),
		Description: nonEmpty(m.Description),
		Thumbnail:   nonEmpty(m.Thumbnail),
		Status:      entities.BookStatusAvailable,
		OwnerID:     ownerID,
	}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// normalizeISBN removes hyphens and spaces from ISBN.
func normalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	isbn = strings.TrimSpace(isbn)

	// Basic validation: ISBN-10 or ISBN-13
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}

	return isbn
}

// parsePublishedDate accepts the partial dates catalogues return
// ("2005", "2005-03", "2005-03-15", "March 3, 2005").
func parsePublishedDate(dateStr string) *time.Time {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006-01-02",
		"2006-01",
		"2006",
		"January 2, 2006",
		"Jan 2, 2006",
		"January 2006",
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return &t
		}
	}

	if year := extractYear(dateStr); year > 0 {
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return nil
}

// extractYear finds the first plausible 4-digit year in a date string.
func extractYear(dateStr string) int {
	for i := 0; i <= len(dateStr)-4; i++ {
		if dateStr[i] >= '0' && dateStr[i] <= '9' {
			var year int
			if _, err := fmt.Sscanf(dateStr[i:i+4], "%d", &year); err == nil && year > 1000 && year < 3000 {
				return year
			}
		}
	}
	return 0
}
