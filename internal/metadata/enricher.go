package metadata

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/entities"
)

var ErrNoISBN = errors.New("book has no ISBN")

// ISBNResolver resolves metadata for a single ISBN; nil means unknown.
type ISBNResolver interface {
	FetchByISBN(ctx context.Context, isbn string) *BookMetadata
}

// BookUpdater defines the interface for updating books in the database.
type BookUpdater interface {
	GetByID(id string) (*entities.Book, error)
	Update(id string, updates map[string]any) (int64, error)
	FindPlaceholders() ([]entities.Book, error)
}

// EnrichmentResult contains the result of an enrichment operation.
type EnrichmentResult struct {
	Book          *entities.Book `json:"book"`
	FieldsUpdated []string       `json:"fieldsUpdated"`
	Source        string         `json:"source"`
}

// BulkEnrichmentResult contains the summary of a bulk enrichment operation.
type BulkEnrichmentResult struct {
	TotalBooks int      `json:"totalBooks"`
	Enriched   int      `json:"enriched"`
	Failed     int      `json:"failed"`
	Skipped    int      `json:"skipped"`
	Errors     []string `json:"errors,omitempty"`
}

// Enricher upgrades stored books with metadata fetched by ISBN.
type Enricher struct {
	resolver ISBNResolver
	db       BookUpdater
	log      logrus.FieldLogger
}

func NewEnricher(resolver ISBNResolver, db BookUpdater, log logrus.FieldLogger) *Enricher {
	return &Enricher{resolver: resolver, db: db, log: log}
}

// EnrichBook re-resolves a book by ISBN-13 (or ISBN-10) and fills fields
// that are empty or still hold placeholder values.
func (e *Enricher) EnrichBook(ctx context.Context, bookID string) (*EnrichmentResult, error) {
	book, err := e.db.GetByID(bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	isbn := bookISBN(book)
	if isbn == "" {
		return nil, ErrNoISBN
	}

	md := e.resolver.FetchByISBN(ctx, isbn)
	if md == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, isbn)
	}

	updates, fieldsUpdated := buildUpdates(book, md)
	if len(fieldsUpdated) > 0 {
		if _, err := e.db.Update(bookID, updates); err != nil {
			return nil, fmt.Errorf("update book metadata: %w", err)
		}

		book, err = e.db.GetByID(bookID)
		if err != nil {
			return nil, fmt.Errorf("refresh book: %w", err)
		}
		e.log.WithFields(logrus.Fields{
			"book_id": bookID,
			"fields":  fieldsUpdated,
			"source":  md.Source,
		}).Info("book metadata enriched")
	}

	return &EnrichmentResult{
		Book:          book,
		FieldsUpdated: fieldsUpdated,
		Source:        md.Source,
	}, nil
}

// EnrichAllPlaceholders enriches every book still carrying placeholder metadata.
func (e *Enricher) EnrichAllPlaceholders(ctx context.Context) (*BulkEnrichmentResult, error) {
	books, err := e.db.FindPlaceholders()
	if err != nil {
		return nil, fmt.Errorf("get placeholder books: %w", err)
	}

	result := &BulkEnrichmentResult{TotalBooks: len(books)}

	for _, book := range books {
		if err := ctx.Err(); err != nil {
			result.Errors = append(result.Errors, "operation cancelled")
			return result, err
		}

		enrichResult, err := e.EnrichBook(ctx, book.ID)
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", book.Title, err))
			continue
		}

		if len(enrichResult.FieldsUpdated) > 0 {
			result.Enriched++
		} else {
			result.Skipped++
		}
	}

	return result, nil
}

func bookISBN(book *entities.Book) string {
	if book.ISBN13 != nil && *book.ISBN13 != "" {
		return *book.ISBN13
	}
	if book.ISBN10 != nil && *book.ISBN10 != "" {
		return *book.ISBN10
	}
	return ""
}

// buildUpdates compares existing book data with fetched metadata and returns
// column updates for fields that are empty or placeholders.
func buildUpdates(book *entities.Book, md *BookMetadata) (map[string]any, []string) {
	updates := make(map[string]any)
	var fieldsUpdated []string

	set := func(column, field string, value any) {
		updates[column] = value
		fieldsUpdated = append(fieldsUpdated, field)
	}

	if (book.Title == "" || IsPlaceholderTitle(book.Title)) && md.Title != "" && md.Title != UnknownAuthor {
		set("title", "title", md.Title)
	}
	if (book.Author == "" || book.Author == UnknownAuthor) && md.Author != "" && md.Author != UnknownAuthor {
		set("author", "author", md.Author)
	}
	if isEmpty(book.Publisher) && md.Publisher != "" {
		set("publisher", "publisher", md.Publisher)
	}
	if book.PublishedAt == nil && md.PublishedAt != nil {
		set("published_at", "publishedAt", *md.PublishedAt)
	}
	if isEmpty(book.Description) && md.Description != "" {
		set("description", "description", md.Description)
	}
	if isEmpty(book.Thumbnail) && md.Thumbnail != "" {
		set("thumbnail", "thumbnail", md.Thumbnail)
	}
	if isEmpty(book.ISBN10) && md.ISBN10 != "" {
		set("isbn10", "isbn10", md.ISBN10)
	}
	if isEmpty(book.ISBN13) && md.ISBN13 != "" {
		set("isbn13", "isbn13", md.ISBN13)
	}

	return updates, fieldsUpdated
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}
