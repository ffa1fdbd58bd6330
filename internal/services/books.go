package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/database/books"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metadata"
)

const (
	msgBookNotFound       = "Book not found"
	msgActiveBookDeletion = "Cannot delete book with active loans. Please return the book first."
	msgISBNRequired       = "Either ISBN10 or ISBN13 is required"
	msgOwnerNotFound      = "Owner not found"
	msgMetadataNotFound   = "Book information not found for this ISBN"
)

// MetadataResolver looks up book metadata by ISBN. nil means not found.
type MetadataResolver interface {
	FetchByISBN(ctx context.Context, isbn string) *metadata.BookMetadata
}

// EnrichmentQueue schedules a background metadata refresh for a book.
type EnrichmentQueue interface {
	EnqueueEnrichBook(bookID string) error
}

// BookFilter narrows List. Set fields are AND-combined.
type BookFilter struct {
	Query  string
	Author string
	Status entities.BookStatus
}

// BookInput carries book fields for create and update. Nil pointers are
// left untouched on update.
type BookInput struct {
	Title       *string
	Author      *string
	Publisher   *string
	PublishedAt *time.Time
	ISBN10      *string
	ISBN13      *string
	Comment     *string
	Description *string
	Thumbnail   *string
	OwnerID     *string
}

type BookService struct {
	store    Store
	resolver MetadataResolver
	queue    EnrichmentQueue
	audit    AuditLogger
	log      logrus.FieldLogger
}

type BookServiceConfig struct {
	Store    Store
	Resolver MetadataResolver
	Queue    EnrichmentQueue
	Audit    AuditLogger
	Log      logrus.FieldLogger
}

func NewBookService(cfg BookServiceConfig) *BookService {
	s := &BookService{
		store:    cfg.Store,
		resolver: cfg.Resolver,
		queue:    cfg.Queue,
		audit:    auditOrNop(cfg.Audit),
		log:      cfg.Log,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

func (s *BookService) List(ctx context.Context, filter BookFilter) ([]entities.Book, error) {
	result, err := s.store.Repositories(ctx).Books.Find(books.Filter{
		Query:  filter.Query,
		Author: filter.Author,
		Status: filter.Status,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return result, nil
}

// Get returns a book with its owner and active loans.
func (s *BookService) Get(ctx context.Context, id string) (*entities.Book, error) {
	book, err := s.store.Repositories(ctx).Books.GetDetailed(id)
	if err != nil {
		return nil, notFoundOr(err, msgBookNotFound)
	}
	return book, nil
}

// Create stores a new AVAILABLE book. Title, author and one ISBN are required.
func (s *BookService) Create(ctx context.Context, in BookInput) (*entities.Book, error) {
	if isBlank(in.Title) {
		return nil, Validation("Title is required")
	}
	if isBlank(in.Author) {
		return nil, Validation("Author is required")
	}
	if isBlank(in.ISBN10) && isBlank(in.ISBN13) {
		return nil, Validation(msgISBNRequired)
	}

	book := &entities.Book{
		Title:       *in.Title,
		Author:      *in.Author,
		Publisher:   in.Publisher,
		PublishedAt: in.PublishedAt,
		ISBN10:      in.ISBN10,
		ISBN13:      in.ISBN13,
		Comment:     in.Comment,
		Description: in.Description,
		Thumbnail:   in.Thumbnail,
		OwnerID:     in.OwnerID,
		Status:      entities.BookStatusAvailable,
	}

	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		if err := checkOwner(repos, in.OwnerID); err != nil {
			return err
		}
		return repos.Books.Create(book)
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// CreateFromISBN resolves isbn and stores the result, falling back to a
// placeholder record. The boolean reports whether metadata was found.
func (s *BookService) CreateFromISBN(ctx context.Context, isbn string, ownerID *string) (*entities.Book, bool, error) {
	if isBlank(&isbn) {
		return nil, false, Validation("ISBN is required")
	}

	var md *metadata.BookMetadata
	if s.resolver != nil {
		md = s.resolver.FetchByISBN(ctx, isbn)
	}
	found := md != nil
	if !found {
		md = metadata.Placeholder(isbn)
	}

	book := md.NewBook(ownerID)
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		if err := checkOwner(repos, ownerID); err != nil {
			return err
		}
		return repos.Books.Create(book)
	})
	if err != nil {
		return nil, false, err
	}

	if !found && s.queue != nil {
		if err := s.queue.EnqueueEnrichBook(book.ID); err != nil {
			s.log.WithError(err).WithField("book_id", book.ID).Warn("failed to enqueue enrichment")
		}
	}

	return book, found, nil
}

// LookupISBN returns resolved metadata without storing anything.
func (s *BookService) LookupISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error) {
	if s.resolver == nil {
		return nil, NotFound(msgMetadataNotFound)
	}
	md := s.resolver.FetchByISBN(ctx, isbn)
	if md == nil {
		return nil, NotFound(msgMetadataNotFound)
	}
	return md, nil
}

// Update applies a partial patch. Status is changed only through SetStatus.
func (s *BookService) Update(ctx context.Context, id string, in BookInput) (*entities.Book, error) {
	if in.Title != nil && isBlank(in.Title) {
		return nil, Validation("Title is required")
	}
	if in.Author != nil && isBlank(in.Author) {
		return nil, Validation("Author is required")
	}

	updates := make(map[string]any)
	setString := func(column string, v *string) {
		if v != nil {
			updates[column] = *v
		}
	}
	setString("title", in.Title)
	setString("author", in.Author)
	setString("publisher", in.Publisher)
	setString("isbn10", in.ISBN10)
	setString("isbn13", in.ISBN13)
	setString("comment", in.Comment)
	setString("description", in.Description)
	setString("thumbnail", in.Thumbnail)
	if in.PublishedAt != nil {
		updates["published_at"] = *in.PublishedAt
	}
	if in.OwnerID != nil {
		if *in.OwnerID == "" {
			updates["owner_id"] = nil
		} else {
			updates["owner_id"] = *in.OwnerID
		}
	}

	var book *entities.Book
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		if _, err := repos.Books.GetByID(id); err != nil {
			return notFoundOr(err, msgBookNotFound)
		}
		if in.OwnerID != nil && *in.OwnerID != "" {
			if err := checkOwner(repos, in.OwnerID); err != nil {
				return err
			}
		}
		if _, err := repos.Books.Update(id, updates); err != nil {
			return fmt.Errorf("failed to update book: %w", err)
		}
		var err error
		book, err = repos.Books.GetDetailed(id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return book, nil
}

// Remove deletes a book and its loan history. Books with an active loan
// cannot be removed.
func (s *BookService) Remove(ctx context.Context, bookID, actorID string) error {
	var title string
	err := s.store.Transaction(ctx, func(repos *database.Repositories) error {
		book, err := repos.Books.GetWithAllLoans(bookID)
		if err != nil {
			return notFoundOr(err, msgBookNotFound)
		}
		if book.HasActiveLoan() {
			return Conflict(msgActiveBookDeletion)
		}
		title = book.Title

		if _, err := repos.Loans.DeleteByBook(bookID); err != nil {
			return fmt.Errorf("failed to delete loan history: %w", err)
		}
		if _, err := repos.Books.Delete(bookID); err != nil {
			return fmt.Errorf("failed to delete book: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithField("book_id", bookID).Info("book deleted")
	s.audit.LogDelete(entities.AuditEventBook, bookID, actorID, "Deleted book: "+title)
	return nil
}

// SetStatus overwrites the book status directly. It does not reconcile
// with loans, so marking a lent book LOST leaves its loan active.
func (s *BookService) SetStatus(ctx context.Context, bookID string, status entities.BookStatus, actorID string) (*entities.Book, error) {
	if !status.Valid() {
		return nil, Validation(fmt.Sprintf("invalid status %q", status))
	}

	repos := s.store.Repositories(ctx)
	rows, err := repos.Books.SetStatus(bookID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to set status: %w", err)
	}
	if rows == 0 {
		return nil, NotFound(msgBookNotFound)
	}

	book, err := repos.Books.GetByID(bookID)
	if err != nil {
		return nil, notFoundOr(err, msgBookNotFound)
	}

	s.audit.LogStatusChange(bookID, actorID, status)
	return book, nil
}

func checkOwner(repos *database.Repositories, ownerID *string) error {
	if ownerID == nil || *ownerID == "" {
		return nil
	}
	if _, err := repos.Users.GetByID(*ownerID); err != nil {
		if isRecordNotFound(err) {
			return Validation(msgOwnerNotFound)
		}
		return fmt.Errorf("failed to load owner: %w", err)
	}
	return nil
}
