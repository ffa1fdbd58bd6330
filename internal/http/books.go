package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/services"
)

type BooksController struct {
	books      BookService
	enricher   BookEnricher
	thumbnails ThumbnailCache
}

// NewBooksController creates a BooksController. enricher and thumbnails may
// be nil, in which case their endpoints are not registered.
func NewBooksController(books BookService, enricher BookEnricher, thumbnails ThumbnailCache) *BooksController {
	return &BooksController{books: books, enricher: enricher, thumbnails: thumbnails}
}

type bookRequest struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=512"`
	Author      *string    `json:"author" binding:"omitempty,min=1,max=256"`
	Publisher   *string    `json:"publisher" binding:"omitempty,max=256"`
	PublishedAt *time.Time `json:"publishedAt"`
	ISBN10      *string    `json:"isbn10" binding:"omitempty,len=10"`
	ISBN13      *string    `json:"isbn13" binding:"omitempty,len=13"`
	Comment     *string    `json:"comment"`
	Description *string    `json:"description"`
	Thumbnail   *string    `json:"thumbnail" binding:"omitempty,http_url"`
	OwnerID     *string    `json:"ownerId" binding:"omitempty,uuid"`
}

type createFromISBNRequest struct {
	ISBN    string  `json:"isbn" binding:"required,min=10,max=17"`
	OwnerID *string `json:"ownerId" binding:"omitempty,uuid"`
}

type setStatusRequest struct {
	Status entities.BookStatus `json:"status" binding:"required,oneof=AVAILABLE LENT LOST"`
}

// CreateFromISBNResponse reports whether the stored book carries real metadata.
type CreateFromISBNResponse struct {
	Book     *entities.Book `json:"book"`
	Resolved bool           `json:"resolved"`
}

// List handles GET /api/v1/books?q=&status=&author=
func (bc *BooksController) List(c *gin.Context) {
	books, err := bc.books.List(c.Request.Context(), services.BookFilter{
		Query:  c.Query("q"),
		Author: c.Query("author"),
		Status: entities.BookStatus(strings.ToUpper(c.Query("status"))),
	})
	if err != nil {
		respondServiceError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, ListResponse{Data: books, Count: len(books)})
}

// Get handles GET /api/v1/books/:id
func (bc *BooksController) Get(c *gin.Context) {
	book, err := bc.books.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Create handles POST /api/v1/books
func (bc *BooksController) Create(c *gin.Context) {
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}

	book, err := bc.books.Create(c.Request.Context(), req.input(true))
	if err != nil {
		respondServiceError(c, err, "create book")
		return
	}
	c.JSON(http.StatusCreated, book)
}

// CreateFromISBN handles POST /api/v1/books/isbn. Unknown ISBNs still create
// a placeholder book.
func (bc *BooksController) CreateFromISBN(c *gin.Context) {
	var req createFromISBNRequest
	if !bindJSON(c, &req) {
		return
	}

	book, resolved, err := bc.books.CreateFromISBN(c.Request.Context(), strings.TrimSpace(req.ISBN), optional(req.OwnerID))
	if err != nil {
		respondServiceError(c, err, "create book from isbn")
		return
	}
	c.JSON(http.StatusCreated, CreateFromISBNResponse{Book: book, Resolved: resolved})
}

// LookupISBN handles GET /api/v1/books/isbn/:isbn/info
func (bc *BooksController) LookupISBN(c *gin.Context) {
	md, err := bc.books.LookupISBN(c.Request.Context(), c.Param("isbn"))
	if err != nil {
		respondServiceError(c, err, "lookup isbn")
		return
	}
	c.JSON(http.StatusOK, md)
}

// Update handles PATCH /api/v1/books/:id
func (bc *BooksController) Update(c *gin.Context) {
	var req bookRequest
	if !bindJSON(c, &req) {
		return
	}

	book, err := bc.books.Update(c.Request.Context(), c.Param("id"), req.input(false))
	if err != nil {
		respondServiceError(c, err, "update book")
		return
	}
	if req.Thumbnail != nil {
		bc.invalidateThumbnail(c, book.ID)
	}
	c.JSON(http.StatusOK, book)
}

// Delete handles DELETE /api/v1/books/:id
func (bc *BooksController) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := bc.books.Remove(c.Request.Context(), id, auth.GetUserID(c)); err != nil {
		respondServiceError(c, err, "delete book")
		return
	}
	bc.invalidateThumbnail(c, id)
	c.Status(http.StatusNoContent)
}

// SetStatus handles PATCH /api/v1/books/:id/status
func (bc *BooksController) SetStatus(c *gin.Context) {
	var req setStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	book, err := bc.books.SetStatus(c.Request.Context(), c.Param("id"), req.Status, auth.GetUserID(c))
	if err != nil {
		respondServiceError(c, err, "set book status")
		return
	}
	c.JSON(http.StatusOK, book)
}

// Enrich handles POST /api/v1/books/:id/enrich
func (bc *BooksController) Enrich(c *gin.Context) {
	result, err := bc.enricher.EnrichBook(c.Request.Context(), c.Param("id"))
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, gorm.ErrRecordNotFound):
		respondNotFound(c, "Book not found")
	case errors.Is(err, metadata.ErrNoISBN):
		respondBadRequest(c, "Book has no ISBN to look up")
	case errors.Is(err, metadata.ErrNotFound):
		respondNotFound(c, "Book information not found for this ISBN")
	default:
		respondInternalError(c, err, "enrich book")
	}
}

// Thumbnail handles GET /api/v1/books/:id/thumbnail
func (bc *BooksController) Thumbnail(c *gin.Context) {
	book, err := bc.books.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondServiceError(c, err, "get book thumbnail")
		return
	}
	if book.Thumbnail == nil || *book.Thumbnail == "" {
		respondNotFound(c, "Book has no thumbnail")
		return
	}

	path, err := bc.thumbnails.Get(c.Request.Context(), book.ID, *book.Thumbnail)
	if err != nil {
		requestLogger(c).WithError(err).WithField("book_id", book.ID).Warn("thumbnail fetch failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{Error: "Thumbnail unavailable", Code: CodeUpstream})
		return
	}

	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}

func (bc *BooksController) invalidateThumbnail(c *gin.Context, bookID string) {
	if bc.thumbnails == nil {
		return
	}
	if err := bc.thumbnails.Invalidate(bookID); err != nil {
		requestLogger(c).WithError(err).WithField("book_id", bookID).Warn("failed to drop cached thumbnail")
	}
}

// input converts the request to service input. On create, blank optional
// fields are dropped; on update they are passed through so they can be cleared.
func (r *bookRequest) input(create bool) services.BookInput {
	in := services.BookInput{
		Title:       r.Title,
		Author:      r.Author,
		Publisher:   r.Publisher,
		PublishedAt: r.PublishedAt,
		ISBN10:      r.ISBN10,
		ISBN13:      r.ISBN13,
		Comment:     r.Comment,
		Description: r.Description,
		Thumbnail:   r.Thumbnail,
		OwnerID:     r.OwnerID,
	}
	if create {
		in.Publisher = optional(r.Publisher)
		in.ISBN10 = optional(r.ISBN10)
		in.ISBN13 = optional(r.ISBN13)
		in.Comment = optional(r.Comment)
		in.Description = optional(r.Description)
		in.Thumbnail = optional(r.Thumbnail)
		in.OwnerID = optional(r.OwnerID)
	}
	return in
}
