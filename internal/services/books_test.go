package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/library/internal/database/loans"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metadata"
)

func strPtr(s string) *string { return &s }

func TestBookService_RemoveWithActiveLoan(t *testing.T) {
	db := setupTestStore(t)
	loanSvc := newLoanService(db, newTestClock(), nil)
	svc := NewBookService(BookServiceConfig{Store: db})
	ctx := context.Background()

	user := createUser(t, db, entities.RoleUser, entities.Tier1)
	book := createBook(t, db, nil)
	_, err := loanSvc.Lend(ctx, "", book.ID, user.ID, 14)
	require.NoError(t, err)

	err = svc.Remove(ctx, book.ID, "")
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.Equal(t, "Cannot delete book with active loans. Please return the book first.", err.Error())

	stored := getBook(t, db, book.ID)
	assert.Equal(t, entities.BookStatusLent, stored.Status)
}

func TestBookService_RemoveWithHistory(t *testing.T) {
	db := setupTestStore(t)
	audit := &recordingAudit{}
	loanSvc := newLoanService(db, newTestClock(), nil)
	svc := NewBookService(BookServiceConfig{Store: db, Audit: audit})
	ctx := context.Background()

	user := createUser(t, db, entities.RoleUser, entities.Tier1)
	book := createBook(t, db, nil)
	loan, err := loanSvc.Lend(ctx, "", book.ID, user.ID, 14)
	require.NoError(t, err)
	_, err = loanSvc.ReturnLoan(ctx, loan.ID, "")
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, book.ID, "admin"))

	_, err = svc.Get(ctx, book.ID)
	assert.True(t, IsNotFound(err))

	history, err := db.Repositories(ctx).Loans.Find(loans.Filter{BookID: book.ID})
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Equal(t, []string{"book_delete"}, audit.actions())
}

func TestBookService_RemoveMissing(t *testing.T) {
	db := setupTestStore(t)
	svc := NewBookService(BookServiceConfig{Store: db})

	err := svc.Remove(context.Background(), "missing", "")

	assert.True(t, IsNotFound(err))
	assert.Equal(t, "Book not found", err.Error())
}

func TestBookService_SetStatusOverwrites(t *testing.T) {
	db := setupTestStore(t)
	loanSvc := newLoanService(db, newTestClock(), nil)
	svc := NewBookService(BookServiceConfig{Store: db})
	ctx := context.Background()

	user := createUser(t, db, entities.RoleUser, entities.Tier1)
	book := createBook(t, db, nil)
	loan, err := loanSvc.Lend(ctx, "", book.ID, user.ID, 14)
	require.NoError(t, err)

	updated, err := svc.SetStatus(ctx, book.ID, entities.BookStatusLost, "")
	require.NoError(t, err)
	assert.Equal(t, entities.BookStatusLost, updated.Status)

	// The loan is not touched by a manual status change.
	stored, err := loanSvc.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReturnedAt)

	_, err = svc.SetStatus(ctx, book.ID, "BURNED", "")
	assert.True(t, IsValidation(err))

	_, err = svc.SetStatus(ctx, "missing", entities.BookStatusAvailable, "")
	assert.True(t, IsNotFound(err))
}

func TestBookService_Create(t *testing.T) {
	db := setupTestStore(t)
	svc := NewBookService(BookServiceConfig{Store: db})
	ctx := context.Background()

	t.Run("requires an isbn", func(t *testing.T) {
		_, err := svc.Create(ctx, BookInput{Title: strPtr("Dune"), Author: strPtr("Frank Herbert")})
		require.Error(t, err)
		assert.True(t, IsValidation(err))
		assert.Equal(t, "Either ISBN10 or ISBN13 is required", err.Error())
	})

	t.Run("requires title", func(t *testing.T) {
		_, err := svc.Create(ctx, BookInput{Title: strPtr("  "), Author: strPtr("Frank Herbert"), ISBN10: strPtr("0441172717")})
		assert.True(t, IsValidation(err))
	})

	t.Run("unknown owner", func(t *testing.T) {
		_, err := svc.Create(ctx, BookInput{Title: strPtr("Dune"), Author: strPtr("Frank Herbert"), ISBN10: strPtr("0441172717"), OwnerID: strPtr("nobody")})
		assert.True(t, IsValidation(err))
	})

	t.Run("stores an available book", func(t *testing.T) {
		owner := createUser(t, db, entities.RoleUser, entities.Tier1)
		book, err := svc.Create(ctx, BookInput{
			Title:   strPtr("Dune"),
			Author:  strPtr("Frank Herbert"),
			ISBN10:  strPtr("0441172717"),
			Comment: strPtr("signed copy"),
			OwnerID: &owner.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, entities.BookStatusAvailable, book.Status)

		detailed, err := svc.Get(ctx, book.ID)
		require.NoError(t, err)
		require.NotNil(t, detailed.Owner)
		assert.Equal(t, owner.ID, detailed.Owner.ID)
		assert.Equal(t, "signed copy", *detailed.Comment)
	})
}

func TestBookService_Update(t *testing.T) {
	db := setupTestStore(t)
	svc := NewBookService(BookServiceConfig{Store: db})
	ctx := context.Background()

	owner := createUser(t, db, entities.RoleUser, entities.Tier1)
	book := createBook(t, db, &owner.ID)

	updated, err := svc.Update(ctx, book.ID, BookInput{Publisher: strPtr("Chilton"), OwnerID: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, "Dune", updated.Title)
	require.NotNil(t, updated.Publisher)
	assert.Equal(t, "Chilton", *updated.Publisher)
	assert.Nil(t, updated.OwnerID)

	_, err = svc.Update(ctx, "missing", BookInput{Title: strPtr("x")})
	assert.True(t, IsNotFound(err))
}

func TestBookService_CreateFromISBN(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	t.Run("resolved", func(t *testing.T) {
		queue := &recordingQueue{}
		svc := NewBookService(BookServiceConfig{
			Store:    db,
			Resolver: &stubResolver{result: &metadata.BookMetadata{Title: "Dune", Author: "Frank Herbert", ISBN13: "9780441172719"}},
			Queue:    queue,
		})

		book, found, err := svc.CreateFromISBN(ctx, "9780441172719", nil)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "Dune", book.Title)
		assert.Empty(t, queue.bookIDs)
	})

	t.Run("placeholder when resolver fails", func(t *testing.T) {
		queue := &recordingQueue{}
		svc := NewBookService(BookServiceConfig{Store: db, Resolver: &stubResolver{}, Queue: queue})

		book, found, err := svc.CreateFromISBN(ctx, "9999999999", nil)
		require.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, "Book with ISBN 9999999999", book.Title)
		assert.Equal(t, "Unknown", book.Author)
		require.NotNil(t, book.ISBN13)
		assert.Equal(t, "9999999999", *book.ISBN13)
		assert.Equal(t, entities.BookStatusAvailable, getBook(t, db, book.ID).Status)
		assert.Equal(t, []string{book.ID}, queue.bookIDs)
	})
}

func TestBookService_LookupISBN(t *testing.T) {
	db := setupTestStore(t)
	ctx := context.Background()

	svc := NewBookService(BookServiceConfig{Store: db, Resolver: &stubResolver{}})
	_, err := svc.LookupISBN(ctx, "9999999999")
	assert.True(t, IsNotFound(err))

	svc = NewBookService(BookServiceConfig{Store: db, Resolver: &stubResolver{result: &metadata.BookMetadata{Title: "Dune"}}})
	md, err := svc.LookupISBN(ctx, "9780441172719")
	require.NoError(t, err)
	assert.Equal(t, "Dune", md.Title)
}

func TestBookService_ListReturnsActiveLoans(t *testing.T) {
	db := setupTestStore(t)
	loanSvc := newLoanService(db, newTestClock(), nil)
	svc := NewBookService(BookServiceConfig{Store: db})
	ctx := context.Background()

	user := createUser(t, db, entities.RoleUser, entities.Tier1)
	lent := createBook(t, db, nil)
	createBook(t, db, nil)
	_, err := loanSvc.Lend(ctx, "", lent.ID, user.ID, 14)
	require.NoError(t, err)

	available, err := svc.List(ctx, BookFilter{Status: entities.BookStatusAvailable})
	require.NoError(t, err)
	assert.Len(t, available, 1)

	lentBooks, err := svc.List(ctx, BookFilter{Status: entities.BookStatusLent})
	require.NoError(t, err)
	require.Len(t, lentBooks, 1)
	require.Len(t, lentBooks[0].Loans, 1)
	assert.Equal(t, user.ID, lentBooks[0].Loans[0].Borrower.ID)
}
