package loans

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/entities"
)

type fixture struct {
	repo     *Repository
	db       *gorm.DB
	book     *entities.Book
	borrower *entities.User
}

func setupTestDB(t *testing.T) (*fixture, func()) {
	dbPath := "./test_loans_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&entities.User{}, &entities.Book{}, &entities.Loan{}))

	owner := &entities.User{Name: "Owner", Email: "owner@example.com"}
	require.NoError(t, db.Create(owner).Error)
	borrower := &entities.User{Name: "Borrower", Email: "borrower@example.com"}
	require.NoError(t, db.Create(borrower).Error)
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", OwnerID: &owner.ID}
	require.NoError(t, db.Create(book).Error)

	cleanup := func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
		os.Remove(dbPath)
	}

	return &fixture{repo: NewRepository(db), db: db, book: book, borrower: borrower}, cleanup
}

func (f *fixture) lend(t *testing.T, lentAt time.Time, days int) *entities.Loan {
	loan := &entities.Loan{
		BookID:     f.book.ID,
		BorrowerID: f.borrower.ID,
		LentAt:     lentAt,
		DueAt:      lentAt.Add(time.Duration(days) * 24 * time.Hour),
	}
	require.NoError(t, f.repo.Create(loan))
	return loan
}

func TestRepository_GetByID_PreloadsRelations(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()

	loan := f.lend(t, time.Now(), 14)

	fetched, err := f.repo.GetByID(loan.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.Book)
	require.NotNil(t, fetched.Book.Owner)
	require.NotNil(t, fetched.Borrower)
	assert.Equal(t, "Owner", fetched.Book.Owner.Name)
	assert.Equal(t, "Borrower", fetched.Borrower.Name)
}

func TestRepository_MarkReturned_OnlyOnce(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()

	loan := f.lend(t, time.Now(), 14)

	ok, err := f.repo.MarkReturned(loan.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.repo.MarkReturned(loan.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	count, err := f.repo.CountActiveForBorrower(f.borrower.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRepository_Find(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()

	now := time.Now()
	overdue := f.lend(t, now.Add(-30*24*time.Hour), 14)
	current := f.lend(t, now, 14)
	returned := f.lend(t, now.Add(-60*24*time.Hour), 14)
	_, err := f.repo.MarkReturned(returned.ID, now.Add(-50*24*time.Hour))
	require.NoError(t, err)

	t.Run("all for book", func(t *testing.T) {
		found, err := f.repo.Find(Filter{BookID: f.book.ID})
		require.NoError(t, err)
		require.Len(t, found, 3)
		assert.Equal(t, current.ID, found[0].ID)
		assert.NotNil(t, found[0].Book)
		assert.NotNil(t, found[0].Borrower)
	})

	t.Run("overdue only", func(t *testing.T) {
		found, err := f.repo.Find(Filter{OverdueAt: now})
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, overdue.ID, found[0].ID)
	})

	t.Run("active for borrower", func(t *testing.T) {
		found, err := f.repo.Find(Filter{BorrowerID: f.borrower.ID, ActiveOnly: true})
		require.NoError(t, err)
		assert.Len(t, found, 2)

		active, err := f.repo.ActiveForBorrower(f.borrower.ID)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})
}

func TestRepository_DeleteByBook(t *testing.T) {
	f, cleanup := setupTestDB(t)
	defer cleanup()

	f.lend(t, time.Now(), 1)
	f.lend(t, time.Now(), 2)

	deleted, err := f.repo.DeleteByBook(f.book.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	deleted, err = f.repo.DeleteByBorrower(f.borrower.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestSetupTestDB_Subtest(t *testing.T) {
	t.Run("nested/name", func(t *testing.T) {
		f, cleanup := setupTestDB(t)
		defer cleanup()

		assert.True(t, f.db.Migrator().HasTable(&entities.Loan{}))
	})
}
