package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metadata"
)

func setupTestStore(t *testing.T) *database.Database {
	t.Helper()
	dbPath := "./test_services_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath, logger.Silent)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	})
	return db
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordedEvent struct {
	action   string
	entityID string
	actorID  string
}

type recordingAudit struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingAudit) add(action, entityID, actorID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{action: action, entityID: entityID, actorID: actorID})
}

func (r *recordingAudit) LogLend(actorID string, loan *entities.Loan) {
	r.add("lend", loan.ID, actorID)
}

func (r *recordingAudit) LogReturn(actorID string, loan *entities.Loan) {
	r.add("return", loan.ID, actorID)
}

func (r *recordingAudit) LogDelete(eventType entities.AuditEventType, entityID, actorID, description string) {
	r.add(string(eventType)+"_delete", entityID, actorID)
}

func (r *recordingAudit) LogStatusChange(bookID, actorID string, status entities.BookStatus) {
	r.add("status_"+string(status), bookID, actorID)
}

func (r *recordingAudit) LogOverdueScan(overdue int, err error) {
	r.add(fmt.Sprintf("overdue_scan_%d", overdue), "", "")
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		out = append(out, e.action)
	}
	return out
}

type stubResolver struct {
	result *metadata.BookMetadata
}

func (s *stubResolver) FetchByISBN(ctx context.Context, isbn string) *metadata.BookMetadata {
	return s.result
}

type recordingQueue struct {
	bookIDs []string
}

func (q *recordingQueue) EnqueueEnrichBook(bookID string) error {
	q.bookIDs = append(q.bookIDs, bookID)
	return nil
}

var userSeq int
var userSeqMu sync.Mutex

func createUser(t *testing.T, db *database.Database, role entities.UserRole, tier entities.UserTier) *entities.User {
	t.Helper()
	userSeqMu.Lock()
	userSeq++
	n := userSeq
	userSeqMu.Unlock()

	user := &entities.User{
		Name:  fmt.Sprintf("User %d", n),
		Email: fmt.Sprintf("user%d@example.com", n),
		Role:  role,
		Tier:  tier,
	}
	require.NoError(t, db.Repositories(context.Background()).Users.Create(user))
	return user
}

func createBook(t *testing.T, db *database.Database, ownerID *string) *entities.Book {
	t.Helper()
	isbn := "9780441172719"
	book := &entities.Book{Title: "Dune", Author: "Frank Herbert", ISBN13: &isbn, OwnerID: ownerID}
	require.NoError(t, db.Repositories(context.Background()).Books.Create(book))
	return book
}

func getBook(t *testing.T, db *database.Database, id string) *entities.Book {
	t.Helper()
	book, err := db.Repositories(context.Background()).Books.GetByID(id)
	require.NoError(t, err)
	return book
}

// requireStatusMatchesLoans checks that a book is LENT exactly when it has an active loan.
func requireStatusMatchesLoans(t *testing.T, db *database.Database, bookID string) {
	t.Helper()
	book, err := db.Repositories(context.Background()).Books.GetWithAllLoans(bookID)
	require.NoError(t, err)

	active := 0
	for _, l := range book.Loans {
		if l.IsActive() {
			active++
		}
	}
	require.LessOrEqual(t, active, 1, "book has more than one active loan")
	require.Equal(t, active == 1, book.Status == entities.BookStatusLent,
		"status %s does not match %d active loan(s)", book.Status, active)
}

func newLoanService(db *database.Database, clock *testClock, audit AuditLogger) *LoanService {
	return NewLoanService(LoanServiceConfig{Store: db, Now: clock.Now, Audit: audit})
}
