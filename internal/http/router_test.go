package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/library/internal/auth"
	"github.com/mrlokans/library/internal/config"
	"github.com/mrlokans/library/internal/database"
	"github.com/mrlokans/library/internal/entities"
	"github.com/mrlokans/library/internal/metadata"
	"github.com/mrlokans/library/internal/services"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type testAPI struct {
	router *gin.Engine
	db     *database.Database
}

func setupTestAPI(t *testing.T) *testAPI {
	t.Helper()
	return setupTestAPIWith(t, nil)
}

// setupTestAPIWith lets a test add optional collaborators before the router is built.
func setupTestAPIWith(t *testing.T, configure func(*RouterConfig)) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbPath := "./test_http_" + strings.ReplaceAll(t.Name(), "/", "_") + ".db"
	db, err := database.NewDatabase(dbPath, logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
		os.Remove(dbPath)
		os.Remove(dbPath + "-wal")
		os.Remove(dbPath + "-shm")
	})

	log := quietLogger()
	resolver := metadata.NewResolver(time.Second, log)

	cfg := RouterConfig{
		Users:       services.NewUserService(db, nil, log),
		Eligibility: services.NewEligibilityService(db, nil),
		Books:       services.NewBookService(services.BookServiceConfig{Store: db, Resolver: resolver, Log: log}),
		Loans:       services.NewLoanService(services.LoanServiceConfig{Store: db, Log: log}),
		Database:    db,
		Version:     "test",
		Logger:      log,
	}
	if configure != nil {
		configure(&cfg)
	}
	router := NewRouter(cfg)
	return &testAPI{router: router, db: db}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (a *testAPI) createUser(t *testing.T, email string, tier entities.UserTier, role entities.UserRole) entities.User {
	t.Helper()
	w := a.do(t, "POST", "/api/v1/users", gin.H{"name": "Reader " + email, "email": email, "tier": tier, "role": role}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[entities.User](t, w)
}

func (a *testAPI) createBook(t *testing.T, ownerID string) entities.Book {
	t.Helper()
	body := gin.H{"title": "Dune", "author": "Frank Herbert", "isbn13": "9780441172719"}
	if ownerID != "" {
		body["ownerId"] = ownerID
	}
	w := a.do(t, "POST", "/api/v1/books", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[entities.Book](t, w)
}

func (a *testAPI) bookStatus(t *testing.T, id string) entities.BookStatus {
	t.Helper()
	w := a.do(t, "GET", "/api/v1/books/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	return decode[entities.Book](t, w).Status
}

func TestLendAndReturnFlow(t *testing.T) {
	api := setupTestAPI(t)
	user := api.createUser(t, "a@example.com", entities.Tier4, entities.RoleUser)
	book := api.createBook(t, "")

	w := api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": book.ID, "borrowerId": user.ID, "days": 14}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loan := decode[entities.Loan](t, w)

	assert.Nil(t, loan.ReturnedAt)
	assert.WithinDuration(t, loan.LentAt.Add(14*24*time.Hour), loan.DueAt, time.Second)
	assert.Equal(t, entities.BookStatusLent, api.bookStatus(t, book.ID))

	w = api.do(t, "PATCH", "/api/v1/loans/"+loan.ID+"/return", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	returned := decode[entities.Loan](t, w)

	assert.NotNil(t, returned.ReturnedAt)
	assert.Equal(t, entities.BookStatusAvailable, api.bookStatus(t, book.ID))

	w = api.do(t, "PATCH", "/api/v1/loans/"+loan.ID+"/return", nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, entities.BookStatusAvailable, api.bookStatus(t, book.ID))
}

func TestLend_BookNotAvailable(t *testing.T) {
	api := setupTestAPI(t)
	first := api.createUser(t, "first@example.com", entities.Tier1, entities.RoleUser)
	second := api.createUser(t, "second@example.com", entities.Tier1, entities.RoleUser)
	book := api.createBook(t, "")

	w := api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": book.ID, "borrowerId": first.ID}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": book.ID, "borrowerId": second.ID}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	resp := decode[ErrorResponse](t, w)
	assert.Equal(t, "Book not available", resp.Error)
	assert.Equal(t, CodeConflict, resp.Code)
}

func TestLend_RejectsInvalidDays(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": "b", "borrowerId": "u", "days": 400}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	resp := decode[ErrorResponse](t, w)
	details, ok := resp.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "must be at most 365", details["days"])
}

func TestReturn_ForbiddenForStranger(t *testing.T) {
	api := setupTestAPI(t)
	borrower := api.createUser(t, "borrower@example.com", entities.Tier4, entities.RoleUser)
	stranger := api.createUser(t, "stranger@example.com", entities.Tier4, entities.RoleUser)
	book := api.createBook(t, "")

	w := api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": book.ID, "borrowerId": borrower.ID}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	loan := decode[entities.Loan](t, w)

	w = api.do(t, "PATCH", "/api/v1/loans/"+loan.ID+"/return", nil, map[string]string{auth.ActingUserHeader: stranger.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, entities.BookStatusLent, api.bookStatus(t, book.ID))

	w = api.do(t, "PATCH", "/api/v1/loans/"+loan.ID+"/return", nil, map[string]string{auth.ActingUserHeader: borrower.ID})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReturn_UnknownLoan(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, "PATCH", "/api/v1/loans/missing/return", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Rental not found", decode[ErrorResponse](t, w).Error)
}

func TestDeleteBook_WithActiveLoan(t *testing.T) {
	api := setupTestAPI(t)
	user := api.createUser(t, "del@example.com", entities.Tier4, entities.RoleUser)
	book := api.createBook(t, "")

	w := api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": book.ID, "borrowerId": user.ID}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	loan := decode[entities.Loan](t, w)

	w = api.do(t, "DELETE", "/api/v1/books/"+book.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, "PATCH", "/api/v1/loans/"+loan.ID+"/return", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, "DELETE", "/api/v1/books/"+book.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = api.do(t, "GET", "/api/v1/loans/"+loan.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCanBorrowEndpoint(t *testing.T) {
	api := setupTestAPI(t)
	user := api.createUser(t, "tier3@example.com", entities.Tier3, entities.RoleUser)

	w := api.do(t, "GET", "/api/v1/users/"+user.ID+"/can-borrow", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	e := decode[services.Eligibility](t, w)
	assert.True(t, e.CanBorrow)
	assert.Equal(t, 2, e.MaxLoans)
	assert.Equal(t, 0, e.CurrentLoans)

	w = api.do(t, "GET", "/api/v1/users/missing/can-borrow", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateUser_Validation(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, "POST", "/api/v1/users", gin.H{"name": "X", "email": "not-an-email"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decode[ErrorResponse](t, w).Details.(map[string]any)
	assert.Equal(t, "must be a valid email", details["email"])

	w = api.do(t, "POST", "/api/v1/users", gin.H{"name": "X", "email": "x@example.com", "tier": "TIER_9"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	api.createUser(t, "dup@example.com", entities.Tier4, entities.RoleUser)
	w = api.do(t, "POST", "/api/v1/users", gin.H{"name": "Again", "email": "dup@example.com"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "A user with this email already exists", decode[ErrorResponse](t, w).Error)
}

func TestDeleteUser_WithActiveLoan(t *testing.T) {
	api := setupTestAPI(t)
	user := api.createUser(t, "active@example.com", entities.Tier4, entities.RoleUser)
	book := api.createBook(t, "")

	w := api.do(t, "POST", "/api/v1/loans", gin.H{"bookId": book.ID, "borrowerId": user.ID}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = api.do(t, "DELETE", "/api/v1/users/"+user.ID, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = api.do(t, "GET", "/api/v1/users/"+user.ID+"/loans", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[ListResponse](t, w).Count)
}

func TestCreateFromISBN_Placeholder(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, "POST", "/api/v1/books/isbn", gin.H{"isbn": "9780000000002"}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	resp := decode[CreateFromISBNResponse](t, w)
	assert.False(t, resp.Resolved)
	assert.Equal(t, "Book with ISBN 9780000000002", resp.Book.Title)
	assert.Equal(t, "Unknown", resp.Book.Author)
	require.NotNil(t, resp.Book.ISBN13)
	assert.Equal(t, "9780000000002", *resp.Book.ISBN13)
	assert.Equal(t, entities.BookStatusAvailable, resp.Book.Status)

	w = api.do(t, "GET", "/api/v1/books/isbn/9780000000002/info", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSetStatus(t *testing.T) {
	api := setupTestAPI(t)
	book := api.createBook(t, "")

	w := api.do(t, "PATCH", "/api/v1/books/"+book.ID+"/status", gin.H{"status": "LOST"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entities.BookStatusLost, decode[entities.Book](t, w).Status)

	w = api.do(t, "PATCH", "/api/v1/books/"+book.ID+"/status", gin.H{"status": "BURNT"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBooks_Filters(t *testing.T) {
	api := setupTestAPI(t)
	api.createBook(t, "")

	w := api.do(t, "GET", "/api/v1/books?q=dun", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[ListResponse](t, w).Count)

	w = api.do(t, "GET", "/api/v1/books?q=9780441172719", nil, nil)
	assert.Equal(t, 1, decode[ListResponse](t, w).Count)

	w = api.do(t, "GET", "/api/v1/books?status=lent", nil, nil)
	assert.Equal(t, 0, decode[ListResponse](t, w).Count)
}

func TestOverdueLoansEndpoint(t *testing.T) {
	api := setupTestAPI(t)
	user := api.createUser(t, "late@example.com", entities.Tier1, entities.RoleUser)
	book := api.createBook(t, "")

	past := time.Now().Add(-48 * time.Hour)
	loan := &entities.Loan{BookID: book.ID, BorrowerID: user.ID, LentAt: past.Add(-24 * time.Hour), DueAt: past}
	require.NoError(t, api.db.Repositories(context.Background()).Loans.Create(loan))

	w := api.do(t, "GET", "/api/v1/loans/overdue", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, decode[ListResponse](t, w).Count)

	w = api.do(t, "GET", "/api/v1/loans?overdue=maybe", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealthEndpoints(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, "GET", "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = api.do(t, "GET", "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	health := decode[HealthResponse](t, w)
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "ok", health.Checks["database"].Status)
	assert.Equal(t, "test", health.Version)
}

func TestRequestIDHeader(t *testing.T) {
	api := setupTestAPI(t)

	w := api.do(t, "GET", "/healthz", nil, nil)
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	const id = "0b0c7a0e-9f3c-4b8e-9b37-8d5a0f1c2e44"
	w = api.do(t, "GET", "/healthz", nil, map[string]string{RequestIDHeader: id})
	assert.Equal(t, id, w.Header().Get(RequestIDHeader))
}

func TestBasicAuthGuardsAPI(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := NewRouter(RouterConfig{
		AuthMiddleware: auth.NewMiddleware(config.Auth{
			Mode:     config.AuthModeBasic,
			Username: "librarian",
			Password: "correct horse battery",
		}),
		Logger: quietLogger(),
	})

	req, _ := http.NewRequest("GET", "/api/v1/books", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req, _ = http.NewRequest("GET", "/healthz", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
