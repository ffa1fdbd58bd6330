package metadata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestGoogleBooksClient(url string) *GoogleBooksClient {
	return &GoogleBooksClient{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    url,
	}
}

func TestGoogleBooks_LookupISBN(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/books/v1/volumes" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"totalItems": 1,
			"items": [{"volumeInfo": {
				"title": "Good Omens",
				"authors": ["Terry Pratchett", "Neil Gaiman"],
				"publisher": "Workman",
				"publishedDate": "2006-11-28",
				"description": "The world ends on Saturday.",
				"industryIdentifiers": [
					{"type": "ISBN_10", "identifier": "0060853980"},
					{"type": "ISBN_13", "identifier": "9780060853983"}
				],
				"imageLinks": {"thumbnail": "http://books.google.com/thumb.jpg"}
			}}]
		}`))
	}))
	defer server.Close()

	client := newTestGoogleBooksClient(server.URL)

	md, err := client.LookupISBN(context.Background(), "9780060853983")
	if err != nil {
		t.Fatalf("LookupISBN failed: %v", err)
	}

	if gotQuery != "isbn:9780060853983" {
		t.Errorf("expected query 'isbn:9780060853983', got %q", gotQuery)
	}
	if md.Title != "Good Omens" {
		t.Errorf("expected title 'Good Omens', got %q", md.Title)
	}
	if md.Author != "Terry Pratchett, Neil Gaiman" {
		t.Errorf("expected joined authors, got %q", md.Author)
	}
	if md.ISBN10 != "0060853980" || md.ISBN13 != "9780060853983" {
		t.Errorf("unexpected identifiers %q / %q", md.ISBN10, md.ISBN13)
	}
	if md.PublishedAt == nil || md.PublishedAt.Format("2006-01-02") != "2006-11-28" {
		t.Errorf("unexpected published date %v", md.PublishedAt)
	}
	if md.Thumbnail != "http://books.google.com/thumb.jpg" {
		t.Errorf("unexpected thumbnail %q", md.Thumbnail)
	}
}

func TestGoogleBooks_LookupISBN_MissingFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems": 1, "items": [{"volumeInfo": {
			"industryIdentifiers": [{"type": "ISBN_10", "identifier": "0441172717"}]
		}}]}`))
	}))
	defer server.Close()

	client := newTestGoogleBooksClient(server.URL)

	md, err := client.LookupISBN(context.Background(), "9780441172719")
	if err != nil {
		t.Fatalf("LookupISBN failed: %v", err)
	}

	if md.Title != "Unknown" || md.Author != "Unknown" {
		t.Errorf("expected Unknown title and author, got %q / %q", md.Title, md.Author)
	}
	if md.ISBN10 != "0441172717" {
		t.Errorf("expected isbn10 extracted independently, got %q", md.ISBN10)
	}
	if md.ISBN13 != "9780441172719" {
		t.Errorf("expected isbn13 to fall back to queried ISBN, got %q", md.ISBN13)
	}
	if md.PublishedAt != nil {
		t.Errorf("expected no published date, got %v", md.PublishedAt)
	}
}

func TestGoogleBooks_LookupISBN_NoItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"totalItems": 0}`))
	}))
	defer server.Close()

	client := newTestGoogleBooksClient(server.URL)

	_, err := client.LookupISBN(context.Background(), "0000000000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGoogleBooks_LookupISBN_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestGoogleBooksClient(server.URL)

	_, err := client.LookupISBN(context.Background(), "9780441172719")
	if err == nil {
		t.Error("expected error for 503 response")
	}
}
