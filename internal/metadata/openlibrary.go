package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	DefaultOpenLibraryURL = "https://openlibrary.org"
	openLibraryUserAgent  = "LibraryLending/1.0 (https://github.com/mrlokans/library)"
	// maxAuthorLookups bounds the per-book author requests.
	maxAuthorLookups = 3
)

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait() {
	r.mu.Lock()
	defer r.mu.Unlock()

	since := time.Since(r.lastCall)
	if since < r.interval {
		time.Sleep(r.interval - since)
	}
	r.lastCall = time.Now()
}

// NewOpenLibraryClient creates a new OpenLibrary API client with rate limiting.
func NewOpenLibraryClient(baseURL string) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = DefaultOpenLibraryURL
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: newRateLimiter(time.Second), // 1 request per second
	}
}

func (c *OpenLibraryClient) Name() string {
	return "openlibrary"
}

// LookupISBN looks up an edition by its ISBN and resolves author names.
func (c *OpenLibraryClient) LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	normalized := normalizeISBN(isbn)
	if normalized == "" {
		return nil, ErrInvalidISBN
	}

	var edition openLibraryEdition
	if err := c.getJSON(ctx, fmt.Sprintf("/isbn/%s.json", normalized), &edition); err != nil {
		return nil, err
	}

	md := convertEdition(&edition, isbn)

	var names []string
	for i, ref := range edition.Authors {
		if i == maxAuthorLookups {
			break
		}
		name, err := c.fetchAuthorName(ctx, ref.Key)
		if err == nil && name != "" {
			names = append(names, name)
		}
	}
	if len(names) > 0 {
		md.Author = strings.Join(names, ", ")
	}

	return md, nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, authorKey string) (string, error) {
	if authorKey == "" {
		return "", fmt.Errorf("empty author key")
	}

	var authorData struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, authorKey+".json", &authorData); err != nil {
		return "", err
	}
	return authorData.Name, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, out any) error {
	c.rateLimiter.wait()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", openLibraryUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func convertEdition(edition *openLibraryEdition, isbn string) *BookMetadata {
	md := &BookMetadata{
		Title:       edition.Title,
		Author:      UnknownAuthor,
		PublishedAt: parsePublishedDate(edition.PublishDate),
	}
	if md.Title == "" {
		md.Title = UnknownAuthor
	}

	if len(edition.Publishers) > 0 {
		md.Publisher = edition.Publishers[0]
	}
	if len(edition.ISBN10) > 0 {
		md.ISBN10 = edition.ISBN10[0]
	}
	if len(edition.ISBN13) > 0 {
		md.ISBN13 = edition.ISBN13[0]
	} else {
		md.ISBN13 = isbn
	}

	// Can be string or {type, value}
	switch v := edition.Description.(type) {
	case string:
		md.Description = v
	case map[string]any:
		if val, ok := v["value"].(string); ok {
			md.Description = val
		}
	}

	if len(edition.Covers) > 0 && edition.Covers[0] > 0 {
		md.Thumbnail = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-M.jpg", edition.Covers[0])
	}

	return md
}

// OpenLibrary API response types (internal)

type openLibraryEdition struct {
	Key         string      `json:"key"`
	Title       string      `json:"title"`
	Authors     []authorRef `json:"authors"`
	Publishers  []string    `json:"publishers"`
	PublishDate string      `json:"publish_date"`
	ISBN10      []string    `json:"isbn_10"`
	ISBN13      []string    `json:"isbn_13"`
	Description any         `json:"description"`
	Covers      []int       `json:"covers"`
}

type authorRef struct {
	Key string `json:"key"`
}
