package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultGoogleBooksURL = "https://www.googleapis.com"

// GoogleBooksClient fetches volume data from the Google Books API.
type GoogleBooksClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewGoogleBooksClient(baseURL string) *GoogleBooksClient {
	if baseURL == "" {
		baseURL = DefaultGoogleBooksURL
	}
	return &GoogleBooksClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (c *GoogleBooksClient) Name() string {
	return "googlebooks"
}

// LookupISBN returns the first volume matching isbn.
// Missing title or authors become "Unknown"; a missing ISBN-13 falls back to isbn.
func (c *GoogleBooksClient) LookupISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	endpoint := fmt.Sprintf("%s/books/v1/volumes?q=%s", c.baseURL, url.QueryEscape("isbn:"+isbn))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch volumes: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var data googleBooksResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if data.TotalItems == 0 || len(data.Items) == 0 {
		return nil, ErrNotFound
	}

	return convertVolume(&data.Items[0].VolumeInfo, isbn), nil
}

func convertVolume(info *googleVolumeInfo, isbn string) *BookMetadata {
	md := &BookMetadata{
		Title:       info.Title,
		Author:      strings.Join(info.Authors, ", "),
		Publisher:   info.Publisher,
		PublishedAt: parsePublishedDate(info.PublishedDate),
		Description: info.Description,
		Thumbnail:   info.ImageLinks.Thumbnail,
	}
	if md.Title == "" {
		md.Title = UnknownAuthor
	}
	if md.Author == "" {
		md.Author = UnknownAuthor
	}

	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_10":
			md.ISBN10 = id.Identifier
		case "ISBN_13":
			md.ISBN13 = id.Identifier
		}
	}
	if md.ISBN13 == "" {
		md.ISBN13 = isbn
	}

	return md
}

// Google Books API response types (internal)

type googleBooksResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo googleVolumeInfo `json:"volumeInfo"`
	} `json:"items"`
}

type googleVolumeInfo struct {
	Title               string   `json:"title"`
	Authors             []string `json:"authors"`
	Publisher           string   `json:"publisher"`
	PublishedDate       string   `json:"publishedDate"`
	Description         string   `json:"description"`
	IndustryIdentifiers []struct {
		Type       string `json:"type"`
		Identifier string `json:"identifier"`
	} `json:"industryIdentifiers"`
	ImageLinks struct {
		Thumbnail      string `json:"thumbnail"`
		SmallThumbnail string `json:"smallThumbnail"`
	} `json:"imageLinks"`
}
