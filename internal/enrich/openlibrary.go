package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// OpenLibrary looks up ISBN metadata on openlibrary.org. Requests are
// rate limited to stay polite with the public API.
type OpenLibrary struct {
	Client  *http.Client
	BaseURL string

	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func NewOpenLibrary() *OpenLibrary {
	return &OpenLibrary{
		Client:   &http.Client{Timeout: 10 * time.Second},
		BaseURL:  "https://openlibrary.org",
		interval: time.Second,
	}
}

func (s *OpenLibrary) Name() string { return "openlibrary" }

type openLibraryBook struct {
	Title         string `json:"title"`
	PublishDate   string `json:"publish_date"`
	NumberOfPages int    `json:"number_of_pages"`
	Covers        []int  `json:"covers"`
	Description   any    `json:"description"` // string or {"value": string}
}

func (s *OpenLibrary) Lookup(ctx context.Context, isbn string) (*Metadata, error) {
	s.wait()

	url := fmt.Sprintf("%s/isbn/%s.json", s.BaseURL, isbn)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("openlibrary: build request: %w", err)
	}
	req.Header.Set("User-Agent", "bookhub/1.0")

	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openlibrary: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openlibrary: status %d", resp.StatusCode)
	}

	var raw openLibraryBook
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("openlibrary: decode json: %w", err)
	}

	md := &Metadata{
		ISBN:          isbn,
		Title:         raw.Title,
		Description:   descriptionText(raw.Description),
		PublishedYear: yearFromPublishDate(raw.PublishDate),
		PageCount:     raw.NumberOfPages,
	}
	if len(raw.Covers) > 0 {
		md.CoverURL = fmt.Sprintf("https://covers.openlibrary.org/b/id/%d-L.jpg", raw.Covers[0])
	}
	return md, nil
}

func (s *OpenLibrary) wait() {
	s.mu.Lock()
	defer s.mu.Unlock()

	since := time.Since(s.lastCall)
	if since < s.interval {
		time.Sleep(s.interval - since)
	}
	s.lastCall = time.Now()
}

// descriptionText handles OpenLibrary's two description encodings.
func descriptionText(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]any:
		if s, ok := d["value"].(string); ok {
			return s
		}
	}
	return ""
}

// yearFromPublishDate pulls a 4-digit year out of strings like
// "Oct 1, 1988" or "1988".
func yearFromPublishDate(date string) int {
	digits := 0
	year := 0
	for _, r := range date {
		if r >= '0' && r <= '9' {
			digits++
			year = year*10 + int(r-'0')
			if digits == 4 {
				if year >= 1000 {
					return year
				}
				digits, year = 0, 0
			}
			continue
		}
		digits, year = 0, 0
	}
	return 0
}
