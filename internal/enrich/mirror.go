package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Mirror reads metadata from a locally hosted catalog mirror (see
// cmd/export-mirror and cmd/mirror-server). Demo-safe: no external
// traffic, fully deterministic.
type Mirror struct {
	BaseURL string
	Client  *http.Client

	mu    sync.Mutex
	cache map[string]Metadata // keyed by normalized ISBN, filled on first use
}

func NewMirror(baseURL string) *Mirror {
	return &Mirror{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *Mirror) Name() string { return "mirror" }

// mirrorEntry is the shape written by cmd/export-mirror.
type mirrorEntry struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	ImageURL  string `json:"image_url"`
	Year      string `json:"year"`
	PageCount string `json:"page_count"`
}

func (s *Mirror) Lookup(ctx context.Context, isbn string) (*Metadata, error) {
	if err := s.load(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	md, ok := s.cache[NormalizeISBN(isbn)]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return &md, nil
}

func (s *Mirror) load(ctx context.Context) error {
	s.mu.Lock()
	loaded := s.cache != nil
	s.mu.Unlock()
	if loaded {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.BaseURL+"/books", nil)
	if err != nil {
		return fmt.Errorf("mirror: build request: %w", err)
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("mirror: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mirror: status %d: %s", resp.StatusCode, string(body))
	}

	var raw []mirrorEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return fmt.Errorf("mirror: decode json: %w", err)
	}

	cache := make(map[string]Metadata, len(raw))
	for _, e := range raw {
		key := NormalizeISBN(e.ISBN)
		if key == "" {
			continue
		}
		cache[key] = Metadata{
			ISBN:          key,
			Title:         e.Title,
			Description:   e.Summary,
			CoverURL:      e.ImageURL,
			PublishedYear: parseIntOrZero(e.Year),
			PageCount:     parseIntOrZero(e.PageCount),
		}
	}

	s.mu.Lock()
	s.cache = cache
	s.mu.Unlock()
	return nil
}

func parseIntOrZero(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
