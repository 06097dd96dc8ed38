package enrich

import (
	"context"
	"log"
	"strings"
)

// Metadata is what a source can tell us about an ISBN.
type Metadata struct {
	ISBN          string `json:"isbn"`
	Title         string `json:"title,omitempty"`
	Description   string `json:"description,omitempty"`
	CoverURL      string `json:"cover_url,omitempty"`
	PublishedYear int    `json:"published_year,omitempty"`
	PageCount     int    `json:"page_count,omitempty"`
}

// Source is implemented by each external metadata provider. Each source
// is responsible for fetching its own data format and mapping it into
// Metadata.
type Source interface {
	Name() string
	Lookup(ctx context.Context, isbn string) (*Metadata, error)
}

// Aggregator queries multiple sources for one ISBN and merges whatever
// they return into a single Metadata.
type Aggregator struct {
	Sources []Source
}

func NewAggregator(sources ...Source) *Aggregator {
	return &Aggregator{Sources: sources}
}

// Lookup asks every source about the ISBN and merges the answers with
// deterministic conflict resolution. A broken source is skipped, not
// fatal. Returns nil when no source knows the ISBN.
func (a *Aggregator) Lookup(ctx context.Context, isbn string) (*Metadata, error) {
	isbn = NormalizeISBN(isbn)
	if isbn == "" {
		return nil, nil
	}

	var merged *Metadata
	for _, src := range a.Sources {
		md, err := src.Lookup(ctx, isbn)
		if err != nil {
			log.Printf("[enrich] source %s error for %s: %v", src.Name(), isbn, err)
			continue
		}
		if md == nil {
			continue
		}
		if merged == nil {
			m := *md
			merged = &m
			continue
		}
		*merged = mergeMetadata(*merged, *md)
	}
	return merged, nil
}

// mergeMetadata resolves conflicts between two sources:
// keep the longer description, fill missing cover/year/pages from the
// incoming record, never overwrite a non-empty title.
func mergeMetadata(base, incoming Metadata) Metadata {
	if base.Title == "" && incoming.Title != "" {
		base.Title = incoming.Title
	}
	if len(incoming.Description) > len(base.Description) {
		base.Description = incoming.Description
	}
	if base.CoverURL == "" && incoming.CoverURL != "" {
		base.CoverURL = incoming.CoverURL
	}
	if base.PublishedYear == 0 && incoming.PublishedYear > 0 {
		base.PublishedYear = incoming.PublishedYear
	}
	if base.PageCount == 0 && incoming.PageCount > 0 {
		base.PageCount = incoming.PageCount
	}
	return base
}

// NormalizeISBN strips separators and validates the remaining length.
func NormalizeISBN(isbn string) string {
	isbn = strings.ReplaceAll(isbn, "-", "")
	isbn = strings.ReplaceAll(isbn, " ", "")
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return isbn
}
