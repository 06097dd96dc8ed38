package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bookhub/pkg/database"
)

type MirrorBook struct {
	ISBN      string `json:"isbn"`
	Title     string `json:"title"`
	Summary   string `json:"summary"`
	ImageURL  string `json:"image_url"`
	Year      string `json:"year"`
	PageCount string `json:"page_count"`
}

func main() {
	var (
		outPath = flag.String("out", "data/mirror.json", "output JSON path")
		limit   = flag.Int("limit", 200, "how many books to export")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT isbn, title, description, cover_url, published_year
		FROM books
		ORDER BY title
		LIMIT ?
	`, *limit)
	if err != nil {
		log.Fatalf("query failed: %v", err)
	}
	defer rows.Close()

	var out []MirrorBook
	for rows.Next() {
		var (
			isbn     string
			title    string
			desc     sql.NullString
			coverURL sql.NullString
			year     sql.NullInt64
		)

		if err := rows.Scan(&isbn, &title, &desc, &coverURL, &year); err != nil {
			log.Fatalf("scan failed: %v", err)
		}

		out = append(out, MirrorBook{
			ISBN:     isbn,
			Title:    title,
			Summary:  desc.String,
			ImageURL: coverURL.String,
			Year:     itoaOrEmpty(year),
		})
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("rows error: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		log.Fatalf("mkdir failed: %v", err)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		log.Fatalf("marshal failed: %v", err)
	}

	if err := os.WriteFile(*outPath, b, 0o644); err != nil {
		log.Fatalf("write failed: %v", err)
	}

	log.Printf("✅ exported %d books to %s", len(out), *outPath)
}

func itoaOrEmpty(n sql.NullInt64) string {
	if !n.Valid || n.Int64 <= 0 {
		return ""
	}
	return strconv.FormatInt(n.Int64, 10)
}
