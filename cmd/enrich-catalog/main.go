package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"time"

	"bookhub/internal/enrich"
	"bookhub/pkg/database"
)

func main() {
	var (
		mirrorURL = flag.String("mirror", "http://localhost:9000", "base URL of the local mirror server")
		all       = flag.Bool("all", false, "enrich every book, not only those missing metadata")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	// Ensure schema exists
	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	// Source A: Open Library (live)
	srcA := enrich.NewOpenLibrary()

	// Source B: local mirror server (demo-safe)
	srcB := enrich.NewMirror(*mirrorURL)

	agg := enrich.NewAggregator(srcA, srcB)

	books, err := booksToEnrich(ctx, db, *all)
	if err != nil {
		log.Fatalf("query books failed: %v", err)
	}
	log.Printf("enriching %d books", len(books))

	var updates []enrich.Update
	for _, b := range books {
		meta, err := agg.Lookup(ctx, b.isbn)
		if err != nil {
			log.Printf("lookup %s failed: %v", b.isbn, err)
			continue
		}
		if meta == nil {
			log.Printf("no metadata found for %s (%s)", b.isbn, b.title)
			continue
		}
		updates = append(updates, enrich.Update{BookID: b.id, Metadata: *meta})
	}

	if len(updates) == 0 {
		log.Println("nothing to update")
		return
	}

	if err := enrich.SaveToDatabase(ctx, db, updates); err != nil {
		log.Fatalf("save failed: %v", err)
	}

	log.Printf("✅ updated metadata for %d books", len(updates))
}

type bookRow struct {
	id    string
	isbn  string
	title string
}

func booksToEnrich(ctx context.Context, db *sql.DB, all bool) ([]bookRow, error) {
	q := `SELECT id, isbn, title FROM books`
	if !all {
		q += ` WHERE description IS NULL OR description = ''
		   OR cover_url IS NULL OR cover_url = ''
		   OR published_year IS NULL OR published_year = 0`
	}
	q += ` ORDER BY title`

	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []bookRow
	for rows.Next() {
		var b bookRow
		if err := rows.Scan(&b.id, &b.isbn, &b.title); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
