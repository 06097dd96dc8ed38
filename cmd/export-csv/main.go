package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"bookhub/pkg/database"
)

func main() {
	var (
		booksOut = flag.String("books", "data/books.csv", "output CSV path for books")
		loansOut = flag.String("loans", "data/loan_history.csv", "output CSV path for loan history")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportBooks(ctx, db, *booksOut); err != nil {
		log.Fatalf("export books failed: %v", err)
	}
	if err := exportLoanHistory(ctx, db, *loansOut); err != nil {
		log.Fatalf("export loan history failed: %v", err)
	}

	log.Printf("✅ exported books to %s and loan history to %s", *booksOut, *loansOut)
}

func exportBooks(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"id", "title", "author", "isbn", "description", "genre", "published_year", "cover_url", "average_rating"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT id, title, author, isbn, description, genre, published_year, cover_url, average_rating
        FROM books
        ORDER BY title
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id            string
			title         string
			author        string
			isbn          string
			description   sql.NullString
			genre         sql.NullString
			publishedYear sql.NullInt64
			coverURL      sql.NullString
			averageRating float64
		)

		if err := rows.Scan(&id, &title, &author, &isbn, &description, &genre, &publishedYear, &coverURL, &averageRating); err != nil {
			return err
		}

		year := ""
		if publishedYear.Valid {
			year = strconv.FormatInt(publishedYear.Int64, 10)
		}

		if err := w.Write([]string{
			id,
			title,
			author,
			isbn,
			description.String,
			genre.String,
			year,
			coverURL.String,
			strconv.FormatFloat(averageRating, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportLoanHistory(ctx context.Context, db *sql.DB, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"user_id", "book_id", "borrowed_at", "due_at", "returned_at"}); err != nil {
		return err
	}

	rows, err := db.QueryContext(ctx, `
        SELECT user_id, book_id, borrowed_at, due_at, returned_at
        FROM loan_history
        ORDER BY returned_at DESC
    `)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			userID     string
			bookID     string
			borrowedAt time.Time
			dueAt      time.Time
			returnedAt time.Time
		)

		if err := rows.Scan(&userID, &bookID, &borrowedAt, &dueAt, &returnedAt); err != nil {
			return err
		}

		if err := w.Write([]string{
			userID,
			bookID,
			borrowedAt.Format(time.RFC3339),
			dueAt.Format(time.RFC3339),
			returnedAt.Format(time.RFC3339),
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
