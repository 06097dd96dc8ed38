package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"bookhub/pkg/database"
)

func main() {
	var (
		booksIn = flag.String("books", "data/books.csv", "input CSV path for books")
		loansIn = flag.String("loans", "data/loan_history.csv", "input CSV path for loan history")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := importBooks(ctx, db, *booksIn); err != nil {
		log.Fatalf("import books failed: %v", err)
	}
	if err := importLoanHistory(ctx, db, *loansIn); err != nil {
		log.Fatalf("import loan history failed: %v", err)
	}

	log.Printf("✅ imported books from %s and loan history from %s", *booksIn, *loansIn)
}

func importBooks(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO books (id, title, author, isbn, description, genre, published_year, cover_url, available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT(isbn) DO UPDATE SET
		  title = excluded.title,
		  author = excluded.author,
		  description = excluded.description,
		  genre = excluded.genre,
		  published_year = excluded.published_year,
		  cover_url = excluded.cover_url
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		id := valueAt(header, row, "id")
		title := valueAt(header, row, "title")
		isbn := valueAt(header, row, "isbn")
		if id == "" || title == "" || isbn == "" {
			continue
		}

		publishedYear, err := parseNullInt(valueAt(header, row, "published_year"))
		if err != nil {
			return fmt.Errorf("parse published_year for %s: %w", isbn, err)
		}

		if _, err := stmt.ExecContext(
			ctx,
			id,
			title,
			valueAt(header, row, "author"),
			isbn,
			nullString(valueAt(header, row, "description")),
			nullString(valueAt(header, row, "genre")),
			publishedYear,
			nullString(valueAt(header, row, "cover_url")),
		); err != nil {
			return err
		}
	}

	return nil
}

func importLoanHistory(ctx context.Context, db *sql.DB, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("no loan history file at %s, skipping", path)
			return nil
		}
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := readHeader(r)
	if err != nil {
		return err
	}

	stmt, err := db.PrepareContext(ctx, `
		INSERT INTO loan_history (user_id, book_id, borrowed_at, due_at, returned_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if len(row) == 0 {
			continue
		}

		userID := valueAt(header, row, "user_id")
		bookID := valueAt(header, row, "book_id")
		if userID == "" || bookID == "" {
			continue
		}

		borrowedAt, err := parseTime(valueAt(header, row, "borrowed_at"))
		if err != nil {
			return fmt.Errorf("parse borrowed_at for %s/%s: %w", userID, bookID, err)
		}
		dueAt, err := parseTime(valueAt(header, row, "due_at"))
		if err != nil {
			return fmt.Errorf("parse due_at for %s/%s: %w", userID, bookID, err)
		}
		returnedAt, err := parseTime(valueAt(header, row, "returned_at"))
		if err != nil {
			return fmt.Errorf("parse returned_at for %s/%s: %w", userID, bookID, err)
		}
		if !borrowedAt.Valid || !dueAt.Valid || !returnedAt.Valid {
			continue
		}

		if _, err := stmt.ExecContext(
			ctx,
			userID,
			bookID,
			borrowedAt,
			dueAt,
			returnedAt,
		); err != nil {
			return err
		}
	}

	return nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(name))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseNullInt(raw string) (sql.NullInt64, error) {
	if raw == "" {
		return sql.NullInt64{}, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return sql.NullInt64{}, err
	}
	return sql.NullInt64{Int64: n, Valid: true}, nil
}

func parseTime(raw string) (sql.NullTime, error) {
	if raw == "" {
		return sql.NullTime{}, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return sql.NullTime{}, err
	}
	return sql.NullTime{Time: t, Valid: true}, nil
}

func nullString(raw string) sql.NullString {
	if raw == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}
