package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"bookhub/pkg/models"
)

// ErrDuplicateISBN is returned when a create would violate ISBN uniqueness.
var ErrDuplicateISBN = errors.New("book with this ISBN already exists")

type Repo struct {
	DB *sql.DB
}

type ListQuery struct {
	Search    string // substring match on title or author
	Genre     string // substring match on genre
	Available *bool  // strict filter when set
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

const bookColumns = `
	b.id, b.title, b.author, b.isbn, b.description, b.genre, b.published_year,
	b.cover_url, b.available, b.borrowed_by, u.name, b.borrowed_at, b.due_at,
	b.average_rating, b.created_at
`

func (r *Repo) GetByID(ctx context.Context, id string) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books b
		LEFT JOIN users u ON u.id = b.borrowed_by
		WHERE b.id = ?
	`, id)

	b, err := scanBook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByID: %w", err)
	}
	return b, nil
}

func (r *Repo) GetByISBN(ctx context.Context, isbn string) (*models.Book, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT `+bookColumns+`
		FROM books b
		LEFT JOIN users u ON u.id = b.borrowed_by
		WHERE b.isbn = ?
	`, strings.TrimSpace(isbn))

	b, err := scanBook(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan getByISBN: %w", err)
	}
	return b, nil
}

// List returns books matching the query, newest first.
func (r *Repo) List(ctx context.Context, q ListQuery) ([]models.Book, error) {
	sqlStr, args := buildListSQL(q)

	rows, err := r.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()

	out := make([]models.Book, 0, 16)
	for rows.Next() {
		b, err := scanBook(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("list scan: %w", err)
		}
		out = append(out, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// Create inserts a new available book with no reviews.
func (r *Repo) Create(ctx context.Context, b models.Book) (*models.Book, error) {
	existing, err := r.GetByISBN(ctx, b.ISBN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateISBN
	}

	_, err = r.DB.ExecContext(ctx, `
		INSERT INTO books (id, title, author, isbn, description, genre, published_year, cover_url, available)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)
	`, b.ID, b.Title, b.Author, b.ISBN, nullString(b.Description), nullString(b.Genre),
		nullInt(b.PublishedYear), nullString(b.CoverURL))
	if err != nil {
		// UNIQUE(isbn) still fires here if two creates race
		return nil, fmt.Errorf("insert book: %w", err)
	}

	return r.GetByID(ctx, b.ID)
}

func buildListSQL(q ListQuery) (string, []any) {
	var where []string
	var args []any

	if s := strings.TrimSpace(q.Search); s != "" {
		where = append(where, "(LOWER(b.title) LIKE ? OR LOWER(b.author) LIKE ?)")
		kw := "%" + strings.ToLower(s) + "%"
		args = append(args, kw, kw)
	}

	if g := strings.TrimSpace(q.Genre); g != "" {
		where = append(where, "LOWER(b.genre) LIKE ?")
		args = append(args, "%"+strings.ToLower(g)+"%")
	}

	if q.Available != nil {
		where = append(where, "b.available = ?")
		if *q.Available {
			args = append(args, 1)
		} else {
			args = append(args, 0)
		}
	}

	sqlStr := `
		SELECT ` + bookColumns + `
		FROM books b
		LEFT JOIN users u ON u.id = b.borrowed_by
	`
	if len(where) > 0 {
		sqlStr += " WHERE " + strings.Join(where, " AND ")
	}
	sqlStr += " ORDER BY b.created_at DESC, b.id DESC"

	return sqlStr, args
}

func scanBook(scan func(dest ...any) error) (*models.Book, error) {
	var (
		b            models.Book
		description  sql.NullString
		genre        sql.NullString
		year         sql.NullInt64
		coverURL     sql.NullString
		borrowedBy   sql.NullString
		borrowerName sql.NullString
		borrowedAt   sql.NullTime
		dueAt        sql.NullTime
	)

	if err := scan(
		&b.ID, &b.Title, &b.Author, &b.ISBN, &description, &genre, &year,
		&coverURL, &b.Available, &borrowedBy, &borrowerName, &borrowedAt, &dueAt,
		&b.AverageRating, &b.CreatedAt,
	); err != nil {
		return nil, err
	}

	b.Description = description.String
	b.Genre = genre.String
	if year.Valid {
		b.PublishedYear = int(year.Int64)
	}
	b.CoverURL = coverURL.String
	if borrowedBy.Valid {
		v := borrowedBy.String
		b.BorrowedBy = &v
	}
	b.BorrowerName = borrowerName.String
	if borrowedAt.Valid {
		t := borrowedAt.Time
		b.BorrowedAt = &t
	}
	if dueAt.Valid {
		t := dueAt.Time
		b.DueAt = &t
	}
	return &b, nil
}

func nullString(raw string) sql.NullString {
	if strings.TrimSpace(raw) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: raw, Valid: true}
}

func nullInt(n int) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(n), Valid: true}
}
