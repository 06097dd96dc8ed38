package reviews

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"bookhub/pkg/models"
)

var (
	ErrBookNotFound    = errors.New("book not found")
	ErrDuplicateReview = errors.New("user has already reviewed this book")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Create appends a review and recomputes the book's average rating from
// the full review set. Both writes commit in one transaction so the
// stored average never drifts from the reviews it summarizes.
func (r *Repo) Create(ctx context.Context, bookID, userID string, rating int, comment string) (*models.Review, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add review: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT 1 FROM books WHERE id = ?`, bookID).Scan(&exists); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("check book: %w", err)
	}

	var prior int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM reviews WHERE book_id = ? AND user_id = ?
	`, bookID, userID).Scan(&prior); err != nil {
		return nil, fmt.Errorf("check existing review: %w", err)
	}
	if prior > 0 {
		return nil, ErrDuplicateReview
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO reviews (book_id, user_id, rating, comment)
		VALUES (?, ?, ?, ?)
	`, bookID, userID, rating, comment)
	if err != nil {
		return nil, fmt.Errorf("insert review: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE books
		SET average_rating = COALESCE((SELECT AVG(rating) FROM reviews WHERE book_id = ?), 0)
		WHERE id = ?
	`, bookID, bookID); err != nil {
		return nil, fmt.Errorf("recompute average: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add review: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (*models.Review, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT r.id, r.book_id, r.user_id, u.name, r.rating, r.comment, r.created_at
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.id = ?
	`, id)

	var review models.Review
	var name sql.NullString
	if err := row.Scan(&review.ID, &review.BookID, &review.UserID, &name, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}
	review.ReviewerName = name.String
	return &review, nil
}

// ListByBook returns a book's reviews in insertion order with reviewer
// names resolved.
func (r *Repo) ListByBook(ctx context.Context, bookID string) ([]models.Review, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT r.id, r.book_id, r.user_id, u.name, r.rating, r.comment, r.created_at
		FROM reviews r
		LEFT JOIN users u ON u.id = r.user_id
		WHERE r.book_id = ?
		ORDER BY r.id ASC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	out := make([]models.Review, 0, 8)
	for rows.Next() {
		var review models.Review
		var name sql.NullString

		if err := rows.Scan(&review.ID, &review.BookID, &review.UserID, &name, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		review.ReviewerName = name.String
		out = append(out, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
