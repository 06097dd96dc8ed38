package lending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bookhub/pkg/models"
)

// LoanPeriod is how long a borrowed book is held before it is due.
const LoanPeriod = 14 * 24 * time.Hour

var (
	ErrBookNotFound     = errors.New("book not found")
	ErrNotAvailable     = errors.New("book is not available for borrowing")
	ErrAlreadyBorrowed  = errors.New("user has already borrowed this book")
	ErrAlreadyAvailable = errors.New("book is already available")
	ErrNotBorrower      = errors.New("user is not the current borrower")
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Borrow transitions a book to borrowed and appends the user's borrow
// record in one transaction. The book update is guarded on
// `available = 1`, so two racing borrows cannot both commit.
func (r *Repo) Borrow(ctx context.Context, bookID, userID string) (*models.BorrowRecord, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin borrow: %w", err)
	}
	defer tx.Rollback()

	var available bool
	if err := tx.QueryRowContext(ctx, `
		SELECT available FROM books WHERE id = ?
	`, bookID).Scan(&available); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("check book: %w", err)
	}

	// Checked before availability so a repeat borrow by the same user
	// reports the more specific error.
	var held int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM borrow_records WHERE user_id = ? AND book_id = ?
	`, userID, bookID).Scan(&held); err != nil {
		return nil, fmt.Errorf("check borrow record: %w", err)
	}
	if held > 0 {
		return nil, ErrAlreadyBorrowed
	}

	if !available {
		return nil, ErrNotAvailable
	}

	now := time.Now().UTC()
	due := now.Add(LoanPeriod)

	res, err := tx.ExecContext(ctx, `
		UPDATE books
		SET available = 0, borrowed_by = ?, borrowed_at = ?, due_at = ?
		WHERE id = ? AND available = 1
	`, userID, now, due, bookID)
	if err != nil {
		return nil, fmt.Errorf("mark borrowed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("mark borrowed rows: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotAvailable
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO borrow_records (user_id, book_id, borrowed_at, due_at)
		VALUES (?, ?, ?, ?)
	`, userID, bookID, now, due); err != nil {
		return nil, fmt.Errorf("insert borrow record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit borrow: %w", err)
	}

	return &models.BorrowRecord{
		UserID:     userID,
		BookID:     bookID,
		BorrowedAt: now,
		DueAt:      due,
	}, nil
}

// Return transitions a book back to available, removes the borrow record
// and appends a loan_history row, all in one transaction.
func (r *Repo) Return(ctx context.Context, bookID, userID string) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin return: %w", err)
	}
	defer tx.Rollback()

	var (
		available  bool
		borrowedBy sql.NullString
		borrowedAt sql.NullTime
		dueAt      sql.NullTime
	)
	if err := tx.QueryRowContext(ctx, `
		SELECT available, borrowed_by, borrowed_at, due_at FROM books WHERE id = ?
	`, bookID).Scan(&available, &borrowedBy, &borrowedAt, &dueAt); err != nil {
		if err == sql.ErrNoRows {
			return ErrBookNotFound
		}
		return fmt.Errorf("check book: %w", err)
	}
	if available {
		return ErrAlreadyAvailable
	}
	if !borrowedBy.Valid || borrowedBy.String != userID {
		return ErrNotBorrower
	}

	// Prefer the borrow record's dates for history; fall back to the
	// book's own fields if the record drifted away.
	histBorrowed := borrowedAt.Time
	histDue := dueAt.Time
	var recBorrowed, recDue time.Time
	err = tx.QueryRowContext(ctx, `
		SELECT borrowed_at, due_at FROM borrow_records WHERE user_id = ? AND book_id = ?
	`, userID, bookID).Scan(&recBorrowed, &recDue)
	switch {
	case err == nil:
		histBorrowed, histDue = recBorrowed, recDue
	case err == sql.ErrNoRows:
		// drift: proceed with the book's dates
	default:
		return fmt.Errorf("read borrow record: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE books
		SET available = 1, borrowed_by = NULL, borrowed_at = NULL, due_at = NULL
		WHERE id = ? AND borrowed_by = ?
	`, bookID, userID)
	if err != nil {
		return fmt.Errorf("mark available: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark available rows: %w", err)
	}
	if affected == 0 {
		return ErrNotBorrower
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM borrow_records WHERE user_id = ? AND book_id = ?
	`, userID, bookID); err != nil {
		return fmt.Errorf("delete borrow record: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO loan_history (user_id, book_id, borrowed_at, due_at, returned_at)
		VALUES (?, ?, ?, ?, ?)
	`, userID, bookID, histBorrowed, histDue, time.Now().UTC()); err != nil {
		return fmt.Errorf("insert loan history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit return: %w", err)
	}
	return nil
}

// ListActiveByUser returns the user's current borrow records, newest first.
func (r *Repo) ListActiveByUser(ctx context.Context, userID string) ([]models.BorrowRecord, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT br.user_id, br.book_id, b.title, br.borrowed_at, br.due_at
		FROM borrow_records br
		LEFT JOIN books b ON b.id = br.book_id
		WHERE br.user_id = ?
		ORDER BY br.borrowed_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list borrow records: %w", err)
	}
	defer rows.Close()

	out := make([]models.BorrowRecord, 0, 8)
	for rows.Next() {
		var rec models.BorrowRecord
		var title sql.NullString
		if err := rows.Scan(&rec.UserID, &rec.BookID, &title, &rec.BorrowedAt, &rec.DueAt); err != nil {
			return nil, fmt.Errorf("scan borrow record: %w", err)
		}
		rec.BookTitle = title.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

// ListDueWithin returns active loans whose due date falls inside the
// window starting now. Used by the due-notice tool.
func (r *Repo) ListDueWithin(ctx context.Context, window time.Duration) ([]models.BorrowRecord, error) {
	now := time.Now().UTC()
	rows, err := r.DB.QueryContext(ctx, `
		SELECT br.user_id, br.book_id, b.title, br.borrowed_at, br.due_at
		FROM borrow_records br
		LEFT JOIN books b ON b.id = br.book_id
		WHERE br.due_at <= ?
		ORDER BY br.due_at ASC
	`, now.Add(window))
	if err != nil {
		return nil, fmt.Errorf("list due loans: %w", err)
	}
	defer rows.Close()

	out := make([]models.BorrowRecord, 0, 8)
	for rows.Next() {
		var rec models.BorrowRecord
		var title sql.NullString
		if err := rows.Scan(&rec.UserID, &rec.BookID, &title, &rec.BorrowedAt, &rec.DueAt); err != nil {
			return nil, fmt.Errorf("scan due loan: %w", err)
		}
		rec.BookTitle = title.String
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}
