package history

import (
	"context"
	"database/sql"
	"fmt"

	"bookhub/pkg/models"
)

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// ListByUser returns the user's completed loans, most recent return first.
func (r *Repo) ListByUser(ctx context.Context, userID string) ([]models.Loan, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT h.id, h.user_id, h.book_id, b.title, h.borrowed_at, h.due_at, h.returned_at
		FROM loan_history h
		LEFT JOIN books b ON b.id = h.book_id
		WHERE h.user_id = ?
		ORDER BY h.returned_at DESC, h.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list loan history: %w", err)
	}
	defer rows.Close()

	out := make([]models.Loan, 0, 8)
	for rows.Next() {
		var loan models.Loan
		var title sql.NullString
		if err := rows.Scan(&loan.ID, &loan.UserID, &loan.BookID, &title, &loan.BorrowedAt, &loan.DueAt, &loan.ReturnedAt); err != nil {
			return nil, fmt.Errorf("scan loan history: %w", err)
		}
		loan.BookTitle = title.String
		out = append(out, loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows loan history: %w", err)
	}
	return out, nil
}
