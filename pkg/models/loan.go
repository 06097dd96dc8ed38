package models

import "time"

// BorrowRecord is an active loan on a user's account.
type BorrowRecord struct {
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	BookTitle  string    `json:"book_title,omitempty"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
}

// Loan is a completed loan, written to history when a book is returned.
type Loan struct {
	ID         int64     `json:"id"`
	UserID     string    `json:"user_id"`
	BookID     string    `json:"book_id"`
	BookTitle  string    `json:"book_title,omitempty"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueAt      time.Time `json:"due_at"`
	ReturnedAt time.Time `json:"returned_at"`
}
