package models

import "time"

// Book is a catalog entry. Availability and the borrower reference move
// together: available is false exactly when BorrowedBy is set.
type Book struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Author        string     `json:"author"`
	ISBN          string     `json:"isbn"`
	Description   string     `json:"description,omitempty"`
	Genre         string     `json:"genre,omitempty"`
	PublishedYear int        `json:"published_year,omitempty"`
	CoverURL      string     `json:"cover_url,omitempty"`
	Available     bool       `json:"available"`
	BorrowedBy    *string    `json:"borrowed_by,omitempty"`
	BorrowerName  string     `json:"borrower_name,omitempty"`
	BorrowedAt    *time.Time `json:"borrowed_at,omitempty"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	AverageRating float64    `json:"average_rating"`
	CreatedAt     time.Time  `json:"created_at"`
}
