package feed

import "time"

const (
	EventBookBorrowed = "book.borrowed"
	EventBookReturned = "book.returned"
	EventReviewAdded  = "review.added"
)

// LendingEvent is fanned out to every connected feed client whenever the
// lending state of a book changes.
type LendingEvent struct {
	Type      string     `json:"type"`
	BookID    string     `json:"book_id"`
	BookTitle string     `json:"book_title,omitempty"`
	UserID    string     `json:"user_id"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Rating    int        `json:"rating,omitempty"`
	At        time.Time  `json:"at"`
}
