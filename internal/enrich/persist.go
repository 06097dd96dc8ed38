package enrich

import (
	"context"
	"database/sql"
	"fmt"
)

// Update pairs a book id with the metadata to apply.
type Update struct {
	BookID   string
	Metadata Metadata
}

// SaveToDatabase applies enrichment results in one transaction. Only
// descriptive fields are touched; lending state and identity fields are
// never written here. Empty incoming values leave the stored ones alone.
func SaveToDatabase(ctx context.Context, db *sql.DB, updates []Update) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE books
		SET description = CASE WHEN ? != '' THEN ? ELSE description END,
		    cover_url = CASE WHEN ? != '' THEN ? ELSE cover_url END,
		    published_year = CASE WHEN ? > 0 THEN ? ELSE published_year END
		WHERE id = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		md := u.Metadata
		if _, err := stmt.ExecContext(
			ctx,
			md.Description, md.Description,
			md.CoverURL, md.CoverURL,
			md.PublishedYear, md.PublishedYear,
			u.BookID,
		); err != nil {
			return fmt.Errorf("exec update for %s: %w", u.BookID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
