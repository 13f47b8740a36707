package repo

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenPostDB opens the postbank sqlite database, creating the file and
// schema on first run.
func OpenPostDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening postbank database: %w", err)
	}
	if err := CreatePostSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// CreatePostSchema creates the postbank tables if they do not exist.
// Timestamps are stored as unix seconds.
func CreatePostSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS post (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id INTEGER NOT NULL,
			link TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS review (
			post_id INTEGER NOT NULL REFERENCES post(id) ON DELETE CASCADE,
			reviewer_id INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (post_id, reviewer_id)
		);

		CREATE INDEX IF NOT EXISTS idx_review_post ON review(post_id);
	`)
	if err != nil {
		return fmt.Errorf("creating postbank schema: %w", err)
	}
	return nil
}
