// Package repository persists user accounts and download history in SQLite.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/snatchdl/snatch/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	username  TEXT UNIQUE NOT NULL,
	password  TEXT,
	github_id TEXT UNIQUE
);

CREATE TABLE IF NOT EXISTS downloads (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id   INTEGER NOT NULL,
	url       TEXT NOT NULL,
	title     TEXT,
	platform  TEXT,
	filename  TEXT,
	timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
	FOREIGN KEY (user_id) REFERENCES users(id)
);

CREATE INDEX IF NOT EXISTS idx_downloads_user ON downloads(user_id, timestamp);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. The parent directory is created when missing.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// modernc's driver serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent history saves.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// UserByGithubID looks a user up by GitHub account ID.
func (s *Store) UserByGithubID(ctx context.Context, githubID string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, github_id FROM users WHERE github_id = ?`, githubID)
	return scanUser(row)
}

// UserByID looks a user up by primary key.
func (s *Store) UserByID(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, github_id FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var githubID sql.NullString
	err := row.Scan(&user.ID, &user.Username, &githubID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	user.GithubID = githubID.String
	return &user, nil
}

// CreateGithubUser provisions an account for a GitHub login. Username
// collisions with existing local accounts get the GitHub ID appended.
func (s *Store) CreateGithubUser(ctx context.Context, username, githubID string) (*domain.User, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, github_id) VALUES (?, ?)`, username, githubID)
	if err != nil {
		username = fmt.Sprintf("%s_%s", username, githubID)
		res, err = s.db.ExecContext(ctx,
			`INSERT INTO users (username, github_id) VALUES (?, ?)`, username, githubID)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &domain.User{ID: id, Username: username, GithubID: githubID}, nil
}

// SaveDownload records one completed download for a user.
func (s *Store) SaveDownload(ctx context.Context, rec *domain.DownloadRecord) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO downloads (user_id, url, title, platform, filename) VALUES (?, ?, ?, ?, ?)`,
		rec.UserID, rec.URL, rec.Title, rec.Platform, rec.Filename)
	if err != nil {
		return fmt.Errorf("save download: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	return nil
}

// DownloadHistory returns a user's downloads, newest first.
func (s *Store) DownloadHistory(ctx context.Context, userID int64, limit int) ([]domain.DownloadRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, url, title, platform, filename, timestamp
		   FROM downloads WHERE user_id = ? ORDER BY timestamp DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []domain.DownloadRecord
	for rows.Next() {
		var rec domain.DownloadRecord
		var title, platform, filename sql.NullString
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.URL, &title, &platform, &filename, &rec.Timestamp); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		rec.Title = title.String
		rec.Platform = platform.String
		rec.Filename = filename.String
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteDownloadRecord removes one history entry, scoped to its owner.
func (s *Store) DeleteDownloadRecord(ctx context.Context, userID, recordID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM downloads WHERE id = ? AND user_id = ?`, recordID, userID)
	if err != nil {
		return fmt.Errorf("delete download: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}

// UpdateDownloadFilename renames a history entry, scoped to its owner.
func (s *Store) UpdateDownloadFilename(ctx context.Context, userID, recordID int64, filename string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE downloads SET filename = ? WHERE id = ? AND user_id = ?`,
		filename, recordID, userID)
	if err != nil {
		return fmt.Errorf("update download: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrRecordNotFound
	}
	return nil
}
