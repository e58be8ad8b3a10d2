// Package sqlite keeps the last-download marker and an audit trail of the
// days URLs were generated for.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"bhavcopy-calendar/internal/markethours"
	"bhavcopy-calendar/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed store.MarkerStore plus download audit log.
type Store struct {
	db  *sql.DB
	key string
}

var _ store.MarkerStore = (*Store)(nil)

// Open opens (creating if needed) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", path)
	return &Store{db: db, key: store.MarkerKey}, nil
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS markers (
			key        TEXT    PRIMARY KEY,
			value      TEXT    NOT NULL,
			updated_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS downloads (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			day        TEXT    NOT NULL,
			files      INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS downloads_day ON downloads (day);
	`)
	return err
}

func (s *Store) Get(ctx context.Context) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM markers WHERE key = ?`, s.key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", store.ErrNoMarker
	}
	if err != nil {
		return "", fmt.Errorf("sqlite get marker: %w", err)
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markers (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, s.key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite set marker: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM markers WHERE key = ?`, s.key); err != nil {
		return fmt.Errorf("sqlite delete marker: %w", err)
	}
	return nil
}

// Download is one audited URL generation.
type Download struct {
	Day       time.Time
	Files     int
	CreatedAt time.Time
}

// RecordDownloads logs that files URLs were generated for each day, in a
// single transaction.
func (s *Store) RecordDownloads(ctx context.Context, days []time.Time, files int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO downloads (day, files, created_at) VALUES (?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, d := range days {
		if _, err := stmt.ExecContext(ctx, markethours.FormatISO(d), files, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("sqlite insert download: %w", err)
		}
	}
	return tx.Commit()
}

// RecentDownloads returns up to limit audit rows, newest first.
func (s *Store) RecentDownloads(ctx context.Context, limit int) ([]Download, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT day, files, created_at FROM downloads
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query downloads: %w", err)
	}
	defer rows.Close()

	var out []Download
	for rows.Next() {
		var (
			day     string
			files   int
			created int64
		)
		if err := rows.Scan(&day, &files, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan downloads: %w", err)
		}
		d, err := markethours.ParseISO(day)
		if err != nil {
			return nil, fmt.Errorf("sqlite downloads day %q: %w", day, err)
		}
		out = append(out, Download{Day: d, Files: files, CreatedAt: time.Unix(created, 0).UTC()})
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
