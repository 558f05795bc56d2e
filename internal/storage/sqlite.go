package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/cellveyor/internal/models"
)

// SQLiteLedger implements Ledger using SQLite.
type SQLiteLedger struct {
	db *sql.DB
}

// NewSQLiteLedger opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteLedger(dbPath string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time; concurrent deliveries share this handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteLedger{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id TEXT PRIMARY KEY,
		repository TEXT NOT NULL,
		key_value TEXT NOT NULL,
		digest TEXT NOT NULL,
		comment_url TEXT,
		created_at TIMESTAMP NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deliveries_repo_key ON deliveries(repository, key_value, created_at);
	CREATE INDEX IF NOT EXISTS idx_deliveries_created_at ON deliveries(created_at);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordDelivery inserts d, assigning an ID and timestamp when unset.
func (s *SQLiteLedger) RecordDelivery(ctx context.Context, d *models.Delivery) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	// Stored as text; one zone keeps ORDER BY created_at chronological.
	d.CreatedAt = d.CreatedAt.UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (id, repository, key_value, digest, comment_url, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Repository, d.KeyValue, d.Digest, d.CommentURL, d.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery: %w", err)
	}
	return nil
}

// LastDelivery returns the newest delivery for repository and keyValue.
func (s *SQLiteLedger) LastDelivery(ctx context.Context, repository, keyValue string) (*models.Delivery, error) {
	var d models.Delivery
	var commentURL sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, repository, key_value, digest, comment_url, created_at
		 FROM deliveries WHERE repository = ? AND key_value = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT 1`, repository, keyValue,
	).Scan(&d.ID, &d.Repository, &d.KeyValue, &d.Digest, &commentURL, &d.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.CommentURL = commentURL.String
	return &d, nil
}

// ListDeliveries returns deliveries newest first.
func (s *SQLiteLedger) ListDeliveries(ctx context.Context, offset, limit int) ([]*models.Delivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, repository, key_value, digest, comment_url, created_at
		 FROM deliveries ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Delivery
	for rows.Next() {
		var d models.Delivery
		var commentURL sql.NullString
		if err := rows.Scan(&d.ID, &d.Repository, &d.KeyValue, &d.Digest, &commentURL, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.CommentURL = commentURL.String
		out = append(out, &d)
	}
	return out, rows.Err()
}

// CountDeliveries returns the number of recorded deliveries.
func (s *SQLiteLedger) CountDeliveries(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM deliveries`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteLedger) Close() error {
	return s.db.Close()
}
