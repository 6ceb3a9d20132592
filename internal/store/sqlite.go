package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver
)

// sqliteTimeLayout has fixed width so timestamps sort lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS login_attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		service TEXT NOT NULL,
		username TEXT NOT NULL,
		host TEXT NOT NULL,
		authenticated INTEGER NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		diagnostic TEXT NOT NULL DEFAULT '',
		attempted_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_login_attempts_at ON login_attempts(attempted_at);
`

// SQLite keeps run history in a local database file.
type SQLite struct {
	db     *sql.DB
	path   string
	logger *zap.Logger
}

var _ Recorder = (*SQLite)(nil)

// OpenSQLite opens or creates the database at path with WAL journaling.
func OpenSQLite(ctx context.Context, path string, logger *zap.Logger) (*SQLite, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("failed to expand database path %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", expanded+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLite{db: db, path: expanded, logger: logger.Named("store")}, nil
}

// Path returns the resolved database file path.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) SaveOutcome(ctx context.Context, rec Record) error {
	authenticated := 0
	if rec.Authenticated {
		authenticated = 1
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO login_attempts (run_id, service, username, host, authenticated, reason, diagnostic, attempted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Service, rec.Username, rec.Host,
		authenticated, rec.Reason, rec.Diagnostic,
		rec.At.UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}
	s.logger.Debug("Login attempt recorded.", zap.String("run_id", rec.RunID), zap.String("username", rec.Username))
	return nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT run_id, service, username, host, authenticated, reason, diagnostic, attempted_at
	FROM login_attempts
	ORDER BY attempted_at DESC, id DESC
	LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r             Record
			authenticated int
			at            string
		)
		if err := rows.Scan(&r.RunID, &r.Service, &r.Username, &r.Host, &authenticated, &r.Reason, &r.Diagnostic, &at); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt row: %w", err)
		}
		r.Authenticated = authenticated != 0
		if r.At, err = time.Parse(sqliteTimeLayout, at); err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", at, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
