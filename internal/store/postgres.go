package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

const (
	pgSchema = `
        CREATE TABLE IF NOT EXISTS login_attempts (
            id BIGSERIAL PRIMARY KEY,
            run_id TEXT NOT NULL,
            service TEXT NOT NULL,
            username TEXT NOT NULL,
            host TEXT NOT NULL,
            authenticated BOOLEAN NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            diagnostic TEXT NOT NULL DEFAULT '',
            attempted_at TIMESTAMPTZ NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_login_attempts_at ON login_attempts (attempted_at DESC);
    `

	pgInsert = `
        INSERT INTO login_attempts (run_id, service, username, host, authenticated, reason, diagnostic, attempted_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
    `

	pgRecent = `
        SELECT run_id, service, username, host, authenticated, reason, diagnostic, attempted_at
        FROM login_attempts
        ORDER BY attempted_at DESC, id DESC
        LIMIT $1;
    `
)

// Store provides a PostgreSQL implementation of Recorder.
type Store struct {
	pool DBPool
	log  *zap.Logger
}

var _ Recorder = (*Store)(nil)

// New creates a new store instance and verifies the connection.
func New(ctx context.Context, pool DBPool, logger *zap.Logger) (*Store, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the history table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, pgSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Store) SaveOutcome(ctx context.Context, rec Record) error {
	tag, err := s.pool.Exec(ctx, pgInsert,
		rec.RunID, rec.Service, rec.Username, rec.Host,
		rec.Authenticated, rec.Reason, rec.Diagnostic,
		rec.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert login attempt: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("mismatch in inserted row count: expected 1, got %d", tag.RowsAffected())
	}
	s.log.Debug("Login attempt recorded.", zap.String("run_id", rec.RunID), zap.String("username", rec.Username))
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := s.pool.Query(ctx, pgRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query login attempts: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.RunID, &r.Service, &r.Username, &r.Host,
			&r.Authenticated, &r.Reason, &r.Diagnostic, &r.At,
		); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt row: %w", err)
		}
		records = append(records, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return records, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
