package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/xkilldash9x/panelkeeper/internal/config"
)

// Record is the persisted result of one login attempt.
type Record struct {
	RunID         string
	Service       string
	Username      string
	Host          string
	Authenticated bool
	// Reason is the failure kind, empty on success.
	Reason     string
	Diagnostic string
	At         time.Time
}

// Recorder persists login attempts for the history command.
type Recorder interface {
	SaveOutcome(ctx context.Context, rec Record) error
	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Open returns the recorder selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StoreConfig, logger *zap.Logger) (Recorder, error) {
	switch cfg.Driver {
	case config.StoreDriverNone, "":
		return Nop{}, nil
	case config.StoreDriverSQLite:
		return OpenSQLite(ctx, cfg.SQLitePath, logger)
	case config.StoreDriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create connection pool: %w", err)
		}
		s, err := New(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// Nop discards records.
type Nop struct{}

func (Nop) SaveOutcome(context.Context, Record) error     { return nil }
func (Nop) Recent(context.Context, int) ([]Record, error) { return nil, nil }
func (Nop) Close() error                                  { return nil }
