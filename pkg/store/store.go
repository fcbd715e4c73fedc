// Package store persists feeds, posts and fetch events in SQLite. Each
// store is bound to one mode namespace (prod, dev, test) chosen at
// construction, the mode selects a table-name prefix and is never derived
// again per call. All queries are parameterized.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver
)

//go:embed schema.sql
var schemaTemplate string

// ErrNotFound is returned when a keyed lookup matches nothing
var ErrNotFound = errors.New("not found")

// Mode selects the logical table namespace
type Mode string

// supported namespaces
const (
	ModeProd Mode = "prod"
	ModeDev  Mode = "dev"
	ModeTest Mode = "test"
)

// ParseMode validates a mode string from the CLI
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeProd, ModeDev, ModeTest:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q, expected prod, dev or test", s)
}

// Config represents database configuration
type Config struct {
	DSN             string
	Mode            Mode
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store wraps the database connection and the per-table repositories
type Store struct {
	db       *sqlx.DB
	Feeds    *FeedsRepo
	Posts    *PostsRepo
	FetchLog *FetchLogRepo
}

// New opens the database, applies pragmas and creates the schema for the
// configured mode namespace
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:readmoa.db?cache=shared&mode=rwc&_txlock=immediate"
	}
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	prefix := string(mode) + "_"
	schema := strings.ReplaceAll(schemaTemplate, "{{prefix}}", prefix)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{
		db:       db,
		Feeds:    newFeedsRepo(db, prefix),
		Posts:    newPostsRepo(db, prefix),
		FetchLog: newFetchLogRepo(db, prefix),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withRetry runs a write with backoff on SQLite lock contention
func withRetry(ctx context.Context, op func() error) error {
	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))
	return retrier.Do(ctx, func() error {
		err := op()
		if err != nil && !isLockError(err) {
			return &criticalError{err: err}
		}
		return err
	})
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string { return e.err.Error() }

func (e *criticalError) Unwrap() error { return e.err }

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
