package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/kaanyildiz/hwboard/internal/pkg/apperrors"
	"github.com/kaanyildiz/hwboard/internal/pkg/logger"
)

const (
	// busyAttempts bounds retries when sqlite reports the file as locked.
	busyAttempts = 5
	busyBackoff  = 500 * time.Millisecond
)

// SQLite wraps the single-file datastore together with the process-wide
// exclusive section that serializes every engine operation. The whole
// datastore admits one active operation at a time; holders of the section
// may issue any number of statements before releasing it.
type SQLite struct {
	DB   *sql.DB
	path string
	mu   sync.Mutex
}

// NewSQLite opens (or creates) the database file at path.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
		}
	}

	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite only supports 1 writer
	database.SetMaxOpenConns(1)
	database.SetMaxIdleConns(1)
	database.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to establish database connection: %w", err)
	}

	if _, err := database.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("failed to enable WAL journal mode: %w", err)
	}

	logger.Info().Str("path", path).Msg("SQLite database opened")
	return &SQLite{DB: database, path: path}, nil
}

// Close closing method
func (d *SQLite) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}

// Exclusive runs fn while holding the datastore's exclusive section, so no
// other engine operation interleaves with it. Transient busy/locked failures
// are retried with a fixed backoff before surfacing ErrStorageUnavailable.
func (d *SQLite) Exclusive(fn func() error) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	for attempt := 1; attempt <= busyAttempts; attempt++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		logger.Warn().
			Int("attempt", attempt).
			Int("maxAttempts", busyAttempts).
			Msg("Database locked, retrying...")
		time.Sleep(busyBackoff)
	}

	return apperrors.NewCustomError(apperrors.ErrStorageUnavailable,
		fmt.Sprintf("datastore still locked after %d attempts: %v", busyAttempts, err))
}

// TransactionFn is a function that executes within a transaction
type TransactionFn func(tx *sql.Tx) error

// WithTransaction runs a function within a transaction. It must be called
// with the exclusive section already held.
func (d *SQLite) WithTransaction(ctx context.Context, fn TransactionFn) error {
	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// Rollback on panic
	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.Error().Err(rbErr).Msg("Failed to rollback transaction")
			return fmt.Errorf("error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// isBusy reports whether err is sqlite's transient lock-contention failure.
func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
