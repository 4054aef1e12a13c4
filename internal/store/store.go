// Package store persists gradecal's per-user state in SQLite: users, their
// settings and course list, the assignment cache, and linked-account
// credentials.
//
// Secrets are stored as given; protect the database file.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	// Pure-Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// ErrUserNotFound is returned for operations on a user that does not exist.
var ErrUserNotFound = errors.New("store: user not found")

// Store is the sole writer to the gradecal database.
type Store struct {
	db      *sql.DB
	logger  *slog.Logger
	nowFunc func() time.Time // injectable for deterministic tests
}

// Open opens the SQLite database at dbPath, creating it if needed, and runs
// migrations. The database uses WAL mode with synchronous=FULL.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)",
		dbPath,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", dbPath, err)
	}

	// Sole-writer pattern: only one connection writes at a time.
	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("store opened", slog.String("db_path", dbPath))

	return &Store{db: db, logger: logger, nowFunc: time.Now}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// withTx runs fn in a transaction, committing if it returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: committing transaction: %w", err)
	}

	return nil
}

// requireRow turns a zero-row update into ErrUserNotFound.
func requireRow(res sql.Result, userID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: reading affected rows: %w", err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}

	return nil
}
