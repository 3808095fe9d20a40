package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

// DB wraps the sqlite connection. All multi-step mutations run through
// WithTx so check-then-act sequences (capacity admission, waitlist position
// assignment) are serialized by the write lock taken at BEGIN IMMEDIATE.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

const (
	// txAttempts bounds the automatic retry around SQLITE_BUSY. Business
	// rule failures are never retried.
	txAttempts   = 3
	txRetryDelay = 50 * time.Millisecond
)

// New opens (and if needed creates) the database at path.
func New(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// WAL keeps readers off the writers' backs; _txlock=immediate makes
	// every transaction take the write lock at BEGIN, which is what
	// serializes the count-check-insert admission sequence.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS clients (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company_id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			total_sessions INTEGER NOT NULL DEFAULT 0,
			sessions_used INTEGER NOT NULL DEFAULT 0 CHECK (sessions_used >= 0),
			sessions_remaining INTEGER NOT NULL DEFAULT 0 CHECK (sessions_remaining >= 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS schedule_slots (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company_id INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			max_capacity INTEGER NOT NULL CHECK (max_capacity > 0),
			day_of_week INTEGER,
			schedule_date TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT NOT NULL UNIQUE,
			company_id INTEGER NOT NULL,
			client_id INTEGER NOT NULL REFERENCES clients(id),
			schedule_id INTEGER NOT NULL REFERENCES schedule_slots(id),
			schedule_date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'scheduled',
			is_gym_session BOOLEAN NOT NULL DEFAULT 0,
			reminder_sent BOOLEAN NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		// Backstop for the admission race: at most one non-cancelled
		// booking per client per slot per date.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_bookings_active
			ON bookings(client_id, schedule_id, schedule_date)
			WHERE status != 'cancelled'`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_slot_date
			ON bookings(schedule_id, schedule_date)`,
		`CREATE TABLE IF NOT EXISTS waitlist_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			company_id INTEGER NOT NULL,
			client_id INTEGER NOT NULL REFERENCES clients(id),
			schedule_id INTEGER NOT NULL REFERENCES schedule_slots(id),
			schedule_date TEXT NOT NULL,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			position INTEGER NOT NULL CHECK (position >= 1),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_position
			ON waitlist_entries(schedule_id, schedule_date, position)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_waitlist_client
			ON waitlist_entries(schedule_id, schedule_date, client_id)`,
		`CREATE TABLE IF NOT EXISTS payment_credits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			client_id INTEGER NOT NULL REFERENCES clients(id),
			payment_ref TEXT NOT NULL UNIQUE,
			sessions INTEGER NOT NULL CHECK (sessions > 0),
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec schema query: %w", err)
		}
	}
	return nil
}

type txKey struct{}

// WithTx runs fn inside a transaction. The transaction handle travels in the
// context, so store methods called from fn join it transparently. Nested
// calls reuse the outer transaction. SQLITE_BUSY gets a bounded retry.
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 0; attempt < txAttempts; attempt++ {
		err := db.runTx(ctx, fn)
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}
		lastErr = err

		db.logger.Warn().Err(err).Int("attempt", attempt+1).Msg("transaction busy, retrying")
		select {
		case <-time.After(txRetryDelay << attempt):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("transaction failed after %d attempts: %w", txAttempts, lastErr)
}

func (db *DB) runTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(txKey{}).(*sql.Tx)
	return tx
}

// querier is the subset of *sql.DB / *sql.Tx the store methods use.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (db *DB) q(ctx context.Context) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return db.DB
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
