// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// WHY modernc.org/sqlite?
// It is a pure Go translation of SQLite: no CGo, no C compiler, cross-compiles
// anywhere Go does. It registers itself with database/sql as "sqlite".
//
// DATABASE/SQL OVERVIEW:
//   - sql.DB   — a connection pool (NOT a single connection!)
//   - sql.Tx   — a transaction pinned to one pooled connection
//   - sql.Rows — multiple result rows (must be closed, or the connection leaks)
//
// Every exported method bounds its work with the configured operation
// timeout. Waiting for a pooled connection counts against that budget, so an
// exhausted pool fails fast with apperror.ErrUnavailable instead of hanging.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sakif/conduit/internal/apperror"

	_ "modernc.org/sqlite"
)

const (
	defaultMaxOpenConns = 10
	defaultOpTimeout    = 5 * time.Second
)

// Options tunes the connection pool. Zero values select the defaults.
type Options struct {
	MaxOpenConns int
	OpTimeout    time.Duration // bound on pool acquisition plus query time
}

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn      *sql.DB
	opTimeout time.Duration
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/conduit.db" → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// An in-memory database lives inside a single connection, so the pool is
// pinned to one connection in that case; every other connection would see
// its own empty database.
func New(dbPath string, opts Options) (*DB, error) {
	memory := dbPath == ":memory:"

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	maxOpen := opts.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpenConns
	}
	if memory {
		maxOpen = 1
	}
	conn.SetMaxOpenConns(maxOpen)
	conn.SetMaxIdleConns(maxOpen)

	timeout := opts.OpTimeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Ping forces a real connection so a bad path or permission problem
	// surfaces at startup rather than on the first request.
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if memory {
		if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
		}
	}

	db := &DB{conn: conn, opTimeout: timeout}

	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn builds the data source name. For file databases the pragmas go in the
// DSN so that every pooled connection gets them, not just the first one.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return "file:" + dbPath +
		"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the store is reachable. Used by the health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := db.bound(ctx)
	defer cancel()
	if err := db.conn.PingContext(ctx); err != nil {
		return apperror.Unavailable("pinging database", err)
	}
	return nil
}

// bound applies the operation timeout to ctx.
func (db *DB) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, db.opTimeout)
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error.
func (db *DB) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Unavailable(op, err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.Unavailable(op, err)
	}
	return nil
}

// storeErr translates a driver error into an apperror kind. Errors that are
// already *apperror.AppError pass through untouched.
func storeErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	if c := conflictErr(err); c != nil {
		return c
	}
	return apperror.Unavailable(op, err)
}

// conflictErr maps UNIQUE violations to a field-specific conflict, or
// returns nil when err is not a uniqueness violation.
func conflictErr(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") && !strings.Contains(msg, "PRIMARY KEY") {
		return nil
	}
	switch {
	case strings.Contains(msg, "users.email"):
		return apperror.Conflict("email", "email has already been taken")
	case strings.Contains(msg, "users.username"):
		return apperror.Conflict("username", "username has already been taken")
	case strings.Contains(msg, "articles.slug"):
		return apperror.Conflict("title", "an article with this title already exists")
	default:
		return apperror.Conflict("body", "resource already exists")
	}
}

func isForeignKeyErr(err error) bool {
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// placeholders returns "?, ?, ?" for n arguments and the ids as []any.
func placeholders(ids []string) (string, []any) {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
