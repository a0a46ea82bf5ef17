package sqlitedoc

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"reelscribe/internal/docstore"
)

// Store is an embedded document store backed by SQLite. Documents are stored
// as JSON payloads keyed by (workspace, collection, doc_id); transactions rely
// on SQLite's serialized writers.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// Open initializes or connects to the document database.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// Single connection so the pragmas below apply to every statement and
	// in-process transactions serialize without busy errors.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close(context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getDocument(ctx context.Context, q querier, key docstore.Key) (docstore.Document, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var payload string
	err := q.QueryRowContext(
		ctx,
		`SELECT payload FROM documents WHERE workspace = ? AND collection = ? AND doc_id = ?`,
		key.Workspace, key.Collection, key.ID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %s: %w", key, err)
	}
	var doc docstore.Document
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", key, err)
	}
	return doc, nil
}

func setDocument(ctx context.Context, q querier, key docstore.Key, doc docstore.Document, merge bool) error {
	if err := key.Validate(); err != nil {
		return err
	}
	next := doc
	if merge {
		existing, err := getDocument(ctx, q, key)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		if existing != nil {
			existing.Merge(doc)
			next = existing
		}
	}
	payload, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode document %s: %w", key, err)
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err = q.ExecContext(
		ctx,
		`INSERT INTO documents (workspace, collection, doc_id, payload, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT (workspace, collection, doc_id)
         DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		key.Workspace, key.Collection, key.ID, string(payload), timestamp,
	)
	if err != nil {
		return fmt.Errorf("set document %s: %w", key, err)
	}
	return nil
}

// Get fetches a single document.
func (s *Store) Get(ctx context.Context, key docstore.Key) (docstore.Document, error) {
	ctx = ensureContext(ctx)
	var (
		doc    docstore.Document
		getErr error
	)
	err := retryOnBusy(ctx, func() error {
		doc, getErr = getDocument(ctx, s.db, key)
		if getErr != nil && !errors.Is(getErr, docstore.ErrNotFound) {
			return getErr
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return doc, getErr
}

// Set writes a document, merging into the existing payload when merge is true.
func (s *Store) Set(ctx context.Context, key docstore.Key, doc docstore.Document, merge bool) error {
	return s.Transaction(ctx, key, func(tx docstore.Tx) error {
		return tx.Set(ctx, key, doc, merge)
	})
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) Get(ctx context.Context, key docstore.Key) (docstore.Document, error) {
	return getDocument(ctx, t.tx, key)
}

func (t *sqliteTx) Set(ctx context.Context, key docstore.Key, doc docstore.Document, merge bool) error {
	return setDocument(ctx, t.tx, key, doc, merge)
}

// Transaction runs fn atomically. SQLite serializes writers, so a
// read-modify-write inside fn cannot interleave with another transaction on
// the same document; lock contention is retried with backoff.
func (s *Store) Transaction(ctx context.Context, key docstore.Key, fn func(tx docstore.Tx) error) error {
	ctx = ensureContext(ctx)
	if err := key.Validate(); err != nil {
		return err
	}
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		// Take the write lock up front so the read inside fn cannot race a
		// concurrent writer between read and commit.
		if _, err := tx.ExecContext(ctx, `INSERT INTO txn_barrier (id) VALUES (1) ON CONFLICT (id) DO UPDATE SET id = 1`); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("acquire write lock: %w", err)
		}
		if err := fn(&sqliteTx{tx: tx}); err != nil {
			_ = tx.Rollback()
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}
