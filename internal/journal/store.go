package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status of a journaled invocation.
type Status string

const (
	StatusPending   Status = "pending"
	StatusSubmitted Status = "submitted"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Get for an unknown invocation id.
var ErrNotFound = errors.New("journal entry not found")

// Entry is one executor invocation. Provider URLs and keys never reach the journal.
type Entry struct {
	ID        string
	Op        string
	Chain     string
	Recipient string
	Token     string
	Amount    string
	Status    Status
	TxHash    string
	ErrorKind string
	ErrorCode string
	Error     string
	CreatedAt time.Time
}

// Store persists invocations in sqlite, keyed by invocation id.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the journal under dataDir/journal.db.
func Open(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return OpenDSN(filepath.Join(dataDir, "journal.db"))
}

// OpenDSN opens a journal using the given sqlite DSN/path.
// Tests may pass ":memory:" to avoid touching disk.
func OpenDSN(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	// one connection: ":memory:" is per-connection and writes come from late callbacks too
	db.SetMaxOpenConns(1)

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS invocations (
	id TEXT PRIMARY KEY,
	op TEXT NOT NULL,
	chain TEXT NOT NULL,
	recipient TEXT,
	token TEXT,
	amount TEXT,
	status TEXT NOT NULL,
	tx_hash TEXT,
	error_kind TEXT,
	error_code TEXT,
	error TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS invocations_created ON invocations (created_at);
`)
	if err != nil {
		return fmt.Errorf("create invocations table: %w", err)
	}
	return nil
}

// Close closes the underlying DB.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts the entry or, when the id exists, updates its outcome columns.
// The original created_at is kept.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("journal not initialized")
	}
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
INSERT INTO invocations (id, op, chain, recipient, token, amount, status, tx_hash, error_kind, error_code, error, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	status=excluded.status,
	tx_hash=excluded.tx_hash,
	error_kind=excluded.error_kind,
	error_code=excluded.error_code,
	error=excluded.error
`, e.ID, e.Op, e.Chain, e.Recipient, e.Token, e.Amount, string(e.Status), e.TxHash,
		e.ErrorKind, e.ErrorCode, e.Error, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("persist invocation: %w", err)
	}
	return nil
}

const selectColumns = `SELECT id, op, chain, COALESCE(recipient, ''), COALESCE(token, ''), COALESCE(amount, ''),
status, COALESCE(tx_hash, ''), COALESCE(error_kind, ''), COALESCE(error_code, ''), COALESCE(error, ''), created_at
FROM invocations`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var e Entry
	var status, created string
	if err := row.Scan(&e.ID, &e.Op, &e.Chain, &e.Recipient, &e.Token, &e.Amount,
		&status, &e.TxHash, &e.ErrorKind, &e.ErrorCode, &e.Error, &created); err != nil {
		return Entry{}, err
	}
	e.Status = Status(status)
	if ts, err := time.Parse(time.RFC3339Nano, created); err == nil {
		e.CreatedAt = ts
	}
	return e, nil
}

// Get returns a single entry by id.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	if s == nil || s.db == nil {
		return Entry{}, fmt.Errorf("journal not initialized")
	}
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read invocation: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("journal not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, selectColumns+` ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list invocations: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("read invocation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
