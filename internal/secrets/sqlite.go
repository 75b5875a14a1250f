package secrets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"bodhi/pkg/logging"
)

const (
	// DefaultFileName is the database file created inside the bodhi home.
	DefaultFileName = "secrets.db"

	defaultBusyTimeout = 5 * time.Second
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS secrets (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS leases (
		name TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		expires_at INTEGER NOT NULL
	)`,
}

// Options describes parameters for opening a SQLite-backed store.
type Options struct {
	// Path of the database file. The encryption key is kept next to it as
	// "<file>.key".
	Path string
}

// SQLiteStore is the durable Store. Every value is encrypted at rest and all
// writes go through a transaction committed with synchronous=FULL.
type SQLiteStore struct {
	db   *sql.DB
	path string
	key  []byte

	exclusive gate
	leaseTTL  time.Duration
}

var _ Store = (*SQLiteStore)(nil)

// Open initialises the store at opts.Path, creating the schema and the
// encryption key on first use.
func Open(ctx context.Context, opts Options) (*SQLiteStore, error) {
	if opts.Path == "" {
		return nil, errors.New("secrets: database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o700); err != nil {
		return nil, fmt.Errorf("secrets: create store directory: %w", err)
	}

	// Transactions take the write lock when they begin, so a status read
	// inside Transition cannot go stale before the commit.
	db, err := sql.Open("sqlite", opts.Path+"?_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("secrets: open sqlite store: %w", err)
	}
	// A single connection keeps SQLite writers serialized within the process.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("secrets: apply schema: %w", err)
		}
	}

	var rows int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM secrets`).Scan(&rows); err != nil {
		db.Close()
		return nil, fmt.Errorf("secrets: count rows: %w", err)
	}

	// A new key is only created for an empty store; otherwise existing
	// values would become undecryptable.
	key, err := loadOrCreateKey(keyPath(opts.Path), rows == 0)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("secrets: %w", err)
	}

	logging.Debug("Secrets", "Opened secret store at %s", opts.Path)

	return &SQLiteStore{
		db:        db,
		path:      opts.Path,
		key:       key,
		exclusive: newGate(),
		leaseTTL:  defaultLeaseTTL,
	}, nil
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", defaultBusyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("secrets: %s: %w", p, err)
		}
	}
	return nil
}

// Path returns the filesystem path of the backing database.
func (s *SQLiteStore) Path() string {
	return s.path
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *SQLiteStore) reader(ctx context.Context, q queryer) valueReader {
	return func(key string) (string, bool, error) {
		var stored string
		err := q.QueryRowContext(ctx, `SELECT value FROM secrets WHERE key = ?`, key).Scan(&stored)
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		if err != nil {
			return "", false, err
		}
		value, err := decryptValue(s.key, key, stored)
		if err != nil {
			return "", false, err
		}
		return value, true, nil
	}
}

func (s *SQLiteStore) Authz(ctx context.Context) (bool, error) {
	return readAuthz(s.reader(ctx, s.db))
}

func (s *SQLiteStore) AppStatus(ctx context.Context) (AppStatus, error) {
	return readAppStatus(s.reader(ctx, s.db))
}

func (s *SQLiteStore) AppRegistration(ctx context.Context) (*AppRegistration, error) {
	return readAppRegistration(s.reader(ctx, s.db))
}

func (s *SQLiteStore) SetAuthz(ctx context.Context, authz bool) error {
	return s.Update(ctx, func(w Writer) error { return w.SetAuthz(ctx, authz) })
}

func (s *SQLiteStore) SetAppStatus(ctx context.Context, status AppStatus) error {
	return s.Update(ctx, func(w Writer) error { return w.SetAppStatus(ctx, status) })
}

func (s *SQLiteStore) SetAppRegistration(ctx context.Context, reg AppRegistration) error {
	return s.Update(ctx, func(w Writer) error { return w.SetAppRegistration(ctx, reg) })
}

// Update stages the writes made by fn and commits them in one transaction,
// in the order they were made.
func (s *SQLiteStore) Update(ctx context.Context, fn func(w Writer) error) error {
	return s.commit(ctx, "", fn)
}

// Transition is Update guarded by a status check inside the same
// transaction.
func (s *SQLiteStore) Transition(ctx context.Context, from AppStatus, fn func(w Writer) error) error {
	return s.commit(ctx, from, fn)
}

func (s *SQLiteStore) commit(ctx context.Context, from AppStatus, fn func(w Writer) error) error {
	staged := &stagedWriter{}
	if err := fn(staged); err != nil {
		return err
	}
	if len(staged.entries) == 0 && from == "" {
		return nil
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if from != "" {
			current, err := readAppStatus(s.reader(ctx, tx))
			if err != nil {
				return err
			}
			if current != from {
				return &StatusConflictError{Expected: from, Actual: current}
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO secrets (key, value, updated_at)
			VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET
				value = excluded.value,
				updated_at = CURRENT_TIMESTAMP
		`)
		if err != nil {
			return &StoreError{Op: "prepare", Err: err}
		}
		defer stmt.Close()

		for _, e := range staged.entries {
			sealed, err := encryptValue(s.key, e.key, e.value)
			if err != nil {
				return &StoreError{Op: "encrypt", Key: e.key, Err: err}
			}
			if _, err := stmt.ExecContext(ctx, e.key, sealed); err != nil {
				return &StoreError{Op: "write", Key: e.key, Err: err}
			}
		}
		return nil
	})
}

func (s *SQLiteStore) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return &StoreError{Op: "begin", Err: err}
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return &StoreError{Op: "rollback", Err: errors.Join(err, rbErr)}
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &StoreError{Op: "commit", Err: err}
	}
	return nil
}

// Exclusive runs fn while holding the store lease, which is shared by every
// process that opens the same database file.
func (s *SQLiteStore) Exclusive(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.exclusive.run(ctx, func(ctx context.Context) error {
		return s.withLease(ctx, exclusiveLease, fn)
	})
}

// Close finalises the underlying database connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
