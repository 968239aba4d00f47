/*
Package sqlite provides a SQLite-backed generic.DocumentStore.

PURPOSE:
  Persists versioned JSON documents, one row per (collection, key). Every
  domain aggregate (a user's ledger, card set, category list) is a single
  row, so a write is a single-row UPDATE and never spans rows.

OPTIMISTIC CONCURRENCY:
  Replace is a compare-and-swap on the version column:

    UPDATE documents SET body = ?, version = version + 1, ...
     WHERE collection = ? AND key = ? AND version = ?

  Zero affected rows means the caller's version is stale (or the row is
  gone); a follow-up read tells the two apart. No application-level lock is
  held, so several processes can share one database file.

SCHEMA:
  Managed by golang-migrate from the embedded migrations/ directory
  (see migrate.go). New() migrates before returning.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery
  A busy timeout lets concurrent writers wait for the lock instead of
  failing immediately.

USAGE:
  store, err := sqlite.New("./data/finance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := ledger.NewService(store)

SEE ALSO:
  - generic/store.go: DocumentStore contract
  - generic/store/memory.go: In-memory implementation
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/finance-engine/generic"
)

// busyTimeout is how long a writer waits on a locked database, in ms.
const busyTimeout = 5000

// Store implements generic.DocumentStore using SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New opens (creating if needed) the database at dbPath and migrates it.
// dbPath must be a file; use the memory store for ephemeral data.
func New(dbPath string) (*Store, error) {
	if dbPath == "" || strings.HasPrefix(dbPath, ":memory:") || strings.Contains(dbPath, "mode=memory") {
		return nil, fmt.Errorf("sqlite: a database file path is required, got %q", dbPath)
	}

	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", dbPath, busyTimeout)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Store{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

func (s *Store) Get(ctx context.Context, collection, key string) (generic.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT body, version, created_at, updated_at
		  FROM documents
		 WHERE collection = ? AND key = ?`,
		collection, key)

	doc := generic.Document{Collection: collection, Key: key}
	var body, createdAt, updatedAt string
	if err := row.Scan(&body, &doc.Version, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return generic.Document{}, generic.ErrDocumentNotFound
		}
		return generic.Document{}, fmt.Errorf("query document: %w", err)
	}
	doc.Body = []byte(body)

	var err error
	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return generic.Document{}, err
	}
	if doc.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return generic.Document{}, err
	}
	return doc, nil
}

func (s *Store) Create(ctx context.Context, doc generic.Document) (generic.Document, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)`,
		doc.Collection, doc.Key, string(doc.Body), formatTime(now), formatTime(now))
	if err != nil {
		if isUniqueConstraintError(err) {
			return generic.Document{}, generic.ErrDocumentExists
		}
		return generic.Document{}, fmt.Errorf("insert document: %w", err)
	}

	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now
	return doc, nil
}

func (s *Store) Replace(ctx context.Context, doc generic.Document) (generic.Document, error) {
	now := s.now()
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents
		   SET body = ?, version = version + 1, updated_at = ?
		 WHERE collection = ? AND key = ? AND version = ?
		RETURNING version, created_at`,
		string(doc.Body), formatTime(now), doc.Collection, doc.Key, doc.Version).Scan(&doc.Version, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return generic.Document{}, s.missOrStale(ctx, doc.Collection, doc.Key)
		}
		return generic.Document{}, fmt.Errorf("update document: %w", err)
	}

	if doc.CreatedAt, err = parseTime(createdAt); err != nil {
		return generic.Document{}, err
	}
	doc.UpdatedAt = now
	return doc, nil
}

// missOrStale explains a conditional update that matched no row.
func (s *Store) missOrStale(ctx context.Context, collection, key string) error {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE collection = ? AND key = ?`, collection, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrDocumentNotFound
	}
	if err != nil {
		return fmt.Errorf("query document: %w", err)
	}
	return generic.ErrVersionConflict
}

// Reset deletes every document. Intended for tests and local resets.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM documents`)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

func isUniqueConstraintError(err error) bool {
	var serr sqlite3.Error
	if errors.As(err, &serr) {
		return serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			serr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
