// Package postgres provides a PostgreSQL-backed generic.DocumentStore.
//
// Documents live in a single table keyed by (collection, key) with the body
// held as JSONB. Replace is a conditional UPDATE on the version column, the
// same compare-and-swap the SQLite store performs.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/warp/finance-engine/generic"
)

// uniqueViolation is the SQLSTATE for a unique or primary key violation.
const uniqueViolation = pq.ErrorCode("23505")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT        NOT NULL,
	key        TEXT        NOT NULL,
	body       JSONB       NOT NULL,
	version    BIGINT      NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (collection, key)
)`

// Store implements generic.DocumentStore using PostgreSQL.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New connects to dsn, verifies the connection and ensures the schema.
func New(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Reset deletes every document.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `TRUNCATE documents`)
	return err
}

func (s *Store) Get(ctx context.Context, collection, key string) (generic.Document, error) {
	doc := generic.Document{Collection: collection, Key: key}
	var body []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT body, version, created_at, updated_at
		  FROM documents
		 WHERE collection = $1 AND key = $2`,
		collection, key).Scan(&body, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.Document{}, generic.ErrDocumentNotFound
	}
	if err != nil {
		return generic.Document{}, fmt.Errorf("query document: %w", err)
	}
	doc.Body = body
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = doc.UpdatedAt.UTC()
	return doc, nil
}

// Bodies are bound as strings: lib/pq encodes []byte as bytea, which JSONB
// rejects.
func (s *Store) Create(ctx context.Context, doc generic.Document) (generic.Document, error) {
	now := s.now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, body, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $4)`,
		doc.Collection, doc.Key, string(doc.Body), now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
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
	err := s.db.QueryRowContext(ctx, `
		UPDATE documents
		   SET body = $1, version = version + 1, updated_at = $2
		 WHERE collection = $3 AND key = $4 AND version = $5
		RETURNING version, created_at`,
		string(doc.Body), now, doc.Collection, doc.Key, doc.Version).Scan(&doc.Version, &doc.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM documents WHERE collection = $1 AND key = $2)`,
			doc.Collection, doc.Key).Scan(&exists); err != nil {
			return generic.Document{}, fmt.Errorf("query document: %w", err)
		}
		if !exists {
			return generic.Document{}, generic.ErrDocumentNotFound
		}
		return generic.Document{}, generic.ErrVersionConflict
	}
	if err != nil {
		return generic.Document{}, fmt.Errorf("update document: %w", err)
	}
	doc.CreatedAt = doc.CreatedAt.UTC()
	doc.UpdatedAt = now
	return doc, nil
}
