/*
store.go - Persistence interface for versioned JSON documents

PURPOSE:
  Defines the interface between the domain logic and the database.
  Every user owns exactly one document per collection (their ledger, their
  card set, their category list). A document is always read and written as
  a whole, which makes a single write the unit of consistency.

KEY INTERFACES:
  DocumentStore: Get, Create and conditional Replace of documents

OPTIMISTIC CONCURRENCY:
  Each document carries a Version. Replace succeeds only if the stored
  version still equals the version the caller read, and bumps it by one.
  A lost race surfaces as ErrVersionConflict; callers reload and retry
  (see UpdateDocument in document.go).

IMPLEMENTATIONS:
  - generic/store/memory.go: In-memory for tests and dev
  - store/sqlite/sqlite.go: SQLite (default)
  - store/postgres/postgres.go: PostgreSQL JSONB

EXAMPLE:
  doc, err := store.Get(ctx, "transactions", "user-1")
  doc.Body = newBody
  _, err = store.Replace(ctx, doc)
  if errors.Is(err, generic.ErrVersionConflict) {
      // somebody else wrote first, reload
  }

SEE ALSO:
  - document.go: Typed helpers built on DocumentStore
*/
package generic

import (
	"context"
	"encoding/json"
	"time"
)

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is one stored JSON body with its concurrency metadata.
type Document struct {
	Collection string
	Key        string
	Body       json.RawMessage
	Version    int64 // 1 after Create, +1 per Replace
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// DOCUMENT STORE
// =============================================================================

// DocumentStore persists versioned documents keyed by (collection, key).
type DocumentStore interface {
	// Get returns the document or ErrDocumentNotFound.
	Get(ctx context.Context, collection, key string) (Document, error)

	// Create inserts a new document at version 1.
	// Returns ErrDocumentExists if the key is taken.
	Create(ctx context.Context, doc Document) (Document, error)

	// Replace overwrites the body if the stored version equals doc.Version
	// and returns the document with its new version.
	// Returns ErrVersionConflict on a version mismatch and
	// ErrDocumentNotFound if the document vanished.
	Replace(ctx context.Context, doc Document) (Document, error)
}
