package generic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MaxWriteAttempts bounds the reload-and-retry loop in UpdateDocument.
const MaxWriteAttempts = 3

// =============================================================================
// VERSIONED - A decoded document with its metadata
// =============================================================================

// Versioned carries a decoded document body together with the version it
// was read (or written) at.
type Versioned[T any] struct {
	Value     T
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LoadDocument reads and decodes a document. A missing document is reported
// as a *NotFoundError naming the collection.
func LoadDocument[T any](ctx context.Context, store DocumentStore, collection, key string) (Versioned[T], error) {
	var out Versioned[T]
	doc, err := store.Get(ctx, collection, key)
	if err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return out, &NotFoundError{Resource: collection, Key: key}
		}
		return out, fmt.Errorf("load %s/%s: %w", collection, key, err)
	}
	return decode[T](doc)
}

// CreateDocument encodes v and stores it as a new document. An existing
// document is reported as a *ConflictError.
func CreateDocument[T any](ctx context.Context, store DocumentStore, collection, key string, v T) (Versioned[T], error) {
	body, err := json.Marshal(v)
	if err != nil {
		return Versioned[T]{}, fmt.Errorf("encode %s/%s: %w", collection, key, err)
	}
	doc, err := store.Create(ctx, Document{Collection: collection, Key: key, Body: body})
	if err != nil {
		if errors.Is(err, ErrDocumentExists) {
			return Versioned[T]{}, &ConflictError{Resource: collection, Key: key, Reason: "already exists"}
		}
		return Versioned[T]{}, fmt.Errorf("create %s/%s: %w", collection, key, err)
	}
	return Versioned[T]{Value: v, Version: doc.Version, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}, nil
}

// UpdateDocument performs a read-modify-write of one document.
//
// fn receives a freshly decoded value and mutates it in place. If fn returns
// an error nothing is written and the error is returned unchanged. The write
// is conditioned on the version read; on ErrVersionConflict the document is
// reloaded and fn runs again, up to MaxWriteAttempts times, after which a
// *ConflictError is returned. fn must therefore be safe to re-run.
func UpdateDocument[T any](ctx context.Context, store DocumentStore, collection, key string, fn func(*T) error) (Versioned[T], error) {
	for attempt := 1; attempt <= MaxWriteAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Versioned[T]{}, err
		}

		doc, err := store.Get(ctx, collection, key)
		if err != nil {
			if errors.Is(err, ErrDocumentNotFound) {
				return Versioned[T]{}, &NotFoundError{Resource: collection, Key: key}
			}
			return Versioned[T]{}, fmt.Errorf("load %s/%s: %w", collection, key, err)
		}

		current, err := decode[T](doc)
		if err != nil {
			return Versioned[T]{}, err
		}
		if err := fn(&current.Value); err != nil {
			return Versioned[T]{}, err
		}

		body, err := json.Marshal(current.Value)
		if err != nil {
			return Versioned[T]{}, fmt.Errorf("encode %s/%s: %w", collection, key, err)
		}
		doc.Body = body

		saved, err := store.Replace(ctx, doc)
		if err != nil {
			if IsRetryable(err) {
				continue
			}
			if errors.Is(err, ErrDocumentNotFound) {
				return Versioned[T]{}, &NotFoundError{Resource: collection, Key: key}
			}
			return Versioned[T]{}, fmt.Errorf("save %s/%s: %w", collection, key, err)
		}

		return Versioned[T]{
			Value:     current.Value,
			Version:   saved.Version,
			CreatedAt: saved.CreatedAt,
			UpdatedAt: saved.UpdatedAt,
		}, nil
	}

	return Versioned[T]{}, &ConflictError{Resource: collection, Key: key, Attempts: MaxWriteAttempts}
}

func decode[T any](doc Document) (Versioned[T], error) {
	var v T
	if err := json.Unmarshal(doc.Body, &v); err != nil {
		return Versioned[T]{}, fmt.Errorf("decode %s/%s: %w", doc.Collection, doc.Key, err)
	}
	return Versioned[T]{Value: v, Version: doc.Version, CreatedAt: doc.CreatedAt, UpdatedAt: doc.UpdatedAt}, nil
}
