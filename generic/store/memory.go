// Package store provides DocumentStore implementations.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/warp/finance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu   sync.RWMutex
	docs map[key]generic.Document
	now  func() time.Time
}

type key struct {
	Collection string
	Key        string
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[key]generic.Document),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Get returns a copy of the stored document.
func (m *Memory) Get(_ context.Context, collection, docKey string) (generic.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[key{Collection: collection, Key: docKey}]
	if !ok {
		return generic.Document{}, generic.ErrDocumentNotFound
	}
	return clone(doc), nil
}

// Create stores a new document at version 1.
func (m *Memory) Create(_ context.Context, doc generic.Document) (generic.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{Collection: doc.Collection, Key: doc.Key}
	if _, exists := m.docs[k]; exists {
		return generic.Document{}, generic.ErrDocumentExists
	}

	now := m.now()
	doc = clone(doc)
	doc.Version = 1
	doc.CreatedAt = now
	doc.UpdatedAt = now
	m.docs[k] = doc
	return clone(doc), nil
}

// Replace is a compare-and-swap on the document version.
func (m *Memory) Replace(_ context.Context, doc generic.Document) (generic.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := key{Collection: doc.Collection, Key: doc.Key}
	current, ok := m.docs[k]
	if !ok {
		return generic.Document{}, generic.ErrDocumentNotFound
	}
	if current.Version != doc.Version {
		return generic.Document{}, generic.ErrVersionConflict
	}

	next := clone(doc)
	next.Version = current.Version + 1
	next.CreatedAt = current.CreatedAt
	next.UpdatedAt = m.now()
	m.docs[k] = next
	return clone(next), nil
}

// Len reports how many documents are stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

func clone(doc generic.Document) generic.Document {
	doc.Body = append([]byte(nil), doc.Body...)
	return doc
}
