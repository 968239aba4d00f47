// Package storetest holds the behavioural contract every
// generic.DocumentStore implementation must satisfy. Store packages call
// Run from their own tests.
package storetest

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) generic.DocumentStore

// Run executes the DocumentStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "transactions", "nobody")
		assert.ErrorIs(t, err, generic.ErrDocumentNotFound)
	})

	t.Run("CreateThenGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, doc("transactions", "user-1", `{"totalSpend":"5"}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.Version)
		assert.False(t, created.CreatedAt.IsZero())

		got, err := s.Get(ctx, "transactions", "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.Version)
		assert.JSONEq(t, `{"totalSpend":"5"}`, string(got.Body))
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Create(ctx, doc("cards", "user-1", `{}`))
		require.NoError(t, err)
		_, err = s.Create(ctx, doc("cards", "user-1", `{}`))
		assert.ErrorIs(t, err, generic.ErrDocumentExists)
	})

	t.Run("CollectionsAreIndependent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Create(ctx, doc("cards", "user-1", `{"a":1}`))
		require.NoError(t, err)
		_, err = s.Create(ctx, doc("userCategories", "user-1", `{"b":2}`))
		require.NoError(t, err)

		got, err := s.Get(ctx, "cards", "user-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"a":1}`, string(got.Body))
	})

	t.Run("ReplaceBumpsVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, doc("transactions", "user-1", `{"n":1}`))
		require.NoError(t, err)

		created.Body = json.RawMessage(`{"n":2}`)
		saved, err := s.Replace(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, int64(2), saved.Version)

		got, err := s.Get(ctx, "transactions", "user-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), got.Version)
		assert.JSONEq(t, `{"n":2}`, string(got.Body))
	})

	t.Run("ReplaceStaleVersion", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		created, err := s.Create(ctx, doc("transactions", "user-1", `{"n":1}`))
		require.NoError(t, err)

		first := created
		first.Body = json.RawMessage(`{"n":2}`)
		_, err = s.Replace(ctx, first)
		require.NoError(t, err)

		// Second writer still holds version 1.
		stale := created
		stale.Body = json.RawMessage(`{"n":3}`)
		_, err = s.Replace(ctx, stale)
		assert.ErrorIs(t, err, generic.ErrVersionConflict)

		got, err := s.Get(ctx, "transactions", "user-1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"n":2}`, string(got.Body))
	})

	t.Run("ReplaceMissing", func(t *testing.T) {
		s := newStore(t)
		d := doc("transactions", "ghost", `{}`)
		d.Version = 1
		_, err := s.Replace(context.Background(), d)
		assert.ErrorIs(t, err, generic.ErrDocumentNotFound)
	})

	t.Run("ConcurrentUpdatesDoNotLoseWrites", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		type counter struct {
			N int `json:"n"`
		}
		_, err := generic.CreateDocument(ctx, s, "counters", "user-1", counter{})
		require.NoError(t, err)

		const writers = 8
		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
		)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := generic.UpdateDocument(ctx, s, "counters", "user-1", func(c *counter) error {
					c.N++
					return nil
				})
				if err == nil {
					mu.Lock()
					succeeded++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, generic.ErrConflict)
			}()
		}
		wg.Wait()

		got, err := generic.LoadDocument[counter](ctx, s, "counters", "user-1")
		require.NoError(t, err)
		// Every successful writer is reflected exactly once.
		assert.Equal(t, succeeded, got.Value.N)
		assert.Equal(t, int64(succeeded+1), got.Version)
	})
}

func doc(collection, key, body string) generic.Document {
	return generic.Document{Collection: collection, Key: key, Body: json.RawMessage(body)}
}
