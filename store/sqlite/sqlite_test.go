package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/generic/store/storetest"
	"github.com/warp/finance-engine/ledger"
	"github.com/warp/finance-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "finance.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_Contract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) generic.DocumentStore {
		return newTestStore(t)
	})
}

func TestNew_RejectsInMemoryPath(t *testing.T) {
	_, err := sqlite.New(":memory:")
	assert.Error(t, err)
}

func TestNew_ReopenKeepsData(t *testing.T) {
	// GIVEN: a database with one document
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "finance.db")
	s, err := sqlite.New(path)
	require.NoError(t, err)
	_, err = s.Create(ctx, generic.Document{Collection: "cards", Key: "user-1", Body: []byte(`{"cards":[]}`)})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// WHEN: reopening (migrations already applied)
	s, err = sqlite.New(path)
	require.NoError(t, err)
	defer s.Close()

	// THEN: the document survived
	got, err := s.Get(ctx, "cards", "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
}

func TestStore_LedgerServiceRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := ledger.NewService(newTestStore(t))
	_, err := svc.Provision(ctx, "user-1")
	require.NoError(t, err)

	tx, err := svc.Insert(ctx, "user-1", ledger.NewTransaction{
		Title: "Coffee", Category: "Food", Amount: 5.25, Type: ledger.Expense, Date: "2025-02-10",
	})
	require.NoError(t, err)

	snap, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), snap.Version)
	assert.Equal(t, "5.25", snap.TotalSpend.String())
	got, _, ok := snap.Find(tx.ID)
	require.True(t, ok)
	assert.Equal(t, "Coffee", got.Title)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	_, err := s.Create(ctx, generic.Document{Collection: "cards", Key: "user-1", Body: []byte(`{}`)})
	require.NoError(t, err)

	require.NoError(t, s.Reset(ctx))

	_, err = s.Get(ctx, "cards", "user-1")
	assert.ErrorIs(t, err, generic.ErrDocumentNotFound)
}
