package ledger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/finance-engine/events"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/generic/store"
	"github.com/warp/finance-engine/ledger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// racingStore lets another writer commit between a Get and the first
// Replace that follows it.
type racingStore struct {
	*store.Memory
	before func()
}

func (s *racingStore) Replace(ctx context.Context, doc generic.Document) (generic.Document, error) {
	if s.before != nil {
		hook := s.before
		s.before = nil
		hook()
	}
	return s.Memory.Replace(ctx, doc)
}

// alwaysLosingStore rejects every Replace as stale.
type alwaysLosingStore struct {
	*store.Memory
}

func (s *alwaysLosingStore) Replace(context.Context, generic.Document) (generic.Document, error) {
	return generic.Document{}, generic.ErrVersionConflict
}

func newTestService(t *testing.T, s generic.DocumentStore) (*ledger.Service, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	return ledger.NewService(s, ledger.WithPublisher(rec), ledger.WithAggregator(newTestAggregator())), rec
}

func provisioned(t *testing.T) (*ledger.Service, *events.Recorder, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	svc, rec := newTestService(t, mem)
	_, err := svc.Provision(context.Background(), "user-1")
	require.NoError(t, err)
	return svc, rec, mem
}

// =============================================================================
// READ
// =============================================================================

func TestService_GetUnknownUserIsEmpty(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemory())

	snap, err := svc.Get(context.Background(), "nobody", ledger.Filter{})

	require.NoError(t, err)
	assert.Equal(t, int64(0), snap.Version)
	assert.Equal(t, generic.UserID("nobody"), snap.UserID)
	assert.True(t, snap.TotalSpend.IsZero())
	assert.True(t, snap.TotalIncome.IsZero())
	assert.Empty(t, snap.Transactions)
	assert.Empty(t, snap.CategorySummaries)
}

func TestService_GetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := provisioned(t)
	_, err := svc.Insert(ctx, "user-1", expense("Coffee", "Food", 5, "2025-02-10"))
	require.NoError(t, err)

	first, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	second, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)

	assert.Equal(t, first.Version, second.Version)
	assertSameLedger(t, first.Ledger, second.Ledger)
}

func TestService_GetWithFilter(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := provisioned(t)
	for _, in := range []ledger.NewTransaction{
		expense("a", "Food", 10, "2024-12-30"),
		expense("b", "Food", 20, "2025-01-05"),
		income("c", "Salary", 100, "2025-02-01"),
	} {
		_, err := svc.Insert(ctx, "user-1", in)
		require.NoError(t, err)
	}

	snap, err := svc.Get(ctx, "user-1", ledger.Filter{Year: "2025", Month: "01"})
	require.NoError(t, err)

	// Totals cover the whole ledger.
	assertMoney(t, "30", snap.TotalSpend)
	assertMoney(t, "100", snap.TotalIncome)
	require.Contains(t, snap.Transactions, "2025")
	assert.Len(t, snap.Transactions["2025"], 1)
	assert.Len(t, snap.Transactions["2025"]["01"], 1)
	assert.NotContains(t, snap.Transactions, "2024")
	// Summaries cover the whole selected year.
	assert.Contains(t, snap.CategorySummaries["2025"], "Salary")
	assert.NotContains(t, snap.CategorySummaries, "2024")
}

// =============================================================================
// PROVISION
// =============================================================================

func TestService_Provision(t *testing.T) {
	svc, rec, _ := provisioned(t)

	_, err := svc.Provision(context.Background(), "user-1")
	assert.True(t, generic.IsConflict(err), "second provision conflicts")

	got := rec.Events()
	require.Len(t, got, 1)
	assert.Equal(t, events.LedgerProvisioned, got[0].Type)
	assert.Equal(t, "user-1", got[0].UserID)
	assert.Equal(t, int64(1), got[0].Version)
	assert.Equal(t, testNow, got[0].Timestamp)
}

// =============================================================================
// WRITE
// =============================================================================

func TestService_MutationsOnUnknownUserAreNotFound(t *testing.T) {
	ctx := context.Background()
	svc, rec := newTestService(t, store.NewMemory())

	_, err := svc.Insert(ctx, "ghost", expense("Coffee", "Food", 5, "2025-02-10"))
	var nf *generic.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "ledger", nf.Resource)
	assert.Equal(t, "ghost", nf.Key)

	_, _, err = svc.Update(ctx, "ghost", ledger.TransactionUpdate{
		ID: "x", Date: "2025-02-10", Title: "t", Category: "c", Amount: 1, Type: ledger.Expense,
	})
	assert.True(t, generic.IsNotFound(err))

	_, err = svc.Delete(ctx, "ghost", ledger.TransactionRef{ID: "x", Date: "2025-02-10"})
	assert.True(t, generic.IsNotFound(err))

	assert.Empty(t, rec.Events())
}

func TestService_InsertUpdateDeleteLifecycle(t *testing.T) {
	// GIVEN: a provisioned user
	ctx := context.Background()
	svc, rec, _ := provisioned(t)

	// WHEN: inserting, moving and deleting a transaction
	tx, err := svc.Insert(ctx, "user-1", expense("Market", "Food", 50, "2024-01-15"))
	require.NoError(t, err)

	updated, moved, err := svc.Update(ctx, "user-1", ledger.TransactionUpdate{
		ID: tx.ID, Date: "2024-01-15", NewDate: "2024-03-01",
		Title: "Market", Category: "Food", Amount: 50, Type: ledger.Expense,
	})
	require.NoError(t, err)
	assert.True(t, moved)
	assert.Equal(t, 1, updated.Version)

	mid, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), mid.Version)
	requireInvariants(t, mid.Ledger)

	removed, err := svc.Delete(ctx, "user-1", ledger.TransactionRef{ID: tx.ID, Date: "2024-03-01"})
	require.NoError(t, err)
	assert.Equal(t, updated.ID, removed.ID)

	// THEN: the ledger is empty again and every write produced one event
	snap, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Count())
	assert.Empty(t, snap.CategorySummaries)
	assert.True(t, snap.TotalSpend.IsZero())
	assert.Equal(t, int64(4), snap.Version)

	var types []events.Type
	for _, e := range rec.Events() {
		types = append(types, e.Type)
	}
	assert.Equal(t, []events.Type{
		events.LedgerProvisioned,
		events.TransactionCreated,
		events.TransactionUpdated,
		events.TransactionDeleted,
	}, types)

	moveEvent := rec.Events()[2]
	assert.True(t, moveEvent.Moved)
	assert.Equal(t, "2024", moveEvent.Year)
	assert.Equal(t, "03", moveEvent.Month)
	assert.Equal(t, int64(3), moveEvent.Version)
}

func TestService_RejectedMutationWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, rec, _ := provisioned(t)

	_, err := svc.Insert(ctx, "user-1", expense("Bad", "Food", -1, "2025-02-10"))
	assert.True(t, generic.IsClientError(err))

	_, err = svc.Delete(ctx, "user-1", ledger.TransactionRef{ID: "missing", Date: "2025-02-10"})
	var nf *generic.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "transaction", nf.Resource)

	snap, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), snap.Version)
	assert.Len(t, rec.Events(), 1)
}

func TestService_PublishFailureDoesNotFailWrite(t *testing.T) {
	ctx := context.Background()
	svc, rec, _ := provisioned(t)
	rec.Err = errors.New("broker down")

	tx, err := svc.Insert(ctx, "user-1", expense("Coffee", "Food", 5, "2025-02-10"))
	require.NoError(t, err)

	snap, err := svc.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	_, _, found := snap.Find(tx.ID)
	assert.True(t, found)
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestService_ConcurrentWriterIsNotLost(t *testing.T) {
	// GIVEN: two services sharing one store, the first one racing the second
	ctx := context.Background()
	mem := store.NewMemory()
	racing := &racingStore{Memory: mem}
	first, _ := newTestService(t, racing)
	second := ledger.NewService(mem)
	_, err := second.Provision(ctx, "user-1")
	require.NoError(t, err)

	racing.before = func() {
		_, err := second.Insert(ctx, "user-1", expense("Other", "Food", 7, "2025-02-11"))
		require.NoError(t, err)
	}

	// WHEN: the first write loses the race once
	_, err = first.Insert(ctx, "user-1", expense("Coffee", "Food", 5, "2025-02-10"))
	require.NoError(t, err)

	// THEN: both contributions are present
	snap, err := first.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Count())
	assertMoney(t, "12", snap.TotalSpend)
	assert.Equal(t, 2, snap.CategorySummaries["2025"]["Food"].MonthlyBreakdown["02"].TransactionCount)
	requireInvariants(t, snap.Ledger)
}

func TestService_PersistentContentionIsConflict(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	setup, _ := newTestService(t, mem)
	_, err := setup.Provision(ctx, "user-1")
	require.NoError(t, err)

	svc, rec := newTestService(t, &alwaysLosingStore{Memory: mem})
	_, err = svc.Insert(ctx, "user-1", expense("Coffee", "Food", 5, "2025-02-10"))

	var conflict *generic.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, generic.MaxWriteAttempts, conflict.Attempts)
	assert.Empty(t, rec.Events())

	snap, err := setup.Get(ctx, "user-1", ledger.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Count())
}
