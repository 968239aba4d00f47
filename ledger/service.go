/*
service.go - Persistence and concurrency around the Aggregator

PURPOSE:
  Service is what handlers call. It loads a user's ledger document, runs
  the Aggregator on it, and writes the whole document back conditioned on
  the version it read.

READ PATH (tolerant):
  Get on a user without a ledger returns an empty, zero-valued ledger.

WRITE PATH (strict):
  Insert, Update and Delete on a user without a ledger fail with
  NotFoundError. Ledgers are created only by Provision.

CONCURRENCY:
  Two writers on the same ledger race on the document version. The loser
  reloads and re-applies its mutation (generic.UpdateDocument); after
  generic.MaxWriteAttempts lost races the caller gets a ConflictError.
  A mutation is reported as successful only after the document is saved.

EVENTS:
  After each committed write one events.Event is published. Publish
  failures are logged and otherwise ignored.

SEE ALSO:
  - aggregator.go: The arithmetic
  - generic/document.go: UpdateDocument retry loop
  - events/events.go: Event types
*/
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/warp/finance-engine/events"
	"github.com/warp/finance-engine/generic"
)

// Snapshot is a ledger together with the document version it was read at.
type Snapshot struct {
	Ledger
	Version   int64
	UpdatedAt time.Time
}

type Service struct {
	store      generic.DocumentStore
	aggregator *Aggregator
	publisher  events.Publisher
	logger     *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithPublisher sets the event publisher (default events.Nop).
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithAggregator replaces the default aggregator, e.g. to pin the clock.
func WithAggregator(a *Aggregator) Option {
	return func(s *Service) { s.aggregator = a }
}

func NewService(store generic.DocumentStore, opts ...Option) *Service {
	s := &Service{
		store:      store,
		aggregator: NewAggregator(),
		publisher:  events.Nop{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "ledger")
	return s
}

// =============================================================================
// READ
// =============================================================================

// Get returns the user's ledger narrowed by f. A user without a ledger gets
// an empty ledger at version 0.
func (s *Service) Get(ctx context.Context, userID generic.UserID, f Filter) (Snapshot, error) {
	v, err := generic.LoadDocument[Ledger](ctx, s.store, Collection, userID.String())
	if err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return Snapshot{Ledger: New(userID)}, nil
		}
		return Snapshot{}, err
	}
	v.Value.normalize()
	return Snapshot{Ledger: Slice(v.Value, f), Version: v.Version, UpdatedAt: v.UpdatedAt}, nil
}

// =============================================================================
// WRITE
// =============================================================================

// Provision creates an empty ledger. An existing ledger is a ConflictError.
func (s *Service) Provision(ctx context.Context, userID generic.UserID) (Snapshot, error) {
	v, err := generic.CreateDocument(ctx, s.store, Collection, userID.String(), New(userID))
	if err != nil {
		return Snapshot{}, err
	}
	s.publish(ctx, events.Event{Type: events.LedgerProvisioned, UserID: userID.String(), Version: v.Version})
	return Snapshot{Ledger: v.Value, Version: v.Version, UpdatedAt: v.UpdatedAt}, nil
}

// Insert adds a transaction and returns it.
func (s *Service) Insert(ctx context.Context, userID generic.UserID, in NewTransaction) (Transaction, error) {
	var created Transaction
	v, err := s.mutate(ctx, userID, func(l *Ledger) error {
		tx, err := s.aggregator.Insert(l, in)
		created = tx
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	b := created.Bucket()
	s.publish(ctx, events.Event{
		Type:          events.TransactionCreated,
		UserID:        userID.String(),
		TransactionID: created.ID,
		Year:          b.Year,
		Month:         b.Month,
		Version:       v.Version,
	})
	return created, nil
}

// Update rewrites a transaction. moved reports a change of bucket.
func (s *Service) Update(ctx context.Context, userID generic.UserID, in TransactionUpdate) (Transaction, bool, error) {
	var (
		updated Transaction
		moved   bool
	)
	v, err := s.mutate(ctx, userID, func(l *Ledger) error {
		tx, m, err := s.aggregator.Update(l, in)
		updated, moved = tx, m
		return err
	})
	if err != nil {
		return Transaction{}, false, err
	}

	b := updated.Bucket()
	s.publish(ctx, events.Event{
		Type:          events.TransactionUpdated,
		UserID:        userID.String(),
		TransactionID: updated.ID,
		Year:          b.Year,
		Month:         b.Month,
		Moved:         moved,
		Version:       v.Version,
	})
	return updated, moved, nil
}

// Delete removes a transaction and returns the removed record.
func (s *Service) Delete(ctx context.Context, userID generic.UserID, ref TransactionRef) (Transaction, error) {
	var removed Transaction
	v, err := s.mutate(ctx, userID, func(l *Ledger) error {
		tx, err := s.aggregator.Delete(l, ref)
		removed = tx
		return err
	})
	if err != nil {
		return Transaction{}, err
	}

	b := removed.Bucket()
	s.publish(ctx, events.Event{
		Type:          events.TransactionDeleted,
		UserID:        userID.String(),
		TransactionID: removed.ID,
		Year:          b.Year,
		Month:         b.Month,
		Version:       v.Version,
	})
	return removed, nil
}

func (s *Service) mutate(ctx context.Context, userID generic.UserID, fn func(*Ledger) error) (generic.Versioned[Ledger], error) {
	v, err := generic.UpdateDocument(ctx, s.store, Collection, userID.String(), func(l *Ledger) error {
		l.normalize()
		return fn(l)
	})
	if err != nil {
		var nf *generic.NotFoundError
		if errors.As(err, &nf) && nf.Resource == Collection {
			return v, &generic.NotFoundError{Resource: "ledger", Key: userID.String()}
		}
		if generic.IsConflict(err) {
			s.logger.WarnContext(ctx, "Ledger write lost the race repeatedly", "user_id", userID, "error", err)
		}
		return v, err
	}
	return v, nil
}

func (s *Service) publish(ctx context.Context, e events.Event) {
	e.Timestamp = s.aggregator.Now()
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			"type", e.Type,
			"user_id", e.UserID,
			"version", e.Version,
			"error", err)
	}
}
