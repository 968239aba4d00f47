package cards

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/finance-engine/generic"
)

// Service persists card sets in a DocumentStore.
type Service struct {
	store  generic.DocumentStore
	logger *slog.Logger

	Now   func() time.Time
	NewID func() string
}

func NewService(store generic.DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		logger: logger.With("component", "cards"),
		Now:    func() time.Time { return time.Now().UTC() },
		NewID:  uuid.NewString,
	}
}

// List returns the user's cards. A user without a card set has none.
func (s *Service) List(ctx context.Context, userID generic.UserID) ([]Card, error) {
	v, err := generic.LoadDocument[CardSet](ctx, s.store, Collection, userID.String())
	if err != nil {
		if errors.Is(err, generic.ErrNotFound) {
			return []Card{}, nil
		}
		return nil, err
	}
	if v.Value.Cards == nil {
		return []Card{}, nil
	}
	return v.Value.Cards, nil
}

// Provision creates an empty card set.
func (s *Service) Provision(ctx context.Context, userID generic.UserID) error {
	_, err := generic.CreateDocument(ctx, s.store, Collection, userID.String(), NewCardSet(userID))
	return err
}

// Create validates d and adds a new card.
func (s *Service) Create(ctx context.Context, userID generic.UserID, d Details) (Card, error) {
	d, err := d.Validate()
	if err != nil {
		return Card{}, err
	}

	var created Card
	err = s.mutate(ctx, userID, func(set *CardSet) error {
		now := s.Now()
		created = set.add(Card{
			ID:             s.NewID(),
			BankName:       d.BankName,
			CardType:       d.CardType,
			LastFourDigits: d.LastFourDigits,
			CardholderName: d.CardholderName,
			Color:          d.Color,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		return nil
	})
	if err != nil {
		return Card{}, err
	}
	s.logger.InfoContext(ctx, "Card created", "user_id", userID, "card_id", created.ID, "default", created.IsDefault)
	return created, nil
}

// Update replaces the details of card id. makeDefault promotes the card to
// default; false leaves the current default alone.
func (s *Service) Update(ctx context.Context, userID generic.UserID, id string, d Details, makeDefault bool) (Card, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Card{}, generic.NewValidationError("id", "is required")
	}
	d, err := d.Validate()
	if err != nil {
		return Card{}, err
	}

	var updated Card
	err = s.mutate(ctx, userID, func(set *CardSet) error {
		c, err := set.update(id, d, makeDefault, s.Now())
		updated = c
		return err
	})
	return updated, err
}

// Delete removes card id and returns the remaining cards.
func (s *Service) Delete(ctx context.Context, userID generic.UserID, id string) ([]Card, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, generic.NewValidationError("id", "is required")
	}

	var remaining []Card
	err := s.mutate(ctx, userID, func(set *CardSet) error {
		if _, err := set.remove(id); err != nil {
			return err
		}
		remaining = set.Cards
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "Card deleted", "user_id", userID, "card_id", id)
	return remaining, nil
}

func (s *Service) mutate(ctx context.Context, userID generic.UserID, fn func(*CardSet) error) error {
	_, err := generic.UpdateDocument(ctx, s.store, Collection, userID.String(), fn)
	var nf *generic.NotFoundError
	if errors.As(err, &nf) && nf.Resource == Collection {
		return &generic.NotFoundError{Resource: "card set", Key: userID.String()}
	}
	return err
}
