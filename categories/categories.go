// Package categories keeps the per-user list of transaction categories.
package categories

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"

	"github.com/warp/finance-engine/generic"
)

// Collection is the document collection category lists are stored in.
const Collection = "userCategories"

// Defaults seeds every newly provisioned list.
var Defaults = []string{
	"Food",
	"Transport",
	"Shopping",
	"Entertainment",
	"Bills",
	"Healthcare",
	"Education",
	"Travel",
	"Housing",
	"Utilities",
	"Insurance",
	"Investment",
	"Salary",
	"Freelance",
	"Gifts",
}

type UserCategories struct {
	UserID     generic.UserID `json:"userId"`
	Categories []string       `json:"categories"`
}

// New returns a list seeded with Defaults.
func New(userID generic.UserID) UserCategories {
	return UserCategories{UserID: userID, Categories: slices.Clone(Defaults)}
}

// Add appends name unless it is already present. It reports whether the
// list changed.
func (u *UserCategories) Add(name string) bool {
	if slices.Contains(u.Categories, name) {
		return false
	}
	u.Categories = append(u.Categories, name)
	return true
}

// Remove deletes every occurrence of name.
func (u *UserCategories) Remove(name string) error {
	if !slices.Contains(u.Categories, name) {
		return &generic.NotFoundError{Resource: "category", Key: name}
	}
	u.Categories = slices.DeleteFunc(u.Categories, func(c string) bool { return c == name })
	return nil
}

func parseName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", generic.NewValidationError("category", "is required and must be a non-empty string")
	}
	return name, nil
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store  generic.DocumentStore
	logger *slog.Logger
}

func NewService(store generic.DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger.With("component", "categories")}
}

// Get returns the user's categories. A user without a list is NotFound.
func (s *Service) Get(ctx context.Context, userID generic.UserID) ([]string, error) {
	v, err := generic.LoadDocument[UserCategories](ctx, s.store, Collection, userID.String())
	if err != nil {
		return nil, s.notFound(err, userID)
	}
	return nonNil(v.Value.Categories), nil
}

// Provision creates the default list.
func (s *Service) Provision(ctx context.Context, userID generic.UserID) error {
	_, err := generic.CreateDocument(ctx, s.store, Collection, userID.String(), New(userID))
	return err
}

// Add appends a category; adding one already present is a no-op.
func (s *Service) Add(ctx context.Context, userID generic.UserID, name string) ([]string, error) {
	name, err := parseName(name)
	if err != nil {
		return nil, err
	}

	var (
		out     []string
		changed bool
	)
	_, err = generic.UpdateDocument(ctx, s.store, Collection, userID.String(), func(u *UserCategories) error {
		changed = u.Add(name)
		out = u.Categories
		return nil
	})
	if err != nil {
		return nil, s.notFound(err, userID)
	}
	if changed {
		s.logger.InfoContext(ctx, "Category added", "user_id", userID, "category", name)
	}
	return nonNil(out), nil
}

// Delete removes a category. An absent category is NotFound.
func (s *Service) Delete(ctx context.Context, userID generic.UserID, name string) ([]string, error) {
	name, err := parseName(name)
	if err != nil {
		return nil, err
	}

	var out []string
	_, err = generic.UpdateDocument(ctx, s.store, Collection, userID.String(), func(u *UserCategories) error {
		if err := u.Remove(name); err != nil {
			return err
		}
		out = u.Categories
		return nil
	})
	if err != nil {
		return nil, s.notFound(err, userID)
	}
	s.logger.InfoContext(ctx, "Category deleted", "user_id", userID, "category", name)
	return nonNil(out), nil
}

// notFound renames a missing document to the user-facing resource.
func (s *Service) notFound(err error, userID generic.UserID) error {
	var nf *generic.NotFoundError
	if errors.As(err, &nf) && nf.Resource == Collection {
		return &generic.NotFoundError{Resource: "categories", Key: userID.String()}
	}
	return err
}

func nonNil(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}
