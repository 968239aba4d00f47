/*
Package generic provides the domain-agnostic core of the finance engine.

PURPOSE:
  This package contains the building blocks shared by every domain package
  (ledger, cards, categories): money arithmetic, calendar buckets, the
  versioned document store contract and the error taxonomy. It knows
  nothing about transactions, cards or categories.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: exact decimal amounts (never float64 in the domain)
  - UserID: the opaque external user identifier every document is keyed by

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal avoids float drift, so reversing a
     contribution restores the previous total exactly
  2. Documents: one JSON document per (collection, user), written as a whole
  3. Optimistic writes: every write is conditioned on the version read

SEE ALSO:
  - time.go: ISO-8601 parsing and (year, month) buckets
  - document.go: DocumentStore interface and UpdateDocument helper
  - errors.go: Error taxonomy
*/
package generic

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

// UserID is the opaque identifier of the owner of a document. It is issued
// by the external identity provider and never interpreted here.
type UserID string

// ParseUserID trims and validates a user identifier taken from a request.
func ParseUserID(s string) (UserID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", NewValidationError("userId", "is required")
	}
	return UserID(s), nil
}

func (u UserID) String() string { return string(u) }

// =============================================================================
// MONEY - Exact decimal amounts
// =============================================================================

// Money is a decimal amount. Stored documents encode it as a JSON string,
// which keeps it exact across round trips.
type Money = decimal.Decimal

// Zero is the additive identity for Money.
var Zero = decimal.Zero

// ParsePositiveAmount converts a wire amount into Money. The amount must be
// a finite number strictly greater than zero.
func ParsePositiveAmount(field string, v float64) (Money, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Zero, NewValidationError(field, "must be a finite number")
	}
	if v <= 0 {
		return Zero, NewValidationError(field, "must be greater than zero, got %v", v)
	}
	return decimal.NewFromFloat(v), nil
}

// MoneyToFloat renders Money for JSON responses.
func MoneyToFloat(m Money) float64 {
	return m.InexactFloat64()
}
