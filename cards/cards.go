/*
Package cards manages the bank cards a user keeps on file.

Each user owns one CardSet document. Cards are identified by a generated
id and at most one card in a set is the default:

  - the first card added to an empty set becomes the default
  - promoting a card through Update clears the flag on the others
  - deleting the default promotes the first remaining card

The set operations in this file are pure; service.go persists them.
*/
package cards

import (
	"regexp"
	"strings"
	"time"

	"github.com/warp/finance-engine/generic"
)

// Collection is the document collection card sets are stored in.
const Collection = "cards"

type CardType string

const (
	Credit CardType = "credit"
	Debit  CardType = "debit"
)

func (t CardType) Valid() bool { return t == Credit || t == Debit }

var lastFourPattern = regexp.MustCompile(`^[0-9]{4}$`)

type Card struct {
	ID             string    `json:"id"`
	BankName       string    `json:"bankName"`
	CardType       CardType  `json:"cardType"`
	LastFourDigits string    `json:"lastFourDigits"`
	CardholderName string    `json:"cardholderName"`
	Color          string    `json:"color"`
	IsDefault      bool      `json:"isDefault"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
	Version        int       `json:"version"`
}

// Details are the user-editable fields of a card.
type Details struct {
	BankName       string
	CardType       CardType
	LastFourDigits string
	CardholderName string
	Color          string
}

// Validate trims every field and checks it.
func (d Details) Validate() (Details, error) {
	d.BankName = strings.TrimSpace(d.BankName)
	d.CardType = CardType(strings.ToLower(strings.TrimSpace(string(d.CardType))))
	d.LastFourDigits = strings.TrimSpace(d.LastFourDigits)
	d.CardholderName = strings.TrimSpace(d.CardholderName)
	d.Color = strings.TrimSpace(d.Color)

	switch {
	case d.BankName == "":
		return d, generic.NewValidationError("bankName", "is required")
	case !d.CardType.Valid():
		return d, generic.NewValidationError("cardType", "must be %q or %q, got %q", Credit, Debit, d.CardType)
	case !lastFourPattern.MatchString(d.LastFourDigits):
		return d, generic.NewValidationError("lastFourDigits", "must be exactly 4 digits")
	case d.CardholderName == "":
		return d, generic.NewValidationError("cardholderName", "is required")
	case d.Color == "":
		return d, generic.NewValidationError("color", "is required")
	}
	return d, nil
}

// =============================================================================
// CARD SET
// =============================================================================

type CardSet struct {
	UserID generic.UserID `json:"userId"`
	Cards  []Card         `json:"cards"`
}

func NewCardSet(userID generic.UserID) CardSet {
	return CardSet{UserID: userID, Cards: []Card{}}
}

func (s *CardSet) indexOf(id string) int {
	for i, c := range s.Cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Default returns the default card, if any.
func (s CardSet) Default() (Card, bool) {
	for _, c := range s.Cards {
		if c.IsDefault {
			return c, true
		}
	}
	return Card{}, false
}

// add appends c, making it the default when the set was empty.
func (s *CardSet) add(c Card) Card {
	c.IsDefault = len(s.Cards) == 0
	s.Cards = append(s.Cards, c)
	return c
}

// update replaces the details of card id. makeDefault promotes it.
func (s *CardSet) update(id string, d Details, makeDefault bool, now time.Time) (Card, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Card{}, &generic.NotFoundError{Resource: "card", Key: id}
	}
	c := &s.Cards[i]
	c.BankName = d.BankName
	c.CardType = d.CardType
	c.LastFourDigits = d.LastFourDigits
	c.CardholderName = d.CardholderName
	c.Color = d.Color
	c.UpdatedAt = now
	c.Version++

	if makeDefault && !c.IsDefault {
		for j := range s.Cards {
			s.Cards[j].IsDefault = j == i
		}
	}
	return *c, nil
}

// remove drops card id and keeps exactly one default while cards remain.
func (s *CardSet) remove(id string) (Card, error) {
	i := s.indexOf(id)
	if i < 0 {
		return Card{}, &generic.NotFoundError{Resource: "card", Key: id}
	}
	removed := s.Cards[i]
	s.Cards = append(s.Cards[:i:i], s.Cards[i+1:]...)
	if removed.IsDefault && len(s.Cards) > 0 {
		s.Cards[0].IsDefault = true
	}
	return removed, nil
}
