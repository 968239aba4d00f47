/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract:
  - Money is exact (decimal) inside, a JSON number outside
  - Timestamps are RFC 3339 strings
  - Empty collections render as {} / [] rather than null

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Response wrappers

VALIDATION:
  Validation is done by the domain packages, not in DTOs. DTOs are pure
  data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/finance-engine/cards"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/ledger"
)

// =============================================================================
// LEDGER
// =============================================================================

type LedgerDTO struct {
	UserID            string                                    `json:"userId"`
	TotalSpend        float64                                   `json:"totalSpend"`
	TotalIncome       float64                                   `json:"totalIncome"`
	Transactions      map[string]map[string][]TransactionDTO    `json:"transactions"`
	CategorySummaries map[string]map[string]CategorySummaryDTO `json:"categorySummaries"`
	Version           int64                                     `json:"version"`
}

type TransactionDTO struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	CreatedAt   string  `json:"createdAt"`
	UpdatedAt   string  `json:"updatedAt"`
	Version     int     `json:"version"`
}

type CategorySummaryDTO struct {
	YearlySpend      float64                      `json:"yearlySpend"`
	MonthlyBreakdown map[string]MonthlySummaryDTO `json:"monthlyBreakdown"`
}

type MonthlySummaryDTO struct {
	MonthlySpend     float64 `json:"monthlySpend"`
	TransactionCount int     `json:"transactionCount"`
	LastUpdated      string  `json:"lastUpdated"`
}

// CreateTransactionRequest is the body of POST /transactions/{userId}.
type CreateTransactionRequest struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
}

// UpdateTransactionRequest is the body of POST /transactions/update/{userId}.
// Date locates the stored record; NewDate, when set, moves it.
type UpdateTransactionRequest struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Amount      float64 `json:"amount"`
	Type        string  `json:"type"`
	Date        string  `json:"date"`
	NewDate     string  `json:"newDate"`
}

// DeleteTransactionRequest is the body of DELETE /transactions/{userId}.
type DeleteTransactionRequest struct {
	ID       string  `json:"id"`
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
	Type     string  `json:"type"`
	Date     string  `json:"date"`
}

type UpdateTransactionResponse struct {
	Transaction TransactionDTO `json:"transaction"`
	Moved       bool           `json:"moved"`
}

type DeleteTransactionResponse struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

func toLedgerDTO(s ledger.Snapshot) LedgerDTO {
	dto := LedgerDTO{
		UserID:            s.UserID.String(),
		TotalSpend:        generic.MoneyToFloat(s.TotalSpend),
		TotalIncome:       generic.MoneyToFloat(s.TotalIncome),
		Transactions:      make(map[string]map[string][]TransactionDTO, len(s.Transactions)),
		CategorySummaries: make(map[string]map[string]CategorySummaryDTO, len(s.CategorySummaries)),
		Version:           s.Version,
	}

	for year, months := range s.Transactions {
		m := make(map[string][]TransactionDTO, len(months))
		for month, txs := range months {
			out := make([]TransactionDTO, len(txs))
			for i, tx := range txs {
				out[i] = toTransactionDTO(tx)
			}
			m[month] = out
		}
		dto.Transactions[year] = m
	}

	for year, cats := range s.CategorySummaries {
		c := make(map[string]CategorySummaryDTO, len(cats))
		for name, cs := range cats {
			breakdown := make(map[string]MonthlySummaryDTO, len(cs.MonthlyBreakdown))
			for month, ms := range cs.MonthlyBreakdown {
				breakdown[month] = MonthlySummaryDTO{
					MonthlySpend:     generic.MoneyToFloat(ms.MonthlySpend),
					TransactionCount: ms.TransactionCount,
					LastUpdated:      formatTime(ms.LastUpdated),
				}
			}
			c[name] = CategorySummaryDTO{
				YearlySpend:      generic.MoneyToFloat(cs.YearlySpend),
				MonthlyBreakdown: breakdown,
			}
		}
		dto.CategorySummaries[year] = c
	}
	return dto
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:          tx.ID,
		Title:       tx.Title,
		Category:    tx.Category,
		Description: tx.Description,
		Amount:      generic.MoneyToFloat(tx.Amount),
		Type:        string(tx.Type),
		Date:        formatTime(tx.Date),
		CreatedAt:   formatTime(tx.CreatedAt),
		UpdatedAt:   formatTime(tx.UpdatedAt),
		Version:     tx.Version,
	}
}

// =============================================================================
// CARDS
// =============================================================================

type CardDTO struct {
	ID             string `json:"id"`
	BankName       string `json:"bankName"`
	CardType       string `json:"cardType"`
	LastFourDigits string `json:"lastFourDigits"`
	CardholderName string `json:"cardholderName"`
	Color          string `json:"color"`
	IsDefault      bool   `json:"isDefault"`
	CreatedAt      string `json:"createdAt"`
	UpdatedAt      string `json:"updatedAt"`
	Version        int    `json:"version"`
}

// CardRequest is the body of the card endpoints. LegacyID accepts the
// "_id" key older clients send.
type CardRequest struct {
	ID             string `json:"id"`
	LegacyID       string `json:"_id"`
	BankName       string `json:"bankName"`
	CardType       string `json:"cardType"`
	LastFourDigits string `json:"lastFourDigits"`
	CardholderName string `json:"cardholderName"`
	Color          string `json:"color"`
	IsDefault      bool   `json:"isDefault"`
}

func (r CardRequest) cardID() string {
	if r.ID != "" {
		return r.ID
	}
	return r.LegacyID
}

func (r CardRequest) details() cards.Details {
	return cards.Details{
		BankName:       r.BankName,
		CardType:       cards.CardType(r.CardType),
		LastFourDigits: r.LastFourDigits,
		CardholderName: r.CardholderName,
		Color:          r.Color,
	}
}

type CardsResponse struct {
	Cards []CardDTO `json:"cards"`
}

type CardResponse struct {
	Message string  `json:"message"`
	Card    CardDTO `json:"card"`
}

type DeleteCardResponse struct {
	Message string    `json:"message"`
	Cards   []CardDTO `json:"cards"`
}

func toCardDTO(c cards.Card) CardDTO {
	return CardDTO{
		ID:             c.ID,
		BankName:       c.BankName,
		CardType:       string(c.CardType),
		LastFourDigits: c.LastFourDigits,
		CardholderName: c.CardholderName,
		Color:          c.Color,
		IsDefault:      c.IsDefault,
		CreatedAt:      formatTime(c.CreatedAt),
		UpdatedAt:      formatTime(c.UpdatedAt),
		Version:        c.Version,
	}
}

func toCardDTOs(cs []cards.Card) []CardDTO {
	out := make([]CardDTO, len(cs))
	for i, c := range cs {
		out[i] = toCardDTO(c)
	}
	return out
}

// =============================================================================
// CATEGORIES
// =============================================================================

type CategoryRequest struct {
	Category string `json:"category"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

// =============================================================================
// USERS & HEALTH
// =============================================================================

// ProvisionResponse reports, per document, whether it was "created" or
// already "exists".
type ProvisionResponse struct {
	UserID     string `json:"userId"`
	Ledger     string `json:"ledger"`
	Cards      string `json:"cards"`
	Categories string `json:"categories"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}
