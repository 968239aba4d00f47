/*
handlers.go - HTTP API handlers for the finance service

PURPOSE:
  Exposes the ledger, cards and categories services via a REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain services.

ENDPOINTS:
  Transactions:
    GET    /transactions/{userId}?year=&month=  Ledger (or a slice of it)
    POST   /transactions/{userId}               Insert transaction
    POST   /transactions/update/{userId}        Update (and maybe move)
    DELETE /transactions/{userId}               Delete transaction

  Cards:            see handlers_cards.go
  User categories:  see handlers_categories.go

  Users:
    POST   /users/{userId}                      Provision all documents

  Health:
    GET    /health                              Liveness (+ store ping)

REQUEST FLOW:
  1. Parse user id and body
  2. Call the domain service (validation happens there)
  3. Serialize response DTO
  4. Map errors via writeDomainError

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, malformed JSON
  - 404: Missing ledger / transaction / card / category
  - 409: Concurrent modification, duplicate provisioning
  - 500: Internal errors (details logged, never returned)

SEE ALSO:
  - dto.go: Request/response data structures
  - errors.go: Error to status mapping
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/warp/finance-engine/cards"
	"github.com/warp/finance-engine/categories"
	"github.com/warp/finance-engine/generic"
	"github.com/warp/finance-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger is implemented by stores that can report their reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger     *ledger.Service
	Cards      *cards.Service
	Categories *categories.Service

	// Pinger, when set, is checked by the health endpoint.
	Pinger Pinger
	Logger *slog.Logger
	Now    func() time.Time
}

// NewHandler creates a handler with services built on store.
func NewHandler(store generic.DocumentStore, logger *slog.Logger, ledgerOpts ...ledger.Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		Ledger:     ledger.NewService(store, append([]ledger.Option{ledger.WithLogger(logger)}, ledgerOpts...)...),
		Cards:      cards.NewService(store, logger),
		Categories: categories.NewService(store, logger),
		Logger:     logger.With("component", "api"),
		Now:        func() time.Time { return time.Now().UTC() },
	}
	if p, ok := store.(Pinger); ok {
		h.Pinger = p
	}
	return h
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeDomainError(w, r, h.Logger, err)
}

func userID(r *http.Request) (generic.UserID, error) {
	return generic.ParseUserID(chi.URLParam(r, "userId"))
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// GetLedger returns the user's ledger, optionally narrowed by the year and
// month query parameters.
func (h *Handler) GetLedger(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q := r.URL.Query()
	filter, err := ledger.ParseFilter(q.Get("year"), q.Get("month"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	snap, err := h.Ledger.Get(r.Context(), uid, filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLedgerDTO(snap))
}

// CreateTransaction inserts a transaction.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	tx, err := h.Ledger.Insert(r.Context(), uid, ledger.NewTransaction{
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        ledger.TransactionType(req.Type),
		Date:        req.Date,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionDTO(tx))
}

// UpdateTransaction rewrites a transaction, moving it when newDate changes
// its bucket.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdateTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	tx, moved, err := h.Ledger.Update(r.Context(), uid, ledger.TransactionUpdate{
		ID:          req.ID,
		Date:        req.Date,
		NewDate:     req.NewDate,
		Title:       req.Title,
		Category:    req.Category,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        ledger.TransactionType(req.Type),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, UpdateTransactionResponse{Transaction: toTransactionDTO(tx), Moved: moved})
}

// DeleteTransaction removes a transaction located by id and date.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req DeleteTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	removed, err := h.Ledger.Delete(r.Context(), uid, ledger.TransactionRef{
		ID:       req.ID,
		Date:     req.Date,
		Category: req.Category,
		Amount:   req.Amount,
		Type:     ledger.TransactionType(req.Type),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteTransactionResponse{
		Message: "Transaction deleted successfully",
		ID:      removed.ID,
	})
}

// =============================================================================
// USER PROVISIONING
// =============================================================================

// ProvisionUser creates the ledger, card set and category list for a user.
// Documents that already exist are left untouched, so the call can be
// repeated. Responds 201 if anything was created, 200 otherwise.
func (h *Handler) ProvisionUser(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()

	resp := ProvisionResponse{UserID: uid.String()}
	created := false
	steps := []struct {
		outcome *string
		run     func(context.Context, generic.UserID) error
	}{
		{&resp.Ledger, func(ctx context.Context, id generic.UserID) error {
			_, err := h.Ledger.Provision(ctx, id)
			return err
		}},
		{&resp.Cards, h.Cards.Provision},
		{&resp.Categories, h.Categories.Provision},
	}
	for _, step := range steps {
		switch err := step.run(ctx, uid); {
		case err == nil:
			*step.outcome = "created"
			created = true
		case generic.IsConflict(err):
			*step.outcome = "exists"
		default:
			h.fail(w, r, err)
			return
		}
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		h.Logger.InfoContext(ctx, "User provisioned", "user_id", uid,
			"ledger", resp.Ledger, "cards", resp.Cards, "categories", resp.Categories)
	}
	writeJSON(w, status, resp)
}

// =============================================================================
// HEALTH
// =============================================================================

// Health reports liveness. When the store can be pinged a failed ping
// yields 503.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "OK", Timestamp: h.Now().Format(time.RFC3339)}
	if h.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.Pinger.Ping(ctx); err != nil {
			h.Logger.WarnContext(ctx, "Health check failed", "error", err)
			resp.Status = "UNAVAILABLE"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
