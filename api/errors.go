package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/warp/finance-engine/generic"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeDomainError maps err onto a status code:
//
//	ValidationError → 400
//	NotFoundError   → 404
//	ConflictError   → 409
//	anything else   → 500, details logged but not returned
func writeDomainError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *generic.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: verr.Error(), Field: verr.Field})
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	case generic.IsConflict(err):
		writeError(w, http.StatusConflict, err.Error())
	default:
		logger.ErrorContext(r.Context(), "Request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a size-limited JSON body into dst. Malformed or missing
// bodies become a ValidationError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return generic.NewValidationError("body", "request body is required")
		case errors.As(err, &tooLarge):
			return generic.NewValidationError("body", "request body exceeds %d bytes", tooLarge.Limit)
		default:
			return &generic.ValidationError{Field: "body", Message: fmt.Sprintf("invalid JSON: %v", err)}
		}
	}
	return nil
}
