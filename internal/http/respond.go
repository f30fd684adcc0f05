package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/theAriful7/E-CommerceBackend/internal/repository"
	"github.com/theAriful7/E-CommerceBackend/internal/service"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func respondError(w http.ResponseWriter, status int, code, details string) {
	respondJSON(w, status, ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Details: details,
	})
}

// respondServiceError maps the error taxonomy onto stable HTTP status codes,
// so callers never have to inspect free-text messages.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrCartNotFound),
		errors.Is(err, repository.ErrCartLineNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrOrderLineNotFound),
		errors.Is(err, repository.ErrProductNotFound),
		errors.Is(err, repository.ErrUserNotFound),
		errors.Is(err, repository.ErrAddressNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrDuplicateLine),
		errors.Is(err, service.ErrOrderNotModifiable),
		errors.Is(err, service.ErrIllegalTransition):
		respondError(w, http.StatusConflict, "conflict", err.Error())

	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyCart):
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())

	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
