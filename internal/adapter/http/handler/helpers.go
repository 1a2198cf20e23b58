package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/iho/balanceledger/internal/adapter/http/dto"
	"github.com/iho/balanceledger/internal/domain"
	"github.com/iho/balanceledger/internal/usecase"
)

const defaultPageSize = 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response with the status derived from err.
func writeError(w http.ResponseWriter, message string, err error) {
	writeJSON(w, mapDomainError(err), dto.ErrorFromDomain(message, err))
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, usecase.ErrTickInProgress),
		errors.Is(err, usecase.ErrSweepDisabled):
		return http.StatusConflict
	case errors.Is(err, domain.ErrOrderNotFound),
		errors.Is(err, domain.ErrWithdrawalNotFound),
		errors.Is(err, domain.ErrDepositNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientRole):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrExternalChain):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

func pagination(r *http.Request) (limit, offset int) {
	return parseIntQuery(r, "limit", defaultPageSize), parseIntQuery(r, "offset", 0)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.NewValidationError("body", err.Error())
	}
	return nil
}

// caller returns the authenticated user set by the auth middleware.
func caller(r *http.Request) (*domain.User, error) {
	user, ok := domain.UserFromContext(r.Context())
	if !ok {
		return nil, domain.ErrUnauthorized
	}
	return user, nil
}

// authorizeOwner lets the owner and administrators read a record.
func authorizeOwner(user *domain.User, ownerID string) error {
	if user.ID == ownerID || user.Role.IsAdmin() {
		return nil
	}
	return domain.ErrInsufficientRole
}
