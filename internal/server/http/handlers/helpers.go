package handlers

import (
	"errors"
	"net/http"

	domainErrors "github.com/tecelana/fichas/internal/domain/errors"
)

// statusFromError maps the domain error taxonomy onto HTTP statuses.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, domainErrors.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domainErrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domainErrors.ErrExpired):
		return http.StatusGone
	case errors.Is(err, domainErrors.ErrExhausted):
		return http.StatusTooManyRequests
	case errors.Is(err, domainErrors.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
