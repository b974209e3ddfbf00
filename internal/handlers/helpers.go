package handlers

import (
	"errors"
	"strings"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"

	"ticketbox/internal/auth"
	"ticketbox/internal/status"
)

// apiError maps service errors onto HTTP responses.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrNotFound):
		return apis.NewNotFoundError("Not found", nil)
	case errors.Is(err, status.ErrInsufficientInventory):
		return apis.NewBadRequestError("Not enough tickets available", nil)
	case errors.Is(err, status.ErrExpired):
		return apis.NewBadRequestError("Reservation has expired", nil)
	case errors.Is(err, status.ErrInvalidState):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrUpstreamFailure):
		return apis.NewApiError(502, "Payment provider unavailable", nil)
	case errors.Is(err, auth.ErrInvalidCredentials):
		return apis.NewUnauthorizedError("Invalid credentials", nil)
	default:
		return apis.NewInternalServerError("Something went wrong", err)
	}
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(e *core.RequestEvent) string {
	header := e.Request.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
