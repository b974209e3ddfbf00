package status

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInsufficientInventory = errors.New("inventory: not enough tickets remaining")
	ErrInvalidState          = errors.New("state: operation not allowed in current state")
	ErrUpstreamFailure       = errors.New("upstream: gateway or webhook call failed")
	ErrExpired               = errors.New("booking: reservation window elapsed")

	ErrAlreadyUsed         = errors.New("ticket: already used")
	ErrBookingNotConfirmed = errors.New("ticket: booking not confirmed")
	ErrTooEarly            = errors.New("ticket: admission window not open yet")
)
