package gateway

import (
	"errors"
	"fmt"

	"github.com/avvvet/staybuddy/internal/dates"
)

var (
	// ErrUnavailable is returned when the room was taken between the
	// availability check and the booking.
	ErrUnavailable = errors.New("gateway: room unavailable")

	// ErrServer is returned for unexpected backend failures.
	ErrServer = errors.New("gateway: server error")

	// ErrTransport is returned when the request never got a response.
	ErrTransport = errors.New("gateway: transport error")

	// ErrInvalidResponse is returned when the response cannot be decoded.
	ErrInvalidResponse = errors.New("gateway: invalid response")

	// ErrPaymentLinkMissing marks a created booking without a usable link.
	ErrPaymentLinkMissing = errors.New("gateway: payment link missing")
)

// Error describes a failed gateway call. It matches its Kind with errors.Is.
type Error struct {
	Kind    error
	Op      string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%v: %s (status %d): %s", e.Kind, e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Op, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// DateError is returned by FetchAvailability when the range was rejected
// before any request was made.
type DateError struct {
	Validation dates.Validation
}

func (e *DateError) Error() string {
	return e.Validation.Reason
}

func (e *DateError) Unwrap() error {
	return e.Validation.Err
}
