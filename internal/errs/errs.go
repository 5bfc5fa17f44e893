// Package errs holds the error taxonomy shared by services and transports.
package errs

import "errors"

var (
	ErrValidation      = errors.New("validation error")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrExternalService = errors.New("external service error")
)

// Entity-specific not-found errors still match ErrNotFound via errors.Is.
var (
	ErrTicketNotFound      = notFound("ticket not found")
	ErrUserNotFound        = notFound("user not found")
	ErrAppointmentNotFound = notFound("appointment not found")
)

var (
	ErrInvalidCredentials = &kindError{msg: "invalid credentials", kind: ErrUnauthorized}
	ErrEmailTaken         = &kindError{msg: "user with this email already exists", kind: ErrConflict}
	ErrDuplicateBooking   = &kindError{msg: "appointment already exists for this ticket at this time", kind: ErrConflict}
	ErrPaymentCapture     = &kindError{msg: "payment capture failed", kind: ErrExternalService}
	ErrPaymentInit        = &kindError{msg: "could not initiate payment", kind: ErrExternalService}
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }

func notFound(msg string) error {
	return &kindError{msg: msg, kind: ErrNotFound}
}

// Validation returns an ErrValidation carrying a caller-facing message.
func Validation(msg string) error {
	return &kindError{msg: msg, kind: ErrValidation}
}

// Forbidden returns an ErrForbidden carrying a caller-facing message.
func Forbidden(msg string) error {
	return &kindError{msg: msg, kind: ErrForbidden}
}
