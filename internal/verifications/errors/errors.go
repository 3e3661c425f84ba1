package errors

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")

	ErrRecordNotFound = errors.New("verification record not found")

	ErrInvalidID = errors.New("invalid booking ID format")
)
