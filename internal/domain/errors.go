package domain

import "errors"

var (
	ErrDayFull      = errors.New("day_full")
	ErrSlotFull     = errors.New("slot_full")
	ErrHoldNotFound = errors.New("hold not found")
	ErrHoldExpired  = errors.New("hold expired")
	ErrHoldReleased = errors.New("hold released")
)

// Validation codes returned to clients. They are stable and part of the API.
const (
	CodeInvalidInput         = "invalid_input"
	CodeOutsideServiceArea   = "outside_service_area"
	CodeStartInPast          = "start_in_past"
	CodeOutsideBookingWindow = "outside_booking_window"
	CodeOutsideBusinessHours = "outside_business_hours"
	CodeQuietHours           = "quiet_hours"
	CodeMisalignedStart      = "misaligned_start"
)

// ValidationError is a client-fixable input problem.
type ValidationError struct {
	Code string
	msg  string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func NewValidationError(code, msg string) error {
	return &ValidationError{Code: code, msg: msg}
}
