package appointments

import "errors"

var (
	// ErrNotFound is returned for unknown appointment ids and appointments the caller cannot see
	ErrNotFound = errors.New("appointment not found")

	// ErrForbidden is returned when the caller may not perform the action
	ErrForbidden = errors.New("you are not allowed to change this appointment")

	// ErrIllegalTransition is matched by every TransitionError
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrInvalidStatus is returned for unknown status names
	ErrInvalidStatus = errors.New("unknown appointment status")

	// ErrInvalidAppointment is returned when a new appointment is missing required data
	ErrInvalidAppointment = errors.New("invalid appointment")

	// ErrSlotTaken is returned when an active appointment already holds the time
	ErrSlotTaken = errors.New("that time has already been requested")

	// ErrCategoryNotFound is returned for unknown category ids
	ErrCategoryNotFound = errors.New("category not found")

	// ErrInvalidCategory is returned when a category edit is rejected
	ErrInvalidCategory = errors.New("invalid category")

	// ErrInvalidFilter is returned for unknown list filters
	ErrInvalidFilter = errors.New("invalid appointment filter")
)
