package leads

import "errors"

var (
	// ErrLeadNotFound is returned when a lead is not found
	ErrLeadNotFound = errors.New("lead not found")

	// ErrInvalidStatus is returned for unknown lead statuses
	ErrInvalidStatus = errors.New("unknown lead status")

	// ErrMissingParticipants is returned when advisor or consumer is blank
	ErrMissingParticipants = errors.New("advisor and consumer are required")

	// ErrForbidden is returned when the caller cannot see or change the lead
	ErrForbidden = errors.New("you are not allowed to manage these leads")
)
