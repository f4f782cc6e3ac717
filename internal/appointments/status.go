package appointments

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

// transitions is the only place legal status changes are defined.
var transitions = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
}

// ParseStatus normalises input; the US spelling "canceled" is accepted.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "confirmed":
		return StatusConfirmed, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Active reports whether the appointment still holds its time.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// TransitionError describes a rejected status change.
type TransitionError struct {
	From Status
	To   Status
}

func (e *TransitionError) Error() string {
	if e.From.Terminal() {
		return fmt.Sprintf("appointment is already %s and cannot be changed", e.From)
	}
	return fmt.Sprintf("cannot change appointment from %s to %s", e.From, e.To)
}

// Is lets errors.Is(err, ErrIllegalTransition) match.
func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

// NextStatus validates a requested change and returns the new status.
func NextStatus(current, requested Status) (Status, error) {
	for _, next := range transitions[current] {
		if next == requested {
			return requested, nil
		}
	}
	return current, &TransitionError{From: current, To: requested}
}

// AllowedNext lists the statuses reachable from current.
func AllowedNext(current Status) []Status {
	out := make([]Status, len(transitions[current]))
	copy(out, transitions[current])
	return out
}
