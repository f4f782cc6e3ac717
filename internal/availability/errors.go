package availability

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingFields is returned when day, start or end is blank
	ErrMissingFields = errors.New("please fill in the day, start time and end time")

	// ErrInvalidDay is returned for anything other than a weekday name
	ErrInvalidDay = errors.New("day must be a weekday name such as monday")

	// ErrInvalidTime is returned when a time is not zero-padded 24-hour HH:MM
	ErrInvalidTime = errors.New("times must use the 24-hour HH:MM format")

	// ErrInvalidRange is returned when the end time is not after the start time
	ErrInvalidRange = errors.New("end time must be after start time")

	// ErrSlotOverlap is matched by every OverlapError
	ErrSlotOverlap = errors.New("time slot overlaps an existing slot")

	// ErrSlotNotFound is returned when removing an unknown slot id
	ErrSlotNotFound = errors.New("time slot not found")

	// ErrWeekOutOfRange is returned when a week offset exceeds the lookahead window
	ErrWeekOutOfRange = errors.New("that week is not open for booking yet")

	// ErrForbidden is returned when the caller may not edit the advisor's availability
	ErrForbidden = errors.New("only the advisor can edit this availability")
)

// OverlapError names the existing slot a rejected draft collided with.
type OverlapError struct {
	Day      Day
	Start    string
	End      string
	Existing TimeSlot
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s %s-%s overlaps the existing %s slot",
		e.Day.Title(), e.Start, e.End, FormatRange12Must(e.Existing.StartTime, e.Existing.EndTime))
}

// Is lets errors.Is(err, ErrSlotOverlap) match.
func (e *OverlapError) Is(target error) bool {
	return target == ErrSlotOverlap
}

// IsValidation reports whether err is a user-correctable editor rejection.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMissingFields) ||
		errors.Is(err, ErrInvalidDay) ||
		errors.Is(err, ErrInvalidTime) ||
		errors.Is(err, ErrInvalidRange) ||
		errors.Is(err, ErrSlotOverlap)
}
