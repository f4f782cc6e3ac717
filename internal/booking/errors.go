package booking

import (
	"errors"

	"github.com/wolfman30/advisor-match/internal/appointments"
)

// Each error aborts the action before anything is stored. The messages are
// shown to the consumer as-is.
var (
	ErrNoSlotSelected    = errors.New("please select a time slot")
	ErrNotAuthenticated  = errors.New("please sign in as a consumer to continue")
	ErrProfileIncomplete = errors.New("please complete your profile before booking")
	ErrInvalidDate       = errors.New("date must be YYYY-MM-DD")
	ErrDateInPast        = errors.New("that date has already passed")
	ErrDateOutOfRange    = errors.New("that date is not open for booking yet")
	ErrSlotStarted       = errors.New("that time has already started")
	ErrSlotNotOffered    = errors.New("the advisor does not offer that time")
	ErrSlotTaken         = appointments.ErrSlotTaken
	ErrAdvisorNotFound   = errors.New("advisor not found")
	ErrChatDisabled      = errors.New("chat is not available for this advisor")
)

// IsPrerequisite reports errors caused by the caller's state rather than the
// request itself.
func IsPrerequisite(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrProfileIncomplete) || errors.Is(err, ErrChatDisabled)
}
