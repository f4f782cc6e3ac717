package availability

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Editor validates and applies changes to one advisor's weekly slot list.
// It is pure: callers own persistence and locking.
type Editor struct {
	policy OverlapPolicy
	newID  func() string
	now    func() time.Time
}

// EditorOption configures an Editor.
type EditorOption func(*Editor)

// WithOverlapPolicy switches between inclusive and half-open boundaries.
func WithOverlapPolicy(p OverlapPolicy) EditorOption {
	return func(e *Editor) { e.policy = p }
}

// WithIDGenerator overrides slot id generation (tests).
func WithIDGenerator(fn func() string) EditorOption {
	return func(e *Editor) {
		if fn != nil {
			e.newID = fn
		}
	}
}

// WithClock overrides the creation timestamp source (tests).
func WithClock(fn func() time.Time) EditorOption {
	return func(e *Editor) {
		if fn != nil {
			e.now = fn
		}
	}
}

func NewEditor(opts ...EditorOption) *Editor {
	e := &Editor{
		policy: OverlapInclusive,
		newID:  newSlotID,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func newSlotID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// AddResult is the outcome of a successful Add.
type AddResult struct {
	Slot      TimeSlot   `json:"slot"`
	Slots     []TimeSlot `json:"slots"`
	NextDraft Draft      `json:"next_draft"`
}

// Validate normalises a draft and checks it against existing slots.
func (e *Editor) Validate(existing []TimeSlot, draft Draft) (Day, string, string, error) {
	dayRaw := strings.TrimSpace(draft.Day)
	start := strings.TrimSpace(draft.StartTime)
	end := strings.TrimSpace(draft.EndTime)
	if dayRaw == "" || start == "" || end == "" {
		return "", "", "", ErrMissingFields
	}
	day, err := ParseDay(dayRaw)
	if err != nil {
		return "", "", "", err
	}
	if _, err := ParseClock(start); err != nil {
		return "", "", "", err
	}
	if _, err := ParseClock(end); err != nil {
		return "", "", "", err
	}
	if start >= end {
		return "", "", "", ErrInvalidRange
	}
	for _, s := range existing {
		if s.Day != day {
			continue
		}
		if e.policy.Overlaps(s.StartTime, s.EndTime, start, end) {
			return "", "", "", &OverlapError{Day: day, Start: start, End: end, Existing: s}
		}
	}
	return day, start, end, nil
}

// Add appends a new available slot. On rejection the existing list is untouched
// and the caller should keep the draft for correction.
func (e *Editor) Add(advisorID string, existing []TimeSlot, draft Draft) (AddResult, error) {
	day, start, end, err := e.Validate(existing, draft)
	if err != nil {
		return AddResult{}, err
	}
	slot := TimeSlot{
		ID:          e.newID(),
		AdvisorID:   advisorID,
		Day:         day,
		StartTime:   start,
		EndTime:     end,
		IsAvailable: true,
		CreatedAt:   e.now(),
	}
	out := make([]TimeSlot, 0, len(existing)+1)
	out = append(out, existing...)
	out = append(out, slot)
	return AddResult{Slot: slot, Slots: out, NextDraft: NextDraft(slot)}, nil
}

// Remove drops the slot with the given id.
func (e *Editor) Remove(existing []TimeSlot, slotID string) ([]TimeSlot, error) {
	out := make([]TimeSlot, 0, len(existing))
	found := false
	for _, s := range existing {
		if s.ID == slotID {
			found = true
			continue
		}
		out = append(out, s)
	}
	if !found {
		return existing, ErrSlotNotFound
	}
	return out, nil
}

// NextDraft prefills the form after an add: same day, starting where the
// last slot ended, one hour long, never past 23:59.
func NextDraft(last TimeSlot) Draft {
	endMin, err := ParseClock(last.EndTime)
	if err != nil {
		return Draft{Day: string(last.Day)}
	}
	return Draft{
		Day:       string(last.Day),
		StartTime: last.EndTime,
		EndTime:   ClockFromMinutes(endMin + 60),
	}
}
