package availability

import "time"

// TimeSlot is a weekly-recurring availability window owned by one advisor.
type TimeSlot struct {
	ID          string    `json:"id"`
	AdvisorID   string    `json:"advisor_id"`
	Day         Day       `json:"day"`
	StartTime   string    `json:"start_time"` // "09:00"
	EndTime     string    `json:"end_time"`   // "10:00"
	IsAvailable bool      `json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
}

// Label is the 12-hour display form used by the booking view.
func (s TimeSlot) Label() string {
	return FormatRange12Must(s.StartTime, s.EndTime)
}

// Draft is the add-slot form as submitted by the advisor.
type Draft struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// OverlapPolicy decides whether slots sharing a boundary minute collide.
type OverlapPolicy int

const (
	// OverlapInclusive treats 09:00-10:00 and 10:00-11:00 as overlapping.
	OverlapInclusive OverlapPolicy = iota
	// OverlapHalfOpen lets back-to-back slots share a boundary.
	OverlapHalfOpen
)

// Overlaps compares two same-day ranges. Lexicographic comparison is valid
// because every stored time is zero-padded HH:MM.
func (p OverlapPolicy) Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	if p == OverlapHalfOpen {
		return aStart < bEnd && bStart < aEnd
	}
	return aStart <= bEnd && bStart <= aEnd
}
