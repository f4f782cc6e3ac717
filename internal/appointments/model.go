package appointments

import (
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/advisor-match/internal/availability"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
)

// Appointment is a booked meeting between a consumer and an advisor.
type Appointment struct {
	ID         string    `json:"id"`
	AdvisorID  string    `json:"advisor_id"`
	ConsumerID string    `json:"consumer_id"`
	CategoryID string    `json:"category_id"`
	Title      string    `json:"title"`
	Date       string    `json:"date"`       // "2026-03-02"
	StartTime  string    `json:"start_time"` // "09:00"
	EndTime    string    `json:"end_time"`
	Status     Status    `json:"status"`
	Notes      string    `json:"notes,omitempty"`
	Location   string    `json:"location,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StartAt is the start instant interpreted in loc.
func (a Appointment) StartAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dateTimeLayout, a.Date+" "+a.StartTime, loc)
}

// TimeLabel is the 12-hour range shown in lists.
func (a Appointment) TimeLabel() string {
	return availability.FormatRange12Must(a.StartTime, a.EndTime)
}

// HasParticipant reports whether userID is the consumer or the advisor.
func (a Appointment) HasParticipant(userID string) bool {
	return userID != "" && (a.AdvisorID == userID || a.ConsumerID == userID)
}

// Counterpart returns the other participant.
func (a Appointment) Counterpart(userID string) string {
	if userID == a.AdvisorID {
		return a.ConsumerID
	}
	return a.AdvisorID
}

// overlaps uses half-open ranges: back-to-back appointments do not collide.
func (a Appointment) overlaps(date, start, end string) bool {
	return a.Date == date && a.StartTime < end && start < a.EndTime
}

// NewAppointment is the input to Service.Create.
type NewAppointment struct {
	AdvisorID  string
	ConsumerID string
	CategoryID string
	Title      string
	Date       string
	StartTime  string
	EndTime    string
	Notes      string
	Location   string
}

// Validate checks required fields and formats.
func (n NewAppointment) Validate() error {
	if strings.TrimSpace(n.AdvisorID) == "" || strings.TrimSpace(n.ConsumerID) == "" {
		return fmt.Errorf("%w: advisor and consumer are required", ErrInvalidAppointment)
	}
	if strings.TrimSpace(n.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidAppointment)
	}
	if _, err := time.Parse(dateLayout, n.Date); err != nil {
		return fmt.Errorf("%w: date must be YYYY-MM-DD", ErrInvalidAppointment)
	}
	if _, err := availability.ParseClock(n.StartTime); err != nil {
		return fmt.Errorf("%w: start time must be HH:MM", ErrInvalidAppointment)
	}
	if _, err := availability.ParseClock(n.EndTime); err != nil {
		return fmt.Errorf("%w: end time must be HH:MM", ErrInvalidAppointment)
	}
	if n.StartTime >= n.EndTime {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidAppointment)
	}
	return nil
}

// Guard inspects the advisor's appointments on the same date before an insert.
type Guard func(sameDay []Appointment) error

// NoOverlap rejects the insert when an active appointment overlaps start-end.
func NoOverlap(date, start, end string) Guard {
	return func(sameDay []Appointment) error {
		for _, a := range sameDay {
			if a.Status.Active() && a.overlaps(date, start, end) {
				return ErrSlotTaken
			}
		}
		return nil
	}
}
