package leads

import (
	"fmt"
	"strings"
	"time"
)

// Status tracks where a consumer is in an advisor's pipeline.
type Status string

const (
	StatusNew                  Status = "new"
	StatusContacted            Status = "contacted"
	StatusAppointmentRequested Status = "appointment_requested"
	StatusConverted            Status = "converted"
	StatusLost                 Status = "lost"
)

// progression orders the open statuses; lost sits outside it.
var progression = []string{
	string(StatusNew),
	string(StatusContacted),
	string(StatusAppointmentRequested),
	string(StatusConverted),
}

// ParseStatus validates a status name.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusNew, StatusContacted, StatusAppointmentRequested, StatusConverted, StatusLost:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

func (s Status) rank() int {
	for i, p := range progression {
		if string(s) == p {
			return i
		}
	}
	return -1
}

// Advance returns the status after an interaction that implies next.
// Open leads only move forward; lost leads reopen.
func (s Status) Advance(next Status) Status {
	if s == "" || s == StatusLost || s.rank() < next.rank() {
		return next
	}
	return s
}

// Source records what created the lead.
type Source string

const (
	SourceMatch   Source = "match"
	SourceBooking Source = "booking"
	SourceMessage Source = "message"
)

// Lead is a consumer an advisor may convert into a client.
type Lead struct {
	ID         string    `json:"id"`
	AdvisorID  string    `json:"advisor_id"`
	ConsumerID string    `json:"consumer_id"`
	Status     Status    `json:"status"`
	Source     Source    `json:"source"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TouchRequest records an interaction between a consumer and an advisor.
type TouchRequest struct {
	AdvisorID  string
	ConsumerID string
	Source     Source
	Status     Status
}

// Validate validates the touch request
func (r TouchRequest) Validate() error {
	if strings.TrimSpace(r.AdvisorID) == "" || strings.TrimSpace(r.ConsumerID) == "" {
		return ErrMissingParticipants
	}
	if _, err := ParseStatus(string(r.Status)); err != nil {
		return err
	}
	return nil
}

// ListLeadsFilter narrows ListByAdvisor.
type ListLeadsFilter struct {
	Status Status
	Limit  int
	Offset int
}
