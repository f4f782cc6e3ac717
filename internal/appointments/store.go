package appointments

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DecideFunc picks the new status for the current record, or rejects the change.
type DecideFunc func(current Appointment) (Status, error)

// EventFunc builds the outbox event for a change the store is about to
// commit. prev is empty on create.
type EventFunc func(appt Appointment, prev Status) Event

// EventRecorder appends events for asynchronous delivery.
type EventRecorder interface {
	Insert(ctx context.Context, aggregateID, eventType string, payload any) (uuid.UUID, error)
}

// Store persists appointments. Records are never deleted. When emit is not
// nil its event is written atomically with the change: a failed event write
// leaves the appointment untouched.
type Store interface {
	// Create inserts appt after guard accepted the advisor's same-day appointments.
	Create(ctx context.Context, appt Appointment, guard Guard, emit EventFunc) error
	Get(ctx context.Context, id string) (Appointment, error)
	// UpdateStatus changes only status and updated_at, atomically per record.
	// It returns the updated appointment and the status it replaced.
	UpdateStatus(ctx context.Context, id string, decide DecideFunc, at time.Time, emit EventFunc) (Appointment, Status, error)
	ListByAdvisor(ctx context.Context, advisorID string) ([]Appointment, error)
	ListByConsumer(ctx context.Context, consumerID string) ([]Appointment, error)
}

// MemoryStore keeps appointments in process memory. Events go to the
// recorder set with WithOutbox, under the same lock as the change.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]Appointment
	order  []string
	outbox EventRecorder
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]Appointment)}
}

// WithOutbox records emitted events in r.
func (s *MemoryStore) WithOutbox(r EventRecorder) *MemoryStore {
	s.outbox = r
	return s
}

func (s *MemoryStore) emit(ctx context.Context, emit EventFunc, appt Appointment, prev Status) error {
	if emit == nil || s.outbox == nil {
		return nil
	}
	evt := emit(appt, prev)
	if _, err := s.outbox.Insert(ctx, appt.ID, evt.Type, evt); err != nil {
		return fmt.Errorf("appointments: record event: %w", err)
	}
	return nil
}

func (s *MemoryStore) Create(ctx context.Context, appt Appointment, guard Guard, emit EventFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if guard != nil {
		var sameDay []Appointment
		for _, id := range s.order {
			a := s.byID[id]
			if a.AdvisorID == appt.AdvisorID && a.Date == appt.Date {
				sameDay = append(sameDay, a)
			}
		}
		if err := guard(sameDay); err != nil {
			return err
		}
	}
	if err := s.emit(ctx, emit, appt, ""); err != nil {
		return err
	}
	s.byID[appt.ID] = appt
	s.order = append(s.order, appt.ID)
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.byID[id]
	if !ok {
		return Appointment{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, decide DecideFunc, at time.Time, emit EventFunc) (Appointment, Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return Appointment{}, "", ErrNotFound
	}
	next, err := decide(a)
	if err != nil {
		return Appointment{}, "", err
	}
	prev := a.Status
	a.Status = next
	a.UpdatedAt = at
	if err := s.emit(ctx, emit, a, prev); err != nil {
		return Appointment{}, "", err
	}
	s.byID[id] = a
	return a, prev, nil
}

func (s *MemoryStore) ListByAdvisor(ctx context.Context, advisorID string) ([]Appointment, error) {
	return s.filter(func(a Appointment) bool { return a.AdvisorID == advisorID }), nil
}

func (s *MemoryStore) ListByConsumer(ctx context.Context, consumerID string) ([]Appointment, error) {
	return s.filter(func(a Appointment) bool { return a.ConsumerID == consumerID }), nil
}

func (s *MemoryStore) filter(keep func(Appointment) bool) []Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Appointment{}
	for _, id := range s.order {
		if a := s.byID[id]; keep(a) {
			out = append(out, a)
		}
	}
	return out
}

// SortChronological orders by date then start time.
func SortChronological(appts []Appointment) {
	sort.SliceStable(appts, func(i, j int) bool {
		if appts[i].Date != appts[j].Date {
			return appts[i].Date < appts[j].Date
		}
		return appts[i].StartTime < appts[j].StartTime
	})
}
