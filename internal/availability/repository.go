package availability

import (
	"context"
	"sync"
)

// UpdateFunc receives the advisor's current slots and returns the new list.
// Returning an error aborts the update and leaves storage untouched.
type UpdateFunc func(current []TimeSlot) ([]TimeSlot, error)

// Repository persists weekly availability per advisor.
type Repository interface {
	List(ctx context.Context, advisorID string) ([]TimeSlot, error)
	// Update applies fn atomically with respect to other updates of the same advisor.
	Update(ctx context.Context, advisorID string, fn UpdateFunc) ([]TimeSlot, error)
}

// InMemoryRepository keeps slots in process memory.
type InMemoryRepository struct {
	mu    sync.RWMutex
	slots map[string][]TimeSlot
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{slots: make(map[string][]TimeSlot)}
}

func (r *InMemoryRepository) List(ctx context.Context, advisorID string) ([]TimeSlot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneSlots(r.slots[advisorID]), nil
}

func (r *InMemoryRepository) Update(ctx context.Context, advisorID string, fn UpdateFunc) ([]TimeSlot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := fn(cloneSlots(r.slots[advisorID]))
	if err != nil {
		return nil, err
	}
	r.slots[advisorID] = cloneSlots(next)
	return cloneSlots(next), nil
}

func cloneSlots(in []TimeSlot) []TimeSlot {
	out := make([]TimeSlot, len(in))
	copy(out, in)
	return out
}
