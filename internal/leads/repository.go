package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	// Touch creates the (advisor, consumer) lead or advances its status.
	Touch(ctx context.Context, req TouchRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	ListByAdvisor(ctx context.Context, advisorID string, filter ListLeadsFilter) ([]*Lead, error)
	UpdateStatus(ctx context.Context, id string, status Status, notes *string) (*Lead, error)
}

// InMemoryRepository keeps leads in process memory.
type InMemoryRepository struct {
	mu     sync.RWMutex
	leads  map[string]*Lead
	byPair map[[2]string]string
	now    func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:  make(map[string]*Lead),
		byPair: make(map[[2]string]string),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Touch(ctx context.Context, req TouchRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	key := [2]string{req.AdvisorID, req.ConsumerID}
	if id, ok := r.byPair[key]; ok {
		lead := r.leads[id]
		lead.Status = lead.Status.Advance(req.Status)
		lead.UpdatedAt = now
		out := *lead
		return &out, nil
	}

	lead := &Lead{
		ID:         uuid.New().String(),
		AdvisorID:  req.AdvisorID,
		ConsumerID: req.ConsumerID,
		Status:     req.Status,
		Source:     req.Source,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.leads[lead.ID] = lead
	r.byPair[key] = lead.ID
	out := *lead
	return &out, nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	out := *lead
	return &out, nil
}

func (r *InMemoryRepository) ListByAdvisor(ctx context.Context, advisorID string, filter ListLeadsFilter) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Lead
	for _, lead := range r.leads {
		if lead.AdvisorID != advisorID {
			continue
		}
		if filter.Status != "" && lead.Status != filter.Status {
			continue
		}
		cp := *lead
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	if filter.Offset >= len(out) {
		return []*Lead{}, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *InMemoryRepository) UpdateStatus(ctx context.Context, id string, status Status, notes *string) (*Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	lead.Status = status
	if notes != nil {
		lead.Notes = *notes
	}
	lead.UpdatedAt = r.now()
	out := *lead
	return &out, nil
}
