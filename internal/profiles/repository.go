package profiles

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wolfman30/advisor-match/internal/identity"
)

// Repository persists profiles.
type Repository interface {
	Get(ctx context.Context, id string) (Profile, error)
	Upsert(ctx context.Context, p Profile) (Profile, error)
	ListAdvisors(ctx context.Context, query string) ([]Profile, error)
}

// InMemoryRepository keeps profiles in process memory.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]Profile
	now      func() time.Time
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]Profile),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (r *InMemoryRepository) Get(ctx context.Context, id string) (Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.profiles[id]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (r *InMemoryRepository) Upsert(ctx context.Context, p Profile) (Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if existing, ok := r.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	} else {
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	r.profiles[p.ID] = p
	return p, nil
}

func (r *InMemoryRepository) ListAdvisors(ctx context.Context, query string) ([]Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	q := strings.ToLower(strings.TrimSpace(query))
	out := []Profile{}
	for _, p := range r.profiles {
		if p.Type != identity.Advisor {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(p.Name+" "+p.Headline), q) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
