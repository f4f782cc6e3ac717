package appointments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
)

// FreeConsultationID is the category every consumer booking uses.
const FreeConsultationID = "free-consultation"

const fallbackCategoryLabel = "Consultation"

// Category is an advisor-configurable appointment type.
type Category struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Duration    int    `json:"duration_minutes"`
	Enabled     bool   `json:"enabled"`
}

// DefaultCategories returns a fresh copy of the built-in set.
func DefaultCategories() []Category {
	return []Category{
		{ID: FreeConsultationID, Label: "Free Consultation", Description: "Introductory call to see if you are a good fit", Duration: 30, Enabled: true},
		{ID: "financial-review", Label: "Financial Review", Description: "Review of your current financial position", Duration: 60, Enabled: true},
		{ID: "retirement-planning", Label: "Retirement Planning", Description: "Plan savings and income for retirement", Duration: 60, Enabled: true},
		{ID: "investment-strategy", Label: "Investment Strategy", Description: "Portfolio allocation and investment goals", Duration: 45, Enabled: true},
		{ID: "tax-planning", Label: "Tax Planning", Description: "Strategies to reduce your tax burden", Duration: 45, Enabled: true},
	}
}

// ResolveCategoryLabel finds the label for id; unknown ids render as "Consultation".
func ResolveCategoryLabel(categories []Category, id string) string {
	for _, c := range categories {
		if c.ID == id {
			return c.Label
		}
	}
	return fallbackCategoryLabel
}

// CategoryEdit is a partial update; nil fields are left unchanged.
type CategoryEdit struct {
	Label       *string `json:"label,omitempty"`
	Description *string `json:"description,omitempty"`
	Duration    *int    `json:"duration_minutes,omitempty"`
}

func (e CategoryEdit) apply(c Category) (Category, error) {
	if e.Label != nil {
		label := strings.TrimSpace(*e.Label)
		if label == "" {
			return c, fmt.Errorf("%w: label is required", ErrInvalidCategory)
		}
		c.Label = label
	}
	if e.Description != nil {
		c.Description = strings.TrimSpace(*e.Description)
	}
	if e.Duration != nil {
		if *e.Duration < 15 || *e.Duration > 240 {
			return c, fmt.Errorf("%w: duration must be between 15 and 240 minutes", ErrInvalidCategory)
		}
		c.Duration = *e.Duration
	}
	return c, nil
}

// CategoryStore persists per-advisor category lists. Advisors with no stored
// list get the defaults.
type CategoryStore interface {
	List(ctx context.Context, advisorID string) ([]Category, error)
	Update(ctx context.Context, advisorID string, fn func([]Category) ([]Category, error)) ([]Category, error)
}

// Categories applies edits to an advisor's category list.
type Categories struct {
	store CategoryStore
}

func NewCategories(store CategoryStore) *Categories {
	if store == nil {
		store = NewMemoryCategoryStore()
	}
	return &Categories{store: store}
}

func (c *Categories) List(ctx context.Context, advisorID string) ([]Category, error) {
	return c.store.List(ctx, advisorID)
}

// Toggle flips Enabled. Categories are never deleted.
func (c *Categories) Toggle(ctx context.Context, advisorID, categoryID string) ([]Category, error) {
	return c.store.Update(ctx, advisorID, func(list []Category) ([]Category, error) {
		for i := range list {
			if list[i].ID == categoryID {
				list[i].Enabled = !list[i].Enabled
				return list, nil
			}
		}
		return nil, ErrCategoryNotFound
	})
}

// Edit updates label, description or duration.
func (c *Categories) Edit(ctx context.Context, advisorID, categoryID string, edit CategoryEdit) ([]Category, error) {
	return c.store.Update(ctx, advisorID, func(list []Category) ([]Category, error) {
		for i := range list {
			if list[i].ID != categoryID {
				continue
			}
			updated, err := edit.apply(list[i])
			if err != nil {
				return nil, err
			}
			list[i] = updated
			return list, nil
		}
		return nil, ErrCategoryNotFound
	})
}

// Reset restores the defaults.
func (c *Categories) Reset(ctx context.Context, advisorID string) ([]Category, error) {
	return c.store.Update(ctx, advisorID, func([]Category) ([]Category, error) {
		return DefaultCategories(), nil
	})
}

// MemoryCategoryStore keeps category lists in process memory.
type MemoryCategoryStore struct {
	mu    sync.Mutex
	lists map[string][]Category
}

func NewMemoryCategoryStore() *MemoryCategoryStore {
	return &MemoryCategoryStore{lists: make(map[string][]Category)}
}

func (s *MemoryCategoryStore) List(ctx context.Context, advisorID string) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(advisorID), nil
}

func (s *MemoryCategoryStore) Update(ctx context.Context, advisorID string, fn func([]Category) ([]Category, error)) ([]Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := fn(s.current(advisorID))
	if err != nil {
		return nil, err
	}
	s.lists[advisorID] = append([]Category(nil), next...)
	return append([]Category(nil), next...), nil
}

func (s *MemoryCategoryStore) current(advisorID string) []Category {
	list, ok := s.lists[advisorID]
	if !ok {
		return DefaultCategories()
	}
	return append([]Category(nil), list...)
}

const (
	categoryKeyPrefix  = "advisormatch:categories"
	maxCategoryRetries = 5
)

// RedisCategoryStore keeps each advisor's list as one JSON value and uses
// WATCH for optimistic concurrency.
type RedisCategoryStore struct {
	client *redis.Client
}

func NewRedisCategoryStore(client *redis.Client) *RedisCategoryStore {
	if client == nil {
		panic("appointments: redis client required")
	}
	return &RedisCategoryStore{client: client}
}

func (s *RedisCategoryStore) key(advisorID string) string {
	return fmt.Sprintf("%s:%s", categoryKeyPrefix, advisorID)
}

func (s *RedisCategoryStore) List(ctx context.Context, advisorID string) ([]Category, error) {
	return s.read(ctx, s.client, advisorID)
}

func (s *RedisCategoryStore) Update(ctx context.Context, advisorID string, fn func([]Category) ([]Category, error)) ([]Category, error) {
	key := s.key(advisorID)
	var result []Category
	txf := func(tx *redis.Tx) error {
		current, err := s.read(ctx, tx, advisorID)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("appointments: marshal categories: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			result = next
		}
		return err
	}

	for i := 0; i < maxCategoryRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("appointments: categories for %s changed concurrently", advisorID)
}

type redisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *RedisCategoryStore) read(ctx context.Context, c redisGetter, advisorID string) ([]Category, error) {
	data, err := c.Get(ctx, s.key(advisorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return DefaultCategories(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("appointments: get categories: %w", err)
	}
	var list []Category
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("appointments: unmarshal categories: %w", err)
	}
	return list, nil
}
