package chat

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Store persists chats and their messages.
type Store interface {
	// FindOrCreate returns the pair's chat, creating it at most once.
	FindOrCreate(ctx context.Context, candidate Chat) (Chat, bool, error)
	Get(ctx context.Context, chatID string) (Chat, error)
	ListForUser(ctx context.Context, userID string) ([]Chat, error)
	Append(ctx context.Context, msg Message) error
	Messages(ctx context.Context, chatID string, limit int64) ([]Message, error)
}

// MemoryStore keeps chats in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	chats    map[string]Chat
	pairs    map[[2]string]string
	messages map[string][]Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		chats:    make(map[string]Chat),
		pairs:    make(map[[2]string]string),
		messages: make(map[string][]Message),
	}
}

func (s *MemoryStore) FindOrCreate(ctx context.Context, candidate Chat) (Chat, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [2]string{candidate.ConsumerID, candidate.AdvisorID}
	if id, ok := s.pairs[key]; ok {
		return s.chats[id], false, nil
	}
	s.chats[candidate.ID] = candidate
	s.pairs[key] = candidate.ID
	return candidate, true, nil
}

func (s *MemoryStore) Get(ctx context.Context, chatID string) (Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[chatID]
	if !ok {
		return Chat{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListForUser(ctx context.Context, userID string) ([]Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []Chat{}
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, c)
		}
	}
	sortRecent(out)
	return out, nil
}

func (s *MemoryStore) Append(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[msg.ChatID]
	if !ok {
		return ErrNotFound
	}
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], msg)
	if msg.CreatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = msg.CreatedAt
		s.chats[c.ID] = c
	}
	return nil
}

func (s *MemoryStore) Messages(ctx context.Context, chatID string, limit int64) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.messages[chatID]
	if limit > 0 && int64(len(all)) > limit {
		all = all[int64(len(all))-limit:]
	}
	return append([]Message{}, all...), nil
}

func sortRecent(chats []Chat) {
	sort.Slice(chats, func(i, j int) bool {
		if chats[i].UpdatedAt.Equal(chats[j].UpdatedAt) {
			return chats[i].ID < chats[j].ID
		}
		return chats[i].UpdatedAt.After(chats[j].UpdatedAt)
	})
}

func score(t time.Time) float64 {
	return float64(t.UnixMilli())
}
