package chat

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/internal/leads"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// TopicMessages is the realtime topic new chat messages are pushed on.
const TopicMessages = "chat_messages"

// Broadcaster pushes a record to the listed users' realtime subscriptions.
type Broadcaster interface {
	Publish(topic, eventType string, record any, userIDs ...string)
}

// LeadToucher records advisor replies in the lead pipeline.
type LeadToucher interface {
	Touch(ctx context.Context, req leads.TouchRequest) (*leads.Lead, error)
}

// Thread is a chat together with its most recent messages.
type Thread struct {
	Chat     Chat      `json:"chat"`
	Messages []Message `json:"messages"`
}

type Service struct {
	store        Store
	broadcaster  Broadcaster
	leads        LeadToucher
	logger       *logging.Logger
	now          func() time.Time
	historyLimit int64
}

type Option func(*Service)

func WithBroadcaster(b Broadcaster) Option { return func(s *Service) { s.broadcaster = b } }
func WithLeads(l LeadToucher) Option       { return func(s *Service) { s.leads = l } }

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store Store, logger *logging.Logger, opts ...Option) *Service {
	if store == nil {
		panic("chat: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:        store,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
		historyLimit: 200,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FindOrCreate returns the consumer/advisor pair's chat. Repeated calls for
// the same pair return the same chat.
func (s *Service) FindOrCreate(ctx context.Context, consumerID, advisorID string) (Chat, error) {
	if strings.TrimSpace(consumerID) == "" || strings.TrimSpace(advisorID) == "" {
		return Chat{}, fmt.Errorf("chat: consumer and advisor are required")
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Chat{}, fmt.Errorf("chat: new id: %w", err)
	}
	now := s.now()
	c, created, err := s.store.FindOrCreate(ctx, Chat{
		ID:         id.String(),
		ConsumerID: consumerID,
		AdvisorID:  advisorID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Chat{}, err
	}
	if created {
		s.logger.Info("chat opened", "chat_id", c.ID, "consumer_id", consumerID, "advisor_id", advisorID)
	}
	return c, nil
}

// List returns the caller's chats, most recently active first.
func (s *Service) List(ctx context.Context, who identity.Identity) ([]Chat, error) {
	return s.store.ListForUser(ctx, who.UserID)
}

// Get returns a chat and its history. Non-participants get ErrNotFound.
func (s *Service) Get(ctx context.Context, who identity.Identity, chatID string) (Thread, error) {
	c, err := s.store.Get(ctx, chatID)
	if err != nil {
		return Thread{}, err
	}
	if !c.HasParticipant(who.UserID) {
		return Thread{}, ErrNotFound
	}
	msgs, err := s.store.Messages(ctx, chatID, s.historyLimit)
	if err != nil {
		return Thread{}, err
	}
	return Thread{Chat: c, Messages: msgs}, nil
}

// Post appends a message from the caller and pushes it to both participants.
func (s *Service) Post(ctx context.Context, who identity.Identity, chatID, body string) (Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Message{}, ErrEmptyMessage
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return Message{}, ErrTooLong
	}
	c, err := s.store.Get(ctx, chatID)
	if err != nil {
		return Message{}, err
	}
	if !c.HasParticipant(who.UserID) {
		return Message{}, ErrNotFound
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Message{}, fmt.Errorf("chat: new id: %w", err)
	}
	msg := Message{
		ID:        id.String(),
		ChatID:    c.ID,
		SenderID:  who.UserID,
		Body:      body,
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, msg); err != nil {
		return Message{}, err
	}
	if s.broadcaster != nil {
		s.broadcaster.Publish(TopicMessages, "INSERT", msg, c.ConsumerID, c.AdvisorID)
	}
	if s.leads != nil && who.UserID == c.AdvisorID {
		if _, err := s.leads.Touch(ctx, leads.TouchRequest{
			AdvisorID:  c.AdvisorID,
			ConsumerID: c.ConsumerID,
			Source:     leads.SourceMessage,
			Status:     leads.StatusContacted,
		}); err != nil {
			s.logger.Warn("failed to record lead contact", "chat_id", c.ID, "error", err)
		}
	}
	return msg, nil
}
