package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const chatKeyPrefix = "advisormatch:chat:"

// RedisStore keeps chats as JSON values, per-user chat indexes as sorted sets
// scored by last activity, and messages as capped lists.
type RedisStore struct {
	redis       *redis.Client
	tracer      trace.Tracer
	maxMessages int64
}

func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("chat: redis client required")
	}
	return &RedisStore{
		redis:       client,
		tracer:      otel.Tracer("advisormatch.internal.chat.redis"),
		maxMessages: 500,
	}
}

func chatKey(id string) string                    { return chatKeyPrefix + id }
func pairKey(consumerID, advisorID string) string { return chatKeyPrefix + "pair:" + consumerID + ":" + advisorID }
func userKey(userID string) string                { return chatKeyPrefix + "user:" + userID }
func messagesKey(id string) string                { return chatKeyPrefix + id + ":messages" }

// FindOrCreate writes the candidate record first and only then claims the
// pair key with SETNX, so a losing writer always finds the winner's record.
func (s *RedisStore) FindOrCreate(ctx context.Context, candidate Chat) (Chat, bool, error) {
	ctx, span := s.tracer.Start(ctx, "chat.find_or_create")
	defer span.End()

	pk := pairKey(candidate.ConsumerID, candidate.AdvisorID)
	if existingID, err := s.redis.Get(ctx, pk).Result(); err == nil {
		c, err := s.Get(ctx, existingID)
		return c, false, err
	} else if !errors.Is(err, redis.Nil) {
		span.RecordError(err)
		return Chat{}, false, fmt.Errorf("chat: lookup pair: %w", err)
	}

	data, err := json.Marshal(candidate)
	if err != nil {
		return Chat{}, false, fmt.Errorf("chat: marshal: %w", err)
	}
	if err := s.redis.Set(ctx, chatKey(candidate.ID), data, 0).Err(); err != nil {
		span.RecordError(err)
		return Chat{}, false, fmt.Errorf("chat: store chat: %w", err)
	}
	claimed, err := s.redis.SetNX(ctx, pk, candidate.ID, 0).Result()
	if err != nil {
		span.RecordError(err)
		return Chat{}, false, fmt.Errorf("chat: claim pair: %w", err)
	}
	if !claimed {
		_ = s.redis.Del(ctx, chatKey(candidate.ID)).Err()
		winnerID, err := s.redis.Get(ctx, pk).Result()
		if err != nil {
			return Chat{}, false, fmt.Errorf("chat: read pair: %w", err)
		}
		c, err := s.Get(ctx, winnerID)
		return c, false, err
	}

	pipe := s.redis.TxPipeline()
	pipe.ZAdd(ctx, userKey(candidate.ConsumerID), redis.Z{Score: score(candidate.UpdatedAt), Member: candidate.ID})
	pipe.ZAdd(ctx, userKey(candidate.AdvisorID), redis.Z{Score: score(candidate.UpdatedAt), Member: candidate.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return Chat{}, false, fmt.Errorf("chat: index chat: %w", err)
	}
	return candidate, true, nil
}

func (s *RedisStore) Get(ctx context.Context, chatID string) (Chat, error) {
	data, err := s.redis.Get(ctx, chatKey(chatID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Chat{}, ErrNotFound
	}
	if err != nil {
		return Chat{}, fmt.Errorf("chat: get: %w", err)
	}
	var c Chat
	if err := json.Unmarshal(data, &c); err != nil {
		return Chat{}, fmt.Errorf("chat: unmarshal: %w", err)
	}
	return c, nil
}

func (s *RedisStore) ListForUser(ctx context.Context, userID string) ([]Chat, error) {
	ids, err := s.redis.ZRevRange(ctx, userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: list ids: %w", err)
	}
	out := make([]Chat, 0, len(ids))
	for _, id := range ids {
		c, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// appendRetries bounds optimistic retries when another writer touches the
// chat record between WATCH and EXEC.
const appendRetries = 5

// Append pushes msg under WATCH on the chat record, so concurrent posts cannot
// move the chat's last activity backwards.
func (s *RedisStore) Append(ctx context.Context, msg Message) error {
	ctx, span := s.tracer.Start(ctx, "chat.append")
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("chat: marshal message: %w", err)
	}
	key := chatKey(msg.ChatID)
	txf := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("chat: get: %w", err)
		}
		var c Chat
		if err := json.Unmarshal(raw, &c); err != nil {
			return fmt.Errorf("chat: unmarshal: %w", err)
		}
		if msg.CreatedAt.After(c.UpdatedAt) {
			c.UpdatedAt = msg.CreatedAt
		}
		chatData, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("chat: marshal chat: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			list := messagesKey(c.ID)
			pipe.RPush(ctx, list, data)
			if s.maxMessages > 0 {
				pipe.LTrim(ctx, list, -s.maxMessages, -1)
			}
			pipe.Set(ctx, key, chatData, 0)
			pipe.ZAdd(ctx, userKey(c.ConsumerID), redis.Z{Score: score(c.UpdatedAt), Member: c.ID})
			pipe.ZAdd(ctx, userKey(c.AdvisorID), redis.Z{Score: score(c.UpdatedAt), Member: c.ID})
			return nil
		})
		return err
	}

	for attempt := 0; attempt < appendRetries; attempt++ {
		err = s.redis.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	if err != nil && !errors.Is(err, ErrNotFound) {
		span.RecordError(err)
		return fmt.Errorf("chat: append message: %w", err)
	}
	return err
}

func (s *RedisStore) Messages(ctx context.Context, chatID string, limit int64) ([]Message, error) {
	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := s.redis.LRange(ctx, messagesKey(chatID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("chat: list messages: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
