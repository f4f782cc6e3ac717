package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client)
}

func TestRedisStoreFindOrCreateIsIdempotent(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first, created, err := store.FindOrCreate(ctx, Chat{ID: "chat-a", ConsumerID: "con-1", AdvisorID: "adv-1", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := store.FindOrCreate(ctx, Chat{ID: "chat-b", ConsumerID: "con-1", AdvisorID: "adv-1", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "chat-a", second.ID)
	assert.Equal(t, first.ID, second.ID)

	_, err = store.Get(ctx, "chat-b")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreConcurrentFindOrCreateYieldsOneChat(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ids := []string{"c1", "c2", "c3", "c4", "c5", "c6", "c7", "c8"}
	results := make([]string, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			c, _, err := store.FindOrCreate(ctx, Chat{ID: id, ConsumerID: "con-1", AdvisorID: "adv-1", CreatedAt: now, UpdatedAt: now})
			assert.NoError(t, err)
			results[i] = c.ID
		}(i, id)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, results[0], got)
	}
	chats, err := store.ListForUser(ctx, "con-1")
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestRedisStoreAppendOrdersChatsByActivity(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, _, err := store.FindOrCreate(ctx, Chat{ID: "older", ConsumerID: "con-1", AdvisorID: "adv-1", CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)
	_, _, err = store.FindOrCreate(ctx, Chat{ID: "newer", ConsumerID: "con-1", AdvisorID: "adv-2", CreatedAt: base.Add(time.Minute), UpdatedAt: base.Add(time.Minute)})
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, Message{ID: "m1", ChatID: "older", SenderID: "con-1", Body: "hello", CreatedAt: base.Add(time.Hour)}))

	chats, err := store.ListForUser(ctx, "con-1")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "older", chats[0].ID)
	assert.Equal(t, "newer", chats[1].ID)

	msgs, err := store.Messages(ctx, "older", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello", msgs[0].Body)

	err = store.Append(ctx, Message{ID: "m2", ChatID: "missing", Body: "x", CreatedAt: base})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreAppendKeepsLatestActivity(t *testing.T) {
	store := newTestRedisStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	_, _, err := store.FindOrCreate(ctx, Chat{ID: "chat-a", ConsumerID: "con-1", AdvisorID: "adv-1", CreatedAt: base, UpdatedAt: base})
	require.NoError(t, err)

	late := base.Add(2 * time.Hour)
	require.NoError(t, store.Append(ctx, Message{ID: "m2", ChatID: "chat-a", SenderID: "adv-1", Body: "later", CreatedAt: late}))
	require.NoError(t, store.Append(ctx, Message{ID: "m1", ChatID: "chat-a", SenderID: "con-1", Body: "earlier", CreatedAt: base.Add(time.Hour)}))

	c, err := store.Get(ctx, "chat-a")
	require.NoError(t, err)
	assert.True(t, c.UpdatedAt.Equal(late))
}
