package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingHandler struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func (h *countingHandler) Handle(ctx context.Context, entry OutboxEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.calls == nil {
		h.calls = make(map[string]int)
	}
	h.calls[entry.AggregateID]++
	if h.fail {
		return errors.New("downstream unavailable")
	}
	return nil
}

func (h *countingHandler) count(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[id]
}

func TestDelivererRetriesFailedEntries(t *testing.T) {
	box := NewMemoryOutbox()
	ctx := context.Background()
	_, err := box.Insert(ctx, "appt-1", "appointment.created.v1", map[string]string{})
	require.NoError(t, err)

	handler := &countingHandler{fail: true}
	d := NewDeliverer(box, handler, nil)

	assert.Equal(t, 0, d.Drain(ctx))
	assert.Equal(t, 1, box.Pending())

	handler.fail = false
	assert.Equal(t, 1, d.Drain(ctx))
	assert.Equal(t, 0, box.Pending())
	assert.Equal(t, 2, handler.count("appt-1"))

	assert.Equal(t, 0, d.Drain(ctx))
}

func TestFanoutSkipsHandlersThatAlreadySucceeded(t *testing.T) {
	box := NewMemoryOutbox()
	ctx := context.Background()
	_, err := box.Insert(ctx, "appt-1", "appointment.created.v1", map[string]string{})
	require.NoError(t, err)

	email := &countingHandler{}
	queue := &countingHandler{fail: true}
	fan := NewFanout(nil).Add("email", email).Add("queue", queue)
	d := NewDeliverer(box, fan, nil)

	d.Drain(ctx)
	queue.fail = false
	d.Drain(ctx)

	assert.Equal(t, 1, email.count("appt-1"), "email must not be resent on retry")
	assert.Equal(t, 2, queue.count("appt-1"))
	assert.Equal(t, 0, box.Pending())
}

func TestDelivererStartStopsOnCancel(t *testing.T) {
	box := NewMemoryOutbox()
	ctx, cancel := context.WithCancel(context.Background())
	_, err := box.Insert(ctx, "appt-1", "x.v1", nil)
	require.NoError(t, err)

	handler := &countingHandler{}
	d := NewDeliverer(box, handler, nil).WithInterval(10 * time.Millisecond)
	done := make(chan struct{})
	go func() {
		d.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return box.Pending() == 0 }, time.Second, 10*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliverer did not stop")
	}
}

func TestHandlerFunc(t *testing.T) {
	var got string
	h := HandlerFunc(func(ctx context.Context, entry OutboxEntry) error {
		got = entry.Type
		return nil
	})
	require.NoError(t, h.Handle(context.Background(), OutboxEntry{Type: "t.v1"}))
	assert.Equal(t, "t.v1", got)
}
