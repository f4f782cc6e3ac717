package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/events"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/internal/realtime"
)

type pushed struct {
	topic, eventType string
	record           any
	users            []string
}

type fakeBroadcaster struct {
	mu     sync.Mutex
	events []pushed
}

func (b *fakeBroadcaster) Publish(topic, eventType string, record any, userIDs ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, pushed{topic: topic, eventType: eventType, record: record, users: userIDs})
}

type failingSender struct{}

func (failingSender) Send(context.Context, EmailMessage) error { return errors.New("smtp down") }

func seededProfiles(t *testing.T) *profiles.InMemoryRepository {
	t.Helper()
	repo := profiles.NewInMemoryRepository()
	ctx := context.Background()
	_, err := repo.Upsert(ctx, profiles.Profile{ID: "adv-1", Type: identity.Advisor, Name: "Dana Reyes", Email: "dana@example.com"})
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, profiles.Profile{ID: "con-1", Type: identity.Consumer, Name: "Sam Lee", Email: "sam@example.com"})
	require.NoError(t, err)
	return repo
}

func sampleAppointment(status appointments.Status) appointments.Appointment {
	return appointments.Appointment{
		ID:         "appt-1",
		AdvisorID:  "adv-1",
		ConsumerID: "con-1",
		Title:      "Free Consultation with Dana Reyes",
		Date:       "2026-03-02",
		StartTime:  "09:00",
		EndTime:    "10:00",
		Status:     status,
	}
}

func TestAppointmentRequestedNotifiesAdvisor(t *testing.T) {
	email := NewStubEmailSender(nil)
	b := &fakeBroadcaster{}
	svc := NewService(email, seededProfiles(t), nil, WithBroadcaster(b))

	require.NoError(t, svc.AppointmentRequested(context.Background(), sampleAppointment(appointments.StatusPending)))

	sent := email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "dana@example.com", sent[0].To)
	assert.Contains(t, sent[0].Body, "Sam Lee")
	assert.Contains(t, sent[0].Body, "9:00 AM - 10:00 AM")

	require.Len(t, b.events, 1)
	assert.Equal(t, realtime.TopicNotifications, b.events[0].topic)
	assert.Equal(t, []string{"adv-1"}, b.events[0].users)
}

func TestStatusChangeNotifiesCounterpart(t *testing.T) {
	email := NewStubEmailSender(nil)
	svc := NewService(email, seededProfiles(t), nil)

	require.NoError(t, svc.AppointmentStatusChanged(context.Background(), sampleAppointment(appointments.StatusConfirmed), appointments.StatusPending, "adv-1"))
	sent := email.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "sam@example.com", sent[0].To)
	assert.Equal(t, "Appointment confirmed", sent[0].Subject)

	// A firm admin is not a participant, so both sides hear about it.
	require.NoError(t, svc.AppointmentStatusChanged(context.Background(), sampleAppointment(appointments.StatusCancelled), appointments.StatusConfirmed, "admin-1"))
	assert.Len(t, email.Sent(), 3)
}

func TestEmailFailureIsReturnedButRealtimeStillSent(t *testing.T) {
	b := &fakeBroadcaster{}
	svc := NewService(failingSender{}, seededProfiles(t), nil, WithBroadcaster(b))

	err := svc.AppointmentRequested(context.Background(), sampleAppointment(appointments.StatusPending))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smtp down")
	assert.Len(t, b.events, 1)
}

func outboxEntry(t *testing.T, eventType string, evt appointments.Event) events.OutboxEntry {
	t.Helper()
	data, err := json.Marshal(evt)
	require.NoError(t, err)
	return events.OutboxEntry{ID: uuid.New(), AggregateID: evt.Appointment.ID, Type: eventType, Payload: data, CreatedAt: time.Now()}
}

func TestAppointmentEventHandler(t *testing.T) {
	email := NewStubEmailSender(nil)
	h := NewAppointmentEventHandler(NewService(email, seededProfiles(t), nil), nil)
	ctx := context.Background()

	created := outboxEntry(t, appointments.EventCreated, appointments.Event{Type: appointments.EventCreated, ActorID: "con-1", Appointment: sampleAppointment(appointments.StatusPending)})
	require.NoError(t, h.Handle(ctx, created))

	changed := outboxEntry(t, appointments.EventStatusChanged, appointments.Event{
		Type:           appointments.EventStatusChanged,
		ActorID:        "con-1",
		PreviousStatus: appointments.StatusPending,
		Appointment:    sampleAppointment(appointments.StatusCancelled),
	})
	require.NoError(t, h.Handle(ctx, changed))

	sent := email.Sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "dana@example.com", sent[0].To)
	assert.Equal(t, "dana@example.com", sent[1].To)
	assert.Equal(t, "Appointment cancelled", sent[1].Subject)

	require.NoError(t, h.Handle(ctx, events.OutboxEntry{Type: "something.else.v1"}))
	assert.Error(t, h.Handle(ctx, events.OutboxEntry{Type: appointments.EventCreated, Payload: []byte("{")}))

	failing := NewAppointmentEventHandler(NewService(failingSender{}, seededProfiles(t), nil), nil)
	assert.NoError(t, failing.Handle(ctx, created), "email failures are not retried")
}

func TestAppointmentFeedPublishesToParticipants(t *testing.T) {
	b := &fakeBroadcaster{}
	feed := NewAppointmentFeed(b)
	entry := outboxEntry(t, appointments.EventStatusChanged, appointments.Event{Type: appointments.EventStatusChanged, Appointment: sampleAppointment(appointments.StatusConfirmed)})

	require.NoError(t, feed.Handle(context.Background(), entry))
	require.Len(t, b.events, 1)
	assert.Equal(t, realtime.TopicAppointments, b.events[0].topic)
	assert.Equal(t, "UPDATE", b.events[0].eventType)
	assert.ElementsMatch(t, []string{"con-1", "adv-1"}, b.events[0].users)
}
