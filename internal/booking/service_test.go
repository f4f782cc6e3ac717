package booking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/chat"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/internal/leads"
	"github.com/wolfman30/advisor-match/internal/profiles"
)

// Monday 2026-03-02, before the first 09:00 slot.
var testNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

type fixture struct {
	service  *Service
	appts    *appointments.MemoryStore
	profiles *profiles.InMemoryRepository
	leads    *leads.InMemoryRepository
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	ctx := context.Background()

	profileRepo := profiles.NewInMemoryRepository()
	_, err := profileRepo.Upsert(ctx, profiles.Profile{ID: "adv-1", Type: identity.Advisor, Name: "Dana Reyes", Email: "dana@example.com", ChatEnabled: true, Complete: true})
	require.NoError(t, err)
	_, err = profileRepo.Upsert(ctx, profiles.Profile{ID: "con-1", Type: identity.Consumer, Name: "Sam Lee", Email: "sam@example.com", ChatEnabled: true, Complete: true})
	require.NoError(t, err)
	_, err = profileRepo.Upsert(ctx, profiles.Profile{ID: "con-2", Type: identity.Consumer, Name: "", ChatEnabled: true})
	require.NoError(t, err)

	slots := availability.NewService(availability.NewInMemoryRepository(), nil, nil)
	_, err = slots.AddSlot(ctx, "adv-1", availability.Draft{Day: "monday", StartTime: "09:00", EndTime: "10:00"})
	require.NoError(t, err)
	_, err = slots.AddSlot(ctx, "adv-1", availability.Draft{Day: "monday", StartTime: "13:00", EndTime: "14:00"})
	require.NoError(t, err)

	store := appointments.NewMemoryStore()
	apptService := appointments.NewService(store, nil, appointments.WithClock(func() time.Time { return testNow }))
	leadRepo := leads.NewInMemoryRepository()

	svc := NewService(profiles.NewService(profileRepo, nil), slots, apptService, nil,
		WithChats(chat.NewService(chat.NewMemoryStore(), nil)),
		WithLeads(leadRepo),
		WithClock(func() time.Time { return testNow }),
	)
	for _, opt := range opts {
		opt(svc)
	}
	return fixture{service: svc, appts: store, profiles: profileRepo, leads: leadRepo}
}

func consumerID(id string) *identity.Identity {
	return &identity.Identity{UserID: id, Type: identity.Consumer}
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.service.Book(ctx, consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"})
	require.NoError(t, err)

	appt := res.Appointment
	assert.Equal(t, "09:00", appt.StartTime)
	assert.Equal(t, "10:00", appt.EndTime)
	assert.Equal(t, appointments.StatusPending, appt.Status)
	assert.Equal(t, appointments.FreeConsultationID, appt.CategoryID)
	assert.Equal(t, "Free Consultation with Dana Reyes", appt.Title)
	assert.Equal(t, "2026-03-02", appt.Date)
	assert.Equal(t, ScheduleRedirect, res.Redirect)
	assert.NotEmpty(t, res.Notice)

	stored, err := f.appts.ListByAdvisor(ctx, "adv-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)

	list, err := f.leads.ListByAdvisor(ctx, "adv-1", leads.ListLeadsFilter{Limit: 10})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, leads.StatusAppointmentRequested, list[0].Status)
}

func TestBookRejectionsStoreNothing(t *testing.T) {
	tests := []struct {
		name string
		who  *identity.Identity
		req  Request
		want error
	}{
		{"no slot selected", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-02"}, ErrNoSlotSelected},
		{"not signed in", nil, Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"}, ErrNotAuthenticated},
		{"advisor cannot book", &identity.Identity{UserID: "adv-1", Type: identity.Advisor}, Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"}, ErrNotAuthenticated},
		{"incomplete profile", consumerID("con-2"), Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"}, ErrProfileIncomplete},
		{"no stored profile", consumerID("con-9"), Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"}, ErrProfileIncomplete},
		{"wrong weekday", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-03", SlotLabel: "9:00 AM - 10:00 AM"}, ErrSlotNotOffered},
		{"unoffered time", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "10:00 AM - 11:00 AM"}, ErrSlotNotOffered},
		{"bad date", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "03/02/2026", SlotLabel: "9:00 AM - 10:00 AM"}, ErrInvalidDate},
		{"past date", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-02-23", SlotLabel: "9:00 AM - 10:00 AM"}, ErrDateInPast},
		{"unknown advisor", consumerID("con-1"), Request{AdvisorID: "adv-404", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"}, ErrAdvisorNotFound},
		{"next week not open", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-09", SlotLabel: "9:00 AM - 10:00 AM"}, ErrDateOutOfRange},
		{"far future", consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2099-01-05", SlotLabel: "9:00 AM - 10:00 AM"}, ErrDateOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			_, err := f.service.Book(context.Background(), tt.who, tt.req)
			assert.ErrorIs(t, err, tt.want)

			stored, err := f.appts.ListByAdvisor(context.Background(), "adv-1")
			require.NoError(t, err)
			assert.Empty(t, stored)
		})
	}
}

func TestBookSameSlotTwice(t *testing.T) {
	f := newFixture(t, WithLookaheadWeeks(1))
	ctx := context.Background()
	req := Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "1:00 PM - 2:00 PM"}

	_, err := f.service.Book(ctx, consumerID("con-1"), req)
	require.NoError(t, err)
	_, err = f.service.Book(ctx, consumerID("con-1"), req)
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The same weekly slot on the following Monday is free.
	req.Date = "2026-03-09"
	_, err = f.service.Book(ctx, consumerID("con-1"), req)
	assert.NoError(t, err)
}

func TestBookHonoursLookahead(t *testing.T) {
	f := newFixture(t, WithLookaheadWeeks(1))
	ctx := context.Background()

	_, err := f.service.Book(ctx, consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-09", SlotLabel: "9:00 AM - 10:00 AM"})
	assert.NoError(t, err)

	_, err = f.service.Book(ctx, consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-16", SlotLabel: "9:00 AM - 10:00 AM"})
	assert.ErrorIs(t, err, ErrDateOutOfRange)
}

func TestBookRejectsSlotAlreadyStarted(t *testing.T) {
	noon := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return noon }))
	ctx := context.Background()

	_, err := f.service.Book(ctx, consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "9:00 AM - 10:00 AM"})
	assert.ErrorIs(t, err, ErrSlotStarted)

	res, err := f.service.Book(ctx, consumerID("con-1"), Request{AdvisorID: "adv-1", Date: "2026-03-02", SlotLabel: "1:00 PM - 2:00 PM"})
	require.NoError(t, err)
	assert.Equal(t, "13:00", res.Appointment.StartTime)

	stored, err := f.appts.ListByAdvisor(ctx, "adv-1")
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestMessageAdvisorReusesChat(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.MessageAdvisor(ctx, consumerID("con-1"), "adv-1")
	require.NoError(t, err)
	assert.Equal(t, "/chat/"+first.Chat.ID, first.Redirect)

	second, err := f.service.MessageAdvisor(ctx, consumerID("con-1"), "adv-1")
	require.NoError(t, err)
	assert.Equal(t, first.Chat.ID, second.Chat.ID)

	_, err = f.service.MessageAdvisor(ctx, nil, "adv-1")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestMessageAdvisorChatDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.profiles.Upsert(ctx, profiles.Profile{ID: "adv-1", Type: identity.Advisor, Name: "Dana Reyes", Email: "dana@example.com", ChatEnabled: false, Complete: true})
	require.NoError(t, err)

	_, err = f.service.MessageAdvisor(ctx, consumerID("con-1"), "adv-1")
	assert.ErrorIs(t, err, ErrChatDisabled)
	assert.True(t, IsPrerequisite(err))
}
