package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/events"
	"github.com/wolfman30/advisor-match/internal/realtime"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

func decodeAppointmentEvent(entry events.OutboxEntry) (appointments.Event, bool, error) {
	switch entry.Type {
	case appointments.EventCreated, appointments.EventStatusChanged:
	default:
		return appointments.Event{}, false, nil
	}
	var evt appointments.Event
	if err := json.Unmarshal(entry.Payload, &evt); err != nil {
		return appointments.Event{}, false, fmt.Errorf("notify: decode appointment event: %w", err)
	}
	return evt, true, nil
}

// AppointmentEventHandler turns appointment outbox events into notifications.
// Email failures are logged and not retried.
type AppointmentEventHandler struct {
	service *Service
	logger  *logging.Logger
}

func NewAppointmentEventHandler(service *Service, logger *logging.Logger) *AppointmentEventHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AppointmentEventHandler{service: service, logger: logger}
}

func (h *AppointmentEventHandler) Handle(ctx context.Context, entry events.OutboxEntry) error {
	evt, ok, err := decodeAppointmentEvent(entry)
	if err != nil || !ok {
		return err
	}
	switch evt.Type {
	case appointments.EventCreated:
		err = h.service.AppointmentRequested(ctx, evt.Appointment)
	case appointments.EventStatusChanged:
		err = h.service.AppointmentStatusChanged(ctx, evt.Appointment, evt.PreviousStatus, evt.ActorID)
	}
	if err != nil {
		h.logger.Warn("appointment notification incomplete", "appointment_id", evt.Appointment.ID, "type", evt.Type, "error", err)
	}
	return nil
}

// AppointmentFeed mirrors appointment changes onto the appointments topic
// for both participants.
type AppointmentFeed struct {
	broadcaster Broadcaster
}

func NewAppointmentFeed(b Broadcaster) *AppointmentFeed {
	return &AppointmentFeed{broadcaster: b}
}

func (f *AppointmentFeed) Handle(ctx context.Context, entry events.OutboxEntry) error {
	evt, ok, err := decodeAppointmentEvent(entry)
	if err != nil || !ok || f.broadcaster == nil {
		return err
	}
	change := "UPDATE"
	if evt.Type == appointments.EventCreated {
		change = "INSERT"
	}
	f.broadcaster.Publish(realtime.TopicAppointments, change, evt.Appointment, evt.Appointment.ConsumerID, evt.Appointment.AdvisorID)
	return nil
}
