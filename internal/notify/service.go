// Package notify tells appointment participants about requests and status
// changes by email and realtime notifications.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/observability/metrics"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/internal/realtime"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

// Notification kinds.
const (
	KindAppointmentRequested = "appointment_requested"
	KindAppointmentStatus    = "appointment_status"
)

// ProfileReader loads a participant's profile.
type ProfileReader interface {
	Get(ctx context.Context, id string) (profiles.Profile, error)
}

// Broadcaster pushes a record to the listed users' realtime subscriptions.
type Broadcaster interface {
	Publish(topic, eventType string, record any, userIDs ...string)
}

// Notification is the record pushed on the notifications topic.
type Notification struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Kind          string    `json:"kind"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	AppointmentID string    `json:"appointment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Service handles sending notifications to appointment participants.
type Service struct {
	email       EmailSender
	profiles    ProfileReader
	broadcaster Broadcaster
	metrics     *metrics.SchedulingMetrics
	logger      *logging.Logger
	now         func() time.Time
}

type Option func(*Service)

func WithBroadcaster(b Broadcaster) Option { return func(s *Service) { s.broadcaster = b } }

func WithMetrics(m *metrics.SchedulingMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a notification service.
func NewService(email EmailSender, profiles ProfileReader, logger *logging.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		email:    email,
		profiles: profiles,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppointmentRequested tells the advisor a consumer asked for a meeting.
func (s *Service) AppointmentRequested(ctx context.Context, appt appointments.Appointment) error {
	consumer := s.displayName(ctx, appt.ConsumerID, "A consumer")
	title := "New appointment request"
	body := fmt.Sprintf("%s requested %q on %s, %s.", consumer, appt.Title, appt.Date, appt.TimeLabel())
	return s.deliver(ctx, KindAppointmentRequested, appt, title, body, appt.AdvisorID)
}

// AppointmentStatusChanged tells everyone on the appointment except the actor.
// A firm admin acting on an advisor's behalf is not a participant, so both
// sides hear about it.
func (s *Service) AppointmentStatusChanged(ctx context.Context, appt appointments.Appointment, previous appointments.Status, actorID string) error {
	var recipients []string
	if appt.HasParticipant(actorID) {
		recipients = []string{appt.Counterpart(actorID)}
	} else {
		recipients = []string{appt.ConsumerID, appt.AdvisorID}
	}
	title := "Appointment " + string(appt.Status)
	body := fmt.Sprintf("%q on %s, %s changed from %s to %s.", appt.Title, appt.Date, appt.TimeLabel(), previous, appt.Status)
	return s.deliver(ctx, KindAppointmentStatus, appt, title, body, recipients...)
}

func (s *Service) deliver(ctx context.Context, kind string, appt appointments.Appointment, title, body string, userIDs ...string) error {
	var errs []error
	for _, uid := range userIDs {
		if uid == "" {
			continue
		}
		n := Notification{
			ID:            uuid.NewString(),
			UserID:        uid,
			Kind:          kind,
			Title:         title,
			Body:          body,
			AppointmentID: appt.ID,
			CreatedAt:     s.now(),
		}
		if s.broadcaster != nil {
			s.broadcaster.Publish(realtime.TopicNotifications, "INSERT", n, uid)
		}
		err := s.sendEmail(ctx, kind, uid, title, body)
		s.metrics.ObserveNotification(kind, err)
		if err != nil {
			s.logger.Error("notify: email failed", "error", err, "user_id", uid, "appointment_id", appt.ID)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) sendEmail(ctx context.Context, kind, userID, subject, body string) error {
	if s.email == nil || s.profiles == nil {
		return nil
	}
	p, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, profiles.ErrNotFound) {
		s.logger.Debug("notify: no profile, skipping email", "user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("notify: load profile: %w", err)
	}
	if p.Email == "" {
		return nil
	}
	if err := s.email.Send(ctx, EmailMessage{To: p.Email, ToName: p.Name, Subject: subject, Body: body, Kind: kind}); err != nil {
		return fmt.Errorf("notify: send email: %w", err)
	}
	return nil
}

func (s *Service) displayName(ctx context.Context, userID, fallback string) string {
	if s.profiles == nil {
		return fallback
	}
	p, err := s.profiles.Get(ctx, userID)
	if err != nil || p.Name == "" {
		return fallback
	}
	return p.Name
}
