package appointments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/internal/observability/metrics"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

var appointmentsTracer = otel.Tracer("advisormatch.internal.appointments")

// Outbox event types.
const (
	EventCreated       = "appointment.created.v1"
	EventStatusChanged = "appointment.status_changed.v1"
)

// Event is the outbox payload for appointment changes.
type Event struct {
	EventID        string      `json:"event_id"`
	Type           string      `json:"type"`
	ActorID        string      `json:"actor_id"`
	PreviousStatus Status      `json:"previous_status,omitempty"`
	Appointment    Appointment `json:"appointment"`
	OccurredAt     time.Time   `json:"occurred_at"`
}

// FirmLookup resolves the firm an advisor belongs to.
type FirmLookup interface {
	FirmOf(ctx context.Context, advisorID string) (string, error)
}

// Service owns appointment creation, visibility and status changes.
type Service struct {
	store   Store
	firms   FirmLookup
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time
	newID   func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithFirmLookup(f FirmLookup) ServiceOption {
	return func(s *Service) { s.firms = f }
}

func WithMetrics(m *metrics.SchedulingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func WithIDGenerator(fn func() string) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}

func NewService(store Store, logger *logging.Logger, opts ...ServiceOption) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  newAppointmentID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newAppointmentID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// Create stores a new pending appointment unless an active one already
// holds an overlapping time with the same advisor.
func (s *Service) Create(ctx context.Context, in NewAppointment) (Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("advisormatch.advisor_id", in.AdvisorID),
		attribute.String("advisormatch.consumer_id", in.ConsumerID),
	)

	if err := in.Validate(); err != nil {
		return Appointment{}, err
	}
	now := s.now()
	appt := Appointment{
		ID:         s.newID(),
		AdvisorID:  in.AdvisorID,
		ConsumerID: in.ConsumerID,
		CategoryID: in.CategoryID,
		Title:      in.Title,
		Date:       in.Date,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Status:     StatusPending,
		Notes:      in.Notes,
		Location:   in.Location,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.Create(ctx, appt, NoOverlap(appt.Date, appt.StartTime, appt.EndTime), s.eventFor(EventCreated, appt.ConsumerID)); err != nil {
		if !errors.Is(err, ErrSlotTaken) {
			span.RecordError(err)
		}
		return Appointment{}, err
	}
	span.SetAttributes(attribute.String("advisormatch.appointment_id", appt.ID))
	s.logger.Info("appointment created", "appointment_id", appt.ID, "advisor_id", appt.AdvisorID,
		"consumer_id", appt.ConsumerID, "date", appt.Date, "start", appt.StartTime)
	return appt, nil
}

// Get returns the appointment if the caller may see it.
func (s *Service) Get(ctx context.Context, who identity.Identity, id string) (Appointment, error) {
	appt, err := s.store.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if !s.canView(ctx, who, appt) {
		return Appointment{}, ErrNotFound
	}
	return appt, nil
}

// Transition applies a requested status change on behalf of who.
// Only Status and UpdatedAt change.
func (s *Service) Transition(ctx context.Context, who identity.Identity, id string, requested Status) (Appointment, error) {
	ctx, span := appointmentsTracer.Start(ctx, "appointments.transition")
	defer span.End()
	span.SetAttributes(
		attribute.String("advisormatch.appointment_id", id),
		attribute.String("advisormatch.requested_status", string(requested)),
	)

	current, err := s.store.Get(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if !s.canView(ctx, who, current) {
		return Appointment{}, ErrNotFound
	}
	if err := s.authorizeTransition(ctx, who, current, requested); err != nil {
		s.metrics.ObserveTransition(string(current.Status), string(requested), "forbidden")
		return Appointment{}, err
	}

	updated, prev, err := s.store.UpdateStatus(ctx, id, func(cur Appointment) (Status, error) {
		return NextStatus(cur.Status, requested)
	}, s.now(), s.eventFor(EventStatusChanged, who.UserID))
	if err != nil {
		result := "error"
		if errors.Is(err, ErrIllegalTransition) {
			result = "illegal"
		} else {
			span.RecordError(err)
		}
		s.metrics.ObserveTransition(string(current.Status), string(requested), result)
		return Appointment{}, err
	}

	s.metrics.ObserveTransition(string(prev), string(updated.Status), "ok")
	s.logger.Info("appointment status changed", "appointment_id", id, "from", prev, "to", updated.Status, "actor_id", who.UserID)
	return updated, nil
}

// ListFor returns the appointments visible to who. Firm admins must name an
// advisor of their firm; advisors and consumers get their own.
func (s *Service) ListFor(ctx context.Context, who identity.Identity, advisorID string) ([]Appointment, error) {
	var (
		appts []Appointment
		err   error
	)
	switch {
	case who.IsConsumer():
		appts, err = s.store.ListByConsumer(ctx, who.UserID)
	case who.IsAdvisor():
		appts, err = s.store.ListByAdvisor(ctx, who.UserID)
	case who.IsFirmAdmin():
		if advisorID == "" || !s.sameFirm(ctx, who, advisorID) {
			return nil, ErrForbidden
		}
		appts, err = s.store.ListByAdvisor(ctx, advisorID)
	default:
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	SortChronological(appts)
	return appts, nil
}

// ListByAdvisor is used by booking and dashboards, which do their own access checks.
func (s *Service) ListByAdvisor(ctx context.Context, advisorID string) ([]Appointment, error) {
	appts, err := s.store.ListByAdvisor(ctx, advisorID)
	if err != nil {
		return nil, err
	}
	SortChronological(appts)
	return appts, nil
}

// ListByConsumer mirrors ListByAdvisor for the consumer side.
func (s *Service) ListByConsumer(ctx context.Context, consumerID string) ([]Appointment, error) {
	appts, err := s.store.ListByConsumer(ctx, consumerID)
	if err != nil {
		return nil, err
	}
	SortChronological(appts)
	return appts, nil
}

func (s *Service) authorizeTransition(ctx context.Context, who identity.Identity, appt Appointment, requested Status) error {
	switch {
	case who.IsAdvisor() && who.UserID == appt.AdvisorID:
		return nil
	case who.IsConsumer() && who.UserID == appt.ConsumerID:
		if requested == StatusCancelled {
			return nil
		}
	case who.IsFirmAdmin() && s.sameFirm(ctx, who, appt.AdvisorID):
		return nil
	}
	return ErrForbidden
}

func (s *Service) canView(ctx context.Context, who identity.Identity, appt Appointment) bool {
	if appt.HasParticipant(who.UserID) {
		return true
	}
	return who.IsFirmAdmin() && s.sameFirm(ctx, who, appt.AdvisorID)
}

func (s *Service) sameFirm(ctx context.Context, who identity.Identity, advisorID string) bool {
	if s.firms == nil || who.FirmID == "" {
		return false
	}
	firmID, err := s.firms.FirmOf(ctx, advisorID)
	if err != nil {
		s.logger.Warn("firm lookup failed", "advisor_id", advisorID, "error", err)
		return false
	}
	return firmID == who.FirmID
}

func (s *Service) eventFor(eventType, actorID string) EventFunc {
	return func(appt Appointment, prev Status) Event {
		return Event{
			EventID:        uuid.NewString(),
			Type:           eventType,
			ActorID:        actorID,
			PreviousStatus: prev,
			Appointment:    appt,
			OccurredAt:     s.now(),
		}
	}
}
