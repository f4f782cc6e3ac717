// Package booking turns a consumer's pick from an advisor's weekly schedule
// into a pending appointment, and opens consumer to advisor chats.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/chat"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/internal/leads"
	"github.com/wolfman30/advisor-match/internal/observability/metrics"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

var bookingTracer = otel.Tracer("advisormatch.internal.booking")

const (
	ScheduleRedirect = "/consumer/schedule"
	RequestedNotice  = "Appointment requested. Your advisor will confirm it shortly."
)

// ProfileReader loads profiles of both booking parties.
type ProfileReader interface {
	Get(ctx context.Context, id string) (profiles.Profile, error)
	Advisor(ctx context.Context, advisorID string) (profiles.Profile, error)
}

// SlotLister returns an advisor's weekly slots.
type SlotLister interface {
	List(ctx context.Context, advisorID string) ([]availability.TimeSlot, error)
}

// AppointmentCreator stores pending appointments.
type AppointmentCreator interface {
	Create(ctx context.Context, in appointments.NewAppointment) (appointments.Appointment, error)
}

// ChatOpener finds or creates the chat for a consumer/advisor pair.
type ChatOpener interface {
	FindOrCreate(ctx context.Context, consumerID, advisorID string) (chat.Chat, error)
}

// LeadToucher records the interaction in the advisor's lead pipeline.
type LeadToucher interface {
	Touch(ctx context.Context, req leads.TouchRequest) (*leads.Lead, error)
}

// Request is a consumer's booking choice.
type Request struct {
	AdvisorID string `json:"-"`
	Date      string `json:"date"`
	SlotLabel string `json:"slot"`
	Notes     string `json:"notes,omitempty"`
}

// Result tells the client where to go next.
type Result struct {
	Appointment appointments.Appointment `json:"appointment"`
	Redirect    string                   `json:"redirect"`
	Notice      string                   `json:"notice"`
}

// ChatResult is returned by MessageAdvisor.
type ChatResult struct {
	Chat     chat.Chat `json:"chat"`
	Redirect string    `json:"redirect"`
}

type Service struct {
	profiles     ProfileReader
	slots        SlotLister
	appointments AppointmentCreator
	chats        ChatOpener
	leads        LeadToucher
	metrics      *metrics.SchedulingMetrics
	logger       *logging.Logger
	loc          *time.Location
	lookahead    int
	now          func() time.Time
}

type Option func(*Service)

func WithChats(c ChatOpener) Option { return func(s *Service) { s.chats = c } }

func WithLeads(l LeadToucher) Option { return func(s *Service) { s.leads = l } }

func WithMetrics(m *metrics.SchedulingMetrics) Option { return func(s *Service) { s.metrics = m } }

// WithLocation sets the timezone booking dates are checked in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLookaheadWeeks opens bookings n weeks past the current one, matching
// the week projection consumers pick from.
func WithLookaheadWeeks(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.lookahead = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(profiles ProfileReader, slots SlotLister, appts AppointmentCreator, logger *logging.Logger, opts ...Option) *Service {
	if profiles == nil || slots == nil || appts == nil {
		panic("booking: profiles, slots and appointments are required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		profiles:     profiles,
		slots:        slots,
		appointments: appts,
		logger:       logger,
		loc:          time.UTC,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Book creates a pending free consultation for the slot the consumer picked.
// Rejections store nothing.
func (s *Service) Book(ctx context.Context, who *identity.Identity, req Request) (Result, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(attribute.String("advisormatch.advisor_id", req.AdvisorID))

	started := time.Now()
	res, err := s.book(ctx, who, req)
	s.metrics.ObserveBooking(bookingResult(err), time.Since(started).Seconds())
	if err != nil {
		s.logger.Info("booking rejected", "advisor_id", req.AdvisorID, "date", req.Date, "slot", req.SlotLabel, "error", err)
		return Result{}, err
	}
	return res, nil
}

func (s *Service) book(ctx context.Context, who *identity.Identity, req Request) (Result, error) {
	if strings.TrimSpace(req.SlotLabel) == "" {
		return Result{}, ErrNoSlotSelected
	}
	consumer, err := s.consumer(ctx, who)
	if err != nil {
		return Result{}, err
	}
	if !consumer.Complete {
		return Result{}, ErrProfileIncomplete
	}

	start, end, err := availability.ParseRange12(req.SlotLabel)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %q is not a time range", ErrNoSlotSelected, req.SlotLabel)
	}
	date, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(req.Date), s.loc)
	if err != nil {
		return Result{}, ErrInvalidDate
	}
	now := s.now().In(s.loc)
	if date.Before(time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)) {
		return Result{}, ErrDateInPast
	}
	if _, until := availability.BookingWindow(now, s.lookahead); !date.Before(until) {
		return Result{}, ErrDateOutOfRange
	}
	if date.Format("2006-01-02") == now.Format("2006-01-02") && start <= now.Format("15:04") {
		return Result{}, ErrSlotStarted
	}

	advisor, err := s.profiles.Advisor(ctx, req.AdvisorID)
	if errors.Is(err, profiles.ErrNotFound) {
		return Result{}, ErrAdvisorNotFound
	}
	if err != nil {
		return Result{}, fmt.Errorf("booking: load advisor: %w", err)
	}
	slots, err := s.slots.List(ctx, advisor.ID)
	if err != nil {
		return Result{}, fmt.Errorf("booking: load slots: %w", err)
	}
	if _, ok := availability.FindOffered(slots, availability.DayOf(date), start, end); !ok {
		return Result{}, ErrSlotNotOffered
	}

	appt, err := s.appointments.Create(ctx, appointments.NewAppointment{
		AdvisorID:  advisor.ID,
		ConsumerID: consumer.ID,
		CategoryID: appointments.FreeConsultationID,
		Title:      "Free Consultation with " + advisor.DisplayName(),
		Date:       date.Format("2006-01-02"),
		StartTime:  start,
		EndTime:    end,
		Notes:      strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return Result{}, err
	}
	s.touchLead(ctx, advisor.ID, consumer.ID, leads.SourceBooking, leads.StatusAppointmentRequested)
	return Result{Appointment: appt, Redirect: ScheduleRedirect, Notice: RequestedNotice}, nil
}

// MessageAdvisor opens the consumer's chat with the advisor, reusing an
// existing one.
func (s *Service) MessageAdvisor(ctx context.Context, who *identity.Identity, advisorID string) (ChatResult, error) {
	if s.chats == nil {
		return ChatResult{}, ErrChatDisabled
	}
	consumer, err := s.consumer(ctx, who)
	if err != nil {
		return ChatResult{}, err
	}
	advisor, err := s.profiles.Advisor(ctx, advisorID)
	if errors.Is(err, profiles.ErrNotFound) {
		return ChatResult{}, ErrAdvisorNotFound
	}
	if err != nil {
		return ChatResult{}, fmt.Errorf("booking: load advisor: %w", err)
	}
	if !consumer.ChatEnabled || !advisor.ChatEnabled {
		return ChatResult{}, ErrChatDisabled
	}
	c, err := s.chats.FindOrCreate(ctx, consumer.ID, advisor.ID)
	if err != nil {
		return ChatResult{}, err
	}
	s.touchLead(ctx, advisor.ID, consumer.ID, leads.SourceMessage, leads.StatusNew)
	return ChatResult{Chat: c, Redirect: "/chat/" + c.ID}, nil
}

// consumer returns the caller's profile. A caller with no stored profile is
// treated as having an incomplete one.
func (s *Service) consumer(ctx context.Context, who *identity.Identity) (profiles.Profile, error) {
	if who == nil || who.UserID == "" || !who.IsConsumer() {
		return profiles.Profile{}, ErrNotAuthenticated
	}
	p, err := s.profiles.Get(ctx, who.UserID)
	if errors.Is(err, profiles.ErrNotFound) {
		return profiles.Profile{}, ErrProfileIncomplete
	}
	if err != nil {
		return profiles.Profile{}, fmt.Errorf("booking: load consumer: %w", err)
	}
	return p, nil
}

func (s *Service) touchLead(ctx context.Context, advisorID, consumerID string, source leads.Source, status leads.Status) {
	if s.leads == nil {
		return
	}
	if _, err := s.leads.Touch(ctx, leads.TouchRequest{
		AdvisorID:  advisorID,
		ConsumerID: consumerID,
		Source:     source,
		Status:     status,
	}); err != nil {
		s.logger.Warn("failed to record lead", "advisor_id", advisorID, "consumer_id", consumerID, "error", err)
	}
}

func bookingResult(err error) string {
	switch {
	case err == nil:
		return "booked"
	case errors.Is(err, ErrSlotTaken):
		return "slot_taken"
	case errors.Is(err, ErrSlotNotOffered):
		return "not_offered"
	case IsPrerequisite(err):
		return "prerequisite"
	case errors.Is(err, ErrNoSlotSelected), errors.Is(err, ErrInvalidDate), errors.Is(err, ErrDateInPast),
		errors.Is(err, ErrDateOutOfRange), errors.Is(err, ErrSlotStarted):
		return "invalid"
	default:
		return "error"
	}
}
