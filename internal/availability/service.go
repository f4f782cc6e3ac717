package availability

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/advisor-match/internal/observability/metrics"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

var availabilityTracer = otel.Tracer("advisormatch.internal.availability")

// Service owns advisor availability edits and the consumer week projection.
type Service struct {
	repo          Repository
	editor        *Editor
	logger        *logging.Logger
	metrics       *metrics.SchedulingMetrics
	loc           *time.Location
	lookaheadWeek int
	now           func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

func WithMetrics(m *metrics.SchedulingMetrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// WithLocation sets the timezone week projections are computed in.
func WithLocation(loc *time.Location) ServiceOption {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithLookaheadWeeks bounds how many weeks ahead consumers may browse.
func WithLookaheadWeeks(n int) ServiceOption {
	return func(s *Service) {
		if n >= 0 {
			s.lookaheadWeek = n
		}
	}
}

func WithNow(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

func NewService(repo Repository, editor *Editor, logger *logging.Logger, opts ...ServiceOption) *Service {
	if repo == nil {
		panic("availability: repository required")
	}
	if editor == nil {
		editor = NewEditor()
	}
	if logger == nil {
		logger = logging.Default()
	}
	s := &Service{
		repo:   repo,
		editor: editor,
		logger: logger,
		loc:    time.UTC,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the timezone schedules are interpreted in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// List returns the advisor's slots ordered by weekday and start time.
func (s *Service) List(ctx context.Context, advisorID string) ([]TimeSlot, error) {
	slots, err := s.repo.List(ctx, advisorID)
	if err != nil {
		return nil, err
	}
	SortSlots(slots)
	return slots, nil
}

// AddSlot validates the draft against the stored list and appends it.
func (s *Service) AddSlot(ctx context.Context, advisorID string, draft Draft) (AddResult, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.add_slot")
	defer span.End()
	span.SetAttributes(attribute.String("advisormatch.advisor_id", advisorID))

	var result AddResult
	_, err := s.repo.Update(ctx, advisorID, func(current []TimeSlot) ([]TimeSlot, error) {
		res, err := s.editor.Add(advisorID, current, draft)
		if err != nil {
			return nil, err
		}
		result = res
		return res.Slots, nil
	})
	if err != nil {
		s.metrics.ObserveSlotEdit("add", editResult(err))
		if !IsValidation(err) {
			span.RecordError(err)
			s.logger.Error("add availability slot failed", "advisor_id", advisorID, "error", err)
		}
		return AddResult{}, err
	}
	s.metrics.ObserveSlotEdit("add", "ok")
	s.logger.Info("availability slot added", "advisor_id", advisorID, "slot_id", result.Slot.ID,
		"day", result.Slot.Day, "start", result.Slot.StartTime, "end", result.Slot.EndTime)
	SortSlots(result.Slots)
	return result, nil
}

// RemoveSlot deletes one slot by id.
func (s *Service) RemoveSlot(ctx context.Context, advisorID, slotID string) ([]TimeSlot, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.remove_slot")
	defer span.End()
	span.SetAttributes(
		attribute.String("advisormatch.advisor_id", advisorID),
		attribute.String("advisormatch.slot_id", slotID),
	)

	slots, err := s.repo.Update(ctx, advisorID, func(current []TimeSlot) ([]TimeSlot, error) {
		return s.editor.Remove(current, slotID)
	})
	if err != nil {
		s.metrics.ObserveSlotEdit("remove", editResult(err))
		if !errors.Is(err, ErrSlotNotFound) {
			span.RecordError(err)
		}
		return nil, err
	}
	s.metrics.ObserveSlotEdit("remove", "ok")
	s.logger.Info("availability slot removed", "advisor_id", advisorID, "slot_id", slotID)
	SortSlots(slots)
	return slots, nil
}

// Week projects availability onto the week offset weeks after the current one.
func (s *Service) Week(ctx context.Context, advisorID string, offset int) (WeekSchedule, error) {
	if offset < 0 || offset > s.lookaheadWeek {
		return WeekSchedule{}, ErrWeekOutOfRange
	}
	slots, err := s.repo.List(ctx, advisorID)
	if err != nil {
		return WeekSchedule{}, err
	}
	start := WeekStart(s.now().In(s.loc)).AddDate(0, 0, 7*offset)
	return ProjectWeek(advisorID, slots, start, offset), nil
}

func editResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrSlotOverlap):
		return "overlap"
	case errors.Is(err, ErrSlotNotFound):
		return "not_found"
	case IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}
