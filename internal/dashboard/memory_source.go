package dashboard

import (
	"context"

	"github.com/wolfman30/advisor-match/internal/appointments"
	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/leads"
)

type appointmentLister interface {
	ListByAdvisor(ctx context.Context, advisorID string) ([]appointments.Appointment, error)
	ListByConsumer(ctx context.Context, consumerID string) ([]appointments.Appointment, error)
}

type leadLister interface {
	ListByAdvisor(ctx context.Context, advisorID string, filter leads.ListLeadsFilter) ([]*leads.Lead, error)
}

type slotLister interface {
	List(ctx context.Context, advisorID string) ([]availability.TimeSlot, error)
}

// StoreSource aggregates by reading the stores directly. It backs the
// dashboard when no SQL database is configured.
type StoreSource struct {
	appointments appointmentLister
	leads        leadLister
	slots        slotLister
}

func NewStoreSource(appts appointmentLister, leadRepo leadLister, slots slotLister) *StoreSource {
	return &StoreSource{appointments: appts, leads: leadRepo, slots: slots}
}

func (s *StoreSource) Summary(ctx context.Context, scope Scope, weekStart, weekEnd string) (Summary, error) {
	sum := Summary{AppointmentsByStatus: map[string]int64{}}
	for _, id := range scope.IDs {
		var appts []appointments.Appointment
		var err error
		if scope.Role == RoleConsumer {
			appts, err = s.appointments.ListByConsumer(ctx, id)
		} else {
			appts, err = s.appointments.ListByAdvisor(ctx, id)
		}
		if err != nil {
			return Summary{}, err
		}
		for _, a := range appts {
			sum.AppointmentsByStatus[string(a.Status)]++
			if a.Status.Active() && a.Date >= weekStart && a.Date < weekEnd {
				sum.UpcomingThisWeek++
			}
		}
		if scope.Role != RoleAdvisor {
			continue
		}
		if sum.LeadsByStatus == nil {
			sum.LeadsByStatus = map[string]int64{}
		}
		if s.leads != nil {
			list, err := s.leads.ListByAdvisor(ctx, id, leads.ListLeadsFilter{})
			if err != nil {
				return Summary{}, err
			}
			for _, l := range list {
				sum.LeadsByStatus[string(l.Status)]++
				if openLead(string(l.Status)) {
					sum.OpenLeads++
				}
			}
		}
		if s.slots != nil {
			slots, err := s.slots.List(ctx, id)
			if err != nil {
				return Summary{}, err
			}
			for _, sl := range slots {
				if sl.IsAvailable {
					sum.OfferedSlots++
				}
			}
		}
	}
	return sum, nil
}
