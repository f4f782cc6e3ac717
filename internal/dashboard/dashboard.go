// Package dashboard summarises appointments, leads and availability for the
// signed-in user.
package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/wolfman30/advisor-match/internal/availability"
	"github.com/wolfman30/advisor-match/internal/identity"
	"github.com/wolfman30/advisor-match/internal/profiles"
	"github.com/wolfman30/advisor-match/pkg/logging"
)

var ErrForbidden = errors.New("dashboard not available for this user")

// Role selects which participant column a scope filters on.
type Role string

const (
	RoleAdvisor  Role = "advisor"
	RoleConsumer Role = "consumer"
)

// Scope is the set of users a summary covers.
type Scope struct {
	Role Role
	IDs  []string
}

// Summary is the dashboard payload.
type Summary struct {
	Scope                Role             `json:"scope"`
	UserIDs              []string         `json:"user_ids"`
	WeekStart            string           `json:"week_start"`
	WeekEnd              string           `json:"week_end"`
	AppointmentsByStatus map[string]int64 `json:"appointments_by_status"`
	UpcomingThisWeek     int64            `json:"upcoming_this_week"`
	LeadsByStatus        map[string]int64 `json:"leads_by_status,omitempty"`
	OpenLeads            int64            `json:"open_leads"`
	OfferedSlots         int64            `json:"offered_slots"`
}

// Source computes the raw counts for a scope. weekStart and weekEnd are
// YYYY-MM-DD dates, end exclusive.
type Source interface {
	Summary(ctx context.Context, scope Scope, weekStart, weekEnd string) (Summary, error)
}

// Roster lists advisors so a firm admin's scope can be built.
type Roster interface {
	ListAdvisors(ctx context.Context, query string) ([]profiles.Profile, error)
}

type Service struct {
	source Source
	roster Roster
	logger *logging.Logger
	loc    *time.Location
	now    func() time.Time
}

func NewService(source Source, roster Roster, loc *time.Location, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{source: source, roster: roster, logger: logger, loc: loc, now: time.Now}
}

// For returns the caller's summary. Firm admins see every advisor in their firm.
func (s *Service) For(ctx context.Context, who identity.Identity) (Summary, error) {
	scope, err := s.scope(ctx, who)
	if err != nil {
		return Summary{}, err
	}
	start := availability.WeekStart(s.now().In(s.loc))
	end := start.AddDate(0, 0, 7)
	sum, err := s.source.Summary(ctx, scope, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return Summary{}, err
	}
	sum.Scope = scope.Role
	sum.UserIDs = scope.IDs
	sum.WeekStart = start.Format("2006-01-02")
	sum.WeekEnd = end.Format("2006-01-02")
	return sum, nil
}

func (s *Service) scope(ctx context.Context, who identity.Identity) (Scope, error) {
	switch who.Type {
	case identity.Advisor:
		return Scope{Role: RoleAdvisor, IDs: []string{who.UserID}}, nil
	case identity.Consumer:
		return Scope{Role: RoleConsumer, IDs: []string{who.UserID}}, nil
	case identity.FirmAdmin:
		if who.FirmID == "" || s.roster == nil {
			return Scope{}, ErrForbidden
		}
		advisors, err := s.roster.ListAdvisors(ctx, "")
		if err != nil {
			return Scope{}, err
		}
		ids := []string{}
		for _, a := range advisors {
			if a.FirmID == who.FirmID {
				ids = append(ids, a.ID)
			}
		}
		return Scope{Role: RoleAdvisor, IDs: ids}, nil
	}
	return Scope{}, ErrForbidden
}

func openLead(status string) bool {
	return status != "converted" && status != "lost"
}
