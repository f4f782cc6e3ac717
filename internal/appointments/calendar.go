package appointments

import (
	"fmt"
	"strings"
	"time"
)

// Filter status values besides the real statuses.
const (
	FilterAll      = "all"
	FilterUpcoming = "upcoming"
)

// GroupByDate buckets appointments by date, each bucket ordered by start time.
func GroupByDate(appts []Appointment) map[string][]Appointment {
	out := make(map[string][]Appointment)
	for _, a := range appts {
		out[a.Date] = append(out[a.Date], a)
	}
	for date := range out {
		SortChronological(out[date])
	}
	return out
}

// CalendarDay is one cell of a month or week view.
type CalendarDay struct {
	Date         string        `json:"date"`
	InMonth      bool          `json:"in_month"`
	Appointments []Appointment `json:"appointments"`
}

// MonthGrid lays out the month as Monday-first weeks. Days from the adjacent
// months pad the first and last week.
func MonthGrid(appts []Appointment, year int, month time.Month) [][]CalendarDay {
	byDate := GroupByDate(appts)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	start := first.AddDate(0, 0, -((int(first.Weekday()) + 6) % 7))
	end := last.AddDate(0, 0, (7-int(last.Weekday()))%7)

	var weeks [][]CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
		week := make([]CalendarDay, 0, 7)
		for i := 0; i < 7; i++ {
			day := d.AddDate(0, 0, i)
			week = append(week, newCalendarDay(day, day.Month() == month, byDate))
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// WeekView returns the seven days starting at weekStart.
func WeekView(appts []Appointment, weekStart time.Time) []CalendarDay {
	byDate := GroupByDate(appts)
	out := make([]CalendarDay, 0, 7)
	for i := 0; i < 7; i++ {
		out = append(out, newCalendarDay(weekStart.AddDate(0, 0, i), true, byDate))
	}
	return out
}

func newCalendarDay(day time.Time, inMonth bool, byDate map[string][]Appointment) CalendarDay {
	key := day.Format(dateLayout)
	list := byDate[key]
	if list == nil {
		list = []Appointment{}
	}
	return CalendarDay{Date: key, InMonth: inMonth, Appointments: list}
}

// ParseMonth reads "2026-03".
func ParseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: month must be YYYY-MM", ErrInvalidFilter)
	}
	return t.Year(), t.Month(), nil
}

// Filter narrows an appointment list by title text and status.
type Filter struct {
	Query  string
	Status string
}

// ParseFilter validates the status value; empty means all.
func ParseFilter(query, status string) (Filter, error) {
	f := Filter{Query: strings.TrimSpace(query), Status: strings.ToLower(strings.TrimSpace(status))}
	switch f.Status {
	case "", FilterAll:
		f.Status = FilterAll
	case FilterUpcoming:
	default:
		st, err := ParseStatus(f.Status)
		if err != nil {
			return Filter{}, fmt.Errorf("%w: unknown status %q", ErrInvalidFilter, status)
		}
		f.Status = string(st)
	}
	return f, nil
}

// Apply keeps appointments whose title contains Query (case-insensitive) and
// whose status matches. "upcoming" means starting after now and not cancelled;
// dates and times are read in now's location.
func (f Filter) Apply(appts []Appointment, now time.Time) []Appointment {
	q := strings.ToLower(f.Query)
	out := []Appointment{}
	for _, a := range appts {
		if q != "" && !strings.Contains(strings.ToLower(a.Title), q) {
			continue
		}
		if !f.matchStatus(a, now) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (f Filter) matchStatus(a Appointment, now time.Time) bool {
	switch f.Status {
	case "", FilterAll:
		return true
	case FilterUpcoming:
		if a.Status == StatusCancelled {
			return false
		}
		start, err := a.StartAt(now.Location())
		return err == nil && start.After(now)
	default:
		return string(a.Status) == f.Status
	}
}
