package availability

import (
	"sort"
	"time"
)

const dateLayout = "2006-01-02"

// SortSlots orders slots by weekday then start time.
func SortSlots(slots []TimeSlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := slots[i].Day.Index(), slots[j].Day.Index()
		if di != dj {
			return di < dj
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

// GroupByDay buckets slots per weekday, each bucket sorted by start time.
func GroupByDay(slots []TimeSlot) map[Day][]TimeSlot {
	out := make(map[Day][]TimeSlot)
	for _, s := range slots {
		out[s.Day] = append(out[s.Day], s)
	}
	for d := range out {
		SortSlots(out[d])
	}
	return out
}

// WeekStart returns local midnight of the Monday on or before ref.
func WeekStart(ref time.Time) time.Time {
	y, m, d := ref.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, ref.Location())
	back := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -back)
}

// BookingWindow returns the half-open range of dates the week projection can
// show: the current week through lookaheadWeeks weeks after it.
func BookingWindow(now time.Time, lookaheadWeeks int) (from, until time.Time) {
	if lookaheadWeeks < 0 {
		lookaheadWeeks = 0
	}
	from = WeekStart(now)
	return from, from.AddDate(0, 0, 7*(lookaheadWeeks+1))
}

// WeekOf returns the seven dates, Monday first, of the week containing ref.
func WeekOf(ref time.Time) [7]time.Time {
	var days [7]time.Time
	start := WeekStart(ref)
	for i := range days {
		days[i] = start.AddDate(0, 0, i)
	}
	return days
}

// OfferedSlot is a recurring slot placed on a concrete date.
type OfferedSlot struct {
	SlotID    string `json:"slot_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Label     string `json:"label"`
}

// DaySchedule is one column of the booking view.
type DaySchedule struct {
	Date  string        `json:"date"`
	Day   Day           `json:"day"`
	Slots []OfferedSlot `json:"slots"`
}

// WeekSchedule is the consumer-facing projection of an advisor's availability.
type WeekSchedule struct {
	AdvisorID string        `json:"advisor_id"`
	Offset    int           `json:"offset"`
	WeekStart string        `json:"week_start"`
	Days      []DaySchedule `json:"days"`
}

// ProjectWeek lays the recurring slots onto the seven dates starting at
// weekStart. Slots marked unavailable are hidden.
func ProjectWeek(advisorID string, slots []TimeSlot, weekStart time.Time, offset int) WeekSchedule {
	byDay := GroupByDay(slots)
	ws := WeekSchedule{
		AdvisorID: advisorID,
		Offset:    offset,
		WeekStart: weekStart.Format(dateLayout),
		Days:      make([]DaySchedule, 0, len(Week)),
	}
	for i, day := range Week {
		date := weekStart.AddDate(0, 0, i)
		ds := DaySchedule{Date: date.Format(dateLayout), Day: day, Slots: []OfferedSlot{}}
		for _, s := range byDay[day] {
			if !s.IsAvailable {
				continue
			}
			ds.Slots = append(ds.Slots, OfferedSlot{
				SlotID:    s.ID,
				StartTime: s.StartTime,
				EndTime:   s.EndTime,
				Label:     s.Label(),
			})
		}
		ws.Days = append(ws.Days, ds)
	}
	return ws
}

// FindOffered returns the available slot on day covering exactly start-end.
func FindOffered(slots []TimeSlot, day Day, start, end string) (TimeSlot, bool) {
	for _, s := range slots {
		if s.IsAvailable && s.Day == day && s.StartTime == start && s.EndTime == end {
			return s, true
		}
	}
	return TimeSlot{}, false
}
