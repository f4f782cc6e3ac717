package availability

import (
	"strings"
	"time"
)

// Day is a recurring weekday. It carries no date.
type Day string

const (
	Monday    Day = "monday"
	Tuesday   Day = "tuesday"
	Wednesday Day = "wednesday"
	Thursday  Day = "thursday"
	Friday    Day = "friday"
	Saturday  Day = "saturday"
	Sunday    Day = "sunday"
)

// Week lists the days Monday first, the order used by every projection.
var Week = [7]Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseDay accepts a weekday name in any case.
func ParseDay(s string) (Day, error) {
	d := Day(strings.ToLower(strings.TrimSpace(s)))
	for _, w := range Week {
		if d == w {
			return d, nil
		}
	}
	return "", ErrInvalidDay
}

// DayOf returns the recurring day a calendar date falls on.
func DayOf(t time.Time) Day {
	switch t.Weekday() {
	case time.Monday:
		return Monday
	case time.Tuesday:
		return Tuesday
	case time.Wednesday:
		return Wednesday
	case time.Thursday:
		return Thursday
	case time.Friday:
		return Friday
	case time.Saturday:
		return Saturday
	default:
		return Sunday
	}
}

// Index is the Monday-based position of the day (monday=0).
func (d Day) Index() int {
	for i, w := range Week {
		if d == w {
			return i
		}
	}
	return -1
}

// Title is the capitalised display name.
func (d Day) Title() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}
