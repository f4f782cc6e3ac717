package availability

import (
	"fmt"
	"strings"
	"time"
)

const (
	clockLayout24 = "15:04"
	clockLayout12 = "3:04 PM"
	rangeSep      = " - "
	lastMinute    = 23*60 + 59
)

// ParseClock validates a zero-padded HH:MM string and returns minutes past midnight.
// Fixed width matters: slot ordering compares the raw strings.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidTime
	}
	t, err := time.Parse(clockLayout24, s)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ClockFromMinutes renders minutes past midnight as HH:MM, clamped to the day.
func ClockFromMinutes(m int) string {
	if m < 0 {
		m = 0
	}
	if m > lastMinute {
		m = lastMinute
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// FormatClock12 turns "13:05" into "1:05 PM".
func FormatClock12(hhmm string) (string, error) {
	if _, err := ParseClock(hhmm); err != nil {
		return "", err
	}
	t, _ := time.Parse(clockLayout24, hhmm)
	return t.Format(clockLayout12), nil
}

// ParseClock12 is the inverse of FormatClock12.
func ParseClock12(s string) (string, error) {
	s = strings.ToUpper(strings.Join(strings.Fields(s), " "))
	if !strings.HasSuffix(s, " AM") && !strings.HasSuffix(s, " PM") {
		// tolerate "9:00AM"
		if strings.HasSuffix(s, "AM") || strings.HasSuffix(s, "PM") {
			s = s[:len(s)-2] + " " + s[len(s)-2:]
		}
	}
	t, err := time.Parse(clockLayout12, s)
	if err != nil {
		return "", ErrInvalidTime
	}
	return t.Format(clockLayout24), nil
}

// FormatRange12 renders a slot as "9:00 AM - 10:00 AM".
func FormatRange12(start, end string) (string, error) {
	a, err := FormatClock12(start)
	if err != nil {
		return "", err
	}
	b, err := FormatClock12(end)
	if err != nil {
		return "", err
	}
	return a + rangeSep + b, nil
}

// FormatRange12Must is FormatRange12 for values already validated; bad input
// falls back to the raw strings.
func FormatRange12Must(start, end string) string {
	label, err := FormatRange12(start, end)
	if err != nil {
		return start + rangeSep + end
	}
	return label
}

// ParseRange12 turns "9:00 AM - 10:00 AM" back into ("09:00", "10:00").
func ParseRange12(label string) (string, string, error) {
	label = strings.ReplaceAll(label, "–", "-")
	parts := strings.Split(label, "-")
	if len(parts) != 2 {
		return "", "", ErrInvalidTime
	}
	start, err := ParseClock12(parts[0])
	if err != nil {
		return "", "", err
	}
	end, err := ParseClock12(parts[1])
	if err != nil {
		return "", "", err
	}
	return start, end, nil
}
