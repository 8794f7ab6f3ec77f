package slots

import (
	"fmt"
	"time"
)

// DateLayout is the calendar date format accepted on the wire.
const DateLayout = "2006-01-02"

// Generate emits the "HH:MM" start of every whole slot of duration minutes
// that fits between start and end. Arguments are minutes since midnight. A
// trailing remainder shorter than duration is dropped. The result is empty
// when duration <= 0 or end <= start.
func Generate(start, end, duration int) []string {
	if duration <= 0 || end <= start {
		return []string{}
	}
	out := make([]string, 0, (end-start)/duration)
	for current := start; current+duration <= end; current += duration {
		out = append(out, FormatClock(current))
	}
	return out
}

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

// FormatClock renders minutes since midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a "YYYY-MM-DD" calendar date as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// DayWindow returns the half-open interval [startOfDay, startOfNextDay) that
// contains t, in t's location. The next day is computed by calendar, so DST
// days of 23 or 25 hours are covered exactly.
func DayWindow(t time.Time) (time.Time, time.Time) {
	y, m, d := t.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// Slot is one candidate slot annotated with whether it can still be booked.
type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// Annotate marks each candidate as available unless its label is in booked.
// Order follows candidates.
func Annotate(candidates []string, booked map[string]bool) []Slot {
	out := make([]Slot, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, Slot{Time: c, Available: !booked[c]})
	}
	return out
}
