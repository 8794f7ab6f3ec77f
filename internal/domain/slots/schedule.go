// Package slots holds the weekly schedule model of a doctor and the pure
// functions that turn it into bookable time slots for a calendar day.
package slots

import (
	"fmt"
	"sort"
	"time"
)

// Defaults applied to a doctor schedule whose fields were omitted.
const (
	DefaultStartTime    = "08:00"
	DefaultEndTime      = "17:00"
	DefaultSlotDuration = 30
)

// DefaultWorkingDays is Monday through Friday.
var DefaultWorkingDays = []int{1, 2, 3, 4, 5}

// Schedule is the weekly working pattern of a doctor. WorkingDays uses
// time.Weekday numbering (0 = Sunday).
type Schedule struct {
	WorkingDays  []int  `json:"workingDays"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
	SlotDuration int    `json:"slotDuration"`
}

// DefaultSchedule returns Mon-Fri 08:00-17:00 in 30 minute slots.
func DefaultSchedule() Schedule {
	return Schedule{}.WithDefaults()
}

// WithDefaults fills every omitted field with its default. A nil WorkingDays
// means "not provided"; an explicit empty slice is kept and means the doctor
// works no days.
func (s Schedule) WithDefaults() Schedule {
	if s.WorkingDays == nil {
		s.WorkingDays = append([]int(nil), DefaultWorkingDays...)
	}
	if s.StartTime == "" {
		s.StartTime = DefaultStartTime
	}
	if s.EndTime == "" {
		s.EndTime = DefaultEndTime
	}
	if s.SlotDuration == 0 {
		s.SlotDuration = DefaultSlotDuration
	}
	return s
}

// Validate rejects schedules that cannot describe a working day.
func (s Schedule) Validate() error {
	seen := make(map[int]bool, len(s.WorkingDays))
	for _, d := range s.WorkingDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("working day %d out of range 0-6", d)
		}
		if seen[d] {
			return fmt.Errorf("working day %d listed twice", d)
		}
		seen[d] = true
	}
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return fmt.Errorf("startTime: %w", err)
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return fmt.Errorf("endTime: %w", err)
	}
	if end <= start {
		return fmt.Errorf("endTime %s must be after startTime %s", s.EndTime, s.StartTime)
	}
	if s.SlotDuration <= 0 {
		return fmt.Errorf("slotDuration must be positive, got %d", s.SlotDuration)
	}
	if s.SlotDuration > end-start {
		return fmt.Errorf("slotDuration %d exceeds the working day", s.SlotDuration)
	}
	return nil
}

// Normalized returns the schedule with working days sorted.
func (s Schedule) Normalized() Schedule {
	days := append([]int(nil), s.WorkingDays...)
	sort.Ints(days)
	s.WorkingDays = days
	return s
}

// WorksOn reports whether the weekday is one of the working days.
func (s Schedule) WorksOn(day time.Weekday) bool {
	for _, d := range s.WorkingDays {
		if d == int(day) {
			return true
		}
	}
	return false
}

// SlotsFor returns the candidate slot labels for the given day, or nil when the
// weekday is not a working day.
func (s Schedule) SlotsFor(day time.Time) []string {
	if !s.WorksOn(day.Weekday()) {
		return nil
	}
	start, err := ParseClock(s.StartTime)
	if err != nil {
		return nil
	}
	end, err := ParseClock(s.EndTime)
	if err != nil {
		return nil
	}
	return Generate(start, end, s.SlotDuration)
}

// Offers reports whether label is one of the slots the schedule produces on day.
func (s Schedule) Offers(day time.Time, label string) bool {
	for _, candidate := range s.SlotsFor(day) {
		if candidate == label {
			return true
		}
	}
	return false
}
