package workhours

import (
	"fmt"
	"strconv"
	"strings"

	"agenda/internal/calendar"
)

// HourRange is an open interval in local civil time, e.g. 09:00-17:00.
// EndHour 24 with EndMinute 0 means the following midnight.
type HourRange struct {
	StartHour   int `json:"start_hour" yaml:"start_hour"`
	StartMinute int `json:"start_minute" yaml:"start_minute"`
	EndHour     int `json:"end_hour" yaml:"end_hour"`
	EndMinute   int `json:"end_minute" yaml:"end_minute"`
}

// DayOfWeekRule lists the open ranges of one weekday (0=Sunday).
type DayOfWeekRule struct {
	DayOfWeek int         `json:"day_of_week" yaml:"day_of_week"`
	Ranges    []HourRange `json:"ranges" yaml:"ranges"`
}

// SpecialDayRule replaces the weekly rule on one calendar date.
// No ranges means closed.
type SpecialDayRule struct {
	Date   calendar.Date `json:"date" yaml:"date"`
	Ranges []HourRange   `json:"ranges" yaml:"ranges"`
}

func (h HourRange) startMinutes() int { return h.StartHour*60 + h.StartMinute }
func (h HourRange) endMinutes() int   { return h.EndHour*60 + h.EndMinute }

// Validate checks clock bounds and that the range is not empty.
func (h HourRange) Validate() error {
	if h.StartHour < 0 || h.StartHour > 23 || h.StartMinute < 0 || h.StartMinute > 59 {
		return fmt.Errorf("invalid start time %02d:%02d", h.StartHour, h.StartMinute)
	}
	if h.EndMinute < 0 || h.EndMinute > 59 || h.EndHour < 0 || h.EndHour > 24 ||
		(h.EndHour == 24 && h.EndMinute != 0) {
		return fmt.Errorf("invalid end time %02d:%02d", h.EndHour, h.EndMinute)
	}
	if h.endMinutes() <= h.startMinutes() {
		return fmt.Errorf("end %02d:%02d must be after start %02d:%02d",
			h.EndHour, h.EndMinute, h.StartHour, h.StartMinute)
	}
	return nil
}

// String renders the range as "HH:MM-HH:MM".
func (h HourRange) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", h.StartHour, h.StartMinute, h.EndHour, h.EndMinute)
}

// ParseHourRange parses "09:00-17:00".
func ParseHourRange(s string) (HourRange, error) {
	from, to, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return HourRange{}, fmt.Errorf("invalid hour range %q, expected HH:MM-HH:MM", s)
	}
	sh, sm, err := parseClock(from)
	if err != nil {
		return HourRange{}, fmt.Errorf("invalid hour range %q: %w", s, err)
	}
	eh, em, err := parseClock(to)
	if err != nil {
		return HourRange{}, fmt.Errorf("invalid hour range %q: %w", s, err)
	}
	h := HourRange{StartHour: sh, StartMinute: sm, EndHour: eh, EndMinute: em}
	if err := h.Validate(); err != nil {
		return HourRange{}, fmt.Errorf("invalid hour range %q: %w", s, err)
	}
	return h, nil
}

func parseClock(s string) (int, int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid clock %q, expected HH:MM", s)
	}
	return h, m, nil
}

// ValidateWeekly checks day numbers and ranges of a weekly table.
func ValidateWeekly(rules []DayOfWeekRule) error {
	seen := make(map[int]bool)
	for i, r := range rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return fmt.Errorf("weekly[%d]: invalid day %d, must be 0-6 (0=Sun)", i, r.DayOfWeek)
		}
		if seen[r.DayOfWeek] {
			return fmt.Errorf("weekly[%d]: duplicate day %d", i, r.DayOfWeek)
		}
		seen[r.DayOfWeek] = true
		if err := validateRanges(r.Ranges); err != nil {
			return fmt.Errorf("weekly[%d]: %w", i, err)
		}
	}
	return nil
}

// ValidateSpecialDays checks ranges and rejects duplicate dates.
func ValidateSpecialDays(rules []SpecialDayRule) error {
	seen := make(map[calendar.Date]bool)
	for i, r := range rules {
		if seen[r.Date] {
			return fmt.Errorf("special_days[%d]: duplicate date %s", i, r.Date)
		}
		seen[r.Date] = true
		if err := validateRanges(r.Ranges); err != nil {
			return fmt.Errorf("special_days[%d]: %w", i, err)
		}
	}
	return nil
}

func validateRanges(ranges []HourRange) error {
	for i, h := range ranges {
		if err := h.Validate(); err != nil {
			return fmt.Errorf("range[%d]: %w", i, err)
		}
		for j := 0; j < i; j++ {
			o := ranges[j]
			if h.startMinutes() < o.endMinutes() && o.startMinutes() < h.endMinutes() {
				return fmt.Errorf("range[%d] %s overlaps range[%d] %s", i, h, j, o)
			}
		}
	}
	return nil
}
