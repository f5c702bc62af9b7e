package workhours

import (
	"time"

	"agenda/internal/calendar"
	"agenda/internal/slots"
)

// Config is the input of an Expander.
type Config struct {
	TimeZone    string
	Weekly      []DayOfWeekRule
	SpecialDays []SpecialDayRule
}

// Expander turns zone-local business hours into absolute ranges.
// It holds only its constructed configuration and is safe for concurrent use.
type Expander struct {
	loc     *time.Location
	weekly  map[time.Weekday][]HourRange
	special map[calendar.Date][]HourRange
}

// NewExpander resolves the zone and indexes the rules. When a weekday or date
// appears more than once the first rule wins.
func NewExpander(cfg Config) (*Expander, error) {
	loc, err := calendar.LoadZone(cfg.TimeZone)
	if err != nil {
		return nil, err
	}

	e := &Expander{
		loc:     loc,
		weekly:  make(map[time.Weekday][]HourRange, len(cfg.Weekly)),
		special: make(map[calendar.Date][]HourRange, len(cfg.SpecialDays)),
	}
	for _, r := range cfg.Weekly {
		wd := time.Weekday(r.DayOfWeek)
		if _, ok := e.weekly[wd]; !ok {
			e.weekly[wd] = r.Ranges
		}
	}
	for _, r := range cfg.SpecialDays {
		if _, ok := e.special[r.Date]; !ok {
			e.special[r.Date] = r.Ranges
		}
	}
	return e, nil
}

// Location returns the zone the expander works in.
func (e *Expander) Location() *time.Location { return e.loc }

// Expand returns the open ranges for every local date from the date of start
// through the date of end, inclusive. Ranges are not clipped to [start, end).
func (e *Expander) Expand(start, end time.Time) []slots.TimeRange {
	result := make([]slots.TimeRange, 0)

	last := calendar.DateOf(end, e.loc)
	for day := calendar.DateOf(start, e.loc); !day.After(last); day = day.AddDays(1) {
		ranges, ok := e.special[day]
		if !ok {
			ranges = e.weekly[day.Weekday()]
		}
		for _, h := range ranges {
			r := slots.FromTimes(
				calendar.LocalInstant(day, h.StartHour, h.StartMinute, e.loc),
				calendar.LocalInstant(day, h.EndHour, h.EndMinute, e.loc),
			)
			if !r.Valid() {
				continue
			}
			result = append(result, r)
		}
	}
	return result
}

// Expand is a one-shot form of NewExpander followed by Expand.
func Expand(start, end time.Time, weekly []DayOfWeekRule, special []SpecialDayRule, zone string) ([]slots.TimeRange, error) {
	e, err := NewExpander(Config{TimeZone: zone, Weekly: weekly, SpecialDays: special})
	if err != nil {
		return nil, err
	}
	return e.Expand(start, end), nil
}
