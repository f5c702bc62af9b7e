package calendar

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Date is a civil calendar date without zone or clock.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses "YYYY-MM-DD".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// DateOf returns the civil date of t in loc.
func DateOf(t time.Time, loc *time.Location) Date {
	lt := t.In(loc)
	return Date{Year: lt.Year(), Month: lt.Month(), Day: lt.Day()}
}

// anchor is noon UTC on the date; arithmetic on it never crosses a day boundary by accident.
func (d Date) anchor() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 12, 0, 0, 0, time.UTC)
}

// AddDays steps n civil days.
func (d Date) AddDays(n int) Date {
	t := d.anchor().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// Weekday of the date.
func (d Date) Weekday() time.Weekday {
	return d.anchor().Weekday()
}

// Before reports whether d is an earlier date than other.
func (d Date) Before(other Date) bool {
	return d.anchor().Before(other.anchor())
}

// After reports whether d is a later date than other.
func (d Date) After(other Date) bool {
	return d.anchor().After(other.anchor())
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// LocalInstant returns the instant at which clocks in loc read hour:minute on date.
// The offset comes from the zone database for that civil time, so each day
// resolves with its own offset across DST transitions. Clock readings skipped by
// a forward transition are normalized the way time.Date does.
func LocalInstant(date Date, hour, minute int, loc *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, hour, minute, 0, 0, loc)
}
