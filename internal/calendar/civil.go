package calendar

import (
	"fmt"
	"time"
)

// CivilParts is the wall-clock reading of an instant in some zone.
type CivilParts struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// Date returns the calendar date part.
func (p CivilParts) Date() Date {
	return Date{Year: p.Year, Month: time.Month(p.Month), Day: p.Day}
}

// Offset is a signed UTC offset. Both fields carry the sign, so -03:30 is {-3, -30}.
// Local time = UTC + offset.
type Offset struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
}

// Duration converts the offset to a time.Duration.
func (o Offset) Duration() time.Duration {
	return time.Duration(o.Hours)*time.Hour + time.Duration(o.Minutes)*time.Minute
}

// String formats the offset as "+05:30" / "-05:00".
func (o Offset) String() string {
	sign := "+"
	h, m := o.Hours, o.Minutes
	if h < 0 || m < 0 {
		sign = "-"
		h, m = -h, -m
	}
	return fmt.Sprintf("%s%02d:%02d", sign, h, m)
}

func offsetFromSeconds(secs int) Offset {
	return Offset{Hours: secs / 3600, Minutes: (secs % 3600) / 60}
}

// CivilPartsAt returns the local calendar date and clock time in zone at t.
func CivilPartsAt(t time.Time, zone string) (CivilParts, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return CivilParts{}, err
	}
	return civilParts(t, loc), nil
}

func civilParts(t time.Time, loc *time.Location) CivilParts {
	lt := t.In(loc)
	return CivilParts{
		Year:   lt.Year(),
		Month:  int(lt.Month()),
		Day:    lt.Day(),
		Hour:   lt.Hour(),
		Minute: lt.Minute(),
		Second: lt.Second(),
	}
}

// UTCOffsetAt returns the offset of zone in effect at t.
func UTCOffsetAt(zone string, t time.Time) (Offset, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return Offset{}, err
	}
	return OffsetIn(loc, t), nil
}

// OffsetIn is UTCOffsetAt for an already resolved location.
func OffsetIn(loc *time.Location, t time.Time) Offset {
	_, secs := t.In(loc).Zone()
	return offsetFromSeconds(secs)
}

// AddCompleteLocalDays returns local midnight of the civil date `days` days
// after start's local date. The current day is never complete, so when that
// midnight falls before start (days == 0, or a DST edge) one more civil day is
// added. A start sitting exactly on the target midnight is returned unchanged.
// Negative days are treated as zero.
func AddCompleteLocalDays(start time.Time, days int, zone string) (time.Time, error) {
	loc, err := LoadZone(zone)
	if err != nil {
		return time.Time{}, err
	}
	if days < 0 {
		days = 0
	}

	parts := civilParts(start, loc)
	offset := OffsetIn(loc, start)

	target := time.Date(parts.Year, time.Month(parts.Month), parts.Day+days, 0, 0, 0, 0, time.UTC).
		Add(-offset.Duration())
	if target.Before(start) {
		next := parts.Date().AddDays(days + 1)
		target = LocalInstant(next, 0, 0, loc)
	}
	return target.UTC(), nil
}
