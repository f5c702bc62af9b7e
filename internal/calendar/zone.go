package calendar

import (
	"errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata" // zone database embedded so hosts without /usr/share/zoneinfo behave the same
)

// ErrUnknownZone is returned for time zone identifiers missing from the zone database.
var ErrUnknownZone = errors.New("unknown time zone")

var zoneCache sync.Map // map[string]*time.Location

// LoadZone resolves an IANA zone identifier. Unlike time.LoadLocation it rejects
// the empty string and "Local", so a misconfigured zone never degrades to UTC
// or to the host zone.
func LoadZone(zone string) (*time.Location, error) {
	if zone == "" || zone == "Local" {
		return nil, fmt.Errorf("%w: %q", ErrUnknownZone, zone)
	}
	if loc, ok := zoneCache.Load(zone); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownZone, zone, err)
	}
	zoneCache.Store(zone, loc)
	return loc, nil
}

// MustLoadZone is LoadZone for package-level defaults and tests.
func MustLoadZone(zone string) *time.Location {
	loc, err := LoadZone(zone)
	if err != nil {
		panic(err)
	}
	return loc
}
