// Package timezone wraps the runtime tz database for tenant-local time.
package timezone

import (
	"fmt"
	"sync"
	"time"
)

var locations sync.Map // name -> *time.Location

// IsValid reports whether name is an IANA zone identifier known to the
// runtime. "Local" and the empty string are rejected: they resolve to
// process-dependent zones, not a tenant setting.
func IsValid(name string) bool {
	_, err := Load(name)
	return err == nil
}

// Load resolves and memoizes an IANA zone.
func Load(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return nil, fmt.Errorf("invalid timezone %q", name)
	}
	if loc, ok := locations.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	locations.Store(name, loc)
	return loc, nil
}

// ToLocal converts an instant into the wall clock of the named zone.
func ToLocal(t time.Time, name string) (time.Time, error) {
	loc, err := Load(name)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}

// ToUTC interprets the wall-clock reading of local (its location is ignored)
// in the named zone and returns the UTC instant. Wall times skipped by a DST
// transition are normalized forward by time.Date.
func ToUTC(local time.Time, name string) (time.Time, error) {
	loc, err := Load(name)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := local.Date()
	h, mi, s := local.Clock()
	return time.Date(y, m, d, h, mi, s, local.Nanosecond(), loc).UTC(), nil
}
