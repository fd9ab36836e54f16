// Package clock converts campaign-local wall-clock times to absolute instants.
// All stored instants are UTC; the fixed campaign timezone appears only at
// this boundary.
package clock

import (
	"fmt"
	"time"
)

const (
	// LocalTimeLayout is the accepted form for campaign-local start times
	LocalTimeLayout = "2006-01-02T15:04"
	// DateKeyLayout is the accepted form for date-keyed campaign instances
	DateKeyLayout = "2006-01-02"
)

// Resolver resolves campaign-local time strings against a fixed timezone
type Resolver struct {
	loc *time.Location
}

// NewResolver creates a Resolver for the named IANA timezone
func NewResolver(tz string) (*Resolver, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign timezone %q: %w", tz, err)
	}
	return &Resolver{loc: loc}, nil
}

// ResolveLocal converts a campaign-local start string to an absolute UTC
// instant. Malformed strings are rejected here, at definition time, so a
// scheduled job never fails to compute its instant at fire time.
func (r *Resolver) ResolveLocal(s string) (time.Time, error) {
	t, err := time.ParseInLocation(LocalTimeLayout, s, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid local start time %q (want %s): %w", s, LocalTimeLayout, err)
	}
	return t.UTC(), nil
}

// EndOfDay returns 23:59 campaign-local on the given date key as a UTC instant
func (r *Resolver) EndOfDay(dateKey string) (time.Time, error) {
	d, err := time.ParseInLocation(DateKeyLayout, dateKey, r.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date key %q (want %s): %w", dateKey, DateKeyLayout, err)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 0, 0, r.loc).UTC(), nil
}

// IsDateKey reports whether an instance key is a date rather than a slug
func (r *Resolver) IsDateKey(key string) bool {
	_, err := time.ParseInLocation(DateKeyLayout, key, r.loc)
	return err == nil
}

// Now returns the current instant in the campaign timezone
func (r *Resolver) Now() time.Time {
	return time.Now().In(r.loc)
}

// Today returns the current date key in the campaign timezone
func (r *Resolver) Today() string {
	return time.Now().In(r.loc).Format(DateKeyLayout)
}

// Location exposes the fixed campaign timezone for display formatting
func (r *Resolver) Location() *time.Location {
	return r.loc
}
