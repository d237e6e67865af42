package timeclock

import (
	"log"
	"math"
	"time"
)

// DefaultTimezone is used when REFERENCE_TIMEZONE is not configured.
const DefaultTimezone = "Europe/Sofia"

// Clock converts arbitrary instants into a single fixed reference timezone
// and computes day-boundary-aligned day counts. All challenge "day"
// arithmetic in the app goes through one Clock so that DST transitions in
// the reference zone never shift a user's challenge day.
type Clock struct {
	loc *time.Location
}

// NewClock loads the named civil timezone. An empty name falls back to
// DefaultTimezone.
func NewClock(timezone string) (*Clock, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}

	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, &TimezoneError{Op: "load_location", Err: err}
	}

	return &Clock{loc: loc}, nil
}

// Location returns the reference timezone.
func (c *Clock) Location() *time.Location {
	return c.loc
}

// Now returns the current instant in the reference timezone.
func (c *Clock) Now() (time.Time, error) {
	if c == nil || c.loc == nil {
		return time.Time{}, &TimezoneError{Op: "now", Err: ErrInvalidDate}
	}
	return time.Now().In(c.loc), nil
}

// NowOrSystem is the fallback variant of Now for request-handling code. It
// logs and returns the system clock instead of failing.
func (c *Clock) NowOrSystem() time.Time {
	now, err := c.Now()
	if err != nil {
		log.Printf("timeclock: Now failed, falling back to system clock: %v", err)
		return time.Now()
	}
	return now
}

// ToReferenceZone converts an arbitrary instant to the reference timezone.
// Zero instants are rejected with ErrInvalidDate.
func (c *Clock) ToReferenceZone(t time.Time) (time.Time, error) {
	if c == nil || c.loc == nil {
		return time.Time{}, &TimezoneError{Op: "to_reference_zone", Err: ErrInvalidDate}
	}
	if t.IsZero() {
		return time.Time{}, &TimezoneError{Op: "to_reference_zone", Err: ErrInvalidDate}
	}
	return t.In(c.loc), nil
}

// StartOfDay returns the reference-timezone midnight on or before t.
func (c *Clock) StartOfDay(t time.Time) (time.Time, error) {
	ref, err := c.ToReferenceZone(t)
	if err != nil {
		return time.Time{}, err
	}

	year, month, day := ref.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, c.loc), nil
}

// DaysBetween returns the whole-day difference between two instants. Both
// inputs are normalized to reference-zone midnight first, so the time-of-day
// component never perturbs the count. Negative results (earlier after later)
// are preserved, not clamped.
func (c *Clock) DaysBetween(later, earlier time.Time) (int, error) {
	laterDay, err := c.StartOfDay(later)
	if err != nil {
		return 0, err
	}

	earlierDay, err := c.StartOfDay(earlier)
	if err != nil {
		return 0, err
	}

	// Rounding absorbs the 23h/25h days around DST transitions.
	hours := laterDay.Sub(earlierDay).Hours()
	return int(math.Round(hours / 24)), nil
}

// DaysBetweenOrDefault logs any failure and returns -1, the documented
// neutral value for UI-adjacent callers.
func (c *Clock) DaysBetweenOrDefault(later, earlier time.Time) int {
	days, err := c.DaysBetween(later, earlier)
	if err != nil {
		log.Printf("timeclock: DaysBetween failed: %v", err)
		return -1
	}
	return days
}
