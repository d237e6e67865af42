package timeclock

import (
	"errors"
	"testing"
	"time"
)

func newTestClock(t *testing.T) *Clock {
	t.Helper()
	clock, err := NewClock("Europe/Sofia")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	return clock
}

func TestNewClockUnknownZone(t *testing.T) {
	_, err := NewClock("Mars/Olympus_Mons")
	if err == nil {
		t.Fatal("expected error for unknown timezone")
	}

	var tzErr *TimezoneError
	if !errors.As(err, &tzErr) {
		t.Errorf("error = %T, want *TimezoneError", err)
	}
}

func TestNewClockDefaultsZone(t *testing.T) {
	clock, err := NewClock("")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	if clock.Location().String() != DefaultTimezone {
		t.Errorf("location = %q, want %q", clock.Location(), DefaultTimezone)
	}
}

func TestToReferenceZoneRejectsZero(t *testing.T) {
	clock := newTestClock(t)

	_, err := clock.ToReferenceZone(time.Time{})
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("err = %v, want ErrInvalidDate", err)
	}
}

func TestStartOfDay(t *testing.T) {
	clock := newTestClock(t)

	// 23:30 UTC on Jan 5 is already 01:30 on Jan 6 in Sofia (UTC+2).
	instant := time.Date(2026, 1, 5, 23, 30, 0, 0, time.UTC)

	got, err := clock.StartOfDay(instant)
	if err != nil {
		t.Fatalf("StartOfDay: %v", err)
	}

	want := time.Date(2026, 1, 6, 0, 0, 0, 0, clock.Location())
	if !got.Equal(want) {
		t.Errorf("StartOfDay = %v, want %v", got, want)
	}
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	clock := newTestClock(t)

	earlier := time.Date(2026, 2, 1, 23, 59, 0, 0, clock.Location())
	later := time.Date(2026, 2, 5, 0, 1, 0, 0, clock.Location())

	days, err := clock.DaysBetween(later, earlier)
	if err != nil {
		t.Fatalf("DaysBetween: %v", err)
	}
	if days != 4 {
		t.Errorf("days = %d, want 4", days)
	}
}

func TestDaysBetweenNegative(t *testing.T) {
	clock := newTestClock(t)

	earlier := time.Date(2026, 2, 5, 12, 0, 0, 0, clock.Location())
	later := time.Date(2026, 2, 2, 12, 0, 0, 0, clock.Location())

	days, err := clock.DaysBetween(later, earlier)
	if err != nil {
		t.Fatalf("DaysBetween: %v", err)
	}
	if days != -3 {
		t.Errorf("days = %d, want -3", days)
	}
}

func TestDaysBetweenAcrossDSTTransition(t *testing.T) {
	clock := newTestClock(t)

	// Sofia springs forward on 2026-03-29: that calendar day is 23 hours
	// long, so naive hour division would undercount.
	earlier := time.Date(2026, 3, 28, 10, 0, 0, 0, clock.Location())
	later := time.Date(2026, 3, 30, 10, 0, 0, 0, clock.Location())

	days, err := clock.DaysBetween(later, earlier)
	if err != nil {
		t.Fatalf("DaysBetween: %v", err)
	}
	if days != 2 {
		t.Errorf("days across spring-forward = %d, want 2", days)
	}

	// Fall back on 2026-10-25: a 25-hour day.
	earlier = time.Date(2026, 10, 24, 10, 0, 0, 0, clock.Location())
	later = time.Date(2026, 10, 26, 10, 0, 0, 0, clock.Location())

	days, err = clock.DaysBetween(later, earlier)
	if err != nil {
		t.Fatalf("DaysBetween: %v", err)
	}
	if days != 2 {
		t.Errorf("days across fall-back = %d, want 2", days)
	}
}

func TestDaysBetweenOrDefault(t *testing.T) {
	clock := newTestClock(t)

	if got := clock.DaysBetweenOrDefault(time.Time{}, time.Now()); got != -1 {
		t.Errorf("fallback = %d, want -1", got)
	}
}

func TestNowOrSystemNeverZero(t *testing.T) {
	var clock *Clock
	if got := clock.NowOrSystem(); got.IsZero() {
		t.Error("NowOrSystem on nil clock returned zero time")
	}
}
