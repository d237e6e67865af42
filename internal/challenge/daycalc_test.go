package challenge

import (
	"testing"
	"time"

	"habitQuestAPI/internal/timeclock"
)

func newTestCalc(t *testing.T) *DayCalculator {
	t.Helper()
	clock, err := timeclock.NewClock("Europe/Sofia")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	return NewDayCalculator(clock)
}

func TestChallengeDayTable(t *testing.T) {
	calc := newTestCalc(t)
	loc := calc.clock.Location()

	// Registration at reference-zone midday.
	start := time.Date(2026, 3, 2, 12, 0, 0, 0, loc)

	tests := []struct {
		name      string
		now       time.Time
		wantDay   int
		completed bool
	}{
		{"same day", time.Date(2026, 3, 2, 23, 0, 0, 0, loc), 0, false},
		{"next morning", time.Date(2026, 3, 3, 0, 30, 0, 0, loc), 1, false},
		{"day four", time.Date(2026, 3, 6, 12, 0, 0, 0, loc), 4, false},
		{"last day", time.Date(2026, 3, 9, 8, 0, 0, 0, loc), 7, false},
		{"one past", time.Date(2026, 3, 10, 8, 0, 0, 0, loc), 8, true},
		{"long past, uncapped", time.Date(2026, 3, 22, 8, 0, 0, 0, loc), 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := calc.ChallengeDayAt(start, tt.now)
			if err != nil {
				t.Fatalf("ChallengeDayAt: %v", err)
			}
			if day != tt.wantDay {
				t.Errorf("day = %d, want %d", day, tt.wantDay)
			}

			completed, err := calc.IsCompletedAt(start, tt.now)
			if err != nil {
				t.Fatalf("IsCompletedAt: %v", err)
			}
			if completed != tt.completed {
				t.Errorf("completed = %v, want %v", completed, tt.completed)
			}
		})
	}
}

func TestFutureStartTreatedAsNotStarted(t *testing.T) {
	calc := newTestCalc(t)
	loc := calc.clock.Location()

	now := time.Date(2026, 3, 2, 12, 0, 0, 0, loc)
	start := time.Date(2026, 3, 10, 12, 0, 0, 0, loc)

	day, err := calc.ChallengeDayAt(start, now)
	if err != nil {
		t.Fatalf("ChallengeDayAt: %v", err)
	}
	if day != 0 {
		t.Errorf("future-dated start gave day %d, want 0", day)
	}

	notStarted, err := calc.IsNotStartedAt(start, now)
	if err != nil {
		t.Fatalf("IsNotStartedAt: %v", err)
	}
	if !notStarted {
		t.Error("future-dated start should be not started")
	}
}

// Normalizing the start to midnight must not change the day count; only the
// calendar day in the reference zone matters.
func TestChallengeDayIgnoresTimeOfDay(t *testing.T) {
	calc := newTestCalc(t)
	loc := calc.clock.Location()

	now := time.Date(2026, 4, 10, 15, 0, 0, 0, loc)

	for hour := 0; hour < 24; hour++ {
		start := time.Date(2026, 4, 5, hour, 0, 0, 0, loc)

		day, err := calc.ChallengeDayAt(start, now)
		if err != nil {
			t.Fatalf("ChallengeDayAt: %v", err)
		}

		midnight, err := calc.clock.StartOfDay(start)
		if err != nil {
			t.Fatalf("StartOfDay: %v", err)
		}
		dayNormalized, err := calc.ChallengeDayAt(midnight, now)
		if err != nil {
			t.Fatalf("ChallengeDayAt normalized: %v", err)
		}

		if day != dayNormalized {
			t.Errorf("hour %d: day %d != normalized day %d", hour, day, dayNormalized)
		}
	}
}

// Advancing now a day at a time never decreases the challenge day.
func TestChallengeDayMonotonic(t *testing.T) {
	calc := newTestCalc(t)
	loc := calc.clock.Location()

	start := time.Date(2026, 3, 25, 9, 0, 0, 0, loc)

	prev := -1
	for i := 0; i < 15; i++ {
		now := start.AddDate(0, 0, i)
		day, err := calc.ChallengeDayAt(start, now)
		if err != nil {
			t.Fatalf("ChallengeDayAt: %v", err)
		}
		if day < prev {
			t.Errorf("day %d at offset %d decreased from %d", day, i, prev)
		}
		prev = day
	}
}

func TestChallengeDaySafe(t *testing.T) {
	calc := newTestCalc(t)

	if got := calc.ChallengeDaySafe(nil); got != 0 {
		t.Errorf("nil start gave %d, want 0", got)
	}

	zero := time.Time{}
	if got := calc.ChallengeDaySafe(&zero); got != 0 {
		t.Errorf("zero start gave %d, want 0", got)
	}
}
