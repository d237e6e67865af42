package challenge

import (
	"strings"
	"testing"
	"time"

	"habitQuestAPI/internal/timeclock"
)

func newTestEngine(t *testing.T) *ProgressEngine {
	t.Helper()
	clock, err := timeclock.NewClock("Europe/Sofia")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	return NewProgressEngine(NewDayCalculator(clock))
}

func TestComputeNilStart(t *testing.T) {
	engine := newTestEngine(t)

	p := engine.Compute(nil)

	if p.CurrentDay != 0 || p.TotalDays != 7 || p.IsCompleted || !p.IsNotStarted {
		t.Errorf("unexpected not-started shape: %+v", p)
	}
	if p.DaysRemaining != 7 || p.ProgressPercentage != 0 || p.HasError {
		t.Errorf("unexpected not-started numerics: %+v", p)
	}
}

func TestComputeActiveDayFour(t *testing.T) {
	engine := newTestEngine(t)
	loc := engine.calc.clock.Location()

	start := time.Date(2026, 3, 2, 12, 0, 0, 0, loc)
	now := start.AddDate(0, 0, 4)

	p := engine.ComputeAt(&start, now)

	if p.CurrentDay != 4 {
		t.Errorf("current day = %d, want 4", p.CurrentDay)
	}
	if p.IsCompleted || p.IsNotStarted {
		t.Errorf("flags wrong for active challenge: %+v", p)
	}
	if p.DaysRemaining != 3 {
		t.Errorf("days remaining = %d, want 3", p.DaysRemaining)
	}
	if p.ProgressPercentage != 57.14 {
		t.Errorf("percentage = %v, want 57.14", p.ProgressPercentage)
	}
	if !strings.Contains(p.DisplayText, "4/7") {
		t.Errorf("display text %q missing 4/7", p.DisplayText)
	}
}

func TestComputeCompletedCapsDisplayDay(t *testing.T) {
	engine := newTestEngine(t)
	loc := engine.calc.clock.Location()

	start := time.Date(2026, 3, 2, 12, 0, 0, 0, loc)
	now := start.AddDate(0, 0, 8)

	// Raw day count is 8, display is capped at 7.
	rawDay, err := engine.calc.ChallengeDayAt(start, now)
	if err != nil {
		t.Fatalf("ChallengeDayAt: %v", err)
	}
	if rawDay != 8 {
		t.Errorf("raw day = %d, want 8", rawDay)
	}

	p := engine.ComputeAt(&start, now)
	if !p.IsCompleted {
		t.Error("expected completed")
	}
	if p.CurrentDay != 7 {
		t.Errorf("display day = %d, want 7", p.CurrentDay)
	}
	if p.ProgressPercentage != 100 || p.DaysRemaining != 0 {
		t.Errorf("completed numerics wrong: %+v", p)
	}
}

func TestComputeErrorShape(t *testing.T) {
	engine := newTestEngine(t)

	zero := time.Time{}
	p := engine.ComputeAt(&zero, time.Now())

	if !p.HasError {
		t.Fatal("expected HasError for zero start instant")
	}
	if p.ErrorMessage == "" {
		t.Error("expected error message")
	}
	// Error records fall back to the not-started numerics.
	if p.CurrentDay != 0 || !p.IsNotStarted || p.IsCompleted || p.DaysRemaining != 7 {
		t.Errorf("error record numerics wrong: %+v", p)
	}
}

// Exactly one of not-started, active, completed holds for every offset.
func TestProgressStateExclusive(t *testing.T) {
	engine := newTestEngine(t)
	loc := engine.calc.clock.Location()

	start := time.Date(2026, 5, 1, 18, 0, 0, 0, loc)

	for offset := -3; offset <= 12; offset++ {
		now := start.AddDate(0, 0, offset)
		p := engine.ComputeAt(&start, now)
		if p.HasError {
			t.Fatalf("offset %d: unexpected error: %+v", offset, p)
		}

		active := !p.IsNotStarted && !p.IsCompleted
		states := 0
		for _, s := range []bool{p.IsNotStarted, active, p.IsCompleted} {
			if s {
				states++
			}
		}
		if states != 1 {
			t.Errorf("offset %d: %d states active, want exactly 1: %+v", offset, states, p)
		}

		if active && (p.CurrentDay < 1 || p.CurrentDay > 7) {
			t.Errorf("offset %d: active day %d out of range", offset, p.CurrentDay)
		}
	}
}
