package challenge

import (
	"fmt"
	"log"
	"math"
	"time"
)

const (
	textNotStarted = "Starts tomorrow"
	textCompleted  = "Challenge completed"
	textError      = "Error calculating progress"
)

// ProgressEngine builds display-ready Progress records. Compute never
// returns an error: failures are encoded in the record itself so rendering
// code only ever checks HasError.
type ProgressEngine struct {
	calc *DayCalculator
}

func NewProgressEngine(calc *DayCalculator) *ProgressEngine {
	return &ProgressEngine{calc: calc}
}

func notStartedProgress() *Progress {
	return &Progress{
		CurrentDay:         0,
		TotalDays:          DurationDays,
		IsCompleted:        false,
		IsNotStarted:       true,
		DaysRemaining:      DurationDays,
		ProgressPercentage: 0,
		DisplayText:        textNotStarted,
	}
}

func errorProgress(err error) *Progress {
	p := notStartedProgress()
	p.DisplayText = textError
	p.HasError = true
	p.ErrorMessage = err.Error()
	return p
}

// Compute evaluates the challenge state as of now. A nil start means the
// user never started a challenge.
func (e *ProgressEngine) Compute(start *time.Time) *Progress {
	if start == nil {
		return notStartedProgress()
	}

	now, err := e.calc.clock.Now()
	if err != nil {
		log.Printf("progress: clock failure: %v", err)
		return errorProgress(err)
	}

	return e.ComputeAt(start, now)
}

// ComputeAt is the deterministic variant used by ranking aggregation and
// tests.
func (e *ProgressEngine) ComputeAt(start *time.Time, now time.Time) *Progress {
	if start == nil {
		return notStartedProgress()
	}

	day, err := e.calc.ChallengeDayAt(*start, now)
	if err != nil {
		log.Printf("progress: day calculation failed for start %v: %v", start, err)
		return errorProgress(err)
	}

	if day <= 0 {
		return notStartedProgress()
	}

	if day > DurationDays {
		return &Progress{
			CurrentDay:         DurationDays,
			TotalDays:          DurationDays,
			IsCompleted:        true,
			DaysRemaining:      0,
			ProgressPercentage: 100,
			DisplayText:        textCompleted,
		}
	}

	return &Progress{
		CurrentDay:         day,
		TotalDays:          DurationDays,
		DaysRemaining:      DurationDays - day,
		ProgressPercentage: round2(float64(day) / DurationDays * 100),
		DisplayText:        fmt.Sprintf("Day %d/%d", day, DurationDays),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
