package challenge

import (
	"log"
	"time"

	"habitQuestAPI/internal/timeclock"
)

// DayCalculator maps a user's challenge start instant to a challenge-day
// index: 0 = not started (same calendar day as registration, or future
// dated), 1..7 = active, 8+ = completed N days ago.
type DayCalculator struct {
	clock *timeclock.Clock
}

func NewDayCalculator(clock *timeclock.Clock) *DayCalculator {
	return &DayCalculator{clock: clock}
}

// DaysSinceStartAt is the deterministic core: whole calendar days between
// now and start in the reference zone. Negative means a future-dated start.
func (c *DayCalculator) DaysSinceStartAt(start, now time.Time) (int, error) {
	return c.clock.DaysBetween(now, start)
}

func (c *DayCalculator) DaysSinceStart(start time.Time) (int, error) {
	now, err := c.clock.Now()
	if err != nil {
		return 0, err
	}
	return c.DaysSinceStartAt(start, now)
}

// ChallengeDayAt returns 0 while the challenge has not started and the
// uncapped day count otherwise, so values above DurationDays signal how
// long ago the challenge finished.
func (c *DayCalculator) ChallengeDayAt(start, now time.Time) (int, error) {
	days, err := c.DaysSinceStartAt(start, now)
	if err != nil {
		return 0, err
	}
	if days <= 0 {
		return 0, nil
	}
	return days, nil
}

func (c *DayCalculator) ChallengeDay(start time.Time) (int, error) {
	now, err := c.clock.Now()
	if err != nil {
		return 0, err
	}
	return c.ChallengeDayAt(start, now)
}

func (c *DayCalculator) IsCompletedAt(start, now time.Time) (bool, error) {
	day, err := c.ChallengeDayAt(start, now)
	if err != nil {
		return false, err
	}
	return day > DurationDays, nil
}

func (c *DayCalculator) IsCompleted(start time.Time) (bool, error) {
	now, err := c.clock.Now()
	if err != nil {
		return false, err
	}
	return c.IsCompletedAt(start, now)
}

func (c *DayCalculator) IsNotStartedAt(start, now time.Time) (bool, error) {
	days, err := c.DaysSinceStartAt(start, now)
	if err != nil {
		return false, err
	}
	return days <= 0, nil
}

func (c *DayCalculator) IsNotStarted(start time.Time) (bool, error) {
	now, err := c.clock.Now()
	if err != nil {
		return false, err
	}
	return c.IsNotStartedAt(start, now)
}

// ChallengeDaySafe treats a nil start and any internal failure as "not
// started". The only calculator entry point meant for handler code.
func (c *DayCalculator) ChallengeDaySafe(start *time.Time) int {
	if start == nil {
		return 0
	}
	day, err := c.ChallengeDay(*start)
	if err != nil {
		log.Printf("daycalc: ChallengeDay failed, treating as not started: %v", err)
		return 0
	}
	return day
}
