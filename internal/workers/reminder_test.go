package workers

import (
	"testing"

	"habitQuestAPI/internal/timeclock"
)

func newTestWorker(t *testing.T) *ReminderWorker {
	t.Helper()
	clock, err := timeclock.NewClock("")
	if err != nil {
		t.Fatalf("NewClock: %v", err)
	}
	// The hourly ticker never fires within the test, so no db is needed.
	return NewReminderWorker(nil, clock, nil)
}

func TestReminderWorkerStopIsIdempotent(t *testing.T) {
	w := newTestWorker(t)
	w.Start()
	w.Stop()
	w.Stop()

	w2 := newTestWorker(t)
	w2.Stop()
}

func TestReminderHourFromEnv(t *testing.T) {
	t.Setenv("REMINDER_HOUR", "7")
	if w := newTestWorker(t); w.hour != 7 {
		t.Errorf("hour = %d, want 7", w.hour)
	}

	t.Setenv("REMINDER_HOUR", "25")
	if w := newTestWorker(t); w.hour != DefaultReminderHour {
		t.Errorf("invalid hour gave %d, want default %d", w.hour, DefaultReminderHour)
	}
}
