package workers

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitQuestAPI/internal/challenge"
	"habitQuestAPI/internal/notification"
	"habitQuestAPI/internal/timeclock"
	"habitQuestAPI/services"
)

// DefaultReminderHour is the reference-zone hour after which reminders go
// out when REMINDER_HOUR is not configured.
const DefaultReminderHour = 18

// ReminderWorker nudges users who have an active challenge but no progress
// logged for the current challenge day. It wakes once an hour and sends at
// most one reminder per user per calendar day, at or after the configured
// local hour.
type ReminderWorker struct {
	db     *pgxpool.Pool
	clock  *timeclock.Clock
	calc   *challenge.DayCalculator
	notifs *services.NotificationService

	hour     int
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewReminderWorker(db *pgxpool.Pool, clock *timeclock.Clock, notifs *services.NotificationService) *ReminderWorker {
	hour := DefaultReminderHour
	if v := os.Getenv("REMINDER_HOUR"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= 23 {
			hour = n
		} else {
			log.Printf("Ignoring invalid REMINDER_HOUR %q", v)
		}
	}

	return &ReminderWorker{
		db:     db,
		clock:  clock,
		calc:   challenge.NewDayCalculator(clock),
		notifs: notifs,
		hour:   hour,
		stop:   make(chan struct{}),
	}
}

// Start launches the hourly loop. Call Stop to shut it down.
func (w *ReminderWorker) Start() {
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-w.stop:
				return
			case <-ticker.C:
				now := w.clock.NowOrSystem()
				if now.Hour() >= w.hour {
					w.run()
				}
			}
		}
	}()
}

// Stop shuts the loop down and waits for it to exit. Safe to call more
// than once and without a prior Start.
func (w *ReminderWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	if w.done != nil {
		<-w.done
	}
}

func (w *ReminderWorker) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	today := w.clock.NowOrSystem().Format("2006-01-02")

	// Active challengers with nothing logged today and no reminder yet.
	rows, err := w.db.Query(ctx, `
		SELECT u.id, u.challenge_start_date
		FROM users u
		WHERE u.challenge_start_date IS NOT NULL
		  AND u.challenge_completed_at IS NULL
		  AND NOT EXISTS (
		      SELECT 1 FROM daily_progress dp
		      WHERE dp.user_id = u.id AND dp.date = $1
		  )
		  AND NOT EXISTS (
		      SELECT 1 FROM notifications n
		      WHERE n.user_id = u.id
		        AND n.type = 'daily_reminder'
		        AND n.created_at >= $1::date
		  )
	`, today)
	if err != nil {
		log.Printf("reminder: query failed: %v", err)
		return
	}
	defer rows.Close()

	type candidate struct {
		userID uuid.UUID
		day    int
	}
	var candidates []candidate

	for rows.Next() {
		var userID uuid.UUID
		var start *time.Time
		if err := rows.Scan(&userID, &start); err != nil {
			log.Printf("reminder: scan failed: %v", err)
			continue
		}

		day := w.calc.ChallengeDaySafe(start)
		if day < 1 || day > challenge.DurationDays {
			continue
		}
		candidates = append(candidates, candidate{userID, day})
	}
	if err := rows.Err(); err != nil {
		log.Printf("reminder: row iteration failed: %v", err)
		return
	}

	sent := 0
	for _, c := range candidates {
		_, err := w.notifs.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  c.userID,
			Type:    notification.NotificationDailyReminder,
			Title:   fmt.Sprintf("Day %d check-in", c.day),
			Message: fmt.Sprintf("You haven't logged day %d/%d yet. Keep the streak alive!", c.day, challenge.DurationDays),
		})
		if err != nil {
			log.Printf("reminder: notification failed for %s: %v", c.userID, err)
			continue
		}
		sent++
	}

	if sent > 0 {
		log.Printf("reminder: sent %d daily reminders", sent)
	}
}
