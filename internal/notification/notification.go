package notification

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationChallengeCompleted NotificationType = "challenge_completed"
	NotificationDailyReminder      NotificationType = "daily_reminder"
	NotificationChallengeStarted   NotificationType = "challenge_started"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	Data      map[string]any   `json:"data" db:"data"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"`
}
