package challenge

import (
	"time"

	"github.com/google/uuid"
)

// DurationDays is the length of the habit challenge.
const DurationDays = 7

// Progress is the display-ready view of a user's challenge. It is derived
// on demand and never persisted.
type Progress struct {
	CurrentDay         int     `json:"current_day"`
	TotalDays          int     `json:"total_days"`
	IsCompleted        bool    `json:"is_completed"`
	IsNotStarted       bool    `json:"is_not_started"`
	DaysRemaining      int     `json:"days_remaining"`
	ProgressPercentage float64 `json:"progress_percentage"`
	DisplayText        string  `json:"display_text"`
	HasError           bool    `json:"has_error"`
	ErrorMessage       string  `json:"error_message,omitempty"`
}

// UserChallengeState is the persisted challenge slice of a user row.
type UserChallengeState struct {
	UserID               uuid.UUID  `json:"user_id" db:"user_id"`
	ChallengeStartDate   *time.Time `json:"challenge_start_date" db:"challenge_start_date"`
	ChallengeCompletedAt *time.Time `json:"challenge_completed_at" db:"challenge_completed_at"`
}

// DailyProgressRecord holds one user's checklist and banked points for one
// challenge day. Unique on (user, challenge day).
type DailyProgressRecord struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	ChallengeDay   int             `json:"challenge_day" db:"challenge_day"`
	Date           string          `json:"date" db:"date"`
	TasksCompleted map[string]bool `json:"tasks_completed" db:"tasks_completed"`
	PointsEarned   int             `json:"points_earned" db:"points_earned"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

type RankingEntry struct {
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	ImageURL    *string   `json:"image_url" db:"image_url"`
	TotalPoints int       `json:"total_points" db:"total_points"`
	Rank        int       `json:"rank"`
	Progress    *Progress `json:"progress"`
}

type Ranking struct {
	Entries      []*RankingEntry `json:"entries"`
	UserPosition *RankingEntry   `json:"user_position"`
	TotalUsers   int             `json:"total_users"`
}
