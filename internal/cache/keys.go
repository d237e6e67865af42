package cache

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key is a namespaced cache key. Keys are built only through the
// constructors below so namespaces cannot collide via ad-hoc string
// concatenation.
type Key string

// RankingKey is the singleton key for the global ranking list.
const RankingKey Key = "ranking_data"

// Per-namespace TTLs.
const (
	ProgressTTL      = 5 * time.Minute
	RankingTTL       = 2 * time.Minute
	PointsTTL        = 3 * time.Minute
	TimezoneTTL      = 10 * time.Minute
	UserChallengeTTL = 5 * time.Minute
	DailyProgressTTL = 3 * time.Minute
)

func ProgressKey(userID uuid.UUID) Key {
	return Key("challenge_progress:" + userID.String())
}

func PointsKey(userID uuid.UUID) Key {
	return Key("user_points:" + userID.String())
}

func UserChallengeKey(userID uuid.UUID) Key {
	return Key("user_challenge:" + userID.String())
}

func DailyProgressKey(userID uuid.UUID, day int) Key {
	return Key(fmt.Sprintf("daily_progress:%s:%d", userID, day))
}

func TimezoneKey(dateKey string) Key {
	return Key("timezone_calc:" + dateKey)
}
