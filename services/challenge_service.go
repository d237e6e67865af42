package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitQuestAPI/internal/cache"
	"habitQuestAPI/internal/challenge"
	"habitQuestAPI/internal/notification"
	"habitQuestAPI/internal/timeclock"
)

// ChallengeService is the gateway for all challenge reads and writes. Every
// read checks the injected cache before hitting the database; every write
// invalidates the keys it could have made stale, including the global
// ranking since it depends on every user's totals.
type ChallengeService struct {
	db           *pgxpool.Pool
	cache        *cache.Cache
	clock        *timeclock.Clock
	calc         *challenge.DayCalculator
	engine       *challenge.ProgressEngine
	notifService *NotificationService
}

func NewChallengeService(db *pgxpool.Pool, c *cache.Cache, clock *timeclock.Clock, notifService *NotificationService) *ChallengeService {
	calc := challenge.NewDayCalculator(clock)
	return &ChallengeService{
		db:           db,
		cache:        c,
		clock:        clock,
		calc:         calc,
		engine:       challenge.NewProgressEngine(calc),
		notifService: notifService,
	}
}

func (s *ChallengeService) userIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

// invalidateUserCaches drops every key a write for this user could have
// made stale. Best effort: the cache is a soft layer, not a consistency
// boundary.
func (s *ChallengeService) invalidateUserCaches(userID uuid.UUID) {
	s.cache.Delete(cache.ProgressKey(userID))
	s.cache.Delete(cache.PointsKey(userID))
	s.cache.Delete(cache.UserChallengeKey(userID))
	for day := 1; day <= challenge.DurationDays; day++ {
		s.cache.Delete(cache.DailyProgressKey(userID, day))
	}
	s.cache.Delete(cache.RankingKey)
}

func (s *ChallengeService) GetUserChallenge(ctx context.Context, clerkID string) (*challenge.UserChallengeState, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	key := cache.UserChallengeKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*challenge.UserChallengeState), nil
	}

	state := &challenge.UserChallengeState{UserID: userID}
	err = s.db.QueryRow(ctx, `
		SELECT challenge_start_date, challenge_completed_at
		FROM users
		WHERE id = $1
	`, userID).Scan(&state.ChallengeStartDate, &state.ChallengeCompletedAt)
	if err != nil {
		log.Printf("GetUserChallenge: query failed for %s: %v", userID, err)
		return nil, nil
	}

	s.cache.Set(key, state, cache.UserChallengeTTL)
	return state, nil
}

// StartChallenge stamps the start date and clears any previous completion.
func (s *ChallengeService) StartChallenge(ctx context.Context, clerkID string) (*challenge.UserChallengeState, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	state := &challenge.UserChallengeState{UserID: userID}
	err = s.db.QueryRow(ctx, `
		UPDATE users
		SET challenge_start_date = NOW(), challenge_completed_at = NULL, updated_at = NOW()
		WHERE id = $1
		RETURNING challenge_start_date, challenge_completed_at
	`, userID).Scan(&state.ChallengeStartDate, &state.ChallengeCompletedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start challenge: %w", err)
	}

	s.invalidateUserCaches(userID)

	if s.notifService != nil {
		if _, err := s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  userID,
			Type:    notification.NotificationChallengeStarted,
			Title:   "Challenge started",
			Message: "Day 1 begins tomorrow. Check in every day to bank your points.",
		}); err != nil {
			log.Printf("StartChallenge: notification failed for %s: %v", userID, err)
		}
	}

	return state, nil
}

// CompleteChallenge marks completion at most once. The guard lives in the
// WHERE clause, so two racing completions cannot both win.
func (s *ChallengeService) CompleteChallenge(ctx context.Context, clerkID string) (*challenge.UserChallengeState, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	result, err := s.db.Exec(ctx, `
		UPDATE users
		SET challenge_completed_at = NOW(), updated_at = NOW()
		WHERE id = $1
		  AND challenge_start_date IS NOT NULL
		  AND challenge_completed_at IS NULL
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to complete challenge: %w", err)
	}

	if result.RowsAffected() == 0 {
		return nil, fmt.Errorf("challenge is not active or already completed")
	}

	s.invalidateUserCaches(userID)

	if s.notifService != nil {
		if _, err := s.notifService.CreateNotification(ctx, &notification.CreateNotificationRequest{
			UserID:  userID,
			Type:    notification.NotificationChallengeCompleted,
			Title:   "Challenge completed!",
			Message: "You finished the 7-day challenge. Check the ranking to see where you landed.",
		}); err != nil {
			log.Printf("CompleteChallenge: notification failed for %s: %v", userID, err)
		}
	}

	return s.GetUserChallenge(ctx, clerkID)
}

// progressForStart computes a display progress record, memoized per start
// calendar date in the timezone_calc namespace so ranking aggregation does
// not redo the same day arithmetic for every user sharing a start date.
func (s *ChallengeService) progressForStart(start *time.Time) *challenge.Progress {
	if start == nil {
		return s.engine.Compute(nil)
	}

	dateKey := start.In(s.clock.Location()).Format("2006-01-02")
	key := cache.TimezoneKey(dateKey)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*challenge.Progress)
	}

	progress := s.engine.Compute(start)
	if !progress.HasError {
		s.cache.Set(key, progress, cache.TimezoneTTL)
	}
	return progress
}

// GetChallengeProgress returns the display-ready progress for a user.
// Never fails: backend trouble degrades to an error-flagged record.
func (s *ChallengeService) GetChallengeProgress(ctx context.Context, clerkID string) (*challenge.Progress, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	key := cache.ProgressKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*challenge.Progress), nil
	}

	var start *time.Time
	err = s.db.QueryRow(ctx, `SELECT challenge_start_date FROM users WHERE id = $1`, userID).Scan(&start)
	if err != nil {
		log.Printf("GetChallengeProgress: query failed for %s: %v", userID, err)
		p := s.engine.Compute(nil)
		p.HasError = true
		p.ErrorMessage = "could not load challenge state"
		return p, nil
	}

	progress := s.progressForStart(start)
	if !progress.HasError {
		s.cache.Set(key, progress, cache.ProgressTTL)
	}
	return progress, nil
}

// RecordDailyProgress is the unconditional upsert used for the first write
// of a day: tasks and points are both overwritten with the supplied values.
func (s *ChallengeService) RecordDailyProgress(ctx context.Context, clerkID string, req *challenge.RecordDailyProgressRequest) (*challenge.DailyProgressRecord, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.ChallengeDay < 1 || req.ChallengeDay > challenge.DurationDays {
		return nil, fmt.Errorf("challenge day %d out of range", req.ChallengeDay)
	}
	if req.PointsEarned < 0 {
		return nil, fmt.Errorf("points must not be negative")
	}

	tasks := req.TasksCompleted
	if tasks == nil {
		tasks = map[string]bool{}
	}

	rec := &challenge.DailyProgressRecord{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO daily_progress (id, user_id, challenge_day, date, tasks_completed, points_earned)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, challenge_day) DO UPDATE
		SET tasks_completed = EXCLUDED.tasks_completed,
		    points_earned = EXCLUDED.points_earned,
		    date = EXCLUDED.date,
		    updated_at = NOW()
		RETURNING id, user_id, challenge_day, date, tasks_completed, points_earned, created_at, updated_at
	`, uuid.New(), userID, req.ChallengeDay, s.todayDateKey(), tasks, req.PointsEarned).Scan(
		&rec.ID, &rec.UserID, &rec.ChallengeDay, &rec.Date,
		&rec.TasksCompleted, &rec.PointsEarned, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record daily progress: %w", err)
	}

	s.invalidateUserCaches(userID)
	return rec, nil
}

// UpdateDailyProgress changes the checklist without touching banked points.
// The conflict branch deliberately leaves points_earned alone: toggling a
// checkbox must never change what the day already paid out. The supplied
// points are only used when no row exists yet.
func (s *ChallengeService) UpdateDailyProgress(ctx context.Context, clerkID string, req *challenge.UpdateDailyProgressRequest) (*challenge.DailyProgressRecord, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if req.ChallengeDay < 1 || req.ChallengeDay > challenge.DurationDays {
		return nil, fmt.Errorf("challenge day %d out of range", req.ChallengeDay)
	}
	if req.PointsEarned < 0 {
		return nil, fmt.Errorf("points must not be negative")
	}

	tasks := req.TasksCompleted
	if tasks == nil {
		tasks = map[string]bool{}
	}

	rec := &challenge.DailyProgressRecord{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO daily_progress (id, user_id, challenge_day, date, tasks_completed, points_earned)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, challenge_day) DO UPDATE
		SET tasks_completed = EXCLUDED.tasks_completed,
		    updated_at = NOW()
		RETURNING id, user_id, challenge_day, date, tasks_completed, points_earned, created_at, updated_at
	`, uuid.New(), userID, req.ChallengeDay, s.todayDateKey(), tasks, req.PointsEarned).Scan(
		&rec.ID, &rec.UserID, &rec.ChallengeDay, &rec.Date,
		&rec.TasksCompleted, &rec.PointsEarned, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update daily progress: %w", err)
	}

	s.invalidateUserCaches(userID)
	return rec, nil
}

// ResetDailyTasks empties the checklist while preserving banked points.
func (s *ChallengeService) ResetDailyTasks(ctx context.Context, clerkID string, day int) (*challenge.DailyProgressRecord, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if day < 1 || day > challenge.DurationDays {
		return nil, fmt.Errorf("challenge day %d out of range", day)
	}

	rec := &challenge.DailyProgressRecord{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO daily_progress (id, user_id, challenge_day, date, tasks_completed, points_earned)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, 0)
		ON CONFLICT (user_id, challenge_day) DO UPDATE
		SET tasks_completed = '{}'::jsonb,
		    updated_at = NOW()
		RETURNING id, user_id, challenge_day, date, tasks_completed, points_earned, created_at, updated_at
	`, uuid.New(), userID, day, s.todayDateKey()).Scan(
		&rec.ID, &rec.UserID, &rec.ChallengeDay, &rec.Date,
		&rec.TasksCompleted, &rec.PointsEarned, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reset daily tasks: %w", err)
	}

	s.invalidateUserCaches(userID)
	return rec, nil
}

// AddPointsToDay is the one operation allowed to grow a day's points. The
// increment happens inside the conflict branch, so concurrent additions
// cannot lose updates.
func (s *ChallengeService) AddPointsToDay(ctx context.Context, clerkID string, day, points int) (*challenge.DailyProgressRecord, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if day < 1 || day > challenge.DurationDays {
		return nil, fmt.Errorf("challenge day %d out of range", day)
	}
	if points < 0 {
		return nil, fmt.Errorf("points must not be negative")
	}

	rec := &challenge.DailyProgressRecord{}
	err = s.db.QueryRow(ctx, `
		INSERT INTO daily_progress (id, user_id, challenge_day, date, tasks_completed, points_earned)
		VALUES ($1, $2, $3, $4, '{}'::jsonb, $5)
		ON CONFLICT (user_id, challenge_day) DO UPDATE
		SET points_earned = daily_progress.points_earned + EXCLUDED.points_earned,
		    updated_at = NOW()
		RETURNING id, user_id, challenge_day, date, tasks_completed, points_earned, created_at, updated_at
	`, uuid.New(), userID, day, s.todayDateKey(), points).Scan(
		&rec.ID, &rec.UserID, &rec.ChallengeDay, &rec.Date,
		&rec.TasksCompleted, &rec.PointsEarned, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to add points: %w", err)
	}

	s.invalidateUserCaches(userID)
	return rec, nil
}

func (s *ChallengeService) GetDailyProgress(ctx context.Context, clerkID string, day int) (*challenge.DailyProgressRecord, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	key := cache.DailyProgressKey(userID, day)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*challenge.DailyProgressRecord), nil
	}

	rec := &challenge.DailyProgressRecord{}
	err = s.db.QueryRow(ctx, `
		SELECT id, user_id, challenge_day, date, tasks_completed, points_earned, created_at, updated_at
		FROM daily_progress
		WHERE user_id = $1 AND challenge_day = $2
	`, userID, day).Scan(
		&rec.ID, &rec.UserID, &rec.ChallengeDay, &rec.Date,
		&rec.TasksCompleted, &rec.PointsEarned, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		log.Printf("GetDailyProgress: query failed for %s day %d: %v", userID, day, err)
		return nil, nil
	}

	s.cache.Set(key, rec, cache.DailyProgressTTL)
	return rec, nil
}

// GetChallengePointsBreakdown lists every stored day with the running
// total.
func (s *ChallengeService) GetChallengePointsBreakdown(ctx context.Context, clerkID string) (*challenge.PointsBreakdownResponse, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, challenge_day, date, tasks_completed, points_earned, created_at, updated_at
		FROM daily_progress
		WHERE user_id = $1
		ORDER BY challenge_day
	`, userID)
	if err != nil {
		log.Printf("GetChallengePointsBreakdown: query failed for %s: %v", userID, err)
		return &challenge.PointsBreakdownResponse{Days: []*challenge.DailyProgressRecord{}}, nil
	}
	defer rows.Close()

	resp := &challenge.PointsBreakdownResponse{Days: []*challenge.DailyProgressRecord{}}
	for rows.Next() {
		rec := &challenge.DailyProgressRecord{}
		err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.ChallengeDay, &rec.Date,
			&rec.TasksCompleted, &rec.PointsEarned, &rec.CreatedAt, &rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily progress row: %w", err)
		}
		resp.Days = append(resp.Days, rec)
		resp.TotalPoints += rec.PointsEarned
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily progress rows: %w", err)
	}

	return resp, nil
}

func (s *ChallengeService) GetTotalPoints(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	key := cache.PointsKey(userID)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(int), nil
	}

	var total int
	err = s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(points_earned), 0)
		FROM daily_progress
		WHERE user_id = $1
	`, userID).Scan(&total)
	if err != nil {
		log.Printf("GetTotalPoints: query failed for %s: %v", userID, err)
		return 0, nil
	}

	s.cache.Set(key, total, cache.PointsTTL)
	return total, nil
}

// GetRanking aggregates every started user sorted by total points. A user
// whose row cannot be processed still appears with zero points and an
// error-flagged progress record; only a failure of the aggregate query
// itself yields an empty list.
func (s *ChallengeService) GetRanking(ctx context.Context, clerkID string) (*challenge.Ranking, error) {
	var requesterID uuid.UUID
	if clerkID != "" {
		if id, err := s.userIDByClerkID(ctx, clerkID); err == nil {
			requesterID = id
		}
	}

	entries, ok := s.cachedRankingEntries()
	if !ok {
		var err error
		entries, err = s.loadRankingEntries(ctx)
		if err != nil {
			log.Printf("GetRanking: aggregate query failed: %v", err)
			return &challenge.Ranking{Entries: []*challenge.RankingEntry{}}, nil
		}
		s.cache.Set(cache.RankingKey, entries, cache.RankingTTL)
	}

	ranking := &challenge.Ranking{
		Entries:    entries,
		TotalUsers: len(entries),
	}
	for _, entry := range entries {
		if entry.UserID == requesterID {
			ranking.UserPosition = entry
			break
		}
	}

	return ranking, nil
}

func (s *ChallengeService) cachedRankingEntries() ([]*challenge.RankingEntry, bool) {
	cached, ok := s.cache.Get(cache.RankingKey)
	if !ok {
		return nil, false
	}
	entries, ok := cached.([]*challenge.RankingEntry)
	return entries, ok
}

func (s *ChallengeService) loadRankingEntries(ctx context.Context) ([]*challenge.RankingEntry, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			u.id,
			u.username,
			u.image_url,
			u.challenge_start_date,
			COALESCE(SUM(dp.points_earned), 0) AS total_points
		FROM users u
		LEFT JOIN daily_progress dp ON dp.user_id = u.id
		WHERE u.challenge_start_date IS NOT NULL
		GROUP BY u.id, u.username, u.image_url, u.challenge_start_date
		ORDER BY total_points DESC
		LIMIT 100
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ranking: %w", err)
	}
	defer rows.Close()

	entries := []*challenge.RankingEntry{}
	for rows.Next() {
		entry := &challenge.RankingEntry{}
		var start *time.Time

		err := rows.Scan(&entry.UserID, &entry.Username, &entry.ImageURL, &start, &entry.TotalPoints)
		if err != nil {
			// One bad row must not sink the whole ranking.
			log.Printf("GetRanking: failed to scan row: %v", err)
			entry.TotalPoints = 0
			entry.Progress = s.engine.Compute(nil)
			entry.Progress.HasError = true
			entry.Progress.ErrorMessage = "could not load user data"
			entries = append(entries, entry)
			continue
		}

		entry.Progress = s.progressForStart(start)
		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ranking rows: %w", err)
	}

	for i, entry := range entries {
		entry.Rank = i + 1
	}

	return entries, nil
}

// CacheStats exposes the cache counters for the ops endpoint.
func (s *ChallengeService) CacheStats() cache.Stats {
	return s.cache.Stats()
}

func (s *ChallengeService) todayDateKey() string {
	return s.clock.NowOrSystem().Format("2006-01-02")
}
