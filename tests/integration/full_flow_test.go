package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitQuestAPI/handlers"
	"habitQuestAPI/internal/cache"
	"habitQuestAPI/internal/challenge"
	"habitQuestAPI/internal/timeclock"
	"habitQuestAPI/middleware"
	"habitQuestAPI/services"
	"habitQuestAPI/tests/helpers"
)

// TestFullChallengeFlow simulates the complete client journey over HTTP:
// Clerk webhook signup, starting the challenge, logging a day, banking
// points, and checking the breakdown.
func TestFullChallengeFlow(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	clock, err := timeclock.NewClock("")
	require.NoError(t, err)

	userService := services.NewUserService(pool)
	challengeService := services.NewChallengeService(pool, cache.New(100), clock, nil)

	userHandler := handlers.NewUserHandler(userService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	webhookHandler := handlers.NewWebhookHandler(userService)

	os.Setenv("CLERK_WEBHOOK_SECRET", "")
	defer os.Unsetenv("CLERK_WEBHOOK_SECRET")

	clerkID := "user_test_" + time.Now().Format("20060102150405")

	// Step 1: User signs up via Clerk webhook
	t.Log("Step 1: User signs up")

	createPayload := helpers.MockClerkWebhookPayload("user.created", clerkID)
	req1 := httptest.NewRequest(http.MethodPost, "/webhooks/clerk", bytes.NewReader(createPayload))
	rr1 := httptest.NewRecorder()

	webhookHandler.HandleClerkWebhook(rr1, req1)
	assert.Equal(t, http.StatusOK, rr1.Code, "Webhook should succeed")

	ctx := context.Background()
	u, err := userService.GetUserByClerkID(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, "test.user@example.com", u.Email)

	// Step 2: User starts the challenge
	t.Log("Step 2: User starts the challenge")

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/challenge/start", nil)
	req2 = req2.WithContext(context.WithValue(req2.Context(), middleware.ClerkIDKey, clerkID))
	rr2 := httptest.NewRecorder()

	challengeHandler.StartChallenge(rr2, req2)
	assert.Equal(t, http.StatusOK, rr2.Code)

	var state challenge.UserChallengeState
	require.NoError(t, json.Unmarshal(rr2.Body.Bytes(), &state))
	assert.NotNil(t, state.ChallengeStartDate)

	// Step 3: User logs day 1 tasks with points
	t.Log("Step 3: User logs day 1")

	body := `{"challenge_day": 1, "tasks_completed": {"meditate": true, "run": false}, "points_earned": 50}`
	req3 := httptest.NewRequest(http.MethodPost, "/api/v1/challenge/daily-progress", strings.NewReader(body))
	req3.Header.Set("Content-Type", "application/json")
	req3 = req3.WithContext(context.WithValue(req3.Context(), middleware.ClerkIDKey, clerkID))
	rr3 := httptest.NewRecorder()

	challengeHandler.RecordDailyProgress(rr3, req3)
	assert.Equal(t, http.StatusOK, rr3.Code)

	var rec challenge.DailyProgressRecord
	require.NoError(t, json.Unmarshal(rr3.Body.Bytes(), &rec))
	assert.Equal(t, 1, rec.ChallengeDay)
	assert.Equal(t, 50, rec.PointsEarned)

	// Step 4: User earns bonus points later the same day
	t.Log("Step 4: User banks bonus points")

	body = `{"challenge_day": 1, "points": 30}`
	req4 := httptest.NewRequest(http.MethodPost, "/api/v1/challenge/points", strings.NewReader(body))
	req4.Header.Set("Content-Type", "application/json")
	req4 = req4.WithContext(context.WithValue(req4.Context(), middleware.ClerkIDKey, clerkID))
	rr4 := httptest.NewRecorder()

	challengeHandler.AddPoints(rr4, req4)
	assert.Equal(t, http.StatusOK, rr4.Code)

	require.NoError(t, json.Unmarshal(rr4.Body.Bytes(), &rec))
	assert.Equal(t, 80, rec.PointsEarned)
	assert.True(t, rec.TasksCompleted["meditate"], "banking points must not clear tasks")

	// Step 5: Breakdown shows the single day and its total
	t.Log("Step 5: User checks the points breakdown")

	req5 := httptest.NewRequest(http.MethodGet, "/api/v1/challenge/points/breakdown", nil)
	req5 = req5.WithContext(context.WithValue(req5.Context(), middleware.ClerkIDKey, clerkID))
	rr5 := httptest.NewRecorder()

	challengeHandler.GetPointsBreakdown(rr5, req5)
	assert.Equal(t, http.StatusOK, rr5.Code)

	var breakdown challenge.PointsBreakdownResponse
	require.NoError(t, json.Unmarshal(rr5.Body.Bytes(), &breakdown))
	require.Len(t, breakdown.Days, 1)
	assert.Equal(t, 80, breakdown.TotalPoints)

	// Step 6: User deletes the account
	t.Log("Step 6: User deletes account")

	req6 := httptest.NewRequest(http.MethodDelete, "/api/v1/user/delete-account", nil)
	req6 = req6.WithContext(context.WithValue(req6.Context(), middleware.ClerkIDKey, clerkID))
	rr6 := httptest.NewRecorder()

	userHandler.DeleteAccount(rr6, req6)
	assert.Equal(t, http.StatusOK, rr6.Code)

	_, err = userService.GetUserByClerkID(ctx, clerkID)
	assert.Error(t, err, "User should be deleted")
}
