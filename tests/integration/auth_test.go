package integration

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"habitQuestAPI/handlers"
	"habitQuestAPI/internal/user"
	"habitQuestAPI/middleware"
	"habitQuestAPI/services"
	"habitQuestAPI/tests/helpers"
)

func TestGetProfile_Authenticated(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	userHandler := handlers.NewUserHandler(userService)

	// Create a test user
	clerkID := "user_test_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	createReq := &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "testauth@example.com",
		Username:  "testauth",
		FirstName: "Test",
		LastName:  "Auth",
		ImageURL:  "https://example.com/image.jpg",
	}

	createdUser, err := userService.CreateUser(ctx, createReq)
	require.NoError(t, err)

	// Create request with auth (simulating successful auth middleware)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	ctx = context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()

	// Execute
	userHandler.GetProfile(rr, req)

	// Assert
	assert.Equal(t, http.StatusOK, rr.Code)

	var response user.User
	err = json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)

	assert.Equal(t, createdUser.ID, response.ID)
	assert.Equal(t, clerkID, response.ClerkID)
	assert.Equal(t, "testauth@example.com", response.Email)
	assert.Equal(t, "testauth", response.Username)
}

func TestGetProfile_Unauthenticated(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	userHandler := handlers.NewUserHandler(userService)

	// Create request WITHOUT auth
	req := httptest.NewRequest(http.MethodGet, "/api/v1/user", nil)
	rr := httptest.NewRecorder()

	// Execute
	userHandler.GetProfile(rr, req)

	// Assert
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	var response map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &response)
	require.NoError(t, err)
	assert.Contains(t, response["error"], "not authenticated")
}

func TestUpdateProfile_Authenticated(t *testing.T) {
	// Setup
	pool := helpers.SetupTestDB(t)
	defer helpers.CleanupTestDB(t, pool)

	userService := services.NewUserService(pool)
	userHandler := handlers.NewUserHandler(userService)

	clerkID := "user_test_" + time.Now().Format("20060102150405")
	ctx := context.Background()

	_, err := userService.CreateUser(ctx, &user.CreateUserRequest{
		ClerkID:   clerkID,
		Email:     "testupdate@example.com",
		Username:  "testupdate",
		FirstName: "Test",
		LastName:  "Update",
	})
	require.NoError(t, err)

	updateData := `{"firstName": "NewFirst", "username": "newusername123"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/user/update-profile", strings.NewReader(updateData))
	req.Header.Set("Content-Type", "application/json")
	ctx = context.WithValue(req.Context(), middleware.ClerkIDKey, clerkID)
	req = req.WithContext(ctx)
	rr := httptest.NewRecorder()

	userHandler.UpdateProfile(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	updated, err := userService.GetUserByClerkID(context.Background(), clerkID)
	require.NoError(t, err)
	assert.Equal(t, "NewFirst", updated.FirstName)
	assert.Equal(t, "newusername123", updated.Username)
	assert.Equal(t, "Update", updated.LastName, "untouched fields must survive a partial update")
}
