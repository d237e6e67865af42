package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"habitQuestAPI/internal/challenge"
	"habitQuestAPI/middleware"
	"habitQuestAPI/services"
)

type ChallengeHandler struct {
	challengeService *services.ChallengeService
}

func NewChallengeHandler(challengeService *services.ChallengeService) *ChallengeHandler {
	return &ChallengeHandler{
		challengeService: challengeService,
	}
}

func (h *ChallengeHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	progress, err := h.challengeService.GetChallengeProgress(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, progress)
}

func (h *ChallengeHandler) GetState(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	state, err := h.challengeService.GetUserChallenge(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if state == nil {
		respondWithError(w, http.StatusServiceUnavailable, "Challenge state unavailable")
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *ChallengeHandler) StartChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	state, err := h.challengeService.StartChallenge(ctx, clerkID)
	if err != nil {
		// Write failures carry the backend message: the user needs to know
		// the action did not land.
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *ChallengeHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	state, err := h.challengeService.CompleteChallenge(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusConflict, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, state)
}

func (h *ChallengeHandler) RecordDailyProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.RecordDailyProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.challengeService.RecordDailyProgress(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *ChallengeHandler) UpdateDailyProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.UpdateDailyProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.challengeService.UpdateDailyProgress(ctx, clerkID, &req)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *ChallengeHandler) ResetDailyTasks(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.ResetDailyTasksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.challengeService.ResetDailyTasks(ctx, clerkID, req.ChallengeDay)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *ChallengeHandler) AddPoints(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	var req challenge.AddPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.challengeService.AddPointsToDay(ctx, clerkID, req.ChallengeDay, req.Points)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *ChallengeHandler) GetDailyProgress(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	day, err := strconv.Atoi(r.URL.Query().Get("day"))
	if err != nil || day < 1 || day > challenge.DurationDays {
		respondWithError(w, http.StatusBadRequest, "Invalid challenge day")
		return
	}

	rec, err := h.challengeService.GetDailyProgress(ctx, clerkID, day)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}
	if rec == nil {
		respondWithJSON(w, http.StatusOK, map[string]any{"challenge_day": day, "tasks_completed": map[string]bool{}, "points_earned": 0})
		return
	}

	respondWithJSON(w, http.StatusOK, rec)
}

func (h *ChallengeHandler) GetPointsBreakdown(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	clerkID, ok := middleware.GetClerkID(ctx)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	breakdown, err := h.challengeService.GetChallengePointsBreakdown(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "User not found")
		return
	}

	respondWithJSON(w, http.StatusOK, breakdown)
}

func (h *ChallengeHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	clerkID, _ := middleware.GetClerkID(ctx)

	ranking, err := h.challengeService.GetRanking(ctx, clerkID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch ranking")
		return
	}

	respondWithJSON(w, http.StatusOK, ranking)
}

func (h *ChallengeHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.challengeService.CacheStats())
}
