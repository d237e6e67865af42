package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"habitQuestAPI/internal/clerk"
	"habitQuestAPI/internal/user"
	"habitQuestAPI/services"
)

type WebhookHandler struct {
	userService *services.UserService
}

func NewWebhookHandler(userService *services.UserService) *WebhookHandler {
	return &WebhookHandler{
		userService: userService,
	}
}

// HandleClerkWebhook keeps the users table in sync with Clerk accounts.
func (h *WebhookHandler) HandleClerkWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Printf("Error reading webhook body: %v", err)
		http.Error(w, "Error reading body", http.StatusBadRequest)
		return
	}

	if !h.verifyWebhookSignature(r, body) {
		log.Println("Invalid webhook signature")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var event clerk.ClerkWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		log.Printf("Error parsing webhook: %v", err)
		http.Error(w, "Error parsing webhook", http.StatusBadRequest)
		return
	}

	log.Printf("Received webhook event: %s", event.Type)

	ctx := r.Context()
	switch event.Type {
	case "user.created":
		if err := h.handleUserCreated(ctx, event.Data); err != nil {
			log.Printf("Error handling user.created: %v", err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	case "user.updated":
		if err := h.handleUserUpdated(ctx, event.Data); err != nil {
			log.Printf("Error handling user.updated: %v", err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	case "user.deleted":
		if err := h.handleUserDeleted(ctx, event.Data); err != nil {
			log.Printf("Error handling user.deleted: %v", err)
			http.Error(w, "Error processing webhook", http.StatusInternalServerError)
			return
		}

	default:
		log.Printf("Unhandled webhook event type: %s", event.Type)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"success": true}`))
}

func (h *WebhookHandler) handleUserCreated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	email := ""
	emailVerified := false
	if len(userData.EmailAddresses) > 0 {
		email = userData.EmailAddresses[0].EmailAddress
		emailVerified = userData.EmailAddresses[0].Verification.Status == "verified"
	}

	username := userData.Username
	if username == "" {
		username = userData.FirstName + userData.LastName
	}

	imageURL := userData.ImageURL
	if imageURL == "" {
		imageURL = userData.ProfileImageURL
	}

	createReq := &user.CreateUserRequest{
		ClerkID:   userData.ID,
		Email:     email,
		Username:  username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  imageURL,
	}

	created, err := h.userService.CreateUser(ctx, createReq)
	if err != nil {
		return fmt.Errorf("failed to create user in database: %w", err)
	}

	if emailVerified {
		if err := h.userService.UpdateEmailVerification(ctx, userData.ID, true); err != nil {
			log.Printf("Error marking email verified for %s: %v", userData.ID, err)
		}
	}

	log.Printf("Successfully created user: %s (Clerk ID: %s)", created.Email, created.ClerkID)
	return nil
}

func (h *WebhookHandler) handleUserUpdated(ctx context.Context, data json.RawMessage) error {
	var userData clerk.ClerkUserData
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	username := userData.Username
	if username == "" {
		username = userData.FirstName + userData.LastName
	}

	imageURL := userData.ImageURL
	if imageURL == "" {
		imageURL = userData.ProfileImageURL
	}

	updateReq := &user.UpdateProfileRequest{
		Username:  username,
		FirstName: userData.FirstName,
		LastName:  userData.LastName,
		ImageURL:  imageURL,
	}

	_, err := h.userService.UpdateProfileByClerkID(ctx, userData.ID, updateReq)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	log.Printf("Successfully updated user: Clerk ID: %s", userData.ID)
	return nil
}

func (h *WebhookHandler) handleUserDeleted(ctx context.Context, data json.RawMessage) error {
	var userData struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &userData); err != nil {
		return fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	if err := h.userService.DeleteUserByClerkID(ctx, userData.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	log.Printf("Successfully deleted user: Clerk ID: %s", userData.ID)
	return nil
}

func (h *WebhookHandler) verifyWebhookSignature(r *http.Request, body []byte) bool {
	webhookSecret := os.Getenv("CLERK_WEBHOOK_SECRET")
	if webhookSecret == "" {
		log.Println("CLERK_WEBHOOK_SECRET not set, skipping signature verification")
		return true
	}

	svixID := r.Header.Get("svix-id")
	svixTimestamp := r.Header.Get("svix-timestamp")
	svixSignature := r.Header.Get("svix-signature")

	if svixID == "" || svixTimestamp == "" || svixSignature == "" {
		log.Println("Missing webhook signature headers")
		return false
	}

	signedContent := fmt.Sprintf("%s.%s.%s", svixID, svixTimestamp, string(body))

	mac := hmac.New(sha256.New, []byte(webhookSecret))
	mac.Write([]byte(signedContent))
	expectedSignature := hex.EncodeToString(mac.Sum(nil))

	providedSignature := ""
	if len(svixSignature) > 3 && svixSignature[:3] == "v1," {
		providedSignature = svixSignature[3:]
	}

	return hmac.Equal([]byte(expectedSignature), []byte(providedSignature))
}
