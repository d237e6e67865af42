package services

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"habitQuestAPI/internal/notification"
)

// PushProvider is the slice of the FCM service the notification flow needs.
type PushProvider interface {
	SendPush(ctx context.Context, tokens []notification.DeviceToken, title, body string, data map[string]any) error
}

type NotificationService struct {
	db           *pgxpool.Pool
	pushProvider PushProvider
}

func NewNotificationService(db *pgxpool.Pool) *NotificationService {
	return &NotificationService{db: db}
}

// SetPushProvider wires in FCM after construction; push stays disabled when
// credentials are unavailable.
func (s *NotificationService) SetPushProvider(p PushProvider) {
	s.pushProvider = p
}

// CreateNotification stores a notification row and fires a best-effort push
// to the user's registered devices.
func (s *NotificationService) CreateNotification(ctx context.Context, req *notification.CreateNotificationRequest) (*notification.Notification, error) {
	query := `
	INSERT INTO notifications (id, user_id, type, title, message, data)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, user_id, type, title, message, is_read, data, created_at
	`

	notif := &notification.Notification{}
	err := s.db.QueryRow(
		ctx, query,
		uuid.New(), req.UserID, req.Type, req.Title, req.Message, req.Data,
	).Scan(
		&notif.ID, &notif.UserID, &notif.Type, &notif.Title,
		&notif.Message, &notif.IsRead, &notif.Data, &notif.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	if s.pushProvider != nil {
		tokens, err := s.getDeviceTokens(ctx, req.UserID)
		if err != nil {
			log.Printf("CreateNotification: could not load device tokens for %s: %v", req.UserID, err)
		} else if err := s.pushProvider.SendPush(ctx, tokens, req.Title, req.Message, req.Data); err != nil {
			log.Printf("CreateNotification: push failed for %s: %v", req.UserID, err)
		}
	}

	return notif, nil
}

func (s *NotificationService) userIDByClerkID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user not found: %w", err)
	}
	return userID, nil
}

func (s *NotificationService) GetNotifications(ctx context.Context, clerkID string) (*notification.NotificationListResponse, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, type, title, message, is_read, data, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 50
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer rows.Close()

	resp := &notification.NotificationListResponse{Notifications: []*notification.Notification{}}
	for rows.Next() {
		n := &notification.Notification{}
		err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &n.Data, &n.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		resp.Notifications = append(resp.Notifications, n)
		if !n.IsRead {
			resp.UnreadCount++
		}
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return resp, nil
}

func (s *NotificationService) GetUnreadCount(ctx context.Context, clerkID string) (int, error) {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE
	`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID uuid.UUID, clerkID string) error {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`, notificationID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, clerkID string) error {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE
	`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return nil
}

// RegisterDevice upserts a push token for the user.
func (s *NotificationService) RegisterDevice(ctx context.Context, clerkID string, req *notification.RegisterDeviceRequest) error {
	userID, err := s.userIDByClerkID(ctx, clerkID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, platform, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (token) DO UPDATE
		SET user_id = EXCLUDED.user_id, platform = EXCLUDED.platform
	`, userID, req.Token, req.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *NotificationService) getDeviceTokens(ctx context.Context, userID uuid.UUID) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token, platform FROM device_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform); err != nil {
			continue
		}
		tokens = append(tokens, t)
	}

	return tokens, rows.Err()
}
