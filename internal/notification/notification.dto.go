package notification

import "github.com/google/uuid"

type CreateNotificationRequest struct {
	UserID  uuid.UUID        `json:"user_id" validate:"required"`
	Type    NotificationType `json:"type" validate:"required"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
	Data    map[string]any   `json:"data"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type NotificationListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}
