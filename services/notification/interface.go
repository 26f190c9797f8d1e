package notification

import "context"

// NotificationService defines methods for sending FCM pushes.
type NotificationService interface {
	SendUserPush(ctx context.Context, userID, title, body string, data map[string]string) error
}
