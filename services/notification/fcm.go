package notification

import (
	"context"
	"fmt"

	billingRepo "nestly/database/repository/billing"
	"nestly/utils"

	"firebase.google.com/go/v4/messaging"
)

// DefaultNotificationService is the production FCM implementation.
type DefaultNotificationService struct {
	Repo billingRepo.BillingRepository
}

// SendUserPush looks up a user's FCM token and sends a push.
func (s *DefaultNotificationService) SendUserPush(
	ctx context.Context,
	userID, title, body string,
	data map[string]string,
) error {
	u, err := s.Repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("SendUserPush: could not find user %s: %w", userID, err)
	}
	if u.FCMToken == "" {
		return fmt.Errorf("SendUserPush: user %s has no FCM token", userID)
	}

	if data == nil {
		data = map[string]string{}
	}
	if _, ok := data["role"]; !ok {
		data["role"] = "user"
	}

	msg := &messaging.Message{
		Token: u.FCMToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("SendUserPush: failed to send FCM message: %w", err)
	}
	return nil
}
