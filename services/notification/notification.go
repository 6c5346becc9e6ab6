// File: services/notification/notification.go
package notification

import (
	"context"
	"fmt"

	"servana/utils"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// TokenLookup maps a recipient id (user or provider) to their FCM device token.
type TokenLookup func(ctx context.Context, recipientID string) (string, error)

// NotificationService dispatches pushes as a side effect of settlement and
// refund transitions. Fire-and-forget: delivery failure never rolls back a
// state change.
type NotificationService interface {
	Notify(ctx context.Context, recipientID, title, body string, data map[string]string)
}

// FCMNotificationService is the production implementation over Firebase
// Cloud Messaging.
type FCMNotificationService struct {
	client *messaging.Client
	lookup TokenLookup
	logger *zap.Logger
}

func NewFCMNotificationService(ctx context.Context, app *firebase.App, lookup TokenLookup) (*FCMNotificationService, error) {
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FCM client: %w", err)
	}
	return &FCMNotificationService{client: client, lookup: lookup, logger: utils.GetLogger()}, nil
}

func (s *FCMNotificationService) Notify(ctx context.Context, recipientID, title, body string, data map[string]string) {
	token, err := s.lookup(ctx, recipientID)
	if err != nil || token == "" {
		s.logger.Warn("notification skipped, no device token",
			zap.String("recipientID", recipientID), zap.Error(err))
		return
	}
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}
	if _, err := s.client.Send(ctx, msg); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("recipientID", recipientID), zap.String("title", title), zap.Error(err))
	}
}

// NoopNotificationService drops notifications; used when FCM is not configured.
type NoopNotificationService struct{}

func (NoopNotificationService) Notify(context.Context, string, string, string, map[string]string) {}
