package notify

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// androidChannelID is the notification channel the mobile client listens on.
const androidChannelID = "default_channel"

// FCM delivers notifications through Firebase Cloud Messaging. Construct it
// exactly once at process start and pass the handle to whoever needs it;
// there is no lazy re-initialization.
type FCM struct {
	client *messaging.Client
}

// NewFCM initializes the Firebase app from raw service-account JSON
// (typically the FIREBASE_SERVICE_ACCOUNT env variable).
func NewFCM(ctx context.Context, serviceAccountJSON []byte) (*FCM, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON(serviceAccountJSON))
	if err != nil {
		return nil, fmt.Errorf("firebase init: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCM{client: client}, nil
}

func (f *FCM) SendToTopic(ctx context.Context, topic string, msg Message) (string, error) {
	return f.client.Send(ctx, &messaging.Message{
		Topic:        topic,
		Data:         msg.Data,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
		Android:      androidConfig(),
	})
}

func (f *FCM) SendToToken(ctx context.Context, token string, msg Message) (string, error) {
	id, err := f.client.Send(ctx, &messaging.Message{
		Token:        token,
		Data:         msg.Data,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
		Android:      androidConfig(),
	})
	if err != nil {
		if messaging.IsUnregistered(err) {
			return "", fmt.Errorf("%w: %v", ErrUnregistered, err)
		}
		return "", err
	}
	return id, nil
}

func (f *FCM) SubscribeToTopic(ctx context.Context, tokens []string, topic string) (int, int, error) {
	res, err := f.client.SubscribeToTopic(ctx, tokens, topic)
	if err != nil {
		return 0, 0, err
	}
	return res.SuccessCount, res.FailureCount, nil
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Notification: &messaging.AndroidNotification{ChannelID: androidChannelID},
	}
}
