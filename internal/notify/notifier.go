// Package notify builds push notifications for order events and delivers
// them off the request path through a bounded worker pool.
package notify

import (
	"context"
	"errors"
)

// ErrUnregistered marks a permanent per-token failure: the delivery token is
// stale or was never registered. Callers skip the token, they do not retry.
var ErrUnregistered = errors.New("delivery token unregistered")

// Message is a composed notification: a visible title/body pair plus a
// structured data payload the receiving client can use without re-fetching.
type Message struct {
	Title string
	Body  string
	Data  map[string]string
}

// Notifier is the push-delivery transport. Implementations return an opaque
// delivery id on success.
type Notifier interface {
	SendToTopic(ctx context.Context, topic string, msg Message) (string, error)
	SendToToken(ctx context.Context, token string, msg Message) (string, error)
	SubscribeToTopic(ctx context.Context, tokens []string, topic string) (success, failure int, err error)
}
