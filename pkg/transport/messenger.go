// Package transport wraps the chat gateway that actually delivers messages to
// the lead's device.
package transport

import (
	"context"
	"time"
)

// Messenger is the narrow contract this core needs from the gateway.
// Failures come back as errors, never as panics.
type Messenger interface {
	// SendTyping shows the "typing..." indicator for roughly the duration.
	SendTyping(ctx context.Context, conversationKey string, duration time.Duration) error

	// SendMessage delivers the payload and returns the gateway message id.
	SendMessage(ctx context.Context, conversationKey, payload string) (string, error)
}
