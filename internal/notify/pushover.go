package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/gregdel/pushover"

	"github.com/cegateway/ticker-monitor/internal/models"
)

// Pushover sends alerts through the Pushover push service.
type Pushover struct {
	app       *pushover.Pushover
	recipient *pushover.Recipient
}

// NewPushover creates a client for the given application token and user
// key.
func NewPushover(token, userKey string) *Pushover {
	return &Pushover{
		app:       pushover.New(token),
		recipient: pushover.NewRecipient(userKey),
	}
}

// Push sends one message. The underlying client has no context support, so
// the send runs in a goroutine and the call returns once the context
// expires; a late response is discarded.
func (p *Pushover) Push(ctx context.Context, message, priority string) error {
	msg := pushover.NewMessageWithTitle(message, "Ticker Monitor")
	msg.Priority = mapPriority(priority)
	if msg.Priority == pushover.PriorityEmergency {
		msg.Retry = time.Minute
		msg.Expire = time.Hour
	}

	done := make(chan error, 1)
	go func() {
		_, err := p.app.SendMessage(msg, p.recipient)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to send pushover message: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func mapPriority(priority string) int {
	switch priority {
	case models.PriorityLow:
		return pushover.PriorityLow
	case models.PriorityHigh:
		return pushover.PriorityHigh
	case models.PriorityCritical:
		return pushover.PriorityEmergency
	default:
		return pushover.PriorityNormal
	}
}
