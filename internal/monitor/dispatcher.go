package monitor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
)

// Pusher is the external push-notification collaborator.
type Pusher interface {
	Push(ctx context.Context, message, priority string) error
}

// Dispatcher delivers pending notifications, applying each entry's
// min-delay throttle. A delivery failure leaves the notification pending
// for the next qualifying tick and never blocks delivery for the other
// entries.
type Dispatcher struct {
	pusher  Pusher
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher wraps a pusher with per-send timeout handling.
func NewDispatcher(pusher Pusher, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		pusher:  pusher,
		timeout: timeout,
		now:     time.Now,
	}
}

// Dispatch attempts delivery for every entry with a pending notification.
func (d *Dispatcher) Dispatch(entries []*Entry) {
	for _, entry := range entries {
		d.dispatchOne(entry)
	}
}

func (d *Dispatcher) dispatchOne(entry *Entry) {
	message, priority, ok := entry.claimNotification(d.now())
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	err := d.pusher.Push(ctx, message, priority)
	cancel()
	if err != nil {
		// stays pending, retried next tick subject to the throttle
		log.WithFields(log.Fields{"id": entry.ID()}).WithError(err).Warn("notification delivery failed")
		return
	}
	entry.markNotified(d.now())
	log.WithFields(log.Fields{"id": entry.ID(), "priority": priority}).Info("notification sent")
}
