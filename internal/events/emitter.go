package events

import (
	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	"github.com/cegateway/ticker-monitor/internal/models"
)

// TopicEntryUpdate carries one entry snapshot per notification-worthy
// transition.
const TopicEntryUpdate = "monitor.entry"

// Emitter is the internal event stream between the scheduler and UI/API
// consumers. Publication is synchronous, so subscribers see the batch of a
// pass in emission order, at least once per tick.
type Emitter struct {
	bus EventBus.Bus
}

// NewEmitter creates an emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{bus: EventBus.New()}
}

// PublishEntryUpdate delivers a snapshot to every subscriber.
func (e *Emitter) PublishEntryUpdate(snapshot models.EntrySnapshot) {
	e.bus.Publish(TopicEntryUpdate, snapshot)
}

// SubscribeEntryUpdate registers a consumer for entry transitions.
func (e *Emitter) SubscribeEntryUpdate(fn func(models.EntrySnapshot)) error {
	if err := e.bus.Subscribe(TopicEntryUpdate, fn); err != nil {
		return err
	}
	log.Infof("subscribed to topic %s", TopicEntryUpdate)
	return nil
}

// UnsubscribeEntryUpdate removes a previously registered consumer.
func (e *Emitter) UnsubscribeEntryUpdate(fn func(models.EntrySnapshot)) error {
	return e.bus.Unsubscribe(TopicEntryUpdate, fn)
}
