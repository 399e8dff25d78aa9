package monitor

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/cegateway/ticker-monitor/internal/marketdata"
	"github.com/cegateway/ticker-monitor/internal/models"
)

// DefaultPollInterval is how often entries are re-evaluated unless
// overridden.
const DefaultPollInterval = 30 * time.Second

// EventSink receives one entry snapshot per notification-worthy
// transition, emitted in a batch after the full pass so consumers never
// observe a partially evaluated registry.
type EventSink interface {
	PublishEntryUpdate(snapshot models.EntrySnapshot)
}

// Scheduler drives the periodic evaluation of every registered entry.
// Passes run one at a time: the next tick is armed only after the previous
// pass and its side effects complete, so passes never overlap.
type Scheduler struct {
	registry   *Registry
	source     marketdata.PriceSource
	sink       EventSink
	dispatcher *Dispatcher // nil when no push service is configured

	fetchTimeout time.Duration

	mu       sync.Mutex
	interval time.Duration
	running  bool
	stop     chan struct{}
	done     chan struct{}
}

// NewScheduler creates a stopped scheduler. dispatcher may be nil, in
// which case external notification is skipped entirely and only internal
// events fire.
func NewScheduler(registry *Registry, source marketdata.PriceSource, sink EventSink, dispatcher *Dispatcher, fetchTimeout time.Duration) *Scheduler {
	return &Scheduler{
		registry:     registry,
		source:       source,
		sink:         sink,
		dispatcher:   dispatcher,
		fetchTimeout: fetchTimeout,
		interval:     DefaultPollInterval,
	}
}

// SetPollInterval changes the evaluation interval. It takes effect when
// the next tick is armed.
func (s *Scheduler) SetPollInterval(seconds int) {
	if seconds <= 0 {
		return
	}
	s.mu.Lock()
	s.interval = time.Duration(seconds) * time.Second
	s.mu.Unlock()
}

// PollInterval returns the current evaluation interval.
func (s *Scheduler) PollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// Running reports whether the scheduler loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start launches the scheduler loop. The first pass runs immediately.
// Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stop, s.done
	s.mu.Unlock()

	log.Info("ticker monitor started")
	go s.loop(stop, done)
}

// Stop halts the loop. An in-flight pass finishes first, so no entry is
// left in a torn intermediate status; no new tick starts afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	stop, done := s.stop, s.done
	s.mu.Unlock()

	close(stop)
	<-done
	log.Info("ticker monitor stopped")
}

func (s *Scheduler) loop(stop, done chan struct{}) {
	defer close(done)

	s.runPass()
	for {
		timer := time.NewTimer(s.PollInterval())
		select {
		case <-stop:
			timer.Stop()
			return
		case <-timer.C:
			s.runPass()
		}
	}
}

// runPass performs one full synchronous evaluation of every registered
// entry: evaluate, classify transitions, batch-emit internal events, then
// dispatch external notifications.
func (s *Scheduler) runPass() {
	entries := s.registry.snapshotEntries()
	log.Debugf("checking %d entries", len(entries))

	var updated []*Entry
	for _, entry := range entries {
		if !entry.Enabled() {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.fetchTimeout)
		prev, next := entry.evaluate(ctx, s.source)
		cancel()

		if prev == next {
			continue
		}
		if next == models.StatusInvalid {
			// leaving unknown clears the new flag even here, so a later
			// repair is not mistaken for a first observation
			entry.clearNew()
			log.WithFields(log.Fields{"id": entry.ID()}).Warn("entry became invalid")
			continue
		}
		if next == models.StatusUnknown || prev == models.StatusInvalid {
			continue
		}
		if prev == models.StatusUnknown && entry.clearNew() {
			// first determinate result of a freshly created entry:
			// recorded for UI consumers, never alerted on
			updated = append(updated, entry)
			continue
		}

		updated = append(updated, entry)
		if s.dispatcher != nil {
			entry.markPending()
		}
	}

	log.Debugf("found %d/%d updated entries", len(updated), len(entries))
	for _, entry := range updated {
		s.sink.PublishEntryUpdate(entry.Snapshot())
	}

	if s.dispatcher == nil {
		return
	}
	var pending []*Entry
	for _, entry := range entries {
		if entry.hasPending() {
			pending = append(pending, entry)
		}
	}
	s.dispatcher.Dispatch(pending)
}
