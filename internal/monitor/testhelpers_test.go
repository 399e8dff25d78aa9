package monitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/cegateway/ticker-monitor/internal/models"
)

// fakeSource is an in-memory PriceSource with per-pair prices and errors
type fakeSource struct {
	mu     sync.Mutex
	prices map[string]decimal.Decimal
	errs   map[string]error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		prices: make(map[string]decimal.Decimal),
		errs:   make(map[string]error),
	}
}

func pairKey(exchange, pair string) string {
	return exchange + ":" + pair
}

func (f *fakeSource) setPrice(exchange, pair, price string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.errs, pairKey(exchange, pair))
	f.prices[pairKey(exchange, pair)] = decimal.RequireFromString(price)
}

func (f *fakeSource) setErr(exchange, pair string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.prices, pairKey(exchange, pair))
	f.errs[pairKey(exchange, pair)] = err
}

func (f *fakeSource) LastPrice(ctx context.Context, exchange, pair string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[pairKey(exchange, pair)]; ok {
		return decimal.Zero, err
	}
	if price, ok := f.prices[pairKey(exchange, pair)]; ok {
		return price, nil
	}
	return decimal.Zero, fmt.Errorf("no fixture for %s:%s", exchange, pair)
}

// fakeStore is an in-memory Store with switchable failure modes
type fakeStore struct {
	mu      sync.Mutex
	nextID  int64
	entries map[int64]models.EntrySpec

	failCreate bool
	failUpdate bool
	failDelete bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:  1,
		entries: make(map[int64]models.EntrySpec),
	}
}

func (s *fakeStore) CreateEntry(ctx context.Context, spec models.EntrySpec) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCreate {
		return 0, fmt.Errorf("store unavailable")
	}
	id := s.nextID
	s.nextID++
	s.entries[id] = spec
	return id, nil
}

func (s *fakeStore) UpdateEntry(ctx context.Context, id int64, spec models.EntrySpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return fmt.Errorf("store unavailable")
	}
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry not found: %d", id)
	}
	s.entries[id] = spec
	return nil
}

func (s *fakeStore) DeleteEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return fmt.Errorf("store unavailable")
	}
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry not found: %d", id)
	}
	delete(s.entries, id)
	return nil
}

func (s *fakeStore) LoadAll(ctx context.Context) ([]models.StoredEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]models.StoredEntry, 0, len(s.entries))
	for id, spec := range s.entries {
		stored = append(stored, models.StoredEntry{ID: id, Spec: spec})
	}
	return stored, nil
}

// fakeSink records snapshots in emission order
type fakeSink struct {
	mu        sync.Mutex
	snapshots []models.EntrySnapshot
}

func (s *fakeSink) PublishEntryUpdate(snapshot models.EntrySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, snapshot)
}

func (s *fakeSink) all() []models.EntrySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.EntrySnapshot, len(s.snapshots))
	copy(out, s.snapshots)
	return out
}

// fakePusher records sends and can be told to fail
type fakePusher struct {
	mu       sync.Mutex
	messages []string
	fail     bool
}

func (p *fakePusher) Push(ctx context.Context, message, priority string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return fmt.Errorf("push service unavailable")
	}
	p.messages = append(p.messages, message)
	return nil
}

func (p *fakePusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// pushFunc adapts a function to the Pusher interface
type pushFunc func(message string) error

func (f pushFunc) Push(ctx context.Context, message, priority string) error {
	return f(message)
}

func validSpec() models.EntrySpec {
	return models.EntrySpec{
		Name: "btc above 50k",
		Mode: models.ModeAll,
		Conditions: []models.Condition{
			{
				Exchange:  "exb",
				Pair:      "BTC-USD",
				Metric:    models.MetricLastPrice,
				Operator:  models.OperatorGT,
				Threshold: decimal.RequireFromString("50000"),
			},
		},
		Notification: models.NotificationPolicy{
			Enabled:  true,
			Priority: models.PriorityNormal,
		},
		Enabled: true,
	}
}
