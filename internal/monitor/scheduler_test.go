package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cegateway/ticker-monitor/internal/marketdata"
	"github.com/cegateway/ticker-monitor/internal/models"
)

type schedulerFixture struct {
	store     *fakeStore
	registry  *Registry
	source    *fakeSource
	sink      *fakeSink
	pusher    *fakePusher
	scheduler *Scheduler
	now       time.Time
}

func newSchedulerFixture(t *testing.T) *schedulerFixture {
	t.Helper()
	f := &schedulerFixture{
		store:  newFakeStore(),
		source: newFakeSource(),
		sink:   &fakeSink{},
		pusher: &fakePusher{},
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.registry = NewRegistry(f.store)
	dispatcher := NewDispatcher(f.pusher, time.Second)
	dispatcher.now = func() time.Time { return f.now }
	f.scheduler = NewScheduler(f.registry, f.source, f.sink, dispatcher, time.Second)
	return f
}

func (f *schedulerFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func TestSchedulerFreshEntryLifecycle(t *testing.T) {
	f := newSchedulerFixture(t)
	id, err := f.registry.Create(context.Background(), validSpec())
	require.NoError(t, err)

	// tick 1: below threshold; the first determinate result of a fresh
	// entry is recorded for consumers but never alerted on
	f.source.setPrice("exb", "BTC-USD", "49000")
	f.scheduler.runPass()

	snapshots := f.sink.all()
	require.Len(t, snapshots, 1)
	assert.Equal(t, id, snapshots[0].ID)
	assert.Equal(t, models.StatusInactive, snapshots[0].Status)
	assert.Zero(t, f.pusher.count())

	// tick 2: crosses the threshold; inactive -> active is
	// notification-worthy
	f.advance(30 * time.Second)
	f.source.setPrice("exb", "BTC-USD", "51000")
	f.scheduler.runPass()

	snapshots = f.sink.all()
	require.Len(t, snapshots, 2)
	assert.Equal(t, models.StatusActive, snapshots[1].Status)
	assert.Equal(t, 1, f.pusher.count())

	// tick 3: feed gap; status holds, nothing fires
	f.advance(30 * time.Second)
	f.source.setErr("exb", "BTC-USD", marketdata.ErrPriceUnavailable)
	f.scheduler.runPass()

	assert.Len(t, f.sink.all(), 2)
	assert.Equal(t, 1, f.pusher.count())

	snapshot, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, snapshot.Status)
}

func TestSchedulerDelistedPairFreezes(t *testing.T) {
	f := newSchedulerFixture(t)
	id, err := f.registry.Create(context.Background(), validSpec())
	require.NoError(t, err)

	f.source.setErr("exb", "BTC-USD", marketdata.ErrPairDelisted)
	f.scheduler.runPass()

	snapshot, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvalid, snapshot.Status)
	// transitions into invalid are not events and not alerts
	assert.Empty(t, f.sink.all())
	assert.Zero(t, f.pusher.count())

	// later ticks leave it frozen even though the feed recovered
	f.source.setPrice("exb", "BTC-USD", "51000")
	for i := 0; i < 3; i++ {
		f.advance(30 * time.Second)
		f.scheduler.runPass()
	}
	snapshot, err = f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvalid, snapshot.Status)
	assert.Empty(t, f.sink.all())
}

func TestSchedulerMinDelayThrottle(t *testing.T) {
	f := newSchedulerFixture(t)
	spec := validSpec()
	spec.Notification.MinDelaySeconds = 600
	_, err := f.registry.Create(context.Background(), spec)
	require.NoError(t, err)

	// burn the new flag
	f.source.setPrice("exb", "BTC-USD", "49000")
	f.scheduler.runPass()
	require.Zero(t, f.pusher.count())

	// first qualifying transition sends immediately
	f.advance(30 * time.Second)
	f.source.setPrice("exb", "BTC-USD", "51000")
	f.scheduler.runPass()
	require.Equal(t, 1, f.pusher.count())

	// second transition 60s later is throttled but stays pending
	f.advance(60 * time.Second)
	f.source.setPrice("exb", "BTC-USD", "49000")
	f.scheduler.runPass()
	assert.Equal(t, 1, f.pusher.count())
	assert.Len(t, f.sink.all(), 3)

	// still inside the window: nothing, despite no new transition
	f.advance(60 * time.Second)
	f.scheduler.runPass()
	assert.Equal(t, 1, f.pusher.count())

	// window elapsed: the pending notification goes out with no new
	// transition required
	f.advance(500 * time.Second)
	f.scheduler.runPass()
	assert.Equal(t, 2, f.pusher.count())
	assert.Len(t, f.sink.all(), 3)
}

func TestSchedulerRepairedEntryAlerts(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()
	id, err := f.registry.Create(ctx, validSpec())
	require.NoError(t, err)

	// the very first evaluation invalidates the entry
	f.source.setErr("exb", "BTC-USD", marketdata.ErrPairDelisted)
	f.scheduler.runPass()

	entry, err := f.registry.lookup(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvalid, entry.Status())
	// the new flag does not survive leaving unknown, whatever the
	// destination status
	assert.False(t, entry.isNew)

	// repairing the conditions resets the entry to unknown
	require.NoError(t, f.registry.Update(ctx, id, EntryPatch{Conditions: []models.Condition{{
		Exchange:  "exb",
		Pair:      "ETH-USD",
		Metric:    models.MetricLastPrice,
		Operator:  models.OperatorGT,
		Threshold: decimal.RequireFromString("2000"),
	}}}))
	require.Equal(t, models.StatusUnknown, entry.Status())

	// the repaired entry's first determinate transition is a normal
	// alert-worthy one, not a fresh entry's first observation
	f.advance(30 * time.Second)
	f.source.setPrice("exb", "ETH-USD", "2100")
	f.scheduler.runPass()

	snapshots := f.sink.all()
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.StatusActive, snapshots[0].Status)
	assert.Equal(t, 1, f.pusher.count())
}

func TestSchedulerRestoredEntryAlertsOnFirstResult(t *testing.T) {
	f := newSchedulerFixture(t)
	require.NoError(t, f.registry.Restore(3, validSpec()))

	// first determinate result after a restart is a normal transition
	f.source.setPrice("exb", "BTC-USD", "49000")
	f.scheduler.runPass()
	snapshots := f.sink.all()
	require.Len(t, snapshots, 1)
	assert.Equal(t, models.StatusInactive, snapshots[0].Status)
	assert.Equal(t, 1, f.pusher.count())
}

func TestSchedulerFailureIsolation(t *testing.T) {
	f := newSchedulerFixture(t)
	ctx := context.Background()

	badSpec := validSpec()
	badSpec.Name = "doomed"
	badSpec.Conditions[0].Pair = "DEAD-USD"
	badID, err := f.registry.Create(ctx, badSpec)
	require.NoError(t, err)

	goodSpec := validSpec()
	goodSpec.Name = "healthy"
	goodID, err := f.registry.Create(ctx, goodSpec)
	require.NoError(t, err)

	f.source.setErr("exb", "DEAD-USD", marketdata.ErrPairDelisted)
	f.source.setPrice("exb", "BTC-USD", "49000")
	f.scheduler.runPass()

	bad, err := f.registry.Get(badID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInvalid, bad.Status)

	// the dead entry did not stop the healthy one from being evaluated
	good, err := f.registry.Get(goodID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInactive, good.Status)
}

func TestSchedulerSkipsDisabledEntries(t *testing.T) {
	f := newSchedulerFixture(t)
	spec := validSpec()
	spec.Enabled = false
	id, err := f.registry.Create(context.Background(), spec)
	require.NoError(t, err)

	f.source.setPrice("exb", "BTC-USD", "51000")
	f.scheduler.runPass()

	snapshot, err := f.registry.Get(id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusUnknown, snapshot.Status)
	assert.Empty(t, f.sink.all())
}

func TestSchedulerWithoutDispatcher(t *testing.T) {
	f := newSchedulerFixture(t)
	f.scheduler.dispatcher = nil
	_, err := f.registry.Create(context.Background(), validSpec())
	require.NoError(t, err)

	f.source.setPrice("exb", "BTC-USD", "49000")
	f.scheduler.runPass()
	f.source.setPrice("exb", "BTC-USD", "51000")
	f.scheduler.runPass()

	// internal events still fire without a push service
	assert.Len(t, f.sink.all(), 2)
	assert.Zero(t, f.pusher.count())
}

func TestSchedulerStartStop(t *testing.T) {
	f := newSchedulerFixture(t)
	f.source.setPrice("exb", "BTC-USD", "49000")
	_, err := f.registry.Create(context.Background(), validSpec())
	require.NoError(t, err)

	f.scheduler.SetPollInterval(1)
	assert.Equal(t, time.Second, f.scheduler.PollInterval())

	f.scheduler.Start()
	assert.True(t, f.scheduler.Running())
	f.scheduler.Start() // second start is a no-op

	// the first pass runs immediately on start
	require.Eventually(t, func() bool {
		return len(f.sink.all()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	f.scheduler.Stop()
	assert.False(t, f.scheduler.Running())
	f.scheduler.Stop() // second stop is a no-op
}
