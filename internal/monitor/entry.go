package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cegateway/ticker-monitor/internal/marketdata"
	"github.com/cegateway/ticker-monitor/internal/models"
)

// Entry is a single monitored rule set with its own status, dedup memory
// and notification policy.
//
// All mutable state is guarded by mu. The scheduler holds the lock for the
// whole of an evaluation, and registry mutations take the same lock, so at
// any instant exactly one of the two owns the entry (a pending update
// blocks until the in-flight evaluation completes, and vice versa).
type Entry struct {
	mu sync.Mutex

	id           int64
	name         string
	mode         string
	conditions   []models.Condition
	notification models.NotificationPolicy
	enabled      bool

	// isNew suppresses the pushover alert for the entry's very first
	// determinate result; it can only be true while status is unknown
	isNew  bool
	status string

	lastNotifiedAt      time.Time
	pendingNotification bool
}

// NewEntry validates a spec and builds an entry in the unknown status. A
// disabled entry is never flagged new: it only starts counting as new once
// it is created enabled and about to be scheduled.
func NewEntry(spec models.EntrySpec) (*Entry, error) {
	if err := validateSpec(spec); err != nil {
		return nil, err
	}
	return &Entry{
		name:         spec.Name,
		mode:         spec.Mode,
		conditions:   cloneConditions(spec.Conditions),
		notification: spec.Notification,
		enabled:      spec.Enabled,
		isNew:        spec.Enabled,
		status:       models.StatusUnknown,
	}, nil
}

func validateSpec(spec models.EntrySpec) error {
	if spec.Mode != models.ModeAll && spec.Mode != models.ModeAny {
		return validationErrorf("unknown evaluation mode: %q", spec.Mode)
	}
	if len(spec.Conditions) == 0 {
		return validationErrorf("entry must have at least one condition")
	}
	for i, c := range spec.Conditions {
		if c.Exchange == "" {
			return validationErrorf("condition %d: exchange is required", i)
		}
		if c.Pair == "" {
			return validationErrorf("condition %d: pair is required", i)
		}
		if c.Metric != models.MetricLastPrice {
			return validationErrorf("condition %d: unknown metric: %q", i, c.Metric)
		}
		switch c.Operator {
		case models.OperatorLT, models.OperatorLTE, models.OperatorGT,
			models.OperatorGTE, models.OperatorEQ:
		default:
			return validationErrorf("condition %d: unknown operator: %q", i, c.Operator)
		}
		if c.Threshold.IsNegative() {
			return validationErrorf("condition %d: threshold must not be negative", i)
		}
	}
	switch spec.Notification.Priority {
	case models.PriorityLow, models.PriorityNormal, models.PriorityHigh,
		models.PriorityCritical:
	default:
		return validationErrorf("unknown notification priority: %q", spec.Notification.Priority)
	}
	if spec.Notification.MinDelaySeconds < 0 {
		return validationErrorf("notification min delay must not be negative")
	}
	return nil
}

func cloneConditions(conditions []models.Condition) []models.Condition {
	out := make([]models.Condition, len(conditions))
	copy(out, conditions)
	return out
}

// ID returns the store-assigned identifier, 0 until the entry is persisted.
func (e *Entry) ID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.id
}

// Enabled reports whether the entry takes part in evaluation passes.
func (e *Entry) Enabled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.enabled
}

// Status returns the current state machine status.
func (e *Entry) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Snapshot returns the serialized view handed to event consumers and the
// API.
func (e *Entry) Snapshot() models.EntrySnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Entry) snapshotLocked() models.EntrySnapshot {
	return models.EntrySnapshot{
		ID:           e.id,
		Name:         e.name,
		Mode:         e.mode,
		Conditions:   cloneConditions(e.conditions),
		Notification: e.notification,
		Enabled:      e.enabled,
		Status:       e.status,
	}
}

// Spec returns the entry's current persisted definition.
func (e *Entry) Spec() models.EntrySpec {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.specLocked()
}

func (e *Entry) specLocked() models.EntrySpec {
	return models.EntrySpec{
		Name:         e.name,
		Mode:         e.mode,
		Conditions:   cloneConditions(e.conditions),
		Notification: e.notification,
		Enabled:      e.enabled,
	}
}

// evaluate runs one evaluation pass against the entry and applies the
// status transition. It returns the statuses before and after. An invalid
// entry short-circuits: the dead spec is never re-fetched until an update
// replaces its conditions.
func (e *Entry) evaluate(ctx context.Context, src marketdata.PriceSource) (prev, next string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	prev = e.status
	if !e.enabled || e.status == models.StatusInvalid {
		return prev, prev
	}

	outcomes := make([]Outcome, 0, len(e.conditions))
	for _, c := range e.conditions {
		outcomes = append(outcomes, evalCondition(ctx, src, c))
	}

	switch out := aggregate(e.mode, outcomes); out.Result {
	case ResultTrue:
		e.status = models.StatusActive
	case ResultFalse:
		e.status = models.StatusInactive
	case ResultIndeterminate:
		if out.Permanent {
			e.status = models.StatusInvalid
		}
		// transient: status unchanged, retried next tick
	}
	return prev, e.status
}

// clearNew clears the new flag and reports whether it was set.
func (e *Entry) clearNew() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	wasNew := e.isNew
	e.isNew = false
	return wasNew
}

// markPending flags the entry for external notification. It is a no-op
// when the entry's notification policy is disabled.
func (e *Entry) markPending() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.notification.Enabled {
		e.pendingNotification = true
	}
}

func (e *Entry) hasPending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pendingNotification
}

// claimNotification decides whether a pending notification is due at now.
// A pending entry inside its min-delay window stays pending for a later
// tick; an entry that was disabled since (deletion disables too) or whose
// policy was switched off drops the pending flag.
func (e *Entry) claimNotification(now time.Time) (message, priority string, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.pendingNotification {
		return "", "", false
	}
	if !e.enabled || !e.notification.Enabled {
		e.pendingNotification = false
		return "", "", false
	}
	minDelay := time.Duration(e.notification.MinDelaySeconds) * time.Second
	if !e.lastNotifiedAt.IsZero() && now.Sub(e.lastNotifiedAt) < minDelay {
		return "", "", false
	}
	return fmt.Sprintf("%s is %s", e.name, e.status), e.notification.Priority, true
}

// markNotified records a successful external delivery.
func (e *Entry) markNotified(now time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastNotifiedAt = now
	e.pendingNotification = false
}

// disable removes the entry from active scheduling without destroying it.
func (e *Entry) disable() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.enabled = false
}

// applyLocked replaces the entry's definition with an already validated
// spec. The caller must hold e.mu across the merge, the persistence call
// and this apply so no evaluation observes a half-updated entry.
// Replacing the conditions resets the state machine to unknown: the old
// status says nothing about the new rule set, and it is the only way out
// of invalid.
func (e *Entry) applyLocked(spec models.EntrySpec, conditionsChanged bool) {
	e.name = spec.Name
	e.mode = spec.Mode
	e.conditions = cloneConditions(spec.Conditions)
	e.notification = spec.Notification
	e.enabled = spec.Enabled
	if conditionsChanged {
		e.status = models.StatusUnknown
	}
}
