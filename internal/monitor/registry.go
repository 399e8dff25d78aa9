package monitor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/cegateway/ticker-monitor/internal/models"
)

// Store is the persistence collaborator for monitored entries. Ids are
// assigned by CreateEntry exactly once and never change.
type Store interface {
	CreateEntry(ctx context.Context, spec models.EntrySpec) (int64, error)
	UpdateEntry(ctx context.Context, id int64, spec models.EntrySpec) error
	DeleteEntry(ctx context.Context, id int64) error
	LoadAll(ctx context.Context) ([]models.StoredEntry, error)
}

// EntryPatch is a partial update to an entry. Nil fields are left
// unchanged.
type EntryPatch struct {
	Name         *string                    `json:"name"`
	Mode         *string                    `json:"mode"`
	Conditions   []models.Condition         `json:"conditions"`
	Notification *models.NotificationPolicy `json:"notification"`
	Enabled      *bool                      `json:"enabled"`
}

// ListFilter selects entries by id or name substring. A zero filter
// matches everything.
type ListFilter struct {
	ID   *int64
	Name string
}

// Registry is the in-memory collection of monitored entries, indexed by
// id. It mediates create/update/delete/restore against the Store.
type Registry struct {
	mu      sync.RWMutex
	entries map[int64]*Entry
	store   Store
}

// NewRegistry creates an empty registry backed by the given store.
func NewRegistry(store Store) *Registry {
	return &Registry{
		entries: make(map[int64]*Entry),
		store:   store,
	}
}

// Create validates and persists a new entry, then registers it. On a
// persistence failure the entry is rolled back to disabled and never
// registered, so it cannot be left half-created.
func (r *Registry) Create(ctx context.Context, spec models.EntrySpec) (int64, error) {
	entry, err := NewEntry(spec)
	if err != nil {
		return 0, err
	}

	id, err := r.store.CreateEntry(ctx, spec)
	if err != nil {
		entry.disable()
		return 0, fmt.Errorf("failed to store entry: %w", err)
	}
	entry.id = id

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()

	log.WithFields(log.Fields{"id": id, "name": spec.Name}).Info("entry created")
	return id, nil
}

// Update merges a patch into an existing entry, re-validates the merged
// spec and persists it before applying. On a persistence failure the
// in-memory entry is left untouched. The entry lock is held for the whole
// operation, so no evaluation pass observes a partial apply.
func (r *Registry) Update(ctx context.Context, id int64, patch EntryPatch) error {
	entry, err := r.lookup(id)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	merged := entry.specLocked()
	if patch.Name != nil {
		merged.Name = *patch.Name
	}
	if patch.Mode != nil {
		merged.Mode = *patch.Mode
	}
	if patch.Conditions != nil {
		merged.Conditions = cloneConditions(patch.Conditions)
	}
	if patch.Notification != nil {
		merged.Notification = *patch.Notification
	}
	if patch.Enabled != nil {
		merged.Enabled = *patch.Enabled
	}

	if err := validateSpec(merged); err != nil {
		return err
	}
	if err := r.store.UpdateEntry(ctx, id, merged); err != nil {
		return fmt.Errorf("failed to store entry %d: %w", id, err)
	}

	entry.applyLocked(merged, patch.Conditions != nil)
	log.WithFields(log.Fields{"id": id}).Info("entry updated")
	return nil
}

// Delete unregisters an entry before issuing the destructive persistence
// call, so the registry never serves a stale handle to a deleted id.
func (r *Registry) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	entry, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	// an in-flight pass may still hold a snapshot of the entry set;
	// disabling stops it from being evaluated again
	entry.disable()

	if err := r.store.DeleteEntry(ctx, id); err != nil {
		return fmt.Errorf("failed to delete entry %d: %w", id, err)
	}
	log.WithFields(log.Fields{"id": id}).Info("entry deleted")
	return nil
}

// Get returns a snapshot of the entry with the given id.
func (r *Registry) Get(id int64) (models.EntrySnapshot, error) {
	entry, err := r.lookup(id)
	if err != nil {
		return models.EntrySnapshot{}, err
	}
	return entry.Snapshot(), nil
}

// List returns snapshots of the entries matching the filter, ordered by
// id.
func (r *Registry) List(filter ListFilter) []models.EntrySnapshot {
	r.mu.RLock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	snapshots := make([]models.EntrySnapshot, 0, len(entries))
	for _, entry := range entries {
		snap := entry.Snapshot()
		if filter.ID != nil && snap.ID != *filter.ID {
			continue
		}
		if filter.Name != "" && !strings.Contains(snap.Name, filter.Name) {
			continue
		}
		snapshots = append(snapshots, snap)
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].ID < snapshots[j].ID })
	return snapshots
}

// Restore registers an entry reconstructed from storage at startup. The id
// is taken as-is and the entry is never flagged new, so its first
// post-restart determinate result is treated like any other transition.
func (r *Registry) Restore(id int64, spec models.EntrySpec) error {
	entry, err := NewEntry(spec)
	if err != nil {
		return err
	}
	entry.id = id
	entry.isNew = false

	r.mu.Lock()
	r.entries[id] = entry
	r.mu.Unlock()
	return nil
}

// RestoreAll loads every stored entry and restores it, logging and
// skipping entries whose stored spec no longer validates.
func (r *Registry) RestoreAll(ctx context.Context) error {
	stored, err := r.store.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load entries: %w", err)
	}
	for _, s := range stored {
		if err := r.Restore(s.ID, s.Spec); err != nil {
			log.WithFields(log.Fields{"id": s.ID}).WithError(err).Warn("skipping stored entry")
		}
	}
	log.Infof("restored %d entries", len(r.List(ListFilter{})))
	return nil
}

// snapshotEntries returns the current entry set for an evaluation pass.
func (r *Registry) snapshotEntries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entries := make([]*Entry, 0, len(r.entries))
	for _, entry := range r.entries {
		entries = append(entries, entry)
	}
	return entries
}

func (r *Registry) lookup(id int64) (*Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	return entry, nil
}
