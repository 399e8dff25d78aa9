package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cegateway/ticker-monitor/internal/models"
)

// CreateEntry inserts a new monitor entry and returns the assigned id
func (db *DB) CreateEntry(ctx context.Context, spec models.EntrySpec) (int64, error) {
	conditions, err := json.Marshal(spec.Conditions)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal conditions: %w", err)
	}

	query := `
		INSERT INTO monitor_entries (
			name, mode, conditions, notify_enabled, notify_priority,
			notify_min_delay_seconds, enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	now := time.Now()
	var id int64
	err = db.conn.QueryRowContext(ctx, query,
		spec.Name, spec.Mode, conditions, spec.Notification.Enabled,
		spec.Notification.Priority, spec.Notification.MinDelaySeconds,
		spec.Enabled, now, now,
	).Scan(&id)

	if err != nil {
		return 0, fmt.Errorf("failed to create entry: %w", err)
	}
	return id, nil
}

// UpdateEntry replaces the stored spec for an existing entry
func (db *DB) UpdateEntry(ctx context.Context, id int64, spec models.EntrySpec) error {
	conditions, err := json.Marshal(spec.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}

	query := `
		UPDATE monitor_entries SET
			name = $2, mode = $3, conditions = $4, notify_enabled = $5,
			notify_priority = $6, notify_min_delay_seconds = $7, enabled = $8,
			updated_at = $9
		WHERE id = $1
	`
	result, err := db.conn.ExecContext(ctx, query,
		id, spec.Name, spec.Mode, conditions, spec.Notification.Enabled,
		spec.Notification.Priority, spec.Notification.MinDelaySeconds,
		spec.Enabled, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update entry: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("entry not found: %d", id)
	}
	return nil
}

// DeleteEntry removes an entry by id
func (db *DB) DeleteEntry(ctx context.Context, id int64) error {
	query := `DELETE FROM monitor_entries WHERE id = $1`
	result, err := db.conn.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return fmt.Errorf("entry not found: %d", id)
	}
	return nil
}

// GetEntry retrieves a stored entry by id
func (db *DB) GetEntry(ctx context.Context, id int64) (*models.StoredEntry, error) {
	query := `
		SELECT id, name, mode, conditions, notify_enabled, notify_priority,
		       notify_min_delay_seconds, enabled
		FROM monitor_entries
		WHERE id = $1
	`
	stored, err := scanEntry(db.conn.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("entry not found: %d", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}
	return stored, nil
}

// LoadAll retrieves every stored entry, used once at startup to restore
// the registry
func (db *DB) LoadAll(ctx context.Context) ([]models.StoredEntry, error) {
	query := `
		SELECT id, name, mode, conditions, notify_enabled, notify_priority,
		       notify_min_delay_seconds, enabled
		FROM monitor_entries
		ORDER BY id
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []models.StoredEntry
	for rows.Next() {
		stored, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, *stored)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(row rowScanner) (*models.StoredEntry, error) {
	var stored models.StoredEntry
	var conditions []byte

	err := row.Scan(
		&stored.ID, &stored.Spec.Name, &stored.Spec.Mode, &conditions,
		&stored.Spec.Notification.Enabled, &stored.Spec.Notification.Priority,
		&stored.Spec.Notification.MinDelaySeconds, &stored.Spec.Enabled,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(conditions, &stored.Spec.Conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conditions: %w", err)
	}
	return &stored, nil
}
