package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Entry status constants
const (
	StatusUnknown  = "unknown"
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusInvalid  = "invalid"
)

// Evaluation mode constants
const (
	ModeAll = "all"
	ModeAny = "any"
)

// Condition operator constants
const (
	OperatorLT  = "lt"
	OperatorLTE = "lte"
	OperatorGT  = "gt"
	OperatorGTE = "gte"
	OperatorEQ  = "eq"
)

// Metric constants
const (
	MetricLastPrice = "last_price"
)

// Priority constants
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Condition compares a live market metric against a threshold
type Condition struct {
	Exchange  string          `json:"exchange"`
	Pair      string          `json:"pair"`
	Metric    string          `json:"metric"`
	Operator  string          `json:"operator"`
	Threshold decimal.Decimal `json:"threshold"`
}

// NotificationPolicy controls external alert delivery for an entry
type NotificationPolicy struct {
	Enabled  bool   `json:"enabled"`
	Priority string `json:"priority"`
	// MinDelaySeconds is the minimum time between two external
	// notifications for the same entry
	MinDelaySeconds int `json:"min_delay_seconds"`
}

// EntrySpec is the persisted definition of a monitored entry
type EntrySpec struct {
	Name         string             `json:"name"`
	Mode         string             `json:"mode"`
	Conditions   []Condition        `json:"conditions"`
	Notification NotificationPolicy `json:"notification"`
	Enabled      bool               `json:"enabled"`
}

// StoredEntry pairs a stored spec with the id the store assigned to it
type StoredEntry struct {
	ID   int64
	Spec EntrySpec
}

// EntrySnapshot is the serialized view of an entry handed to event
// consumers and returned by the API
type EntrySnapshot struct {
	ID           int64              `json:"id"`
	Name         string             `json:"name"`
	Mode         string             `json:"mode"`
	Conditions   []Condition        `json:"conditions"`
	Notification NotificationPolicy `json:"notification"`
	Enabled      bool               `json:"enabled"`
	Status       string             `json:"status"`
}

// AlertEvent is published to Kafka for each notification-worthy transition
type AlertEvent struct {
	EventType string        `json:"event_type"`
	Entry     EntrySnapshot `json:"entry"`
	Timestamp time.Time     `json:"timestamp"`
}
