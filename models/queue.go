package models

import (
	"encoding/json"
	"time"
)

// Operation names the kind of mutation a queue entry carries.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// QueueEntry is one pending mutation in the durable outbox. The clock is a
// snapshot taken at enqueue time, not a live reference to the task's clock.
type QueueEntry struct {
	ID         string          `json:"id"`
	TaskID     string          `json:"task_id"`
	Operation  Operation       `json:"operation"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	Clock      VectorClock     `json:"vector_clock"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	RetryCount int             `json:"retry_count"`
	LastError  string          `json:"last_error,omitempty"`
}
