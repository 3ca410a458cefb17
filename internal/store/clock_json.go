package store

import (
	"encoding/json"
	"fmt"

	"github.com/taskdeck/taskdeck-sync/models"
)

// Vector clocks are stored as JSON text columns. SQLite has no native map
// type and the clocks are opaque to every query, so JSON keeps the schema
// flat without a join table.

func marshalClock(clock models.VectorClock) (string, error) {
	if clock == nil {
		return "{}", nil
	}

	raw, err := json.Marshal(clock)
	if err != nil {
		return "", fmt.Errorf("encode vector clock: %w", err)
	}
	return string(raw), nil
}

func unmarshalClock(raw string) (models.VectorClock, error) {
	if raw == "" {
		return models.VectorClock{}, nil
	}

	var clock models.VectorClock
	if err := json.Unmarshal([]byte(raw), &clock); err != nil {
		return nil, fmt.Errorf("decode vector clock: %w", err)
	}
	if clock == nil {
		clock = models.VectorClock{}
	}
	return clock, nil
}
