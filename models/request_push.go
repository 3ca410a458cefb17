package models

import "time"

// PushItem is one outbox entry as it crosses the wire: the payload travels
// encrypted and the entry carries its enqueue-time clock snapshot.
type PushItem struct {
	ID               string          `json:"id"`
	TaskID           string          `json:"task_id"`
	Operation        Operation       `json:"operation"`
	EncryptedPayload CipheredPayload `json:"encrypted_payload,omitempty"`
	Nonce            CipherNonce     `json:"nonce,omitempty"`
	Clock            VectorClock     `json:"vector_clock"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// PushRequest is the body of POST /api/sync/push.
type PushRequest struct {
	DeviceID string     `json:"device_id"`
	Items    []PushItem `json:"items"`
	Length   int        `json:"length"`
}

// PushRejection reports one item the server refused, by outbox entry ID.
type PushRejection struct {
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

// PushResponse is the server's answer to a push. Acceptance may be partial;
// MergedClock is the server's device-level clock accumulator and must be
// merged into (never copied over) the local accumulator.
type PushResponse struct {
	Accepted    []string        `json:"accepted"`
	Rejected    []PushRejection `json:"rejected,omitempty"`
	MergedClock VectorClock     `json:"merged_clock"`
}
