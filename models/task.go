package models

import (
	"encoding/json"
	"time"
)

// Task is the authoritative local copy of a task record. Payload is kept in
// plaintext locally; it is encrypted only when it crosses the wire.
type Task struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Clock     VectorClock     `json:"vector_clock"`
	UpdatedAt time.Time       `json:"updated_at"`
	Deleted   bool            `json:"deleted"`
}

// RemoteTask is a task record as the remote store returns it: the payload is
// an opaque ciphertext blob, the server never sees plaintext.
type RemoteTask struct {
	ID               string           `json:"id"`
	EncryptedPayload CipheredPayload  `json:"encrypted_payload"`
	Nonce            CipherNonce      `json:"nonce"`
	Clock            VectorClock      `json:"vector_clock"`
	UpdatedAt        time.Time        `json:"updated_at"`
	DeletedAt        *time.Time       `json:"deleted_at,omitempty"`
}
