package models

// PullRequest is the body of POST /api/sync/pull. Since is a unix-millisecond
// cursor; the server returns tasks whose server update time is at or after it.
type PullRequest struct {
	DeviceID string `json:"device_id"`
	Since    int64  `json:"since"`
	Limit    int    `json:"limit,omitempty"`
}

// PullResponse carries the remote deltas and the cursor candidate for the
// next cycle.
type PullResponse struct {
	Tasks      []RemoteTask `json:"tasks"`
	NextCursor int64        `json:"next_cursor"`
}
