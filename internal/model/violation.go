package model

import "time"

// DefaultViolationType is recorded when the client omits a type tag.
const DefaultViolationType = "tab switch"

// ViolationEvent is one anti-cheat signal, batch-persisted off the request
// path by the violation worker. The session row keeps the running counter;
// this table keeps the per-event trail.
type ViolationEvent struct {
	ID            int64     `json:"id"`
	SessionID     int64     `json:"session_id"`
	ViolationType string    `json:"violation_type"`
	RecordedAt    time.Time `json:"recorded_at"`
}
