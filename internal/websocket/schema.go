package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionHeartbeat Action = "heartbeat"
	ActionViolation Action = "violation"
	ActionEnd       Action = "end"
	ActionPing      Action = "ping"
)

// RequestPayload carries every client message. Fields beyond Action are
// read per action: the progress pointers for heartbeats, ViolationType for
// violation reports.
type RequestPayload struct {
	Action               Action `json:"action"`
	CurrentQuestionIndex *int   `json:"current_question_index"`
	QuestionsAnswered    *int   `json:"questions_answered"`
	TimeRemainingSeconds *int   `json:"time_remaining_seconds"`
	ViolationType        string `json:"violation_type"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError  Event = "error"
	EventStatus Event = "status"
	EventEnded  Event = "ended"
	EventPong   Event = "pong"
)

// StatusResponse echoes the authoritative session status after a heartbeat,
// so a paused client locks its UI immediately.
type StatusResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type EndedResponse struct {
	Event  Event  `json:"event"`
	Status string `json:"status"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
