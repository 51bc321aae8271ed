package eventstream

import "time"

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeChatCompleted is emitted after a chat request finishes, in
	// any terminal state.
	EventTypeChatCompleted = "modelgate.chat.completed"
)

// ChatCompletedEvent is a transport-neutral event payload for a finished
// chat request.
type ChatCompletedEvent struct {
	SchemaVersion int       `json:"schema_version"`
	EventType     string    `json:"event_type"`
	EventID       string    `json:"event_id"`
	EmittedAt     time.Time `json:"emitted_at"`

	RequestID  string `json:"request_id"`
	Identity   string `json:"identity"`
	Model      string `json:"model"`
	Streaming  bool   `json:"streaming"`
	ChunkCount int    `json:"chunk_count"`
	DurationMs int64  `json:"duration_ms"`

	// Outcome is the terminal state of the request: completed, cancelled,
	// or failed.
	Outcome string `json:"outcome"`
}
