package adapter

import "context"

// Roles used in replayed conversation history.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Turn is one role-attributed entry replayed into a live session.
type Turn struct {
	Role  string
	Parts []Part
}

// Part is either text or an inline blob (image, audio).
type Part struct {
	Text string
	Blob *Blob
}

type Blob struct {
	MIMEType string
	Data     []byte
}

// FunctionCall is a tool invocation requested by the model.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

// LiveMessage is one chunk received from the upstream streaming session.
// TurnComplete marks the boundary after all of a turn's chunks were drained.
type LiveMessage struct {
	Audio        []byte
	Text         string
	ToolCalls    []FunctionCall
	TurnComplete bool
}

// LiveConnectConfig configures a live connection at open time.
type LiveConnectConfig struct {
	SystemInstruction string
	Voice             string
	// Context-window compression bounds unbounded conversation growth.
	CompressionTriggerTokens int32
	CompressionTargetTokens  int32
}

// LiveConn is one open bidirectional session against the streaming AI
// service. Sends and receives are independent directions: a single writer
// and a single reader may use the connection concurrently.
type LiveConn interface {
	// SendTurns forwards content turns; turnComplete signals the model to
	// start generating. Audio streams must NOT use this (see SendRealtimeAudio).
	SendTurns(ctx context.Context, turns []Turn, turnComplete bool) error
	// SendRealtimeAudio forwards raw PCM as a continuous stream; the service's
	// voice-activity detection decides turn boundaries.
	SendRealtimeAudio(ctx context.Context, pcm []byte) error
	// Receive blocks for the next chunk. Returns an error once the stream is
	// broken or closed; it is not restartable.
	Receive(ctx context.Context) (*LiveMessage, error)
	Close() error
}

// LiveDialer opens live sessions. The genai-backed implementation lives in
// infra; tests substitute fakes.
type LiveDialer interface {
	Connect(ctx context.Context, modelID string, cfg *LiveConnectConfig) (LiveConn, error)
}
