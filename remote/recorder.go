package remote

import (
	"context"
	"time"

	"github.com/sweetpotato0/remote-llm/llm"
)

// Exchange is one successful Generate call as seen by the server.
type Exchange struct {
	ID        string        `json:"id" bson:"_id"`
	LLMType   string        `json:"llm_type" bson:"llm_type"`
	Prompts   []string      `json:"prompts" bson:"prompts"`
	Stop      []string      `json:"stop" bson:"stop"`
	Result    *llm.Result   `json:"result" bson:"result"`
	Path      string        `json:"path" bson:"path"`
	Duration  time.Duration `json:"duration" bson:"duration"`
	CreatedAt time.Time     `json:"created_at" bson:"created_at"`
}

// Recorder persists exchanges. Failures are logged by the server and never
// reach the caller.
type Recorder interface {
	Record(ctx context.Context, ex *Exchange) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ex *Exchange) error

// Record calls f.
func (f RecorderFunc) Record(ctx context.Context, ex *Exchange) error {
	return f(ctx, ex)
}

// TokenCounter estimates the number of tokens in a text.
type TokenCounter interface {
	CountTokens(text string) int
}
