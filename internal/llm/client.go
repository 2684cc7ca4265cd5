// Package llm wraps the generative service boundary: chat completions for
// analysis, question answering and title generation, forced function calls
// for quiz generation, and audio transcription.
package llm

import (
	"context"
	"encoding/json"

	"github.com/meetscribe/backend/internal/models"
)

// CompletionRequest is one chat completion call.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float64
	MaxTokens   int
	JSONObject  bool // request a single JSON object response
}

// FunctionSpec describes a forced function/tool call whose arguments carry
// the structured result.
type FunctionSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON schema
}

// TranscriptionRequest is one audio transcription call. Data is the full
// audio object; callers validate size and format before reaching here.
type TranscriptionRequest struct {
	Filename       string
	ContentType    string
	Data           []byte
	Language       string
	WithTimestamps bool
}

// Chat is the text-generation side of the service boundary.
type Chat interface {
	// Complete returns the assistant message content, or a service error
	// when the response carries none.
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// CompleteFunction forces a call of fn and returns its raw JSON
	// arguments.
	CompleteFunction(ctx context.Context, req CompletionRequest, fn FunctionSpec) (json.RawMessage, error)
}

// Transcriber is the speech-to-text side of the service boundary.
type Transcriber interface {
	Transcribe(ctx context.Context, req TranscriptionRequest) (*models.Transcript, error)
}
