// Package engine defines the ModelEngine capability boundary: the
// reasoning, action, and reflection engines are all backed by a
// ModelEngine, but the core never talks to a concrete model SDK directly.
package engine

import (
	"context"
	"encoding/json"
	"time"
)

// Role mirrors the chat-completion roles used across model back-ends.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in a model call.
type Message struct {
	Role    Role
	Content string
}

// ToolDefinition is a function-calling tool surfaced to a ModelEngine,
// back-end-agnostic the same way Request/Response are: adapters translate
// this into whatever tool-call shape the underlying SDK wants (e.g.
// go-openai's openai.Tool).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON Schema
}

// Request is everything a ModelEngine needs to produce one Response. It is
// deliberately back-end-agnostic: no SDK types leak through this boundary.
type Request struct {
	Messages        []Message
	Tools           []ToolDefinition // function-calling tools offered to the model, if any
	Temperature     float32
	MaxTokens       int
	ReasoningEffort string // "", "low", "medium", "high" — ignored by engines that don't support it
}

// Response is a ModelEngine's reply.
type Response struct {
	Content          string
	ReasoningContent string
	TokensUsed       int
}

// StreamChunk is one incremental piece of a streaming response.
type StreamChunk struct {
	Delta            string
	ReasoningDelta    string
	Done             bool
}

// StreamCallback receives StreamChunk values as a streaming call progresses.
type StreamCallback func(StreamChunk)

// Capability describes what a named model supports, used by reasoning/
// reflection to decide whether to ask for a reasoning_effort parameter or
// treat the model as a plain chat completion.
type Capability struct {
	SupportsNativeThinking bool
	ReasoningEffortParam   bool
}

// ModelEngine is the capability boundary: one operation, execute(Request)
// -> Response. Implementations must respect ctx cancellation and should
// return within the caller-supplied deadline or fail with a timeout error.
type ModelEngine interface {
	Name() string
	Capability() Capability
	Execute(ctx context.Context, req Request) (Response, error)
	ExecuteStream(ctx context.Context, req Request, cb StreamCallback) (Response, error)
}

// DefaultTimeout bounds a single Execute call when the caller does not set
// a context deadline.
const DefaultTimeout = 60 * time.Second
