// Package llm defines the provider-agnostic chat-completion interface the
// agent kernel drives, with concrete adapters in the openai and anthropic
// subpackages.
package llm

import (
	"context"
	"encoding/json"
)

// ToolCall is a single function-call request emitted by the model.
type ToolCall struct {
	Name string
	Args json.RawMessage
	ID   string
}

// Message is one turn in a chat history.
type Message struct {
	Role      string // "system" | "user" | "assistant" | "tool"
	Content   string
	ToolID    string
	ToolCalls []ToolCall // only set on assistant messages

	// PromptTokens/CompletionTokens carry the turn's usage when this Message
	// is the terminal response of a non-streaming Chat call; zero otherwise.
	PromptTokens     int
	CompletionTokens int
}

// ToolSchema describes a callable tool's name, purpose, and JSON Schema
// parameters, as handed to the provider's function-calling API.
type ToolSchema struct {
	Name        string
	Description string
	Parameters  map[string]any
}

// StreamHandler receives incremental output from a streaming chat call.
type StreamHandler interface {
	OnDelta(content string)
	OnToolCall(tc ToolCall)
	// OnUsage reports token accounting once it becomes available, which may
	// be mid-stream (as a final frame) depending on the provider.
	OnUsage(promptTokens, completionTokens int)
}

// Provider is the chat-completion substrate the agent kernel is built
// against; openai and anthropic each implement it.
type Provider interface {
	// Chat performs a single, non-streaming completion turn, used by the
	// knowledge agents' multi-turn tool-calling loop.
	Chat(ctx context.Context, msgs []Message, tools []ToolSchema, model string) (Message, error)
	// ChatStream performs a token-streaming completion turn, used by the
	// intent and recommendation agents.
	ChatStream(ctx context.Context, msgs []Message, tools []ToolSchema, model string, h StreamHandler) error
}
