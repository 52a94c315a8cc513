// Package chatmodel defines the wire types exchanged with callers of the
// reportability advisory HTTP API: inbound chat requests and the streamed
// chat-completion deltas returned in response. JSON field names use
// camelCase, matching the Pydantic alias-generator output the original
// service produced.
package chatmodel

import (
	"encoding/json"
	"errors"
)

// Role identifies the sender of a ChatMessage.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is a single message in the conversation supplied by the caller,
// or appended to history by the orchestrator during a request.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /chat/stream.
type ChatRequest struct {
	Messages     []ChatMessage `json:"messages"`
	SessionState string        `json:"sessionState,omitempty"`
}

// Validate enforces the one invariant the request model carries: a request
// must supply at least one message to process.
func (r ChatRequest) Validate() error {
	if len(r.Messages) == 0 {
		return errors.New("messages must not be empty")
	}
	return nil
}

// Metadata carries the per-delta flags that decide framing, user visibility,
// and history inclusion. Every flag defaults to true except Flush, matching
// the original's StreamingMessageMetadata.
type Metadata struct {
	// Flush forces a frame boundary immediately, regardless of buffer size.
	Flush bool
	// YieldToUser includes this fragment in the user-facing stream.
	YieldToUser bool
	// AddToChatHistory includes this fragment's content in message_history.
	AddToChatHistory bool
	// CombineBeforeAddingToHistory batches all combine-eligible fragments
	// from one agent into a single history entry appended when the agent
	// finishes, rather than appending fragment-by-fragment.
	CombineBeforeAddingToHistory bool
}

// DefaultMetadata returns the spec-mandated defaults: everything true except
// Flush.
func DefaultMetadata() Metadata {
	return Metadata{
		YieldToUser:                  true,
		AddToChatHistory:             true,
		CombineBeforeAddingToHistory: true,
	}
}

// Document is one citeable entry in a terminal ContextDelta.
type Document struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Section string `json:"section"`
	// Eval-only fields, present only when include_eval_content is set.
	SearchType  string `json:"searchType,omitempty"`
	SearchQuery string `json:"searchQuery,omitempty"`
	Cited       *bool  `json:"cited,omitempty"`
}

// MessageDeltaPayload is a token fragment of the streamed assistant message.
type MessageDeltaPayload struct {
	Role    Role   `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ContextDeltaPayload is the terminal, success-path frame: the collected
// citation set plus, when evaluation is requested, diagnostic fields.
type ContextDeltaPayload struct {
	Documents         []Document        `json:"documents"`
	Recommendations   []RecommendationView `json:"recommendations,omitempty"`
	Intent            string            `json:"intent,omitempty"`
	UserInputNeeded   *bool             `json:"userInputNeeded,omitempty"`
	TokenUsage        []TokenUsageView  `json:"tokenUsage,omitempty"`
}

// ConfidenceScore preserves a recommendation's confidence exactly as the
// model emitted it: the extraction agent's prompt allows either a number
// (0-10) or a "High"/"Medium"/"Low" string, and both shapes occur in
// practice. Unmarshal accepts either; Marshal re-emits
// whichever shape was received.
type ConfidenceScore struct {
	raw json.RawMessage
}

// NewConfidenceScore wraps a categorical confidence value ("High", "Medium",
// "Low") as a ConfidenceScore. Numeric scores arrive only via UnmarshalJSON,
// straight from the model's own JSON output.
func NewConfidenceScore(s string) ConfidenceScore {
	b, _ := json.Marshal(s)
	return ConfidenceScore{raw: b}
}

// String returns the confidence score as unquoted text: a numeric score's
// literal digits, or a categorical score's unquoted string value.
func (c ConfidenceScore) String() string {
	var s string
	if err := json.Unmarshal(c.raw, &s); err == nil {
		return s
	}
	return string(c.raw)
}

// IsZero reports whether no confidence score was ever set.
func (c ConfidenceScore) IsZero() bool {
	return len(c.raw) == 0
}

func (c ConfidenceScore) MarshalJSON() ([]byte, error) {
	if len(c.raw) == 0 {
		return []byte(`""`), nil
	}
	return c.raw, nil
}

func (c *ConfidenceScore) UnmarshalJSON(b []byte) error {
	c.raw = append([]byte(nil), b...)
	return nil
}

// RecommendationView is the wire form of reportctx.Recommendation.
type RecommendationView struct {
	RegulationName  string          `json:"regulationName"`
	ConfidenceScore ConfidenceScore `json:"confidenceScore"`
	Reasoning       string          `json:"reasoning"`
}

// TokenUsageView is the wire form of reportctx.TokenUsage.
type TokenUsageView struct {
	AgentName        string `json:"agentName"`
	PromptTokens     int    `json:"promptTokens"`
	CompletionTokens int    `json:"completionTokens"`
}

// ErrorDeltaPayload is the terminal, failure-path frame.
type ErrorDeltaPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StreamDelta is the tagged variant written to the wire, one per frame.
// Error is never set alongside Delta or Context: MessageDelta frames carry
// Delta only, the terminal ContextDelta carries Delta (role only) and
// Context, and the terminal ErrorDelta carries only Error.
type StreamDelta struct {
	Delta        *MessageDeltaPayload `json:"delta,omitempty"`
	SessionState string               `json:"sessionState,omitempty"`
	Context      *ContextDeltaPayload `json:"context,omitempty"`
	Error        *ErrorDeltaPayload   `json:"error,omitempty"`
}

// Error codes used across the error taxonomy (spec.md §7).
const (
	CodeValidation      = "invalid_request_error"
	CodeConfigMissing   = "config_missing_error"
	CodeSearchTransient = "search_transient_error"
	CodeLLMTransient    = "llm_transient_error"
	CodeToolContract    = "tool_contract_violation"
	CodeExtraction      = "extraction_invalid"
	CodeConcurrentSrc   = "concurrent_source_failure"
	CodeFatal           = "internal_error"
)
