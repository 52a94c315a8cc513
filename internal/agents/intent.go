package agents

import (
	"reportability-engine/internal/llm"
)

// NewIntentAgent builds the gating agent: it calls set_intent exactly once
// per turn and otherwise only speaks to tell the user the system is out of
// scope for their message.
func NewIntentAgent(provider llm.Provider, model string) *Agent {
	return &Agent{
		DisplayName:  "Intent Detection Agent",
		TraceName:    "IntentDetectionAgent",
		Instructions: intentInstructions,
		Tools:        []llm.ToolSchema{setIntentSchema},
		Handlers:     map[string]ToolHandler{"set_intent": setIntentHandler()},
		Provider:     provider,
		Model:        model,
	}
}
