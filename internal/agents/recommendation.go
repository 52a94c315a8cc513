package agents

import "reportability-engine/internal/llm"

// NewRecommendationAgent builds the drafting agent: no tools, pure
// streaming prose over whatever knowledge-agent findings already sit in
// history. Its output is combined into a single history entry once it
// finishes (chatmodel.DefaultMetadata's CombineBeforeAddingToHistory).
func NewRecommendationAgent(provider llm.Provider, model string) *Agent {
	return &Agent{
		DisplayName:  "Recommendation Agent",
		TraceName:    "RecommendationAgent",
		Instructions: recommendationInstructions,
		Provider:     provider,
		Model:        model,
	}
}
