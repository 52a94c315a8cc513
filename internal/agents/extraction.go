package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"reportability-engine/internal/llm"
	"reportability-engine/internal/observability"
	"reportability-engine/internal/reportctx"
)

// NewExtractionAgent builds the non-streaming agent that turns the
// Recommendation agent's latest prose into a structured recommendation list.
func NewExtractionAgent(provider llm.Provider, model string) *Agent {
	return &Agent{
		DisplayName:  "Recommendation Extraction Agent",
		TraceName:    "RecommendationExtractionAgent",
		Instructions: extractionInstructions,
		Provider:     provider,
		Model:        model,
	}
}

// RunExtraction invokes a on only the single last message in rc's history
// (never the full conversation) and parses its content as a JSON array of
// recommendations. An empty response, non-JSON content, or JSON that isn't a
// list is the ExtractionInvalid case: logged and left as a no-op, leaving
// rc's recommendations unchanged rather than failing the turn.
func RunExtraction(ctx context.Context, a *Agent, rc *reportctx.Context) error {
	history := rc.MessageHistory()
	if len(history) == 0 {
		observability.LoggerWithTrace(ctx).Warn().Str("agent", a.TraceName).
			Msg("extraction agent found no message history; skipping")
		return nil
	}
	last := history[len(history)-1]

	msgs := []llm.Message{
		{Role: "system", Content: a.Instructions},
		{Role: string(last.Role), Content: last.Content},
	}
	msg, err := a.Provider.Chat(ctx, msgs, nil, a.Model)
	if err != nil {
		return fmt.Errorf("%s: %w", a.TraceName, err)
	}
	rc.AppendTokenUsage(a.TraceName, msg.PromptTokens, msg.CompletionTokens)

	if msg.Content == "" {
		observability.LoggerWithTrace(ctx).Warn().Str("agent", a.TraceName).
			Msg("extraction agent returned empty content; recommendations left unchanged")
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(msg.Content), &raw); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("agent", a.TraceName).Str("content", msg.Content).
			Msg("extraction agent returned non-JSON-array content; recommendations left unchanged")
		return nil
	}

	recs := make([]reportctx.Recommendation, 0, len(raw))
	for _, item := range raw {
		var rec reportctx.Recommendation
		if err := json.Unmarshal(item, &rec); err != nil {
			observability.LoggerWithTrace(ctx).Warn().Err(err).Str("agent", a.TraceName).
				Msg("extraction agent returned a malformed recommendation entry; skipping it")
			continue
		}
		recs = append(recs, rec)
	}
	rc.AppendRecommendations(recs)
	return nil
}
