package reportctx

import (
	"context"
	"fmt"
	"time"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
)

// BuildContextDelta renders the terminal ContextDelta payload from the
// request's accumulated state: cited (or, in eval mode, every) plugin
// result becomes a Document with a freshly signed citation URL; eval mode
// additionally surfaces intent, token usage, and recommendations.
func (c *Context) BuildContextDelta(ctx context.Context, signer docresult.URLSigner, urlExpiry time.Duration) (chatmodel.ContextDeltaPayload, error) {
	eval := c.IncludeEvalContent()
	results := c.Results()

	docs := make([]chatmodel.Document, 0, len(results))
	for _, r := range results {
		id := r.Identity()
		if !id.Cited && !eval {
			continue
		}
		url, err := docresult.ResolveURL(ctx, signer, r, urlExpiry)
		if err != nil {
			return chatmodel.ContextDeltaPayload{}, fmt.Errorf("resolve citation url: %w", err)
		}
		doc := chatmodel.Document{
			ID:      id.ID,
			URL:     url,
			Section: r.DisplayValue(),
		}
		if eval {
			cited := id.Cited
			doc.SearchType = string(r.Kind())
			doc.SearchQuery = id.SearchQuery
			doc.Cited = &cited
		}
		docs = append(docs, doc)
	}

	payload := chatmodel.ContextDeltaPayload{Documents: docs}
	if !eval {
		return payload, nil
	}

	payload.Intent = string(c.Intent())
	userInputNeeded := c.UserInputNeeded()
	payload.UserInputNeeded = &userInputNeeded

	for _, rec := range c.Recommendations() {
		payload.Recommendations = append(payload.Recommendations, chatmodel.RecommendationView{
			RegulationName:  rec.RegulationName,
			ConfidenceScore: rec.ConfidenceScore,
			Reasoning:       rec.Reasoning,
		})
	}
	for _, tu := range c.TokenUsage() {
		payload.TokenUsage = append(payload.TokenUsage, chatmodel.TokenUsageView{
			AgentName:        tu.AgentName,
			PromptTokens:     tu.PromptTokens,
			CompletionTokens: tu.CompletionTokens,
		})
	}
	return payload, nil
}
