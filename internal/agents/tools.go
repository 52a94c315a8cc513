package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"reportability-engine/internal/llm"
	"reportability-engine/internal/reportctx"
	"reportability-engine/internal/search"
)

// searchArgs is the sole parameter every search_* tool accepts, per the
// tool-contract requirement that the parameter always be named search_query.
type searchArgs struct {
	SearchQuery string `json:"search_query"`
}

func searchToolSchema(name, description string) llm.ToolSchema {
	return llm.ToolSchema{
		Name:        name,
		Description: description,
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"search_query": map[string]any{
					"type":        "string",
					"description": "The search query string. Always use the parameter name search_query.",
				},
			},
			"required": []string{"search_query"},
		},
	}
}

// searchToolHandler binds a ToolHandler to p: it executes the search, folds
// newly registered results into one agent-facing string, and leaves
// already-seen results (returned empty by Plugin.Search) out of the model's
// view entirely.
func searchToolHandler(p *search.Plugin) ToolHandler {
	return func(ctx context.Context, rc *reportctx.Context, raw json.RawMessage) (string, error) {
		var args searchArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments for %s: %w", p.Name, err)
		}
		results, err := p.Search(ctx, rc, args.SearchQuery)
		if err != nil {
			return "", err
		}
		if len(results) == 0 {
			return "No relevant results found.", nil
		}
		parts := make([]string, len(results))
		for i, r := range results {
			parts[i] = r.AgentString()
		}
		return strings.Join(parts, "\n\n"), nil
	}
}

// setIntentSchema describes the Intent agent's only tool.
var setIntentSchema = llm.ToolSchema{
	Name: "set_intent",
	Description: "Logs the intent detected from the user's message: 'reportability' for plant-event " +
		"reportability questions, 'invalid' for anything else.",
	Parameters: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"intent": map[string]any{
				"type": "string",
				"enum": []string{string(reportctx.IntentReportability), string(reportctx.IntentInvalid)},
			},
		},
		"required": []string{"intent"},
	},
}

type setIntentArgs struct {
	Intent string `json:"intent"`
}

func setIntentHandler() ToolHandler {
	return func(_ context.Context, rc *reportctx.Context, raw json.RawMessage) (string, error) {
		var args setIntentArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("invalid arguments for set_intent: %w", err)
		}
		intent := reportctx.Intent(args.Intent)
		if intent != reportctx.IntentReportability && intent != reportctx.IntentInvalid {
			return "", fmt.Errorf("set_intent: unrecognized intent %q", args.Intent)
		}
		rc.SetIntent(intent)
		return "ok", nil
	}
}
