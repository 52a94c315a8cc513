package agents

import (
	"context"
	"encoding/json"
	"time"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/observability"
	"reportability-engine/internal/reportctx"
	"reportability-engine/internal/search"
)

// KnowledgeAgent wraps the kernel Agent with the document kind it reviews,
// so its Run method knows which of the context's registered plugin results
// to surface as "Reviewed"/"Citing" deltas.
type KnowledgeAgent struct {
	*Agent
	Kind docresult.Kind
}

// NewNuregKnowledgeAgent builds the agent bound to the NUREG search tool.
func NewNuregKnowledgeAgent(provider llm.Provider, model string, plugin *search.Plugin) *KnowledgeAgent {
	schema := searchToolSchema("search_nureg", "Searches NUREG-1022 Section 3.2 for subsections relevant to the described event, including 10 CFR 50.72 and 50.73 guidance.")
	return &KnowledgeAgent{
		Agent: &Agent{
			DisplayName:  "NUREG 1022 Knowledge Agent",
			TraceName:    "NuregKnowledgeAgent",
			Instructions: nuregInstructions,
			Tools:        []llm.ToolSchema{schema},
			Handlers:     map[string]ToolHandler{schema.Name: searchToolHandler(plugin)},
			Provider:     provider,
			Model:        model,
		},
		Kind: docresult.KindNuregSection,
	}
}

// NewReportabilityManualKnowledgeAgent builds the agent bound to the
// Reportability Manual search tool.
func NewReportabilityManualKnowledgeAgent(provider llm.Provider, model string, plugin *search.Plugin) *KnowledgeAgent {
	schema := searchToolSchema("search_reportability_manual", "Searches Constellation's Reportability Manual for sections relevant to the described event.")
	return &KnowledgeAgent{
		Agent: &Agent{
			DisplayName:  "Reportability Manual Knowledge Agent",
			TraceName:    "ReportabilityManualKnowledgeAgent",
			Instructions: reportabilityManualInstructions,
			Tools:        []llm.ToolSchema{schema},
			Handlers:     map[string]ToolHandler{schema.Name: searchToolHandler(plugin)},
			Provider:     provider,
			Model:        model,
		},
		Kind: docresult.KindReportabilityManual,
	}
}

// Run invokes the agent once (non-streaming: its only output is a JSON id
// list, never user-facing prose), marks every id it names as cited, then
// emits one "Reviewed" delta per result of this agent's kind the context
// currently holds, followed by a "Citing" delta plus the result's full
// agent string (history-only) for every result now marked cited.
//
// A malformed id list is a ToolContractViolation: logged and treated as an
// empty list rather than failing the turn.
func (ka *KnowledgeAgent) Run(ctx context.Context, rc *reportctx.Context, signer docresult.URLSigner, urlExpiry time.Duration, emit Emit) error {
	raw, err := ka.Invoke(ctx, rc)
	if err != nil {
		return err
	}

	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		observability.LoggerWithTrace(ctx).Warn().Err(err).Str("agent", ka.TraceName).Str("raw", raw).
			Msg("knowledge agent returned a malformed id list; treating as empty")
		ids = nil
	}
	cited := make(map[string]bool, len(ids))
	for _, id := range ids {
		cited[id] = true
		rc.MarkCited(id)
	}

	for _, r := range rc.Results() {
		if r.Kind() != ka.Kind {
			continue
		}
		url, err := docresult.ResolveURL(ctx, signer, r, urlExpiry)
		if err != nil {
			return err
		}
		emit(Delta{
			Content: "\nReviewed [" + r.DisplayValue() + "](" + url + "). \n",
			Role:    chatmodel.RoleAssistant,
			Meta:    chatmodel.Metadata{Flush: true, YieldToUser: true, AddToChatHistory: false},
		})
	}

	for _, r := range rc.Results() {
		if r.Kind() != ka.Kind || !r.Identity().Cited {
			continue
		}
		url, err := docresult.ResolveURL(ctx, signer, r, urlExpiry)
		if err != nil {
			return err
		}
		emit(Delta{
			Content: "\nCiting [" + r.DisplayValue() + "](" + url + ") . \n",
			Role:    chatmodel.RoleAssistant,
			Meta:    chatmodel.Metadata{Flush: true, YieldToUser: true, AddToChatHistory: false},
		})
		emit(Delta{
			Content: r.AgentString(),
			Role:    chatmodel.RoleAssistant,
			Meta:    chatmodel.Metadata{YieldToUser: false, AddToChatHistory: true, CombineBeforeAddingToHistory: false},
		})
	}
	return nil
}
