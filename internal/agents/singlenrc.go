package agents

import (
	"reportability-engine/internal/llm"
	"reportability-engine/internal/search"
)

// NewSingleNRCAgent builds the all-in-one reportability advisor used by the
// Single orchestration path: it owns all four search tools directly and
// streams its recommendation in one pass, rather than delegating to separate
// knowledge and recommendation agents.
func NewSingleNRCAgent(provider llm.Provider, model string, nuregPlugin, reportabilityManualPlugin, tsNaivePlugin, ufsarNaivePlugin *search.Plugin) *Agent {
	nureg := searchToolSchema("search_nureg", "Searches NUREG-1022 Section 3.2 for subsections relevant to the described event, including 10 CFR 50.72 and 50.73 guidance.")
	manual := searchToolSchema("search_reportability_manual", "Searches Constellation's Reportability Manual for sections relevant to the described event.")
	tsNaive := searchToolSchema("search_ts_naive", "Performs a naive full-text search over plant technical specifications for content relevant to the described event.")
	ufsarNaive := searchToolSchema("search_ufsar_naive", "Performs a naive full-text search over the Updated Final Safety Analysis Report for content relevant to the described event.")

	return &Agent{
		DisplayName:  "Constellation NRC Reportability Advisor",
		TraceName:    "NRCRecommendationAgent",
		Instructions: singleNRCInstructions,
		Tools:        []llm.ToolSchema{nureg, manual, tsNaive, ufsarNaive},
		Handlers: map[string]ToolHandler{
			nureg.Name:      searchToolHandler(nuregPlugin),
			manual.Name:     searchToolHandler(reportabilityManualPlugin),
			tsNaive.Name:    searchToolHandler(tsNaivePlugin),
			ufsarNaive.Name: searchToolHandler(ufsarNaivePlugin),
		},
		Provider: provider,
		Model:    model,
	}
}
