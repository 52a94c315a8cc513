package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/reportctx"
)

func newOrchestratorTestContext(includeEval bool, msgs ...chatmodel.ChatMessage) *reportctx.Context {
	return reportctx.New(chatmodel.ChatRequest{Messages: msgs}, includeEval)
}

// scriptedProvider replays a fixed sequence of turns across Chat/ChatStream
// calls, one turn per call, mirroring the fake used in internal/agents' own
// tests but kept local here to avoid exporting test-only plumbing.
type scriptedProvider struct {
	turns []scriptedTurn
	calls int
}

type scriptedTurn struct {
	content          string
	toolCalls        []llm.ToolCall
	promptTokens     int
	completionTokens int
	err              error
}

func (p *scriptedProvider) next() (scriptedTurn, error) {
	if p.calls >= len(p.turns) {
		return scriptedTurn{}, errors.New("scriptedProvider: out of turns")
	}
	t := p.turns[p.calls]
	p.calls++
	return t, t.err
}

func (p *scriptedProvider) Chat(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string) (llm.Message, error) {
	t, err := p.next()
	if err != nil {
		return llm.Message{}, err
	}
	return llm.Message{Role: "assistant", Content: t.content, ToolCalls: t.toolCalls, PromptTokens: t.promptTokens, CompletionTokens: t.completionTokens}, nil
}

func (p *scriptedProvider) ChatStream(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	t, err := p.next()
	if err != nil {
		return err
	}
	if t.content != "" {
		h.OnDelta(t.content)
	}
	for _, tc := range t.toolCalls {
		h.OnToolCall(tc)
	}
	h.OnUsage(t.promptTokens, t.completionTokens)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) PresignGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func setIntentCall(intent string) llm.ToolCall {
	return llm.ToolCall{Name: "set_intent", ID: "intent-1", Args: json.RawMessage(`{"intent":"` + intent + `"}`)}
}

// buildRoster wires a complete Roster from scripted providers, one per
// roster member, so each test controls exactly what each agent "says".
func buildRoster(intent, reportabilityManual, nureg, recommendation, extraction, singleNRC *scriptedProvider) Roster {
	return Roster{
		Intent:                       agents.NewIntentAgent(intent, "test-model"),
		ReportabilityManualKnowledge: agents.NewReportabilityManualKnowledgeAgent(reportabilityManual, "test-model", nil),
		NuregKnowledge:               agents.NewNuregKnowledgeAgent(nureg, "test-model", nil),
		Recommendation:               agents.NewRecommendationAgent(recommendation, "test-model"),
		Extraction:                   agents.NewExtractionAgent(extraction, "test-model"),
		SingleNRC:                    agents.NewSingleNRCAgent(singleNRC, "test-model", nil, nil, nil, nil),
		Signer:                       fakeSigner{},
		URLExpiry:                    time.Hour,
	}
}
