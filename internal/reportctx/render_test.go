package reportctx_test

import (
	"context"
	"testing"
	"time"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/reportctx"
)

type fakeSigner struct{}

func (fakeSigner) PresignGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func TestBuildContextDelta_OnlyCitedWhenNotEval(t *testing.T) {
	ctx := reportctx.New(chatmodel.ChatRequest{}, false)
	ctx.RegisterResult(&docresult.NaiveChunk{Base: docresult.Base{ID: "cited-1", Key: "k1"}, Title: "Cited"})
	ctx.RegisterResult(&docresult.NaiveChunk{Base: docresult.Base{ID: "uncited-1", Key: "k2"}, Title: "Uncited"})
	ctx.MarkCited("cited-1")

	payload, err := ctx.BuildContextDelta(context.Background(), fakeSigner{}, 24*time.Hour)
	if err != nil {
		t.Fatalf("build context delta: %v", err)
	}
	if len(payload.Documents) != 1 || payload.Documents[0].ID != "cited-1" {
		t.Fatalf("expected only the cited document, got %+v", payload.Documents)
	}
	if payload.Intent != "" || payload.UserInputNeeded != nil {
		t.Fatalf("expected no eval fields when eval disabled, got %+v", payload)
	}
}

func TestBuildContextDelta_EvalIncludesAllAndDiagnostics(t *testing.T) {
	ctx := reportctx.New(chatmodel.ChatRequest{}, true)
	ctx.RegisterResult(&docresult.NaiveChunk{Base: docresult.Base{ID: "a", Key: "k1"}, Title: "A"})
	ctx.SetIntent(reportctx.IntentReportability)
	ctx.AppendTokenUsage("intent", 10, 2)
	ctx.AppendRecommendations([]reportctx.Recommendation{{RegulationName: "10 CFR 50.72", ConfidenceScore: chatmodel.NewConfidenceScore("High"), Reasoning: "because"}})

	payload, err := ctx.BuildContextDelta(context.Background(), fakeSigner{}, time.Hour)
	if err != nil {
		t.Fatalf("build context delta: %v", err)
	}
	if len(payload.Documents) != 1 {
		t.Fatalf("expected uncited document included under eval, got %+v", payload.Documents)
	}
	if payload.Documents[0].Cited == nil || *payload.Documents[0].Cited {
		t.Fatalf("expected cited=false surfaced explicitly, got %+v", payload.Documents[0])
	}
	if payload.Intent != string(reportctx.IntentReportability) {
		t.Fatalf("expected intent surfaced, got %q", payload.Intent)
	}
	if len(payload.TokenUsage) != 1 || payload.TokenUsage[0].PromptTokens != 10 {
		t.Fatalf("expected token usage surfaced, got %+v", payload.TokenUsage)
	}
	if len(payload.Recommendations) != 1 {
		t.Fatalf("expected recommendations surfaced, got %+v", payload.Recommendations)
	}
}
