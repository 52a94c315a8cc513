package agents

import (
	"context"
	"testing"

	"reportability-engine/internal/chatmodel"
)

func TestRunExtraction_ParsesRecommendationList(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: `[{"regulationName":"50.72(b)(2)(iv)","confidenceScore":"High","reasoning":"loss of safety function"}]`}}}
	a := NewExtractionAgent(p, "test-model")
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: "Recommend reporting under 50.72(b)(2)(iv)."})

	if err := RunExtraction(context.Background(), a, rc); err != nil {
		t.Fatalf("run extraction: %v", err)
	}
	recs := rc.Recommendations()
	if len(recs) != 1 || recs[0].RegulationName != "50.72(b)(2)(iv)" {
		t.Fatalf("unexpected recommendations: %+v", recs)
	}
}

func TestRunExtraction_AcceptsNumericConfidenceScore(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: `[{"regulationName":"50.72(b)(2)(iv)","confidenceScore":8,"reasoning":"loss of safety function"}]`}}}
	a := NewExtractionAgent(p, "test-model")
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: "Recommend reporting under 50.72(b)(2)(iv)."})

	if err := RunExtraction(context.Background(), a, rc); err != nil {
		t.Fatalf("run extraction: %v", err)
	}
	recs := rc.Recommendations()
	if len(recs) != 1 {
		t.Fatalf("expected the numeric-confidence entry to survive, got %+v", recs)
	}
	if got := recs[0].ConfidenceScore.String(); got != "8" {
		t.Fatalf("expected confidence score %q, got %q", "8", got)
	}
}

func TestRunExtraction_EmptyContentLeavesRecommendationsUnchanged(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: ""}}}
	a := NewExtractionAgent(p, "test-model")
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: "Nothing to extract."})

	if err := RunExtraction(context.Background(), a, rc); err != nil {
		t.Fatalf("run extraction should not fail on empty content: %v", err)
	}
	if len(rc.Recommendations()) != 0 {
		t.Fatalf("expected no recommendations, got %+v", rc.Recommendations())
	}
}

func TestRunExtraction_NonJSONContentLeavesRecommendationsUnchanged(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: "not json at all"}}}
	a := NewExtractionAgent(p, "test-model")
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: "Some prose."})

	if err := RunExtraction(context.Background(), a, rc); err != nil {
		t.Fatalf("run extraction should not fail on non-JSON content: %v", err)
	}
	if len(rc.Recommendations()) != 0 {
		t.Fatalf("expected no recommendations, got %+v", rc.Recommendations())
	}
}

func TestRunExtraction_NonListJSONLeavesRecommendationsUnchanged(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: `{"regulationName":"50.72"}`}}}
	a := NewExtractionAgent(p, "test-model")
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: "Some prose."})

	if err := RunExtraction(context.Background(), a, rc); err != nil {
		t.Fatalf("run extraction should not fail on non-list JSON: %v", err)
	}
	if len(rc.Recommendations()) != 0 {
		t.Fatalf("expected no recommendations, got %+v", rc.Recommendations())
	}
}

func TestRunExtraction_OperatesOnlyOnLastMessage(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: `[]`}}}
	a := NewExtractionAgent(p, "test-model")
	rc := newTestContext(
		chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "irrelevant earlier turn"},
		chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: "final recommendation text"},
	)

	if err := RunExtraction(context.Background(), a, rc); err != nil {
		t.Fatalf("run extraction: %v", err)
	}
	if p.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", p.calls)
	}
}
