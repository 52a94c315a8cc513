package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/llm"
)

func TestRunConcurrent_OneSourceFailureDoesNotBlockTheOther(t *testing.T) {
	intent := &scriptedProvider{turns: []scriptedTurn{{toolCalls: []llm.ToolCall{setIntentCall("reportability")}}, {content: ""}}}
	reportabilityManual := &scriptedProvider{turns: []scriptedTurn{{content: `["M1"]`}}}
	nureg := &scriptedProvider{turns: []scriptedTurn{{err: errors.New("transient search failure")}}}
	recommendation := &scriptedProvider{turns: []scriptedTurn{{content: "Report under 50.72(b)(2)(iv)."}}}
	extraction := &scriptedProvider{turns: []scriptedTurn{{content: `[]`}}}
	r := buildRoster(intent, reportabilityManual, nureg, recommendation, extraction, nil)

	rc := newOrchestratorTestContext(false, chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "describe event"})
	rc.RegisterResult(&docresult.ReportabilityManual{Base: docresult.Base{ID: "M1", Key: "m1.pdf"}, SectionName: "4.1"})

	var streamed []string
	emit := func(content string, _ chatmodel.Role, _ chatmodel.Metadata) error {
		streamed = append(streamed, content)
		return nil
	}

	if err := RunConcurrent(context.Background(), rc, r, emit); err != nil {
		t.Fatalf("run concurrent: %v", err)
	}

	joined := strings.Join(streamed, "")
	if !strings.Contains(joined, "Reviewed [4.1]") {
		t.Fatalf("expected the surviving source's output, got %q", joined)
	}
	if !strings.Contains(joined, "Report under 50.72(b)(2)(iv).") {
		t.Fatalf("expected recommendation content, got %q", joined)
	}
	res, _ := rc.Result("M1")
	if !res.Identity().Cited {
		t.Fatalf("expected M1 to be marked cited despite the sibling source failing")
	}
}
