package agents

import (
	"context"
	"encoding/json"
	"testing"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/reportctx"
)

func TestIntentAgent_SetsIntentViaTool(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []llm.ToolCall{{Name: "set_intent", ID: "1", Args: json.RawMessage(`{"intent":"reportability"}`)}}},
		{content: ""},
	}}
	a := NewIntentAgent(p, "test-model")
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "Did we have a reactor trip?"})

	var deltas []Delta
	if _, err := a.InvokeStream(context.Background(), rc, func(d Delta) { deltas = append(deltas, d) }); err != nil {
		t.Fatalf("invoke stream: %v", err)
	}
	if rc.Intent() != reportctx.IntentReportability {
		t.Fatalf("expected intent set to reportability, got %q", rc.Intent())
	}
}
