package agents

import (
	"context"
	"encoding/json"
	"testing"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/reportctx"
	"reportability-engine/internal/search"
)

func TestSearchToolHandler_ReturnsNoResultsMessageWhenEmpty(t *testing.T) {
	idx := search.NewMemorySearch()
	p := search.NewPlugin("nureg", search.Descriptor{Top: 5}, docresult.KindNuregSection, idx, nil, nil)
	h := searchToolHandler(p)
	rc := reportctx.New(chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "hi"}}}, false)

	out, err := h(context.Background(), rc, json.RawMessage(`{"search_query":"reactor trip"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if out != "No relevant results found." {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestSearchToolHandler_ReturnsJoinedAgentStrings(t *testing.T) {
	idx := search.NewMemorySearch()
	ctx := context.Background()
	_ = idx.Index(ctx, "doc-1", "reactor trip reportability discussion", map[string]string{"title": "Section 1"})
	p := search.NewPlugin("nureg", search.Descriptor{Top: 5, Threshold: 0}, docresult.KindNuregSection, idx, nil, nil)
	h := searchToolHandler(p)
	rc := reportctx.New(chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "hi"}}}, false)

	out, err := h(ctx, rc, json.RawMessage(`{"search_query":"reactor trip"}`))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if out == "" || out == "No relevant results found." {
		t.Fatalf("expected non-empty agent string, got %q", out)
	}
	if len(rc.Results()) != 1 {
		t.Fatalf("expected the result to be registered in the context, got %d", len(rc.Results()))
	}
}

func TestSearchToolHandler_RejectsInvalidArgs(t *testing.T) {
	idx := search.NewMemorySearch()
	p := search.NewPlugin("nureg", search.Descriptor{Top: 5}, docresult.KindNuregSection, idx, nil, nil)
	h := searchToolHandler(p)
	rc := reportctx.New(chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "hi"}}}, false)

	if _, err := h(context.Background(), rc, json.RawMessage(`not json`)); err == nil {
		t.Fatalf("expected error for malformed arguments")
	}
}

func TestSetIntentHandler_AcceptsValidIntents(t *testing.T) {
	h := setIntentHandler()
	rc := reportctx.New(chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "hi"}}}, false)

	if _, err := h(context.Background(), rc, json.RawMessage(`{"intent":"reportability"}`)); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if rc.Intent() != reportctx.IntentReportability {
		t.Fatalf("expected intent to be set, got %q", rc.Intent())
	}
}

func TestSetIntentHandler_RejectsUnrecognizedIntent(t *testing.T) {
	h := setIntentHandler()
	rc := reportctx.New(chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "hi"}}}, false)

	if _, err := h(context.Background(), rc, json.RawMessage(`{"intent":"banana"}`)); err == nil {
		t.Fatalf("expected error for unrecognized intent")
	}
}
