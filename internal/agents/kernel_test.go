package agents

import (
	"context"
	"encoding/json"
	"testing"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/reportctx"
)

// fakeProvider scripts a fixed sequence of turns: each call to Chat or
// ChatStream consumes the next scripted turn, so a test can assert a
// tool-call turn followed by a terminal content turn.
type fakeProvider struct {
	turns []fakeTurn
	calls int
}

type fakeTurn struct {
	content          string
	toolCalls        []llm.ToolCall
	promptTokens     int
	completionTokens int
	err              error
}

func (f *fakeProvider) next() (fakeTurn, error) {
	if f.calls >= len(f.turns) {
		panic("fakeProvider: ran out of scripted turns")
	}
	t := f.turns[f.calls]
	f.calls++
	return t, t.err
}

func (f *fakeProvider) Chat(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string) (llm.Message, error) {
	t, err := f.next()
	if err != nil {
		return llm.Message{}, err
	}
	return llm.Message{
		Role:             "assistant",
		Content:          t.content,
		ToolCalls:        t.toolCalls,
		PromptTokens:     t.promptTokens,
		CompletionTokens: t.completionTokens,
	}, nil
}

func (f *fakeProvider) ChatStream(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	t, err := f.next()
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

func newTestContext(msgs ...chatmodel.ChatMessage) *reportctx.Context {
	return reportctx.New(chatmodel.ChatRequest{Messages: msgs}, false)
}

func TestAgent_Invoke_NoTools_ReturnsContentAndRecordsUsage(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{{content: "hello", promptTokens: 10, completionTokens: 5}}}
	a := &Agent{TraceName: "Test", Instructions: "be helpful", Provider: p, Model: "test-model"}
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "hi"})

	out, err := a.Invoke(context.Background(), rc)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "hello" {
		t.Fatalf("expected content %q, got %q", "hello", out)
	}
	usage := rc.TokenUsage()
	if len(usage) != 1 || usage[0].PromptTokens != 10 || usage[0].CompletionTokens != 5 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
	if rc.AllChunks() != "hello" {
		t.Fatalf("expected chunk log to record content, got %q", rc.AllChunks())
	}
}

func TestAgent_Invoke_RunsToolThenTerminates(t *testing.T) {
	called := false
	p := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []llm.ToolCall{{Name: "do_thing", ID: "call-1", Args: json.RawMessage(`{}`)}}},
		{content: "done"},
	}}
	a := &Agent{
		TraceName:    "Test",
		Instructions: "x",
		Provider:     p,
		Handlers: map[string]ToolHandler{
			"do_thing": func(context.Context, *reportctx.Context, json.RawMessage) (string, error) {
				called = true
				return "tool-result", nil
			},
		},
	}
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "go"})

	out, err := a.Invoke(context.Background(), rc)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if !called {
		t.Fatalf("expected tool handler to run")
	}
	if out != "done" {
		t.Fatalf("expected terminal content %q, got %q", "done", out)
	}
}

func TestAgent_Invoke_UnknownToolYieldsErrorStringNotFailure(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []llm.ToolCall{{Name: "missing", ID: "call-1", Args: json.RawMessage(`{}`)}}},
		{content: "recovered"},
	}}
	a := &Agent{TraceName: "Test", Provider: p, Handlers: map[string]ToolHandler{}}
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "go"})

	out, err := a.Invoke(context.Background(), rc)
	if err != nil {
		t.Fatalf("invoke should not fail on unknown tool: %v", err)
	}
	if out != "recovered" {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestAgent_Invoke_ExceedsMaxToolTurns(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{
		{toolCalls: []llm.ToolCall{{Name: "loop", ID: "1", Args: json.RawMessage(`{}`)}}},
		{toolCalls: []llm.ToolCall{{Name: "loop", ID: "2", Args: json.RawMessage(`{}`)}}},
	}}
	a := &Agent{
		TraceName:    "Test",
		Provider:     p,
		MaxToolTurns: 2,
		Handlers: map[string]ToolHandler{
			"loop": func(context.Context, *reportctx.Context, json.RawMessage) (string, error) { return "ok", nil },
		},
	}
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "go"})
	if _, err := a.Invoke(context.Background(), rc); err == nil {
		t.Fatalf("expected error after exceeding max tool turns")
	}
}

func TestAgent_InvokeStream_EmitsDeltasAndRunsTools(t *testing.T) {
	p := &fakeProvider{turns: []fakeTurn{
		{content: "searching...", toolCalls: []llm.ToolCall{{Name: "lookup", ID: "1", Args: json.RawMessage(`{}`)}}},
		{content: "final answer", promptTokens: 2, completionTokens: 3},
	}}
	a := &Agent{
		TraceName: "Test",
		Provider:  p,
		Handlers: map[string]ToolHandler{
			"lookup": func(context.Context, *reportctx.Context, json.RawMessage) (string, error) { return "found", nil },
		},
	}
	rc := newTestContext(chatmodel.ChatMessage{Role: chatmodel.RoleUser, Content: "go"})

	var deltas []Delta
	out, err := a.InvokeStream(context.Background(), rc, func(d Delta) { deltas = append(deltas, d) })
	if err != nil {
		t.Fatalf("invoke stream: %v", err)
	}
	if out != "final answer" {
		t.Fatalf("unexpected final content: %q", out)
	}
	if len(deltas) != 2 {
		t.Fatalf("expected 2 emitted deltas, got %d: %+v", len(deltas), deltas)
	}
	usage := rc.TokenUsage()
	if len(usage) != 1 || usage[0].PromptTokens != 2 || usage[0].CompletionTokens != 3 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
}
