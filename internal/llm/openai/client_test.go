package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"reportability-engine/internal/config"
	"reportability-engine/internal/llm"
)

func TestChat_ServerReturnsChoice(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello","tool_calls":[]}}],"usage":{"prompt_tokens":3,"completion_tokens":1,"total_tokens":4}}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	c := config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"}
	cli := New(c, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	msg, err := cli.Chat(ctx, []llm.Message{{Role: "user", Content: "hi"}}, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Content != "hello" {
		t.Fatalf("expected hello, got %q", msg.Content)
	}
	if msg.PromptTokens != 3 || msg.CompletionTokens != 1 {
		t.Fatalf("expected usage on returned message, got prompt=%d completion=%d", msg.PromptTokens, msg.CompletionTokens)
	}
}

func TestChat_SkipsToolCallWithEmptyArguments(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"","tool_calls":[
			{"id":"1","type":"function","function":{"name":"search","arguments":""}},
			{"id":"2","type":"function","function":{"name":"lookup","arguments":"{\"q\":\"x\"}"}}
		]}}]}`))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"}, srv.Client())
	msg, err := cli.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.ToolCalls) != 1 || msg.ToolCalls[0].Name != "lookup" {
		t.Fatalf("expected only the non-empty tool call to survive, got %+v", msg.ToolCalls)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if firstNonEmpty("", "a", "b") != "a" {
		t.Fatalf("unexpected firstNonEmpty")
	}
	if firstNonEmpty("", "") != "" {
		t.Fatalf("expected empty result when all inputs are blank")
	}
}

func TestIsEmptyArgs(t *testing.T) {
	cases := map[string]bool{"": true, "{}": true, "null": true, `{"a":1}`: false}
	for in, want := range cases {
		if got := isEmptyArgs(in); got != want {
			t.Fatalf("isEmptyArgs(%q) = %v, want %v", in, got, want)
		}
	}
}

type testStreamHandler struct {
	deltas []string
	calls  []llm.ToolCall
	prompt int
	compl  int
}

func (h *testStreamHandler) OnDelta(content string) { h.deltas = append(h.deltas, content) }
func (h *testStreamHandler) OnToolCall(tc llm.ToolCall) {
	h.calls = append(h.calls, tc)
}
func (h *testStreamHandler) OnUsage(promptTokens, completionTokens int) {
	h.prompt, h.compl = promptTokens, completionTokens
}

func TestChatStream_AccumulatesDeltasAndToolCallsByIndex(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		flusher, _ := w.(http.Flusher)
		chunks := []string{
			`{"choices":[{"delta":{"content":"hel"},"finish_reason":null}]}`,
			`{"choices":[{"delta":{"content":"lo"},"finish_reason":null}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"call_1","function":{"name":"search","arguments":"{\"q\":"}}]},"finish_reason":null}]}`,
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"x\"}"}}]},"finish_reason":"tool_calls"}]}`,
			`{"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}`,
		}
		for _, c := range chunks {
			_, _ = w.Write([]byte("data: " + c + "\n\n"))
			if flusher != nil {
				flusher.Flush()
			}
		}
		_, _ = w.Write([]byte("data: [DONE]\n\n"))
	})
	srv := httptest.NewServer(h)
	defer srv.Close()

	cli := New(config.OpenAIConfig{APIKey: "test", BaseURL: srv.URL, Model: "m"}, srv.Client())
	handler := &testStreamHandler{}
	err := cli.ChatStream(context.Background(), []llm.Message{{Role: "user", Content: "hi"}}, nil, "", handler)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Join(handler.deltas, "") != "hello" {
		t.Fatalf("expected accumulated deltas 'hello', got %q", strings.Join(handler.deltas, ""))
	}
	if len(handler.calls) != 1 {
		t.Fatalf("expected exactly one accumulated tool call, got %d", len(handler.calls))
	}
	var args map[string]string
	if err := json.Unmarshal(handler.calls[0].Args, &args); err != nil {
		t.Fatalf("tool call args did not accumulate into valid JSON: %v (%s)", err, handler.calls[0].Args)
	}
	if args["q"] != "x" {
		t.Fatalf("expected accumulated arg q=x, got %+v", args)
	}
	if handler.prompt != 5 || handler.compl != 2 {
		t.Fatalf("expected usage to be reported, got prompt=%d completion=%d", handler.prompt, handler.compl)
	}
}
