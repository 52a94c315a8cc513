package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/orchestrator"
)

// fakeProvider replays one scripted turn per Chat/ChatStream call, mirroring
// the fakes used in internal/agents and internal/orchestrator's own tests.
type fakeProvider struct {
	turns []fakeTurn
	calls int
}

type fakeTurn struct {
	content   string
	toolCalls []llm.ToolCall
}

func (p *fakeProvider) next() fakeTurn {
	t := p.turns[p.calls]
	p.calls++
	return t
}

func (p *fakeProvider) Chat(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string) (llm.Message, error) {
	t := p.next()
	return llm.Message{Role: "assistant", Content: t.content}, nil
}

func (p *fakeProvider) ChatStream(_ context.Context, _ []llm.Message, _ []llm.ToolSchema, _ string, h llm.StreamHandler) error {
	t := p.next()
	if t.content != "" {
		h.OnDelta(t.content)
	}
	for _, tc := range t.toolCalls {
		h.OnToolCall(tc)
	}
	h.OnUsage(1, 1)
	return nil
}

type fakeSigner struct{}

func (fakeSigner) PresignGetURL(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func testDeps() Deps {
	singleNRC := &fakeProvider{turns: []fakeTurn{{content: "Reportable under 50.72(b)(2)(iv)."}}}
	roster := orchestrator.Roster{
		SingleNRC: agents.NewSingleNRCAgent(singleNRC, "test-model", nil, nil, nil, nil),
		Signer:    fakeSigner{},
		URLExpiry: time.Hour,
	}
	return Deps{Roster: roster, DefaultOrchestration: "single", StreamBufferSize: 1}
}

func decodeFrames(t *testing.T, body []byte) []chatmodel.StreamDelta {
	t.Helper()
	var out []chatmodel.StreamDelta
	for _, line := range strings.Split(string(body), "\r\n") {
		if line == "" {
			continue
		}
		var d chatmodel.StreamDelta
		if err := json.Unmarshal([]byte(line), &d); err != nil {
			t.Fatalf("decode frame %q: %v", line, err)
		}
		out = append(out, d)
	}
	return out
}

func TestChatStream_RejectsNonJSONContentType(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest("POST", "/chat/stream", strings.NewReader("not json"))
	req.Header.Set(echo.HeaderContentType, "text/plain")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ChatStream(testDeps())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	frames := decodeFrames(t, rec.Body.Bytes())
	if len(frames) != 1 || frames[0].Error == nil || frames[0].Error.Code != chatmodel.CodeValidation {
		t.Fatalf("expected a single validation ErrorDelta, got %+v", frames)
	}
}

func TestChatStream_RejectsEmptyMessages(t *testing.T) {
	e := echo.New()
	body, _ := json.Marshal(chatmodel.ChatRequest{Messages: nil})
	req := httptest.NewRequest("POST", "/chat/stream", bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ChatStream(testDeps())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != 400 {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatStream_HappyPathStreamsAndEndsWithContext(t *testing.T) {
	e := echo.New()
	reqBody, _ := json.Marshal(chatmodel.ChatRequest{Messages: []chatmodel.ChatMessage{{Role: chatmodel.RoleUser, Content: "describe event"}}})
	req := httptest.NewRequest("POST", "/chat/stream?orchestrationType=single", bytes.NewReader(reqBody))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := ChatStream(testDeps())(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	frames := decodeFrames(t, rec.Body.Bytes())
	if len(frames) == 0 {
		t.Fatalf("expected at least one frame")
	}
	last := frames[len(frames)-1]
	if last.Context == nil {
		t.Fatalf("expected the final frame to be a ContextDelta, got %+v", last)
	}
	var joined strings.Builder
	for _, f := range frames {
		if f.Delta != nil {
			joined.WriteString(f.Delta.Content)
		}
	}
	if !strings.Contains(joined.String(), "Reportable under 50.72(b)(2)(iv).") {
		t.Fatalf("expected recommendation content in stream, got %q", joined.String())
	}
}

func TestHealthz_ReturnsOK(t *testing.T) {
	e := NewEcho(testDeps())
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
