// Package httpapi wires the agent orchestrator to an HTTP surface: a single
// streaming chat endpoint plus a health check, matching §4.7 of the
// service's request-dispatch contract.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/observability"
	"reportability-engine/internal/orchestrator"
	"reportability-engine/internal/reportctx"
	"reportability-engine/internal/stream"
)

// Deps bundles everything the chat-stream handler needs beyond the request
// itself: the agent roster, the default orchestration strategy, and the
// streaming buffer size.
type Deps struct {
	Roster               orchestrator.Roster
	DefaultOrchestration string
	StreamBufferSize     int
}

// ChatStream handles POST /chat/stream: it validates the inbound request,
// resolves the orchestration strategy, then streams newline-delimited
// StreamDelta frames until a terminal ContextDelta or ErrorDelta is written.
//
// Validation failures never reach the streaming machinery at all: they are
// reported as a single framed ErrorDelta under HTTP 400, written before any
// other bytes. Once the 200 stream has been opened, an orchestration
// failure can only be represented as a terminal ErrorDelta within that
// already-committed stream: HTTP doesn't allow a status code to change
// after headers are written, so failures past that point never produce a
// 500 — they produce a 200 response whose last frame is an ErrorDelta.
func ChatStream(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		ctype := req.Header.Get(echo.HeaderContentType)
		if !strings.HasPrefix(ctype, echo.MIMEApplicationJSON) {
			return writeValidationError(c, "request content-type must be application/json")
		}

		raw, err := io.ReadAll(req.Body)
		if err != nil {
			return writeValidationError(c, "request body could not be read")
		}
		req.Body = io.NopCloser(bytes.NewReader(raw))

		var body chatmodel.ChatRequest
		if err := c.Bind(&body); err != nil {
			observability.LoggerWithTrace(req.Context()).Debug().
				RawJSON("body", observability.RedactJSON(json.RawMessage(raw))).
				Msg("rejected chat request: not valid JSON")
			return writeValidationError(c, "request body is not valid JSON")
		}
		if err := body.Validate(); err != nil {
			return writeValidationError(c, err.Error())
		}

		evalRequested := parseBool(c.QueryParam("evaluation"))
		name, strategy := orchestrator.Resolve(req.Context(), c.QueryParam("orchestrationType"), deps.DefaultOrchestration)

		rc := reportctx.New(body, evalRequested)

		w := c.Response()
		w.Header().Set(echo.HeaderContentType, "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)

		framer := stream.New(w, deps.StreamBufferSize)
		emit := framer.Push

		observability.LoggerWithTrace(req.Context()).Info().
			Str("orchestrationType", name).
			Bool("evaluation", evalRequested).
			Msg("dispatching chat stream")

		if err := strategy(req.Context(), rc, deps.Roster, emit); err != nil {
			observability.LoggerWithTrace(req.Context()).Error().Err(err).
				Str("orchestrationType", name).
				Msg("orchestration run failed; terminating stream with an error frame")
			return framer.EndWithError(chatmodel.CodeLLMTransient, err.Error())
		}

		payload, err := buildContextPayload(req.Context(), deps.Roster.Signer, deps.Roster.URLExpiry, rc)
		if err != nil {
			observability.LoggerWithTrace(req.Context()).Error().Err(err).
				Msg("failed to build terminal context payload; terminating stream with an error frame")
			return framer.EndWithError(chatmodel.CodeFatal, err.Error())
		}
		return framer.EndWithContext(payload)
	}
}

// writeValidationError writes a single framed ErrorDelta under HTTP 400.
// It never touches the orchestrator: this is the one failure surface that
// is detected before any streaming begins, so it's the only case that can
// still carry its own status code.
func writeValidationError(c echo.Context, message string) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.WriteHeader(http.StatusBadRequest)
	return stream.New(w, 1).EndWithError(chatmodel.CodeValidation, message)
}

func parseBool(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "true") || v == "1"
}

// buildContextPayload assembles the terminal ContextDelta from the
// request's accumulated state. Per §4.8, a document is listed when it was
// cited, or unconditionally when the caller requested evaluation content;
// evaluation requests additionally carry per-hit search metadata, the
// classified intent, extracted recommendations, and token usage.
func buildContextPayload(ctx context.Context, signer docresult.URLSigner, expiry time.Duration, rc *reportctx.Context) (chatmodel.ContextDeltaPayload, error) {
	eval := rc.IncludeEvalContent()
	results := rc.Results()
	docs := make([]chatmodel.Document, 0, len(results))
	for _, r := range results {
		id := r.Identity()
		if !eval && !id.Cited {
			continue
		}
		url, err := docresult.ResolveURL(ctx, signer, r, expiry)
		if err != nil {
			return chatmodel.ContextDeltaPayload{}, err
		}
		doc := chatmodel.Document{
			ID:      id.ID,
			URL:     url,
			Section: r.DisplayValue(),
		}
		if eval {
			doc.SearchType = string(r.Kind())
			doc.SearchQuery = id.SearchQuery
			cited := id.Cited
			doc.Cited = &cited
		}
		docs = append(docs, doc)
	}

	payload := chatmodel.ContextDeltaPayload{Documents: docs}
	if !eval {
		return payload, nil
	}

	for _, rec := range rc.Recommendations() {
		payload.Recommendations = append(payload.Recommendations, chatmodel.RecommendationView(rec))
	}
	payload.Intent = string(rc.Intent())
	userInputNeeded := rc.UserInputNeeded()
	payload.UserInputNeeded = &userInputNeeded
	for _, u := range rc.TokenUsage() {
		payload.TokenUsage = append(payload.TokenUsage, chatmodel.TokenUsageView(u))
	}
	return payload, nil
}
