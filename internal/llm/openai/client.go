package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"reportability-engine/internal/config"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/observability"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("reportability-engine/internal/llm/openai")

// Client adapts the OpenAI chat-completions API to the llm.Provider interface.
type Client struct {
	sdk   sdk.Client
	model string
	extra map[string]any
}

// New constructs a Client from the service's OpenAI configuration.
func New(c config.OpenAIConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(c.APIKey)}
	if c.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(c.BaseURL))
	}
	opts = append(opts, option.WithHTTPClient(httpClient))

	return &Client{
		sdk:   sdk.NewClient(opts...),
		model: c.Model,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func isEmptyArgs(s string) bool {
	t := strings.TrimSpace(s)
	return t == "" || t == "{}" || t == "null"
}

func isEmptyArgsBytes(b json.RawMessage) bool {
	return isEmptyArgs(string(b))
}

func buildParams(model string, msgs []llm.Message, tools []llm.ToolSchema, extra map[string]any) sdk.ChatCompletionNewParams {
	params := sdk.ChatCompletionNewParams{Model: sdk.ChatModel(model)}
	params.Temperature = sdk.Float(0)
	params.Messages = AdaptMessages(model, msgs)
	if len(tools) > 0 {
		params.Tools = AdaptSchemas(tools)
	}
	if len(extra) > 0 {
		if len(tools) == 0 {
			tmp := make(map[string]any, len(extra))
			for k, v := range extra {
				tmp[k] = v
			}
			delete(tmp, "parallel_tool_calls")
			params.SetExtraFields(tmp)
		} else {
			params.SetExtraFields(extra)
		}
	}
	return params
}

// Chat performs a single, non-streaming completion turn.
func (c *Client) Chat(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string) (llm.Message, error) {
	log := observability.LoggerWithTrace(ctx)
	effectiveModel := firstNonEmpty(model, c.model)

	ctx, span := tracer.Start(ctx, "openai.Chat", trace.WithAttributes(
		attribute.String("model", effectiveModel), attribute.Int("tools", len(tools)), attribute.Int("messages", len(msgs)),
	))
	defer span.End()

	params := buildParams(effectiveModel, msgs, tools, c.extra)

	start := time.Now()
	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("chat_completion_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return llm.Message{}, err
	}

	log.Debug().
		Str("model", effectiveModel).
		Int("tools", len(tools)).
		Dur("duration", dur).
		Int("prompt_tokens", int(comp.Usage.PromptTokens)).
		Int("completion_tokens", int(comp.Usage.CompletionTokens)).
		Msg("chat_completion_ok")
	span.SetAttributes(
		attribute.Int64("llm.prompt_tokens", comp.Usage.PromptTokens),
		attribute.Int64("llm.completion_tokens", comp.Usage.CompletionTokens),
	)

	var out llm.Message
	if len(comp.Choices) == 0 {
		return out, nil
	}
	msg := comp.Choices[0].Message
	out = llm.Message{
		Role:             "assistant",
		Content:          msg.Content,
		PromptTokens:     int(comp.Usage.PromptTokens),
		CompletionTokens: int(comp.Usage.CompletionTokens),
	}
	for _, tc := range msg.ToolCalls {
		switch v := tc.AsAny().(type) {
		case sdk.ChatCompletionMessageFunctionToolCall:
			if isEmptyArgs(v.Function.Arguments) {
				log.Warn().Str("tool", v.Function.Name).Str("id", v.ID).Msg("skipping tool call with empty arguments")
				continue
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				Name: v.Function.Name,
				Args: json.RawMessage(v.Function.Arguments),
				ID:   v.ID,
			})
		case sdk.ChatCompletionMessageCustomToolCall:
			if isEmptyArgs(v.Custom.Input) {
				log.Warn().Str("tool", v.Custom.Name).Str("id", v.ID).Msg("skipping tool call with empty input")
				continue
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				Name: v.Custom.Name,
				Args: json.RawMessage(v.Custom.Input),
				ID:   v.ID,
			})
		}
	}
	return out, nil
}

// ChatStream performs a token-streaming completion turn, accumulating tool
// call argument fragments by the API-provided index (chunks may arrive out
// of order or cover only a subset of the in-flight tool calls).
func (c *Client) ChatStream(ctx context.Context, msgs []llm.Message, tools []llm.ToolSchema, model string, h llm.StreamHandler) error {
	log := observability.LoggerWithTrace(ctx)
	effectiveModel := firstNonEmpty(model, c.model)

	ctx, span := tracer.Start(ctx, "openai.ChatStream", trace.WithAttributes(
		attribute.String("model", effectiveModel), attribute.Int("tools", len(tools)), attribute.Int("messages", len(msgs)),
	))
	defer span.End()

	params := buildParams(effectiveModel, msgs, tools, c.extra)
	params.StreamOptions.IncludeUsage = sdk.Bool(true)

	start := time.Now()
	stream := c.sdk.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	toolCalls := make(map[int]*llm.ToolCall)
	toolCallsFlushed := false
	var promptTokens, completionTokens int

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			if chunk.JSON.Usage.Valid() && chunk.JSON.Usage.Raw() != "null" {
				promptTokens = int(chunk.Usage.PromptTokens)
				completionTokens = int(chunk.Usage.CompletionTokens)
			}
			continue
		}

		delta := chunk.Choices[0].Delta
		if delta.Content != "" {
			h.OnDelta(delta.Content)
		}

		for _, tc := range delta.ToolCalls {
			idx := int(tc.Index)
			if toolCalls[idx] == nil {
				toolCalls[idx] = &llm.ToolCall{ID: tc.ID}
			}
			if tc.Function.Name != "" {
				toolCalls[idx].Name = tc.Function.Name
			}
			if tc.Function.Arguments != "" {
				toolCalls[idx].Args = json.RawMessage(string(toolCalls[idx].Args) + tc.Function.Arguments)
			}
		}

		if chunk.Choices[0].FinishReason != "" && !toolCallsFlushed {
			for _, tc := range toolCalls {
				if tc != nil && tc.Name != "" && !isEmptyArgsBytes(tc.Args) {
					h.OnToolCall(*tc)
				} else if tc != nil && tc.Name != "" {
					log.Warn().Str("tool", tc.Name).Str("id", tc.ID).Msg("skipping tool call with empty arguments in stream")
				}
			}
			toolCallsFlushed = true
		}
	}

	err := stream.Err()
	dur := time.Since(start)
	if err != nil {
		log.Error().Err(err).Str("model", effectiveModel).Dur("duration", dur).Msg("chat_stream_error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	h.OnUsage(promptTokens, completionTokens)
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", promptTokens),
		attribute.Int("llm.completion_tokens", completionTokens),
	)
	log.Debug().Str("model", effectiveModel).Dur("duration", dur).
		Int("prompt_tokens", promptTokens).Int("completion_tokens", completionTokens).
		Msg("chat_stream_ok")
	return nil
}
