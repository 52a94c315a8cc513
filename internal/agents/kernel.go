// Package agents implements the agent kernel and the six-member roster that
// drive one reportability request: classifying intent, searching the
// knowledge indexes, drafting a recommendation, and extracting it into a
// structured list. Every agent is a thin binding of instructions, a tool set,
// and an llm.Provider; the kernel owns the tool-calling loop and the
// content-fragment/metadata stream every orchestrator consumes.
package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/llm"
	"reportability-engine/internal/reportctx"
)

// defaultMaxToolTurns bounds the tool-calling loop: one turn is one
// completion call, so this is the most completion calls an agent makes in
// one invocation, the first call included, before the kernel gives up.
const defaultMaxToolTurns = 4

// Delta is one fragment of agent output: a piece of content, the role it was
// spoken in, and the metadata flags that decide its framing, user
// visibility, and history inclusion.
type Delta struct {
	Content string
	Role    chatmodel.Role
	Meta    chatmodel.Metadata
}

// Emit receives Deltas as an agent produces them.
type Emit func(Delta)

// ToolHandler executes one tool call against the request's context store and
// returns the text handed back to the model as the tool result.
type ToolHandler func(ctx context.Context, rc *reportctx.Context, args json.RawMessage) (string, error)

// Agent is `{display_name, trace_name, instructions, tool_set,
// service_binding}`: the kernel's unit of execution.
type Agent struct {
	DisplayName  string
	TraceName    string
	Instructions string
	Tools        []llm.ToolSchema
	Handlers     map[string]ToolHandler
	Provider     llm.Provider
	Model        string
	MaxToolTurns int
}

func (a *Agent) maxTurns() int {
	if a.MaxToolTurns > 0 {
		return a.MaxToolTurns
	}
	return defaultMaxToolTurns
}

func (a *Agent) seed(rc *reportctx.Context) []llm.Message {
	msgs := make([]llm.Message, 0, len(rc.MessageHistory())+1)
	msgs = append(msgs, llm.Message{Role: "system", Content: a.Instructions})
	for _, m := range rc.MessageHistory() {
		msgs = append(msgs, llm.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

func (a *Agent) callTool(ctx context.Context, rc *reportctx.Context, tc llm.ToolCall) string {
	h, ok := a.Handlers[tc.Name]
	if !ok {
		return fmt.Sprintf("error: unknown tool %q", tc.Name)
	}
	result, err := h(ctx, rc, tc.Args)
	if err != nil {
		return fmt.Sprintf("error: %v", err)
	}
	return result
}

// InvokeStream runs the agent's tool-calling loop with a streaming
// completion call each turn, emitting content fragments through emit as they
// arrive. Tool calls observed at the end of a turn are executed and their
// results fed back before the next turn begins, so any content fragment
// referencing a tool's effect is only ever yielded after that effect has
// reached the store. The final turn (no further tool calls) is the terminal
// message; its usage is recorded via the context's token-usage accumulator.
func (a *Agent) InvokeStream(ctx context.Context, rc *reportctx.Context, emit Emit) (string, error) {
	msgs := a.seed(rc)
	var final string

	for turn := 0; turn < a.maxTurns(); turn++ {
		var content string
		var toolCalls []llm.ToolCall

		h := &streamCollector{
			onDelta: func(s string) {
				content += s
				if emit != nil {
					emit(Delta{Content: s, Role: chatmodel.RoleAssistant, Meta: chatmodel.DefaultMetadata()})
				}
			},
			onToolCall: func(tc llm.ToolCall) { toolCalls = append(toolCalls, tc) },
			onUsage: func(p, c int) {
				rc.AppendTokenUsage(a.TraceName, p, c)
			},
		}
		if err := a.Provider.ChatStream(ctx, msgs, a.Tools, a.Model, h); err != nil {
			return "", fmt.Errorf("%s: %w", a.TraceName, err)
		}

		if len(toolCalls) == 0 {
			final = content
			break
		}

		msgs = append(msgs, llm.Message{Role: "assistant", Content: content, ToolCalls: toolCalls})
		for _, tc := range toolCalls {
			msgs = append(msgs, llm.Message{Role: "tool", ToolID: tc.ID, Content: a.callTool(ctx, rc, tc)})
		}
	}

	rc.AppendChunk(final)
	return final, nil
}

// Invoke runs the agent's tool-calling loop with a non-streaming completion
// call each turn, returning only the terminal message's content. Every
// completion call's usage is recorded as it returns, matching the kernel's
// "exactly once per terminal usage chunk" contract applied per turn.
func (a *Agent) Invoke(ctx context.Context, rc *reportctx.Context) (string, error) {
	msgs := a.seed(rc)

	for turn := 0; turn < a.maxTurns(); turn++ {
		msg, err := a.Provider.Chat(ctx, msgs, a.Tools, a.Model)
		if err != nil {
			return "", fmt.Errorf("%s: %w", a.TraceName, err)
		}
		rc.AppendTokenUsage(a.TraceName, msg.PromptTokens, msg.CompletionTokens)

		if len(msg.ToolCalls) == 0 {
			rc.AppendChunk(msg.Content)
			return msg.Content, nil
		}

		msgs = append(msgs, msg)
		for _, tc := range msg.ToolCalls {
			msgs = append(msgs, llm.Message{Role: "tool", ToolID: tc.ID, Content: a.callTool(ctx, rc, tc)})
		}
	}
	return "", fmt.Errorf("%s: exceeded max tool turns", a.TraceName)
}

// streamCollector adapts three closures to llm.StreamHandler.
type streamCollector struct {
	onDelta    func(string)
	onToolCall func(llm.ToolCall)
	onUsage    func(int, int)
}

func (s *streamCollector) OnDelta(content string)        { s.onDelta(content) }
func (s *streamCollector) OnToolCall(tc llm.ToolCall)     { s.onToolCall(tc) }
func (s *streamCollector) OnUsage(prompt, completion int) { s.onUsage(prompt, completion) }
