package orchestrator

import (
	"strings"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/reportctx"
)

// historySink adapts one agent invocation's agents.Delta stream into Emit
// calls plus message-history bookkeeping: a delta flagged add_to_chat_history
// is appended to rc immediately, or, when combine_before_adding_to_history is
// also set, accumulated and appended as one combined entry when finish is
// called. Content not flagged yield_to_user never reaches emit.
type historySink struct {
	rc   *reportctx.Context
	emit Emit

	role     chatmodel.Role
	combined strings.Builder
	combine  bool
	err      error
}

func newHistorySink(rc *reportctx.Context, emit Emit) *historySink {
	return &historySink{rc: rc, emit: emit, role: chatmodel.RoleAssistant}
}

func (s *historySink) deltaFunc() agents.Emit {
	return func(d agents.Delta) {
		if s.err != nil {
			return
		}
		role := d.Role
		if role == "" {
			role = chatmodel.RoleAssistant
		}
		s.role = role

		if d.Meta.YieldToUser {
			if err := s.emit(d.Content, role, d.Meta); err != nil {
				s.err = err
				return
			}
		}
		if !d.Meta.AddToChatHistory {
			return
		}
		if d.Meta.CombineBeforeAddingToHistory {
			s.combine = true
			s.combined.WriteString(d.Content)
			return
		}
		s.rc.AppendMessage(chatmodel.ChatMessage{Role: role, Content: d.Content})
	}
}

// finish flushes any content accumulated for combine_before_adding_to_history
// as one history entry, and returns the first error observed while emitting.
func (s *historySink) finish() error {
	if s.combine && s.combined.Len() > 0 {
		s.rc.AppendMessage(chatmodel.ChatMessage{Role: s.role, Content: s.combined.String()})
	}
	return s.err
}
