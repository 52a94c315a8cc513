package orchestrator

import (
	"context"
	"strings"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/reportctx"
)

// RunSingle streams SingleNRC's combined search-and-recommend turn directly
// to the user. Unlike Sequential/Concurrent, history and extraction are only
// touched when evaluation content was requested, and every plugin result the
// turn collected is marked cited regardless of whether the model named it:
// one agent saw everything it retrieved.
func RunSingle(ctx context.Context, rc *reportctx.Context, r Roster, emit Emit) error {
	var accumulated strings.Builder
	var emitErr error

	collect := func(d agents.Delta) {
		if emitErr != nil {
			return
		}
		accumulated.WriteString(d.Content)
		if !d.Meta.YieldToUser {
			return
		}
		role := d.Role
		if role == "" {
			role = chatmodel.RoleAssistant
		}
		emitErr = emit(d.Content, role, d.Meta)
	}

	if _, err := r.SingleNRC.InvokeStream(ctx, rc, collect); err != nil {
		return err
	}
	if emitErr != nil {
		return emitErr
	}

	if rc.IncludeEvalContent() {
		rc.AppendMessage(chatmodel.ChatMessage{Role: chatmodel.RoleAssistant, Content: accumulated.String()})
		if err := agents.RunExtraction(ctx, r.Extraction, rc); err != nil {
			return err
		}
	}

	rc.MarkAllCited()
	return nil
}
