package orchestrator

import (
	"context"
	"fmt"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/reportctx"
)

// sequentialStep binds a roster member's display name to the call that runs
// it, so the header-then-run-then-honor-flags loop below stays uniform
// across knowledge agents (which take a signer/expiry) and Recommendation
// (which does not).
type sequentialStep struct {
	displayName string
	run         func(ctx context.Context, emit agents.Emit) error
}

// RunSequential runs Intent, then ReportabilityManualKnowledge, NuregKnowledge,
// and Recommendation in strict order, each preceded by a flushing header and
// stopping early if intent is invalid or an agent signals user_input_needed.
func RunSequential(ctx context.Context, rc *reportctx.Context, r Roster, emit Emit) error {
	intentSink := newHistorySink(rc, emit)
	if _, err := r.Intent.InvokeStream(ctx, rc, intentSink.deltaFunc()); err != nil {
		return err
	}
	if err := intentSink.finish(); err != nil {
		return err
	}
	if rc.Intent() != reportctx.IntentReportability {
		return nil
	}

	steps := []sequentialStep{
		{
			displayName: r.ReportabilityManualKnowledge.DisplayName,
			run: func(ctx context.Context, emit agents.Emit) error {
				return r.ReportabilityManualKnowledge.Run(ctx, rc, r.Signer, r.URLExpiry, emit)
			},
		},
		{
			displayName: r.NuregKnowledge.DisplayName,
			run: func(ctx context.Context, emit agents.Emit) error {
				return r.NuregKnowledge.Run(ctx, rc, r.Signer, r.URLExpiry, emit)
			},
		},
		{
			displayName: r.Recommendation.DisplayName,
			run: func(ctx context.Context, emit agents.Emit) error {
				_, err := r.Recommendation.InvokeStream(ctx, rc, emit)
				return err
			},
		},
	}

	for _, step := range steps {
		header := fmt.Sprintf("## Engaging %s\n\n", step.displayName)
		if err := emit(header, chatmodel.RoleAssistant, chatmodel.Metadata{Flush: true, YieldToUser: true}); err != nil {
			return err
		}

		sink := newHistorySink(rc, emit)
		if err := step.run(ctx, sink.deltaFunc()); err != nil {
			return err
		}
		if err := sink.finish(); err != nil {
			return err
		}
		if rc.UserInputNeeded() {
			return nil
		}
	}

	return agents.RunExtraction(ctx, r.Extraction, rc)
}
