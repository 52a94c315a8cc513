package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/observability"
	"reportability-engine/internal/reportctx"
)

// concurrentSource names one of the two knowledge agents fanned out in
// parallel, paired with the call that drives it.
type concurrentSource struct {
	displayName string
	run         func(ctx context.Context, emit agents.Emit) error
}

// RunConcurrent runs Intent, then fans ReportabilityManualKnowledge and
// NuregKnowledge out as parallel goroutines merged fairly over a shared
// channel, then runs Recommendation and Extraction sequentially once both
// knowledge sources have finished. A source that errors is logged and
// dropped; the other source's stream is unaffected.
func RunConcurrent(ctx context.Context, rc *reportctx.Context, r Roster, emit Emit) error {
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

	header := "## Engaging " + r.ReportabilityManualKnowledge.DisplayName + " + " + r.NuregKnowledge.DisplayName + "\n\n"
	if err := emit(header, chatmodel.RoleAssistant, chatmodel.Metadata{Flush: true, YieldToUser: true}); err != nil {
		return err
	}

	sources := []concurrentSource{
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
	}

	ch := make(chan agents.Delta)
	var g errgroup.Group
	for _, src := range sources {
		src := src
		g.Go(func() error {
			if err := src.run(ctx, func(d agents.Delta) { ch <- d }); err != nil {
				observability.LoggerWithTrace(ctx).Warn().Err(err).
					Str("source", src.displayName).
					Msg("concurrent knowledge source failed; dropping it")
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(ch)
	}()

	knowledgeSink := newHistorySink(rc, emit)
	knowledgeDelta := knowledgeSink.deltaFunc()
	for d := range ch {
		knowledgeDelta(d)
	}
	if err := knowledgeSink.finish(); err != nil {
		return err
	}

	recommendationSink := newHistorySink(rc, emit)
	if _, err := r.Recommendation.InvokeStream(ctx, rc, recommendationSink.deltaFunc()); err != nil {
		return err
	}
	if err := recommendationSink.finish(); err != nil {
		return err
	}

	return agents.RunExtraction(ctx, r.Extraction, rc)
}
