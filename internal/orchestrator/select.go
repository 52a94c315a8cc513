package orchestrator

import (
	"context"
	"strings"

	"reportability-engine/internal/observability"
)

// Resolve picks the orchestration strategy for one request: the query
// parameter wins when it names a known strategy, otherwise the configured
// environment default, otherwise "single" with a logged warning. Mirrors the
// original dispatcher's match/case default-to-Single behavior.
func Resolve(ctx context.Context, queryParam, envDefault string) (string, Strategy) {
	if s, ok := Strategies[normalize(queryParam)]; ok {
		return normalize(queryParam), s
	}
	if s, ok := Strategies[normalize(envDefault)]; ok {
		return normalize(envDefault), s
	}
	observability.LoggerWithTrace(ctx).Warn().
		Str("orchestrationType", queryParam).
		Str("envDefault", envDefault).
		Msg("unrecognized orchestration type; falling back to single")
	return "single", Strategies["single"]
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
