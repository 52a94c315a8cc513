// Package orchestrator implements the three coordination strategies that
// drive one reportability request over the agent roster: Single (one agent
// does everything), Sequential (knowledge agents then recommendation, strict
// order), and Concurrent (the two knowledge agents fan out, recommendation
// runs after). Each strategy consumes the same reportctx.Context and roster
// and produces one ordered stream of deltas via Emit.
package orchestrator

import (
	"context"
	"time"

	"reportability-engine/internal/agents"
	"reportability-engine/internal/chatmodel"
	"reportability-engine/internal/docresult"
	"reportability-engine/internal/reportctx"
)

// Emit pushes one rendered fragment toward the stream framer. Bound to
// stream.Framer.Push by the HTTP handler; kept as a narrow function type
// here so this package does not depend on internal/stream.
type Emit func(content string, role chatmodel.Role, meta chatmodel.Metadata) error

// Roster bundles every agent a strategy may need, plus the citation-URL
// signer shared by the knowledge agents.
type Roster struct {
	Intent                       *agents.Agent
	NuregKnowledge               *agents.KnowledgeAgent
	ReportabilityManualKnowledge *agents.KnowledgeAgent
	Recommendation               *agents.Agent
	Extraction                   *agents.Agent
	SingleNRC                    *agents.Agent

	Signer    docresult.URLSigner
	URLExpiry time.Duration
}

// Strategy runs one orchestration pass over rc, emitting deltas through emit.
type Strategy func(ctx context.Context, rc *reportctx.Context, r Roster, emit Emit) error

// Strategies is the name -> Strategy table consulted by Resolve.
var Strategies = map[string]Strategy{
	"single":     RunSingle,
	"sequential": RunSequential,
	"concurrent": RunConcurrent,
}
