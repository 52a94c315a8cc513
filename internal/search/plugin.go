package search

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"reportability-engine/internal/docresult"
)

// ResultRegistry is the subset of reportctx.Context a Plugin needs: checking
// and recording seen plugin-result ids. Defined here (rather than imported)
// to avoid a dependency from search back onto reportctx; reportctx.Context
// satisfies it directly.
type ResultRegistry interface {
	HasResult(id string) bool
	RegisterResult(r docresult.PluginResult) bool
}

// Embedder is the minimum surface a Plugin needs to turn a query string into
// a vector for Vector/Hybrid mode, satisfied by rag/embedder.Embedder.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Plugin is one named, queryable index exposed to agents as a tool: the
// server-side half of a search_* tool call.
type Plugin struct {
	Name       string
	Descriptor Descriptor
	Kind       docresult.Kind
	FullText   FullTextSearch // nil when SearchType == ModeVector
	Vector     VectorStore    // nil when SearchType == ModeFullText
	Embed      Embedder       // required when SearchType != ModeFullText
}

// NewPlugin constructs a Plugin bound to the given backends.
func NewPlugin(name string, d Descriptor, kind docresult.Kind, ft FullTextSearch, vec VectorStore, emb Embedder) *Plugin {
	return &Plugin{Name: name, Descriptor: d, Kind: kind, FullText: ft, Vector: vec, Embed: emb}
}

// hit is the backend-agnostic shape a full-text or vector result is reduced
// to before threshold filtering and decoding.
type hit struct {
	id       string
	text     string
	metadata map[string]string
	score    float64
}

// Search executes the plugin's query against its configured backend(s),
// filters by score threshold, decodes surviving rows into the plugin's
// PluginResult kind, and deduplicates against reg. Only results newly
// registered are returned — both to the caller (who feeds them to the LLM)
// and into reg itself, per the spec's single-writer dedup contract.
func (p *Plugin) Search(ctx context.Context, reg ResultRegistry, query string) ([]docresult.PluginResult, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return nil, fmt.Errorf("search_query must not be empty")
	}

	top := p.Descriptor.Top
	if top <= 0 {
		top = 5
	}

	var hits []hit
	switch p.Descriptor.SearchType {
	case ModeVector:
		vh, err := p.vectorSearch(ctx, q, top)
		if err != nil {
			return nil, fmt.Errorf("%s vector search: %w", p.Name, err)
		}
		hits = vh
	case ModeHybrid:
		th, err := p.textSearch(ctx, q, top)
		if err != nil {
			return nil, fmt.Errorf("%s text search: %w", p.Name, err)
		}
		vh, err := p.vectorSearch(ctx, q, top)
		if err != nil {
			return nil, fmt.Errorf("%s vector search: %w", p.Name, err)
		}
		hits = mergeHits(th, vh)
	default: // ModeFullText
		th, err := p.textSearch(ctx, q, top)
		if err != nil {
			return nil, fmt.Errorf("%s text search: %w", p.Name, err)
		}
		hits = th
	}

	threshold := p.Descriptor.Threshold
	fresh := make([]docresult.PluginResult, 0, len(hits))
	for _, h := range hits {
		if h.score < threshold {
			continue
		}
		if reg.HasResult(h.id) {
			continue
		}
		r := decode(p.Kind, h.id, h.text, h.metadata)
		r.SetSearchQuery(q)
		if reg.RegisterResult(r) {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

func (p *Plugin) textSearch(ctx context.Context, query string, top int) ([]hit, error) {
	if p.FullText == nil {
		return nil, nil
	}
	rows, err := p.FullText.Search(ctx, query, top)
	if err != nil {
		return nil, err
	}
	out := make([]hit, len(rows))
	for i, r := range rows {
		out[i] = hit{id: r.ID, text: r.Text, metadata: r.Metadata, score: r.Score}
	}
	return out, nil
}

func (p *Plugin) vectorSearch(ctx context.Context, query string, top int) ([]hit, error) {
	if p.Vector == nil || p.Embed == nil {
		return nil, nil
	}
	embs, err := p.Embed.EmbedBatch(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(embs) == 0 {
		return nil, nil
	}
	rows, err := p.Vector.SimilaritySearch(ctx, embs[0], top, nil)
	if err != nil {
		return nil, err
	}
	out := make([]hit, len(rows))
	for i, r := range rows {
		out[i] = hit{id: r.ID, metadata: r.Metadata, score: r.Score}
	}
	return out, nil
}

// mergeHits unions full-text and vector hits for Hybrid mode, keeping the
// higher of the two scores when the same id appears in both, and producing
// a deterministic (score-descending, then id) order.
func mergeHits(a, b []hit) []hit {
	byID := make(map[string]hit, len(a)+len(b))
	order := make([]string, 0, len(a)+len(b))
	for _, h := range append(append([]hit{}, a...), b...) {
		if existing, ok := byID[h.id]; !ok {
			byID[h.id] = h
			order = append(order, h.id)
		} else if h.score > existing.score {
			byID[h.id] = h
		}
	}
	out := make([]hit, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

func splitComma(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parsePage(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}

// decode reduces one backend row (its document/chunk id, text, and flat
// string metadata) into the kind-specific PluginResult variant the
// descriptor was configured to produce.
func decode(kind docresult.Kind, id, text string, metadata map[string]string) docresult.PluginResult {
	base := docresult.Base{
		ID:         id,
		Bucket:     metadata["bucket"],
		Key:        firstNonEmpty(metadata["key"], metadata["blob_name"], id),
		PageNumber: parsePage(metadata["page"]),
	}

	switch kind {
	case docresult.KindNuregSection:
		return &docresult.NuregSection{
			Base:        base,
			Section:     firstNonEmpty(metadata["title"], metadata["section"], id),
			CFR5072:     splitComma(metadata["cfr5072"]),
			CFR5073:     splitComma(metadata["cfr5073"]),
			Description: metadata["description"],
			Discussion:  firstNonEmpty(metadata["discussion"], text),
		}
	case docresult.KindReportabilityManual:
		return &docresult.ReportabilityManual{
			Base:             base,
			SectionName:      firstNonEmpty(metadata["title"], metadata["section"], id),
			References:       splitComma(metadata["references"]),
			ReferenceContent: firstNonEmpty(metadata["reference_content"], text),
			Discussion:       metadata["discussion"],
		}
	default:
		return &docresult.NaiveChunk{
			Base:    base,
			ChunkID: id,
			Title:   firstNonEmpty(metadata["title"], id),
			URL:     metadata["url"],
			Content: text,
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
