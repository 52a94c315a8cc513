package search

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
)

// memorySearch is a naive in-memory full text search implementation, used
// as the zero-dependency default when SEARCH_BACKEND is neither postgres nor
// qdrant, as the full-text side of the qdrant backend, and in tests.
type memorySearch struct {
	mu   sync.RWMutex
	docs map[string]doc
}

type doc struct {
	text     string
	metadata map[string]string
}

func NewMemorySearch() FullTextSearch { return &memorySearch{docs: make(map[string]doc)} }

func (m *memorySearch) Index(_ context.Context, id, text string, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc{text: text, metadata: copyMap(metadata)}
	return nil
}

func (m *memorySearch) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

func (m *memorySearch) Search(_ context.Context, query string, limit int) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	terms := strings.Fields(strings.ToLower(query))
	results := make([]SearchResult, 0, limit)
	for id, d := range m.docs {
		lt := strings.ToLower(d.text)
		score := 0.0
		for _, t := range terms {
			if t == "" {
				continue
			}
			if c := strings.Count(lt, t); c > 0 {
				score += float64(c)
			}
		}
		if score <= 0 {
			continue
		}
		snippet := d.text
		if len(snippet) > 120 {
			snippet = snippet[:120]
		}
		results = append(results, SearchResult{ID: id, Score: score, Snippet: snippet, Text: d.text, Metadata: copyMap(d.metadata)})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// memoryVector is a naive in-memory cosine-similarity vector store.
type memoryVector struct {
	mu      sync.RWMutex
	vectors map[string]vec
}

type vec struct {
	v        []float32
	metadata map[string]string
}

func NewMemoryVector() VectorStore { return &memoryVector{vectors: make(map[string]vec)} }

func (m *memoryVector) Upsert(_ context.Context, id string, vector []float32, metadata map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]float32, len(vector))
	copy(cp, vector)
	m.vectors[id] = vec{v: cp, metadata: copyMap(metadata)}
	return nil
}

func (m *memoryVector) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.vectors, id)
	return nil
}

func (m *memoryVector) SimilaritySearch(_ context.Context, vector []float32, k int, filter map[string]string) ([]VectorResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if k <= 0 {
		k = 10
	}
	qnorm := norm(vector)
	scores := make([]VectorResult, 0, len(m.vectors))
	for id, v := range m.vectors {
		if !matchesFilter(v.metadata, filter) {
			continue
		}
		scores = append(scores, VectorResult{ID: id, Score: cosine(vector, v.v, qnorm), Metadata: copyMap(v.metadata)})
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].Score > scores[j].Score })
	if len(scores) > k {
		scores = scores[:k]
	}
	return scores, nil
}

func matchesFilter(md map[string]string, f map[string]string) bool {
	if len(f) == 0 {
		return true
	}
	for k, v := range f {
		if md[k] != v {
			return false
		}
	}
	return true
}

func norm(a []float32) float64 {
	var s float64
	for _, x := range a {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var s float64
	for i := 0; i < n; i++ {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func cosine(a, b []float32, anorm float64) float64 {
	if anorm == 0 {
		anorm = norm(a)
	}
	bnorm := norm(b)
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	return dot(a, b) / (anorm * bnorm)
}
