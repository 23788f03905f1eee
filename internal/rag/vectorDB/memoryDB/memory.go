// Package memoryDB is a process-local vector index. Search is a brute-force
// cosine scan, which is fine for offline use and tests.
package memoryDB

import (
	"context"
	"errors"
	"maps"
	"math"
	"sort"
	"sync"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/internal/domain/ragErrors"
	"github.com/akolanti/DocChat/internal/rag/vectorDB"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/google/uuid"
)

var logger = logger_i.NewLogger("memory_index")

type point struct {
	entry  vectorDB.Entry
	vector []float32
	seq    int
}

type Index struct {
	mu       sync.RWMutex
	embedder vectorDB.Embedder
	points   map[string]point
	seq      int
	closed   bool
}

func New(embedder vectorDB.Embedder) *Index {
	return &Index{
		embedder: embedder,
		points:   make(map[string]point),
	}
}

var errClosed = errors.New("index is closed")

func (m *Index) Add(ctx context.Context, entries []vectorDB.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	// embed outside the lock, the backend may be slow
	vectors, err := vectorDB.EmbedInBatches(ctx, m.embedder, texts, config.EmbeddingBatchSize)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ragErrors.NewIndexError("add", errClosed)
	}
	for i, e := range entries {
		if e.Id == "" {
			e.Id = uuid.NewString()
		}
		e.Metadata = maps.Clone(e.Metadata)
		m.seq++
		m.points[e.Id] = point{entry: e, vector: vectors[i], seq: m.seq}
	}
	logger.WithTrace(ctx, config.TRACE_ID_KEY).Debug("entries added", "count", len(entries), "total", len(m.points))
	return nil
}

func (m *Index) QueryByMetadata(ctx context.Context, filter vectorDB.Filter) ([]vectorDB.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, ragErrors.NewIndexError("query by metadata", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ragErrors.NewIndexError("query by metadata", errClosed)
	}

	var matched []point
	for _, p := range m.points {
		if filter.Matches(p.entry.Metadata) {
			matched = append(matched, p)
		}
	}
	// insertion order, like a scroll over the store
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	entries := make([]vectorDB.Entry, len(matched))
	for i, p := range matched {
		entries[i] = copyEntry(p.entry)
	}
	return entries, nil
}

func (m *Index) SimilaritySearch(ctx context.Context, query string, k int) ([]vectorDB.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	queryVector, err := m.embedder.GetEmbedding(ctx, query)
	if err != nil {
		return nil, ragErrors.NewIndexError("embed query", err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ragErrors.NewIndexError("similarity search", errClosed)
	}

	type scored struct {
		p     point
		score float32
	}
	all := make([]scored, 0, len(m.points))
	for _, p := range m.points {
		all = append(all, scored{p: p, score: cosine(queryVector, p.vector)})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].score != all[j].score {
			return all[i].score > all[j].score
		}
		return all[i].p.seq < all[j].p.seq
	})

	hits := make([]vectorDB.SearchHit, 0, min(k, len(all)))
	for _, s := range all[:min(k, len(all))] {
		hits = append(hits, vectorDB.SearchHit{Entry: copyEntry(s.p.entry), Score: s.score})
	}
	return hits, nil
}

func (m *Index) DeleteByMetadata(ctx context.Context, filter vectorDB.Filter) error {
	if len(filter) == 0 {
		return ragErrors.NewIndexError("delete by metadata", errors.New("refusing to delete with an empty filter"))
	}
	if err := ctx.Err(); err != nil {
		return ragErrors.NewIndexError("delete by metadata", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ragErrors.NewIndexError("delete by metadata", errClosed)
	}

	removed := 0
	for id, p := range m.points {
		if filter.Matches(p.entry.Metadata) {
			delete(m.points, id)
			removed++
		}
	}
	logger.WithTrace(ctx, config.TRACE_ID_KEY).Debug("entries deleted", "count", removed)
	return nil
}

func (m *Index) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.points)
}

func (m *Index) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.points = nil
	return nil
}

func copyEntry(e vectorDB.Entry) vectorDB.Entry {
	e.Metadata = maps.Clone(e.Metadata)
	return e
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}
