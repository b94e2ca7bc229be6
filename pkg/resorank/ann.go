package resorank

import (
	"fmt"
	"sync"

	"github.com/fogfish/hnsw"
	"github.com/fogfish/hnsw/vector"
	kvector "github.com/kshard/vector"
)

// ANNIndex maps document IDs onto an HNSW graph over a cosine surface,
// for vector-side candidate generation in SearchHybrid. The HNSW keys
// are uint32, so the index keeps a bidirectional K<->uint32 mapping.
//
// The mapping and graph are guarded by a mutex; like the scorer itself the
// index is meant for one writer at a time.
type ANNIndex[K comparable] struct {
	index *hnsw.HNSW[vector.VF32]
	mu    sync.RWMutex
	next  uint32
	byKey map[K]uint32
	byID  map[uint32]K
}

// NewANNIndex creates an empty index with a standard cosine surface.
func NewANNIndex[K comparable]() *ANNIndex[K] {
	return &ANNIndex[K]{
		index: hnsw.New[vector.VF32](vector.SurfaceVF32(kvector.Cosine())),
		byKey: make(map[K]uint32),
		byID:  make(map[uint32]K),
	}
}

// Add inserts a document embedding. Returns an error on dimension
// mismatch with the existing graph. Embeddings are write-once: graph
// nodes cannot be updated in place, so re-adding a known docID is
// rejected rather than leaving a stale node retrievable.
func (a *ANNIndex[K]) Add(docID K, vec []float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.index.Size() > 0 {
		dim := len(a.index.Head().Vec)
		if len(vec) != dim {
			return fmt.Errorf("vector dimension mismatch: expected %d, got %d", dim, len(vec))
		}
	}

	if _, exists := a.byKey[docID]; exists {
		return fmt.Errorf("docID already indexed")
	}

	id := a.next
	a.next++
	a.byKey[docID] = id
	a.byID[id] = docID

	a.index.Insert(vector.VF32{Key: id, Vec: vec})
	return nil
}

// Size reports the number of graph nodes.
func (a *ANNIndex[K]) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.index.Size()
}

// Search returns the nearest k document IDs. Dimension mismatches and an
// empty graph return nil; candidate generation is best-effort.
func (a *ANNIndex[K]) Search(vec []float32, k int) []K {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.index.Size() == 0 {
		return nil
	}
	if dim := len(a.index.Head().Vec); len(vec) != dim {
		return nil
	}

	ef := k * 2
	if ef < 100 {
		ef = 100
	}

	results := a.index.Search(vector.VF32{Vec: vec}, k, ef)

	ids := make([]K, 0, len(results))
	for _, r := range results {
		if docID, ok := a.byID[r.Key]; ok {
			ids = append(ids, docID)
		}
	}
	return ids
}
