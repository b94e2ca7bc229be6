package resorank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Helper to create a test token index
func createTestTokenIndex() map[string]map[string]TokenMetadata {
	index := make(map[string]map[string]TokenMetadata)

	// Term "rare" appears in 1 doc with TF=1
	rareMeta := TokenMetadata{
		FieldOccurrences: map[string]FieldOccurrence{
			"content": {TF: 1, FieldLength: 100},
		},
	}
	index["rare"] = map[string]TokenMetadata{"doc1": rareMeta}

	// Term "common" appears in 3 docs
	commonDocs := make(map[string]TokenMetadata)
	for _, docID := range []string{"doc1", "doc2", "doc3"} {
		commonDocs[docID] = TokenMetadata{
			FieldOccurrences: map[string]FieldOccurrence{
				"content": {TF: 2, FieldLength: 100},
			},
		}
	}
	index["common"] = commonDocs

	return index
}

func TestEntropyCache_Basic(t *testing.T) {
	cache := NewEntropyCache[string](100)
	index := createTestTokenIndex()

	// First call computes and caches
	rare := cache.Get("rare", index)
	assert.Greater(t, rare, 0.0, "entropy of an indexed term should be positive")
	assert.True(t, cache.Has("rare"))

	// Cached value is stable
	assert.Equal(t, rare, cache.Get("rare", index))

	// A term spread over more docs accumulates more entropy
	common := cache.Get("common", index)
	assert.Greater(t, common, rare)

	// Unknown terms compute to zero
	assert.Equal(t, 0.0, cache.Get("ghost", index))
}

func TestEntropyCache_LRUEviction(t *testing.T) {
	cache := NewEntropyCache[string](2)
	index := createTestTokenIndex()

	cache.Get("rare", index)
	cache.Get("common", index)
	assert.True(t, cache.Has("rare"))

	// Touch "rare" so "common" becomes the eviction candidate
	cache.Get("rare", index)
	cache.Get("ghost", index)

	assert.True(t, cache.Has("rare"))
	assert.False(t, cache.Has("common"))
}

func TestEntropyCache_Clear(t *testing.T) {
	cache := NewEntropyCache[string](10)
	index := createTestTokenIndex()

	cache.Get("rare", index)
	cache.Clear()
	assert.False(t, cache.Has("rare"))
}

func TestQueryEntropyStats(t *testing.T) {
	cache := NewEntropyCache[string](100)
	index := createTestTokenIndex()

	stats := CalculateQueryEntropyStats([]string{"rare", "common"}, cache, index)

	// The max-entropy term normalizes to 1.0
	assert.InDelta(t, 1.0, stats.NormalizedEntropies["common"], 1e-9)
	assert.Less(t, stats.NormalizedEntropies["rare"], 1.0)
	assert.Greater(t, stats.AvgEntropy, 0.0)
	assert.LessOrEqual(t, stats.AvgEntropy, 1.0)
}

func TestQueryEntropyStats_EmptyQuery(t *testing.T) {
	cache := NewEntropyCache[string](100)
	index := createTestTokenIndex()

	stats := CalculateQueryEntropyStats(nil, cache, index)
	assert.Equal(t, 0.0, stats.AvgEntropy)
	assert.Equal(t, 0.0, stats.MaxRawEntropy)
}
