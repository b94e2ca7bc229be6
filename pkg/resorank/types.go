package resorank

import "fmt"

// ProximityStrategy selects how segment-mask overlap between query terms
// is converted into a score boost. The strategy is fixed per scorer
// instance (per GetScores call for the incremental scorer).
type ProximityStrategy int

const (
	// ProximityGlobal ANDs all term masks and boosts by the shared overlap.
	ProximityGlobal ProximityStrategy = iota
	// ProximityPerTerm applies a local multiplier to each term's own
	// contribution based on overlap with preceding terms.
	ProximityPerTerm
	// ProximityPairwise averages overlap over all unordered term pairs.
	// Cheaper than full overlap; the recommended production default.
	ProximityPairwise
	// ProximityIDFWeighted is Global additionally scaled by average query
	// IDF, rewarding co-location of rare terms.
	ProximityIDFWeighted
)

func (s ProximityStrategy) String() string {
	switch s {
	case ProximityGlobal:
		return "global"
	case ProximityPerTerm:
		return "perTerm"
	case ProximityPairwise:
		return "pairwise"
	case ProximityIDFWeighted:
		return "idfWeighted"
	}
	return "unknown"
}

// MaxSegmentBits is the hard ceiling on segment count, fixed by the
// 32-bit segment masks. Wider documents need WideMask.
const MaxSegmentBits = 32

// ResoRankConfig holds scoring parameters. Immutable once handed to a
// scorer instance.
type ResoRankConfig struct {
	K1                  float64               `json:"k1"`
	B                   float64               `json:"b"`
	ProximityAlpha      float64               `json:"proximityAlpha"`
	ProximityDecay      float64               `json:"proximityDecayLambda"`
	MaxSegments         uint32                `json:"maxSegments"`
	UseAdaptiveSegments bool                  `json:"useAdaptiveSegments"`
	Strategy            ProximityStrategy     `json:"strategy"`
	IDFScale            float64               `json:"idfScale"`
	PhraseBoost         bool                  `json:"phraseBoost"`
	PhraseBoostFactor   float64               `json:"phraseBoostFactor"`
	FieldWeights        map[string]float64    `json:"fieldWeights"`
	FieldParams         map[string]FieldParam `json:"fieldParams"`
	VectorAlpha         float64               `json:"vectorAlpha"` // Weight for vector score (0-1)
	VectorScale         float64               `json:"vectorScale"` // Scales cosine (0-1) into BM25 range
	EntropyGamma        float64               `json:"entropyGamma"`
	EntropyCacheSize    int                   `json:"entropyCacheSize"`
}

type FieldParam struct {
	Weight float64 `json:"weight"`
	B      float64 `json:"b"` // Field-specific b
}

// Validate rejects configurations the 32-bit mask engine cannot honor.
// The original engine silently truncated MaxSegments via 32-bit bitwise
// semantics; here it is a construction-time error.
func (c ResoRankConfig) Validate() error {
	if c.MaxSegments == 0 || c.MaxSegments > MaxSegmentBits {
		return fmt.Errorf("maxSegments must be in [1,%d], got %d", MaxSegmentBits, c.MaxSegments)
	}
	if c.K1 < 0 {
		return fmt.Errorf("k1 must be non-negative, got %f", c.K1)
	}
	if c.B < 0 || c.B > 1.0 {
		return fmt.Errorf("b must be in [0,1], got %f", c.B)
	}
	if c.VectorAlpha < 0 || c.VectorAlpha > 1.0 {
		return fmt.Errorf("vectorAlpha must be in [0,1], got %f", c.VectorAlpha)
	}
	return nil
}

// DefaultConfig mirrors the tuning the notes-search frontend ships with.
func DefaultConfig() ResoRankConfig {
	return ResoRankConfig{
		K1:                1.2,
		B:                 0.75,
		ProximityAlpha:    0.5,
		ProximityDecay:    0.1,
		MaxSegments:       32,
		Strategy:          ProximityIDFWeighted,
		IDFScale:          5.0,
		PhraseBoost:       true,
		PhraseBoostFactor: 1.5,
		FieldWeights:      make(map[string]float64),
		FieldParams:       make(map[string]FieldParam),
		VectorAlpha:       0.0, // Default to pure BM25
		VectorScale:       20.0,
		EntropyCacheSize:  1000,
	}
}

// TokenMetadata tracks term statistics for one (term, document) pair.
type TokenMetadata struct {
	FieldOccurrences map[string]FieldOccurrence `json:"fieldOccurrences"`
	SegmentMask      uint32                     `json:"segmentMask"`
	CorpusDocFreq    int                        `json:"corpusDocFrequency"`
}

// FieldOccurrence tracks term hits in a field
type FieldOccurrence struct {
	TF          int `json:"tf"`
	FieldLength int `json:"fieldLength"`
}

// DocumentMetadata tracks document structure
type DocumentMetadata struct {
	FieldLengths    map[string]int `json:"fieldLengths"`
	TotalTokenCount int            `json:"totalTokenCount"`
	Embedding       []float32      `json:"embedding,omitempty"` // for hybrid search
}

// SearchResult represents a scored match
type SearchResult[K comparable] struct {
	DocID K       `json:"docId"`
	Score float64 `json:"score"`
}

// CorpusStatistics tracks global stats. The engine reads these but never
// recomputes them; the indexing pipeline owns keeping them current.
type CorpusStatistics struct {
	TotalDocuments      int                `json:"totalDocuments"`
	AverageDocLength    float64            `json:"averageDocumentLength"`
	AverageFieldLengths map[string]float64 `json:"averageFieldLengths"`
}

// ScorerStats summarizes index occupancy.
type ScorerStats struct {
	DocumentCount int `json:"documentCount"`
	TermCount     int `json:"termCount"`
	IDFCacheSize  int `json:"idfCacheSize"`
}
