package resorank

// Wide segment masks lift the 32-segment ceiling for documents needing
// finer segmentation. This is an extension: the uint32 path stays the
// default and existing tuned configs keep their behavior. Wide masks
// never pass through RemapSegmentMask.

import (
	"github.com/bits-and-blooms/bitset"
)

// WideMask marks which of an arbitrary number of segments contain a term.
type WideMask struct {
	bits     *bitset.BitSet
	segments uint
}

// NewWideMask creates an empty mask over the given segment count.
func NewWideMask(segments uint) *WideMask {
	return &WideMask{bits: bitset.New(segments), segments: segments}
}

// Segments returns the mask width.
func (m *WideMask) Segments() uint {
	return m.segments
}

// Set marks segment i as containing the term. Out-of-range bits are
// ignored.
func (m *WideMask) Set(i uint) {
	if i < m.segments {
		m.bits.Set(i)
	}
}

// Test reports whether segment i is marked.
func (m *WideMask) Test(i uint) bool {
	return m.bits.Test(i)
}

// Overlap counts segments shared with another mask.
func (m *WideMask) Overlap(other *WideMask) uint {
	return m.bits.IntersectionCardinality(other.bits)
}

// And returns the intersection of two masks.
func (m *WideMask) And(other *WideMask) *WideMask {
	segs := m.segments
	if other.segments < segs {
		segs = other.segments
	}
	return &WideMask{bits: m.bits.Intersection(other.bits), segments: segs}
}

// AdjacentBefore reports whether some segment N set here is directly
// followed by segment N+1 set in next — the wide twin of the
// (m1 << 1) & m2 check.
func (m *WideMask) AdjacentBefore(next *WideMask) bool {
	for i, ok := m.bits.NextSet(0); ok; i, ok = m.bits.NextSet(i + 1) {
		if next.Test(i + 1) {
			return true
		}
	}
	return false
}

// Count returns the number of marked segments.
func (m *WideMask) Count() uint {
	return m.bits.Count()
}

// WideGlobalProximityMultiplier is the Global strategy over wide masks.
func WideGlobalProximityMultiplier(masks []*WideMask, alpha float64, maxSegs uint, docLen int, avgDocLen float64, decayLambda float64) float64 {
	if len(masks) < 2 || maxSegs == 0 {
		return 1.0
	}

	common := masks[0]
	for i := 1; i < len(masks); i++ {
		common = common.And(masks[i])
	}

	overlapCount := common.Count()
	maxPossible := uint(len(masks))
	if maxPossible > maxSegs {
		maxPossible = maxSegs
	}

	baseMult := float64(overlapCount) / float64(maxPossible)
	decay := lengthDecay(docLen, avgDocLen, decayLambda)

	return 1.0 + alpha*baseMult*decay
}

// DetectWidePhraseMatch is DetectPhraseMatch over wide masks.
func DetectWidePhraseMatch(queryTerms []string, docMasks map[string]*WideMask) bool {
	if len(queryTerms) < 2 {
		return false
	}

	for i := 0; i < len(queryTerms)-1; i++ {
		m1, ok1 := docMasks[queryTerms[i]]
		m2, ok2 := docMasks[queryTerms[i+1]]
		if !ok1 || !ok2 {
			return false
		}
		if !m1.AdjacentBefore(m2) {
			return false
		}
	}
	return true
}
