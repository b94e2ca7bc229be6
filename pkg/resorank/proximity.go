package resorank

import (
	"math"
)

// TermWithIDF helper for proximity
type TermWithIDF struct {
	Mask uint32
	IDF  float64
}

// proximityBreakdown carries the intermediate factors so explanations can
// report them without recomputing.
type proximityBreakdown struct {
	Multiplier float64
	IDFBoost   float64
	Decay      float64
	Overlap    int
}

func neutralProximity() proximityBreakdown {
	return proximityBreakdown{Multiplier: 1.0, IDFBoost: 1.0, Decay: 1.0}
}

func lengthDecay(docLen int, avgDocLen float64, decayLambda float64) float64 {
	lenRatio := 1.0
	if avgDocLen > 0 {
		lenRatio = float64(docLen) / avgDocLen
	}
	return math.Exp(-decayLambda * lenRatio)
}

func globalProximity(masks []uint32, alpha float64, maxSegs uint32, docLen int, avgDocLen float64, decayLambda float64) proximityBreakdown {
	if len(masks) < 2 || maxSegs == 0 {
		return neutralProximity()
	}

	// AND all masks
	common := masks[0]
	for i := 1; i < len(masks); i++ {
		common &= masks[i]
	}

	overlapCount := PopCount(common)
	maxPossible := uint32(len(masks))
	if maxPossible > maxSegs {
		maxPossible = maxSegs
	}

	baseMult := float64(overlapCount) / float64(maxPossible)
	decay := lengthDecay(docLen, avgDocLen, decayLambda)

	return proximityBreakdown{
		Multiplier: 1.0 + alpha*baseMult*decay,
		IDFBoost:   1.0,
		Decay:      decay,
		Overlap:    overlapCount,
	}
}

func idfWeightedProximity(termData []TermWithIDF, alpha float64, maxSegs uint32, docLen int, avgDocLen float64, decayLambda float64, idfScale float64) proximityBreakdown {
	if len(termData) < 2 || maxSegs == 0 {
		return neutralProximity()
	}

	// Average IDF
	totalIDF := 0.0
	common := termData[0].Mask
	for _, t := range termData {
		totalIDF += t.IDF
		common &= t.Mask
	}
	avgIDF := totalIDF / float64(len(termData))

	overlapCount := PopCount(common)
	maxPossible := uint32(len(termData))
	if maxPossible > maxSegs {
		maxPossible = maxSegs
	}

	baseMult := float64(overlapCount) / float64(maxPossible)
	idfBoost := 1.0
	if idfScale > 0 {
		idfBoost = 1.0 + avgIDF/idfScale
	}
	decay := lengthDecay(docLen, avgDocLen, decayLambda)

	return proximityBreakdown{
		Multiplier: 1.0 + alpha*baseMult*idfBoost*decay,
		IDFBoost:   idfBoost,
		Decay:      decay,
		Overlap:    overlapCount,
	}
}

// GlobalProximityMultiplier computes overlap boost ignoring IDF
func GlobalProximityMultiplier(masks []uint32, alpha float64, maxSegs uint32, docLen int, avgDocLen float64, decayLambda float64) float64 {
	return globalProximity(masks, alpha, maxSegs, docLen, avgDocLen, decayLambda).Multiplier
}

// IDFWeightedProximityMultiplier computes overlap boost weighted by IDF (rarer terms matter more)
func IDFWeightedProximityMultiplier(termData []TermWithIDF, alpha float64, maxSegs uint32, docLen int, avgDocLen float64, decayLambda float64, idfScale float64) float64 {
	return idfWeightedProximity(termData, alpha, maxSegs, docLen, avgDocLen, decayLambda, idfScale).Multiplier
}

// PairwiseProximityBonus averages mask overlap over all unordered term
// pairs and returns the resulting multiplier 1 + alpha*avgOverlap.
// Skips the combined-AND computation entirely, which is why it is the
// recommended production strategy.
func PairwiseProximityBonus(masks []uint32, alpha float64, maxSegs uint32) float64 {
	if len(masks) < 2 || maxSegs == 0 {
		return 1.0
	}

	sum := 0.0
	pairs := 0
	for i := 0; i < len(masks); i++ {
		for j := i + 1; j < len(masks); j++ {
			sum += float64(PopCount(masks[i]&masks[j])) / float64(maxSegs)
			pairs++
		}
	}

	return 1.0 + alpha*(sum/float64(pairs))
}

// PerTermProximityMultiplier computes the local multiplier for the term at
// position idx against all preceding terms' masks, taken individually.
// The first term of a query (idx 0) has no preceding context and gets 1.0.
func PerTermProximityMultiplier(idx int, masks []uint32, alpha float64, maxSegs uint32) float64 {
	if idx <= 0 || idx >= len(masks) || maxSegs == 0 {
		return 1.0
	}

	sum := 0.0
	for i := 0; i < idx; i++ {
		sum += float64(PopCount(masks[idx] & masks[i]))
	}
	avgOverlap := sum / float64(idx)
	normalized := avgOverlap / float64(maxSegs)

	return 1.0 + alpha*normalized
}

// DetectPhraseMatch checks if terms appear in adjacent segments in strict order
func DetectPhraseMatch(queryTerms []string, docMasks map[string]uint32) bool {
	if len(queryTerms) < 2 {
		return false
	}

	for i := 0; i < len(queryTerms)-1; i++ {
		m1, ok1 := docMasks[queryTerms[i]]
		m2, ok2 := docMasks[queryTerms[i+1]]

		if !ok1 || !ok2 {
			return false
		}

		// Shift m1 left (0001 -> 0010). If m2 has bit at 0010, they are adjacent.
		// Note: Segment 0 is LSB. Segment 1 is bit 1.
		// If term1 is at Seg 0, mask=1.
		// If term2 is at Seg 1, mask=2.
		// (1 << 1) & 2 = 2 & 2 = 2 != 0. Match.
		adjacent := (m1 << 1) & m2
		if adjacent == 0 {
			return false
		}
	}
	return true
}
