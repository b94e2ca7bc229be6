package resorank

import "math"

// CorpusSizeClass buckets a corpus by document count for capacity
// planning.
type CorpusSizeClass string

const (
	CorpusTiny   CorpusSizeClass = "tiny"   // < 1k docs
	CorpusSmall  CorpusSizeClass = "small"  // < 10k
	CorpusMedium CorpusSizeClass = "medium" // < 100k
	CorpusLarge  CorpusSizeClass = "large"  // < 1M
	CorpusXLarge CorpusSizeClass = "xlarge"
)

// ClassifyCorpusSize returns the size bucket for a document count.
func ClassifyCorpusSize(docCount int) CorpusSizeClass {
	switch {
	case docCount < 1_000:
		return CorpusTiny
	case docCount < 10_000:
		return CorpusSmall
	case docCount < 100_000:
		return CorpusMedium
	case docCount < 1_000_000:
		return CorpusLarge
	default:
		return CorpusXLarge
	}
}

// baseQPS holds single-term throughput per size class, fit from the
// frontend's benchmark runs. Constant tables, not scoring logic.
var baseQPS = map[CorpusSizeClass]float64{
	CorpusTiny:   50_000,
	CorpusSmall:  20_000,
	CorpusMedium: 8_000,
	CorpusLarge:  2_500,
	CorpusXLarge: 800,
}

// CapacityEstimate summarizes expected query throughput.
type CapacityEstimate struct {
	SizeClass     CorpusSizeClass `json:"sizeClass"`
	SingleTermQPS float64         `json:"singleTermQps"`
	MultiTermQPS  float64         `json:"multiTermQps"`
}

// EstimateCapacity projects throughput for a corpus and a typical query
// length. Multi-term queries pay a termCount^1.5 penalty for proximity
// and phrase work.
func EstimateCapacity(docCount int, termCount int) CapacityEstimate {
	class := ClassifyCorpusSize(docCount)
	single := baseQPS[class]

	if termCount < 1 {
		termCount = 1
	}
	multi := single / math.Pow(float64(termCount), 1.5)

	return CapacityEstimate{
		SizeClass:     class,
		SingleTermQPS: single,
		MultiTermQPS:  multi,
	}
}

// ProductionConfig is the balanced default for live corpora: pairwise
// proximity keeps scoring cheap at OR-candidate scale.
func ProductionConfig() ResoRankConfig {
	cfg := DefaultConfig()
	cfg.Strategy = ProximityPairwise
	return cfg
}

// PrecisionConfig favors ranking quality: rare-term co-location is
// rewarded through the IDF-weighted strategy.
func PrecisionConfig() ResoRankConfig {
	cfg := DefaultConfig()
	cfg.Strategy = ProximityIDFWeighted
	return cfg
}

// LatencyConfig trims per-document work to the minimum: pairwise
// proximity with phrase detection disabled.
func LatencyConfig() ResoRankConfig {
	cfg := DefaultConfig()
	cfg.Strategy = ProximityPairwise
	cfg.PhraseBoost = false
	return cfg
}
