package resorank

import (
	"math"
	"testing"
)

func newTestScorer(t *testing.T, cfg ResoRankConfig) *Scorer[string] {
	t.Helper()
	scorer, err := NewScorer[string](cfg)
	if err != nil {
		t.Fatalf("NewScorer failed: %v", err)
	}
	return scorer
}

func TestScorerBasic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldWeights["title"] = 10.0
	cfg.FieldWeights["body"] = 1.0

	scorer := newTestScorer(t, cfg)
	scorer.CorpusStats.TotalDocuments = 10
	scorer.CorpusStats.AverageDocLength = 100
	scorer.CorpusStats.AverageFieldLengths["title"] = 5
	scorer.CorpusStats.AverageFieldLengths["body"] = 95

	// Doc 1: "hello" in Title
	meta1 := DocumentMetadata{
		TotalTokenCount: 100,
		FieldLengths:    map[string]int{"title": 5, "body": 95},
	}
	tokens1 := map[string]TokenMetadata{
		"hello": {
			CorpusDocFreq: 2,
			FieldOccurrences: map[string]FieldOccurrence{
				"title": {TF: 1, FieldLength: 5},
			},
			SegmentMask: 1,
		},
	}
	scorer.IndexDocument("doc1", meta1, tokens1)

	// Doc 2: "hello" in Body
	meta2 := DocumentMetadata{
		TotalTokenCount: 100,
		FieldLengths:    map[string]int{"title": 5, "body": 95},
	}
	tokens2 := map[string]TokenMetadata{
		"hello": {
			CorpusDocFreq: 2,
			FieldOccurrences: map[string]FieldOccurrence{
				"body": {TF: 1, FieldLength: 95},
			},
			SegmentMask: 1,
		},
	}
	scorer.IndexDocument("doc2", meta2, tokens2)

	results := scorer.Search([]string{"hello"}, 10)
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}

	// Doc 1 should score higher due to Title weight (10.0)
	doc1Score := 0.0
	doc2Score := 0.0
	for _, r := range results {
		if r.DocID == "doc1" {
			doc1Score = r.Score
		}
		if r.DocID == "doc2" {
			doc2Score = r.Score
		}
	}

	if doc1Score <= doc2Score {
		t.Errorf("Expected Doc1 (Title match) > Doc2 (Body match). Got %.2f vs %.2f", doc1Score, doc2Score)
	}
}

func TestProximityBoost(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ProximityAlpha = 1.0 // High alpha to see effect clearly

	scorer := newTestScorer(t, cfg)
	scorer.CorpusStats.TotalDocuments = 100
	scorer.CorpusStats.AverageDocLength = 100
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	// Doc A: "hello" at seg 0, "world" at seg 1 (adjacent)
	metaA := DocumentMetadata{TotalTokenCount: 100}
	tokensA := map[string]TokenMetadata{
		"hello": {CorpusDocFreq: 5, SegmentMask: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
		"world": {CorpusDocFreq: 5, SegmentMask: 2, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	}
	scorer.IndexDocument("docA", metaA, tokensA)

	// Doc B: "hello" at seg 0, "world" at seg 5 (far apart)
	metaB := DocumentMetadata{TotalTokenCount: 100}
	tokensB := map[string]TokenMetadata{
		"hello": {CorpusDocFreq: 5, SegmentMask: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
		"world": {CorpusDocFreq: 5, SegmentMask: 32, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	}
	scorer.IndexDocument("docB", metaB, tokensB)

	results := scorer.Search([]string{"hello", "world"}, 10)

	scoreA := 0.0
	scoreB := 0.0
	for _, r := range results {
		if r.DocID == "docA" {
			scoreA = r.Score
		}
		if r.DocID == "docB" {
			scoreB = r.Score
		}
	}

	if scoreA <= scoreB {
		t.Errorf("Expected adjacent phrase (DocA) > distant terms (DocB). Got %.2f vs %.2f", scoreA, scoreB)
	}
}

func TestConfigValidation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxSegments = 33
	if _, err := NewScorer[string](cfg); err == nil {
		t.Errorf("MaxSegments > 32 must be rejected at construction")
	}

	cfg.MaxSegments = 0
	if _, err := NewScorer[string](cfg); err == nil {
		t.Errorf("MaxSegments = 0 must be rejected")
	}

	cfg = DefaultConfig()
	cfg.B = 1.5
	if _, err := NewScorer[string](cfg); err == nil {
		t.Errorf("b outside [0,1] must be rejected")
	}
}

func TestIndexRemoveRoundTrip(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())
	scorer.CorpusStats.TotalDocuments = 5
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	before := scorer.Stats().DocumentCount

	meta := DocumentMetadata{TotalTokenCount: 100}
	tokens := map[string]TokenMetadata{
		"ember": {CorpusDocFreq: 1, SegmentMask: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {3, 100}}},
	}
	scorer.IndexDocument("doc1", meta, tokens)

	if scorer.Score([]string{"ember"}, "doc1") <= 0 {
		t.Fatalf("Expected positive score after indexing")
	}

	if !scorer.RemoveDocument("doc1") {
		t.Errorf("RemoveDocument should report the doc existed")
	}
	if scorer.RemoveDocument("doc1") {
		t.Errorf("Second removal should report absence")
	}

	if got := scorer.Score([]string{"ember"}, "doc1"); got != 0 {
		t.Errorf("Expected 0 score after removal, got %f", got)
	}
	if scorer.Stats().DocumentCount != before {
		t.Errorf("DocumentCount should return to pre-insert value")
	}
}

func TestIndexOverwrites(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())
	scorer.CorpusStats.TotalDocuments = 5
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	meta := DocumentMetadata{TotalTokenCount: 100}
	scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
		"old": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})
	scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
		"new": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})

	if scorer.Score([]string{"old"}, "doc1") != 0 {
		t.Errorf("Re-indexing must overwrite, not merge")
	}
	if scorer.Score([]string{"new"}, "doc1") <= 0 {
		t.Errorf("New posting should score")
	}
}

func TestSingleTermFastPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldParams["title"] = FieldParam{Weight: 2.0, B: 0.75}

	scorer := newTestScorer(t, cfg)
	scorer.CorpusStats.TotalDocuments = 10
	scorer.CorpusStats.AverageDocLength = 50
	scorer.CorpusStats.AverageFieldLengths["title"] = 4

	meta := DocumentMetadata{TotalTokenCount: 50}
	scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
		"dragon": {CorpusDocFreq: 3, SegmentMask: 0b10, FieldOccurrences: map[string]FieldOccurrence{"title": {2, 4}}},
	})

	fast := scorer.Score([]string{"dragon"}, "doc1")
	general := scorer.ExplainScore([]string{"dragon"}, "doc1").TotalScore
	if math.Abs(fast-general) > 1e-12 {
		t.Errorf("Fast path must match general path: %f vs %f", fast, general)
	}
}

func TestExplainUnindexedDocIsNeutral(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())

	exp := scorer.ExplainScore([]string{"ghost"}, "nope")
	if exp.TotalScore != 0 {
		t.Errorf("Expected zero total, got %f", exp.TotalScore)
	}
	if exp.ProximityMultiplier != 1.0 || exp.PhraseBoost != 1.0 || exp.LengthDecay != 1.0 {
		t.Errorf("Expected neutral multipliers, got %+v", exp)
	}
}

// End-to-end: weighted title hits plus in-document proximity must rank a
// doc carrying both query terms above a doc with a single body mention.
func TestEndToEndFireDragon(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldParams["title"] = FieldParam{Weight: 2.0, B: 0.75}
	cfg.FieldParams["body"] = FieldParam{Weight: 1.0, B: 0.75}

	scorer := newTestScorer(t, cfg)
	scorer.CorpusStats.TotalDocuments = 3
	scorer.CorpusStats.AverageDocLength = 40
	scorer.CorpusStats.AverageFieldLengths["title"] = 2
	scorer.CorpusStats.AverageFieldLengths["body"] = 38

	// Doc A: title "fire dragon", body repeats "dragon" 5x
	metaA := DocumentMetadata{TotalTokenCount: 42, FieldLengths: map[string]int{"title": 2, "body": 40}}
	scorer.IndexDocument("A", metaA, map[string]TokenMetadata{
		"fire": {
			CorpusDocFreq: 2,
			SegmentMask:   0b01,
			FieldOccurrences: map[string]FieldOccurrence{
				"title": {TF: 1, FieldLength: 2},
			},
		},
		"dragon": {
			CorpusDocFreq: 1,
			SegmentMask:   0b11,
			FieldOccurrences: map[string]FieldOccurrence{
				"title": {TF: 1, FieldLength: 2},
				"body":  {TF: 5, FieldLength: 40},
			},
		},
	})

	// Doc B: body mentions "fire" once
	metaB := DocumentMetadata{TotalTokenCount: 38, FieldLengths: map[string]int{"body": 38}}
	scorer.IndexDocument("B", metaB, map[string]TokenMetadata{
		"fire": {
			CorpusDocFreq: 2,
			SegmentMask:   0b100,
			FieldOccurrences: map[string]FieldOccurrence{
				"body": {TF: 1, FieldLength: 38},
			},
		},
	})

	// Doc C: unrelated
	metaC := DocumentMetadata{TotalTokenCount: 40, FieldLengths: map[string]int{"body": 40}}
	scorer.IndexDocument("C", metaC, map[string]TokenMetadata{
		"calendar": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {2, 40}}},
	})

	query := []string{"fire", "dragon"}

	scoreA := scorer.Score(query, "A")
	scoreB := scorer.Score(query, "B")
	if scoreA <= scoreB {
		t.Fatalf("Doc A must outrank Doc B: %f vs %f", scoreA, scoreB)
	}
	if scoreB <= 0 {
		t.Fatalf("Doc B should still score on its 'fire' hit, got %f", scoreB)
	}

	results := scorer.Search(query, 10)
	if len(results) != 2 {
		t.Fatalf("Expected [A, B], got %d results", len(results))
	}
	if results[0].DocID != "A" || results[1].DocID != "B" {
		t.Errorf("Expected order [A, B], got [%s, %s]", results[0].DocID, results[1].DocID)
	}
}

func TestSearchKeepsZeroScoresExplanationsFilterThem(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())
	scorer.CorpusStats.TotalDocuments = 2
	// No average length registered for "phantom" field: its normalized TF
	// short-circuits to 0, so the doc matches a term but scores zero.
	meta := DocumentMetadata{TotalTokenCount: 10}
	scorer.IndexDocument("zero", meta, map[string]TokenMetadata{
		"spark": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"phantom": {1, 10}}},
	})

	results := scorer.Search([]string{"spark"}, 10)
	if len(results) != 1 || results[0].Score != 0 {
		t.Errorf("Search keeps zero-score candidates, got %+v", results)
	}

	exps := scorer.SearchWithExplanations([]string{"spark"}, 10)
	if len(exps) != 0 {
		t.Errorf("SearchWithExplanations filters zero scores, got %d results", len(exps))
	}
}

func TestScoreQueryOmitsZeros(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())
	scorer.CorpusStats.TotalDocuments = 5
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	meta := DocumentMetadata{TotalTokenCount: 100}
	scorer.IndexDocument("hit", meta, map[string]TokenMetadata{
		"comet": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})
	scorer.IndexDocument("miss", meta, map[string]TokenMetadata{
		"meteor": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})

	scores := scorer.ScoreQuery([]string{"comet"}, []string{"hit", "miss", "ghost"})
	if len(scores) != 1 {
		t.Fatalf("Expected only the matching doc, got %v", scores)
	}
	if scores["hit"] <= 0 {
		t.Errorf("Expected positive score for 'hit'")
	}
}

func TestIDFCacheLifecycle(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())
	scorer.CorpusStats.TotalDocuments = 10
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	meta := DocumentMetadata{TotalTokenCount: 100}
	scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
		"alpha": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
		"beta":  {CorpusDocFreq: 4, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})

	scorer.WarmIDFCache()
	if got := scorer.Stats().IDFCacheSize; got != 2 {
		t.Errorf("Expected 2 warmed entries (df=1, df=4), got %d", got)
	}

	// Terms sharing a document frequency share an entry
	scorer.IndexDocument("doc2", meta, map[string]TokenMetadata{
		"gamma": {CorpusDocFreq: 4, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})
	scorer.WarmIDFCache()
	if got := scorer.Stats().IDFCacheSize; got != 2 {
		t.Errorf("df=4 should share its cache entry, got %d entries", got)
	}

	scorer.ClearIDFCache()
	if got := scorer.Stats().IDFCacheSize; got != 0 {
		t.Errorf("Expected empty cache after clear, got %d", got)
	}
}

func TestStats(t *testing.T) {
	scorer := newTestScorer(t, DefaultConfig())
	scorer.CorpusStats.TotalDocuments = 2
	scorer.CorpusStats.AverageFieldLengths["body"] = 10

	meta := DocumentMetadata{TotalTokenCount: 10}
	scorer.IndexDocument("d1", meta, map[string]TokenMetadata{
		"one": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 10}}},
		"two": {CorpusDocFreq: 1, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 10}}},
	})

	stats := scorer.Stats()
	if stats.DocumentCount != 1 || stats.TermCount != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestPerTermStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = ProximityPerTerm
	cfg.ProximityAlpha = 1.0
	cfg.PhraseBoost = false

	scorer := newTestScorer(t, cfg)
	scorer.CorpusStats.TotalDocuments = 10
	scorer.CorpusStats.AverageDocLength = 100
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	meta := DocumentMetadata{TotalTokenCount: 100}
	scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
		"red":  {CorpusDocFreq: 5, SegmentMask: 0b0110, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
		"fox":  {CorpusDocFreq: 5, SegmentMask: 0b0110, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
		"runs": {CorpusDocFreq: 5, SegmentMask: 0b0000, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})

	exp := scorer.ExplainScore([]string{"red", "fox", "runs"}, "doc1")

	// Document-level multiplier stays neutral; boost lives in the terms.
	if exp.ProximityMultiplier != 1.0 {
		t.Errorf("PerTerm keeps the global multiplier at 1.0, got %f", exp.ProximityMultiplier)
	}
	if len(exp.Terms) != 3 {
		t.Fatalf("Expected 3 term explanations, got %d", len(exp.Terms))
	}
	if exp.Terms[0].ProximityMultiplier != 1.0 {
		t.Errorf("First term has no preceding context")
	}
	if exp.Terms[1].ProximityMultiplier <= 1.0 {
		t.Errorf("Second term overlaps the first, expected a boost")
	}
	if exp.TotalScore <= exp.BM25Score {
		t.Errorf("Per-term boosts should lift the total above the raw sum")
	}
}

func TestEntropyAugmentedScoring(t *testing.T) {
	plain := DefaultConfig()
	bmx := DefaultConfig()
	bmx.EntropyGamma = 0.5

	for _, cfg := range []*ResoRankConfig{&plain, &bmx} {
		cfg.FieldWeights["body"] = 1.0
	}

	index := func(cfg ResoRankConfig) float64 {
		scorer := newTestScorer(t, cfg)
		scorer.CorpusStats.TotalDocuments = 10
		scorer.CorpusStats.AverageFieldLengths["body"] = 100

		meta := DocumentMetadata{TotalTokenCount: 100}
		scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
			"storm": {CorpusDocFreq: 2, FieldOccurrences: map[string]FieldOccurrence{"body": {3, 100}}},
		})
		return scorer.Score([]string{"storm"}, "doc1")
	}

	plainScore := index(plain)
	bmxScore := index(bmx)
	if plainScore <= 0 {
		t.Fatalf("Expected positive baseline score")
	}
	// Entropy inflates the normalization denominator, damping the score.
	if bmxScore >= plainScore {
		t.Errorf("Entropy-augmented score should be lower: %f vs %f", bmxScore, plainScore)
	}
}

func TestAdaptiveSegmentRemapOnIndex(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseAdaptiveSegments = true

	scorer := newTestScorer(t, cfg)
	scorer.CorpusStats.TotalDocuments = 2
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	// Short doc: adaptive count is 8, so bit 31 collapses into bit 7.
	meta := DocumentMetadata{TotalTokenCount: 100}
	scorer.IndexDocument("doc1", meta, map[string]TokenMetadata{
		"tail": {CorpusDocFreq: 1, SegmentMask: 1 << 31, FieldOccurrences: map[string]FieldOccurrence{"body": {1, 100}}},
	})

	stored := scorer.TokenIndex["tail"]["doc1"].SegmentMask
	if stored != 1<<7 {
		t.Errorf("Expected remapped mask bit 7, got %032b", stored)
	}
}
