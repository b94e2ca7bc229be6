package main

import (
	"fmt"
	"log"
	"math"

	"github.com/kittclouds/resorank/pkg/resorank"
)

func main() {
	fmt.Println("Testing batch scorer...")
	scorer := buildCorpus()
	testSearch(scorer)
	testExplain(scorer)

	fmt.Println("\nTesting incremental scorer...")
	testIncremental(scorer)

	fmt.Println("\nTesting compaction...")
	testCompact()

	fmt.Println("\n✅ All checks passed!")
}

func buildCorpus() *resorank.Scorer[string] {
	cfg := resorank.ProductionConfig()
	cfg.FieldParams["title"] = resorank.FieldParam{Weight: 2.0, B: 0.75}
	cfg.FieldParams["body"] = resorank.FieldParam{Weight: 1.0, B: 0.75}

	scorer, err := resorank.NewScorer[string](cfg)
	if err != nil {
		log.Fatalf("NewScorer failed: %v", err)
	}

	scorer.CorpusStats.TotalDocuments = 3
	scorer.CorpusStats.AverageDocLength = 40
	scorer.CorpusStats.AverageFieldLengths["title"] = 2
	scorer.CorpusStats.AverageFieldLengths["body"] = 38

	scorer.IndexDocument("notes/dragons.md", resorank.DocumentMetadata{
		TotalTokenCount: 42,
		FieldLengths:    map[string]int{"title": 2, "body": 40},
	}, map[string]resorank.TokenMetadata{
		"fire": {
			CorpusDocFreq: 2, SegmentMask: 0b01,
			FieldOccurrences: map[string]resorank.FieldOccurrence{"title": {TF: 1, FieldLength: 2}},
		},
		"dragon": {
			CorpusDocFreq: 1, SegmentMask: 0b11,
			FieldOccurrences: map[string]resorank.FieldOccurrence{
				"title": {TF: 1, FieldLength: 2},
				"body":  {TF: 5, FieldLength: 40},
			},
		},
	})

	scorer.IndexDocument("notes/campfires.md", resorank.DocumentMetadata{
		TotalTokenCount: 38,
		FieldLengths:    map[string]int{"body": 38},
	}, map[string]resorank.TokenMetadata{
		"fire": {
			CorpusDocFreq: 2, SegmentMask: 0b100,
			FieldOccurrences: map[string]resorank.FieldOccurrence{"body": {TF: 1, FieldLength: 38}},
		},
	})

	scorer.IndexDocument("notes/calendar.md", resorank.DocumentMetadata{
		TotalTokenCount: 40,
		FieldLengths:    map[string]int{"body": 40},
	}, map[string]resorank.TokenMetadata{
		"meeting": {
			CorpusDocFreq: 1,
			FieldOccurrences: map[string]resorank.FieldOccurrence{"body": {TF: 2, FieldLength: 40}},
		},
	})

	fmt.Println("  ✓ Indexed 3 documents")
	return scorer
}

func testSearch(scorer *resorank.Scorer[string]) {
	query := []string{"fire", "dragon"}

	results := scorer.Search(query, 10)
	if len(results) != 2 {
		log.Fatalf("Search expected 2 results, got %d", len(results))
	}
	if results[0].DocID != "notes/dragons.md" {
		log.Fatalf("Expected dragons.md first, got %s", results[0].DocID)
	}
	fmt.Printf("  ✓ Search ranks %s (%.3f) above %s (%.3f)\n",
		results[0].DocID, results[0].Score, results[1].DocID, results[1].Score)

	stats := scorer.Stats()
	if stats.DocumentCount != 3 {
		log.Fatalf("Expected 3 documents, got %d", stats.DocumentCount)
	}
	fmt.Printf("  ✓ Stats: %d docs, %d terms\n", stats.DocumentCount, stats.TermCount)
}

func testExplain(scorer *resorank.Scorer[string]) {
	exp := scorer.ExplainScore([]string{"fire", "dragon"}, "notes/dragons.md")
	if exp.TotalScore <= 0 {
		log.Fatalf("Expected positive total score")
	}
	if !exp.PhraseMatched {
		log.Fatalf("'fire dragon' occupies adjacent segments, expected phrase match")
	}
	fmt.Printf("  ✓ Explain: total=%.3f bm25=%.3f proximity=%.3f phrase=%.1fx\n",
		exp.TotalScore, exp.BM25Score, exp.ProximityMultiplier, exp.PhraseBoost)
}

func testIncremental(batch *resorank.Scorer[string]) {
	inc, err := resorank.NewIncrementalScorer[string](batch.Config)
	if err != nil {
		log.Fatalf("NewIncrementalScorer failed: %v", err)
	}
	inc.CorpusStats = batch.CorpusStats

	query := []string{"fire", "dragon"}
	for i, term := range query {
		if i > 0 {
			inc.NextTerm()
		}
		df := 0
		for docID, meta := range batch.TokenIndex[term] {
			df = meta.CorpusDocFreq
			docLen := batch.DocumentIndex[docID].TotalTokenCount
			for field, occ := range meta.FieldOccurrences {
				inc.AddFieldContribution(docID, field, occ.TF, occ.FieldLength, meta.SegmentMask, docLen)
			}
		}
		inc.FinalizeTerm(df)
	}

	scores := inc.GetScores(resorank.ProximityPairwise)
	for docID, got := range scores {
		want := batch.Score(query, docID)
		if math.Abs(want-got) > 1e-6 {
			log.Fatalf("Doc %s: batch=%f incremental=%f", docID, want, got)
		}
	}
	fmt.Printf("  ✓ Incremental scores match batch for %d docs\n", len(scores))
}

func testCompact() {
	scorer, err := resorank.NewScorer[string](resorank.LatencyConfig())
	if err != nil {
		log.Fatalf("NewScorer failed: %v", err)
	}
	scorer.CorpusStats.TotalDocuments = 50
	scorer.CorpusStats.AverageDocLength = 100
	scorer.CorpusStats.AverageFieldLengths["body"] = 100

	for i := 0; i < 50; i++ {
		docID := fmt.Sprintf("doc-%d", i)
		scorer.IndexDocument(docID, resorank.DocumentMetadata{TotalTokenCount: 100}, map[string]resorank.TokenMetadata{
			fmt.Sprintf("term-%d", i%10): {
				CorpusDocFreq:    5,
				SegmentMask:      1,
				FieldOccurrences: map[string]resorank.FieldOccurrence{"body": {TF: 1, FieldLength: 100}},
			},
		})
	}

	before := len(scorer.Search([]string{"term-3"}, 20))
	if err := resorank.Compact(scorer); err != nil {
		log.Fatalf("Compact failed: %v", err)
	}
	after := len(scorer.Search([]string{"term-3"}, 20))
	if before != after {
		log.Fatalf("Compact changed results: %d vs %d", before, after)
	}
	fmt.Printf("  ✓ Compact preserves search (%d results)\n", after)
}
