package resorank

import (
	"fmt"
	"sort"
)

// Scorer is the batch scoring engine. It owns the inverted index
// (term -> docID -> stats) and document metadata; the caller owns
// tokenization, segment assignment and CorpusStats upkeep.
//
// The scorer is single-threaded by design: no operation blocks and no
// internal locking exists. A multi-threaded host must serialize access
// to an instance.
type Scorer[K comparable] struct {
	Config      ResoRankConfig
	CorpusStats CorpusStatistics

	DocumentIndex map[K]DocumentMetadata
	TokenIndex    map[string]map[K]TokenMetadata

	// Frozen is an optional read-only postings snapshot merged under the
	// live TokenIndex (see Compact).
	Frozen FrozenPostings[K]

	// frozenRemoved tombstones docs removed after compaction; the
	// snapshot itself is immutable.
	frozenRemoved map[K]struct{}

	idfCache map[int]float64
	entropy  *EntropyCache[K]
	ann      *ANNIndex[K]
}

// FrozenPostings is a read-only postings source backing a compacted scorer.
type FrozenPostings[K comparable] interface {
	Postings(term string) (map[K]TokenMetadata, bool)
	Len() int
}

// NewScorer creates a scorer or rejects an invalid config.
func NewScorer[K comparable](config ResoRankConfig) (*Scorer[K], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Scorer[K]{
		Config:        config,
		CorpusStats:   CorpusStatistics{AverageFieldLengths: make(map[string]float64)},
		DocumentIndex: make(map[K]DocumentMetadata),
		TokenIndex:    make(map[string]map[K]TokenMetadata),
		idfCache:      make(map[int]float64),
	}, nil
}

// IndexDocument registers a document and all its term postings. Indexing
// an already-known docID fully overwrites its previous postings, it never
// merges. CorpusStats are not touched; the indexing pipeline recomputes
// them and the IDF cache must be cleared when document counts move.
func (s *Scorer[K]) IndexDocument(docID K, meta DocumentMetadata, tokens map[string]TokenMetadata) {
	if _, exists := s.DocumentIndex[docID]; exists {
		s.RemoveDocument(docID)
	}
	s.DocumentIndex[docID] = meta

	for term, tMeta := range tokens {
		if s.TokenIndex[term] == nil {
			s.TokenIndex[term] = make(map[K]TokenMetadata)
		}

		// Remap segments if adaptive
		if s.Config.UseAdaptiveSegments {
			effective := AdaptiveSegmentCount(meta.TotalTokenCount, 50)
			tMeta.SegmentMask = RemapSegmentMask(tMeta.SegmentMask, s.Config.MaxSegments, effective)
		}

		s.TokenIndex[term][docID] = tMeta
	}
}

// RemoveDocument deletes all postings and metadata for the doc and reports
// whether it existed. Every term's inner map is visited (O(vocabulary));
// emptied terms are left in place, not compacted. Frozen postings are
// immutable, so a compacted doc is masked with a tombstone instead.
func (s *Scorer[K]) RemoveDocument(docID K) bool {
	if _, exists := s.DocumentIndex[docID]; !exists {
		return false
	}
	delete(s.DocumentIndex, docID)
	for _, docs := range s.TokenIndex {
		delete(docs, docID)
	}
	if s.Frozen != nil {
		if s.frozenRemoved == nil {
			s.frozenRemoved = make(map[K]struct{})
		}
		s.frozenRemoved[docID] = struct{}{}
	}
	return true
}

// postings resolves a term's posting map, merging the frozen snapshot
// under the live index. Live entries win per docID; docs removed (or
// re-indexed, which removes first) since compaction are masked out of
// the frozen side.
func (s *Scorer[K]) postings(term string) (map[K]TokenMetadata, bool) {
	live, liveOK := s.TokenIndex[term]
	if s.Frozen == nil {
		return live, liveOK
	}
	frozen, frozenOK := s.Frozen.Postings(term)
	if !frozenOK {
		return live, liveOK
	}

	merged := make(map[K]TokenMetadata, len(frozen)+len(live))
	for docID, meta := range frozen {
		if _, removed := s.frozenRemoved[docID]; removed {
			continue
		}
		merged[docID] = meta
	}
	for docID, meta := range live {
		merged[docID] = meta
	}
	if len(merged) == 0 {
		return nil, false
	}
	return merged, true
}

func (s *Scorer[K]) posting(term string, docID K) (TokenMetadata, bool) {
	docs, ok := s.postings(term)
	if !ok {
		return TokenMetadata{}, false
	}
	meta, ok := docs[docID]
	return meta, ok
}

// Score calculates relevance for a doc. Single-term queries skip the
// explanation machinery; results are identical to the general path.
func (s *Scorer[K]) Score(query []string, docID K) float64 {
	if len(query) == 1 {
		if _, ok := s.DocumentIndex[docID]; !ok {
			return 0.0
		}
		tMeta, ok := s.posting(query[0], docID)
		if !ok {
			return 0.0
		}
		idf := s.getIDF(tMeta.CorpusDocFreq)
		te := s.scoreTerm(query[0], tMeta, idf, s.queryAvgEntropy(query))
		return te.Score
	}
	return s.ExplainScore(query, docID).TotalScore
}

// ExplainScore returns the total score with its full breakdown. An
// unindexed docID yields a neutral explanation, never an error.
func (s *Scorer[K]) ExplainScore(query []string, docID K) Explanation[K] {
	exp := neutralExplanation(docID)

	docMeta, ok := s.DocumentIndex[docID]
	if !ok {
		return exp
	}

	avgEntropy := s.queryAvgEntropy(query)

	var masks []uint32
	var termData []TermWithIDF
	docMasks := make(map[string]uint32)

	bm25Sum := 0.0
	adjustedSum := 0.0

	for _, term := range query {
		tMeta, ok := s.posting(term, docID)
		if !ok {
			// Term not in doc, contributes nothing
			continue
		}

		idf := s.getIDF(tMeta.CorpusDocFreq)
		te := s.scoreTerm(term, tMeta, idf, avgEntropy)
		bm25Sum += te.Score

		masks = append(masks, tMeta.SegmentMask)
		if s.Config.Strategy == ProximityPerTerm {
			mult := PerTermProximityMultiplier(len(masks)-1, masks, s.Config.ProximityAlpha, s.Config.MaxSegments)
			te.ProximityMultiplier = mult
			te.Score *= mult
		}
		adjustedSum += te.Score

		termData = append(termData, TermWithIDF{tMeta.SegmentMask, idf})
		docMasks[term] = tMeta.SegmentMask
		exp.Terms = append(exp.Terms, te)
	}

	pb := neutralProximity()
	switch s.Config.Strategy {
	case ProximityGlobal:
		pb = globalProximity(masks, s.Config.ProximityAlpha, s.Config.MaxSegments,
			docMeta.TotalTokenCount, s.CorpusStats.AverageDocLength, s.Config.ProximityDecay)
	case ProximityIDFWeighted:
		pb = idfWeightedProximity(termData, s.Config.ProximityAlpha, s.Config.MaxSegments,
			docMeta.TotalTokenCount, s.CorpusStats.AverageDocLength, s.Config.ProximityDecay, s.Config.IDFScale)
	case ProximityPairwise:
		pb.Multiplier = PairwiseProximityBonus(masks, s.Config.ProximityAlpha, s.Config.MaxSegments)
	case ProximityPerTerm:
		// already folded into the per-term scores
	}

	total := adjustedSum * pb.Multiplier

	exp.BM25Score = bm25Sum
	exp.ProximityMultiplier = pb.Multiplier
	exp.IDFProximityBoost = pb.IDFBoost
	exp.LengthDecay = pb.Decay
	exp.OverlapCount = pb.Overlap

	if s.Config.PhraseBoost && len(query) > 1 && DetectPhraseMatch(query, docMasks) {
		exp.PhraseMatched = true
		exp.PhraseBoost = s.Config.PhraseBoostFactor
		total *= s.Config.PhraseBoostFactor
	}

	exp.TotalScore = total
	return exp
}

// ScoreQuery batch-scores the given docs, omitting zero-scoring ones.
func (s *Scorer[K]) ScoreQuery(query []string, docIDs []K) map[K]float64 {
	result := make(map[K]float64)
	for _, docID := range docIDs {
		if score := s.Score(query, docID); score > 0 {
			result[docID] = score
		}
	}
	return result
}

// candidates is the union of docs containing any query term (OR semantics).
func (s *Scorer[K]) candidates(query []string) map[K]struct{} {
	set := make(map[K]struct{})
	for _, term := range query {
		if docs, ok := s.postings(term); ok {
			for docID := range docs {
				set[docID] = struct{}{}
			}
		}
	}
	return set
}

// Search scores every candidate, sorts descending and truncates to limit
// (10 when limit <= 0). Zero-scoring candidates are kept; only
// SearchWithExplanations filters them (kept for frontend compatibility).
func (s *Scorer[K]) Search(query []string, limit int) []SearchResult[K] {
	if limit <= 0 {
		limit = 10
	}

	results := make([]SearchResult[K], 0)
	for docID := range s.candidates(query) {
		results = append(results, SearchResult[K]{DocID: docID, Score: s.Score(query, docID)})
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// SearchWithExplanations mirrors Search but returns full breakdowns and
// drops zero-score results.
func (s *Scorer[K]) SearchWithExplanations(query []string, limit int) []Explanation[K] {
	if limit <= 0 {
		limit = 10
	}

	results := make([]Explanation[K], 0)
	for docID := range s.candidates(query) {
		exp := s.ExplainScore(query, docID)
		if exp.TotalScore > 0 {
			results = append(results, exp)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].TotalScore != results[j].TotalScore {
			return results[i].TotalScore > results[j].TotalScore
		}
		return fmt.Sprint(results[i].DocID) < fmt.Sprint(results[j].DocID)
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// scoreTerm computes the BM25F contribution of one term: per-field
// normalized frequencies are combined with field weights BEFORE the
// saturation curve, which is what separates BM25F from per-field BM25.
func (s *Scorer[K]) scoreTerm(term string, meta TokenMetadata, idf float64, avgEntropy float64) TermExplanation {
	te := TermExplanation{Term: term, IDF: idf, ProximityMultiplier: 1.0}

	fields := make([]string, 0, len(meta.FieldOccurrences))
	for field := range meta.FieldOccurrences {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	weightedFreq := 0.0
	for _, field := range fields {
		data := meta.FieldOccurrences[field]

		weight := 1.0
		b := s.Config.B
		if p, ok := s.Config.FieldParams[field]; ok {
			weight = p.Weight
			b = p.B
		} else if w, ok := s.Config.FieldWeights[field]; ok {
			weight = w // fallback if only weights provided
		}

		// Unknown fields (no average length) contribute zero via the
		// division guard inside the normalization.
		avgLen := s.CorpusStats.AverageFieldLengths[field]
		ntf := NormalizedTermFrequencyBMX(data.TF, data.FieldLength, avgLen, b, avgEntropy, s.Config.EntropyGamma)

		weightedFreq += weight * ntf
		te.Fields = append(te.Fields, FieldContribution{
			Field:        field,
			TF:           data.TF,
			Weight:       weight,
			NormalizedTF: ntf,
			Contribution: weight * ntf,
		})
	}

	te.RawFieldScore = weightedFreq
	te.Saturated = Saturate(weightedFreq, s.Config.K1)
	te.Score = idf * te.Saturated
	return te
}

func (s *Scorer[K]) queryAvgEntropy(query []string) float64 {
	if s.Config.EntropyGamma <= 0 {
		return 0.0
	}
	stats := CalculateQueryEntropyStats(query, s.entropyCache(), s.TokenIndex)
	return stats.AvgEntropy
}

func (s *Scorer[K]) entropyCache() *EntropyCache[K] {
	if s.entropy == nil {
		size := s.Config.EntropyCacheSize
		if size <= 0 {
			size = 1000
		}
		s.entropy = NewEntropyCache[K](size)
	}
	return s.entropy
}

// getIDF memoizes IDF by raw document frequency. IDF is a pure function
// of (N, df), so terms sharing a df share an entry. The cache is never
// auto-invalidated on index mutation; callers changing TotalDocuments
// must ClearIDFCache or stale values persist.
func (s *Scorer[K]) getIDF(freq int) float64 {
	if v, ok := s.idfCache[freq]; ok {
		return v
	}
	val := CalculateIDF(float64(s.CorpusStats.TotalDocuments), freq)
	s.idfCache[freq] = val
	return val
}

// WarmIDFCache precomputes IDF for every document frequency currently in
// the index.
func (s *Scorer[K]) WarmIDFCache() {
	for _, docs := range s.TokenIndex {
		for _, meta := range docs {
			s.getIDF(meta.CorpusDocFreq)
			break // df is shared across a term's postings
		}
	}
}

// ClearIDFCache invalidates all memoized IDF values.
func (s *Scorer[K]) ClearIDFCache() {
	s.idfCache = make(map[int]float64)
}

// Stats reports index occupancy.
func (s *Scorer[K]) Stats() ScorerStats {
	termCount := len(s.TokenIndex)
	if s.Frozen != nil {
		termCount += s.Frozen.Len()
	}
	return ScorerStats{
		DocumentCount: len(s.DocumentIndex),
		TermCount:     termCount,
		IDFCacheSize:  len(s.idfCache),
	}
}

func sortResults[K comparable](results []SearchResult[K]) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return fmt.Sprint(results[i].DocID) < fmt.Sprint(results[j].DocID)
	})
}
