package resorank

// IncrementalScorer accumulates scores one query term at a time without a
// resident inverted index, e.g. when per-term statistics stream in from
// federated shards. Usage per query:
//
//	for each term:
//	    feed AddFieldContribution for every (doc, field) carrying the term
//	    FinalizeTerm(corpusDocFrequency)
//	    NextTerm() before the next term, if any
//	scores := inc.GetScores(strategy)
//
// The PerTerm strategy cannot be expressed in this accumulator shape
// (the local multiplier has to be applied while a term's contribution is
// accumulated, before later terms arrive) and is treated as a no-op:
// GetScores applies a neutral multiplier for it.
//
// Entropy-augmented normalization is likewise unavailable here since there
// is no token index to derive entropy from; EntropyGamma is ignored.
type IncrementalScorer[K comparable] struct {
	Config      ResoRankConfig
	CorpusStats CorpusStatistics

	termIndex int
	termIDFs  []float64
	accs      map[K]*incrementalAccumulator
	idfCache  map[int]float64
}

type incrementalFieldContribution struct {
	field    string
	tf       int
	fieldLen int
}

type incrementalAccumulator struct {
	score   float64
	docLen  int
	masks   []uint32
	matched []bool
	pending []incrementalFieldContribution
}

// NewIncrementalScorer creates an accumulator-based scorer or rejects an
// invalid config. The cursor starts at term 0.
func NewIncrementalScorer[K comparable](config ResoRankConfig) (*IncrementalScorer[K], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &IncrementalScorer[K]{
		Config:      config,
		CorpusStats: CorpusStatistics{AverageFieldLengths: make(map[string]float64)},
		accs:        make(map[K]*incrementalAccumulator),
		idfCache:    make(map[int]float64),
	}, nil
}

// NextTerm advances the term-position cursor.
func (s *IncrementalScorer[K]) NextTerm() {
	s.termIndex++
}

// AddFieldContribution records one field's statistics for the current term
// in the given document. Per-document accumulator arrays grow lazily to
// the current term index.
func (s *IncrementalScorer[K]) AddFieldContribution(docID K, field string, tf int, fieldLen int, segmentMask uint32, documentLength int) {
	acc, ok := s.accs[docID]
	if !ok {
		acc = &incrementalAccumulator{}
		s.accs[docID] = acc
	}
	acc.docLen = documentLength

	for len(acc.masks) <= s.termIndex {
		acc.masks = append(acc.masks, 0)
		acc.matched = append(acc.matched, false)
	}
	acc.masks[s.termIndex] |= segmentMask
	acc.matched[s.termIndex] = true

	acc.pending = append(acc.pending, incrementalFieldContribution{field: field, tf: tf, fieldLen: fieldLen})
}

// FinalizeTerm folds the current term's BM25F score into every document
// that received a contribution for it, recording the IDF used.
func (s *IncrementalScorer[K]) FinalizeTerm(corpusDocFrequency int) {
	idf := s.getIDF(corpusDocFrequency)

	for len(s.termIDFs) <= s.termIndex {
		s.termIDFs = append(s.termIDFs, 0)
	}
	s.termIDFs[s.termIndex] = idf

	for _, acc := range s.accs {
		if len(acc.pending) == 0 {
			continue
		}

		weightedFreq := 0.0
		for _, fc := range acc.pending {
			weight := 1.0
			b := s.Config.B
			if p, ok := s.Config.FieldParams[fc.field]; ok {
				weight = p.Weight
				b = p.B
			} else if w, ok := s.Config.FieldWeights[fc.field]; ok {
				weight = w
			}

			avgLen := s.CorpusStats.AverageFieldLengths[fc.field]
			weightedFreq += weight * NormalizedTermFrequency(fc.tf, fc.fieldLen, avgLen, b)
		}

		acc.score += idf * Saturate(weightedFreq, s.Config.K1)
		acc.pending = acc.pending[:0]
	}
}

// GetScores applies the chosen proximity strategy over the accumulated
// per-term masks and returns final scores, omitting zero-scoring docs.
func (s *IncrementalScorer[K]) GetScores(strategy ProximityStrategy) map[K]float64 {
	result := make(map[K]float64)
	for docID, acc := range s.accs {
		if score := s.finalScore(acc, strategy).TotalScore; score > 0 {
			result[docID] = score
		}
	}
	return result
}

// GetScoresWithExplanations mirrors GetScores with full breakdowns. Term
// strings are unknown at this layer, so per-term field contributions are
// not reported.
func (s *IncrementalScorer[K]) GetScoresWithExplanations(strategy ProximityStrategy) map[K]Explanation[K] {
	result := make(map[K]Explanation[K])
	for docID, acc := range s.accs {
		exp := s.finalScore(acc, strategy)
		if exp.TotalScore > 0 {
			exp.DocID = docID
			result[docID] = exp
		}
	}
	return result
}

// Reset clears all per-document accumulators and rewinds the term cursor.
// The IDF cache survives; corpus statistics have not changed.
func (s *IncrementalScorer[K]) Reset() {
	s.accs = make(map[K]*incrementalAccumulator)
	s.termIndex = 0
	s.termIDFs = nil
}

func (s *IncrementalScorer[K]) getIDF(freq int) float64 {
	if v, ok := s.idfCache[freq]; ok {
		return v
	}
	val := CalculateIDF(float64(s.CorpusStats.TotalDocuments), freq)
	s.idfCache[freq] = val
	return val
}

func (s *IncrementalScorer[K]) finalScore(acc *incrementalAccumulator, strategy ProximityStrategy) Explanation[K] {
	var zero K
	exp := neutralExplanation(zero)
	exp.BM25Score = acc.score

	var masks []uint32
	var termData []TermWithIDF
	for i, m := range acc.matched {
		if m {
			masks = append(masks, acc.masks[i])
			termData = append(termData, TermWithIDF{acc.masks[i], s.termIDFs[i]})
		}
	}

	pb := neutralProximity()
	switch strategy {
	case ProximityGlobal:
		pb = globalProximity(masks, s.Config.ProximityAlpha, s.Config.MaxSegments,
			acc.docLen, s.CorpusStats.AverageDocLength, s.Config.ProximityDecay)
	case ProximityIDFWeighted:
		pb = idfWeightedProximity(termData, s.Config.ProximityAlpha, s.Config.MaxSegments,
			acc.docLen, s.CorpusStats.AverageDocLength, s.Config.ProximityDecay, s.Config.IDFScale)
	case ProximityPairwise:
		pb.Multiplier = PairwiseProximityBonus(masks, s.Config.ProximityAlpha, s.Config.MaxSegments)
	case ProximityPerTerm:
		// unsupported in accumulator form, neutral by contract
	}

	total := acc.score * pb.Multiplier

	exp.ProximityMultiplier = pb.Multiplier
	exp.IDFProximityBoost = pb.IDFBoost
	exp.LengthDecay = pb.Decay
	exp.OverlapCount = pb.Overlap

	if s.Config.PhraseBoost && s.phraseMatch(acc) {
		exp.PhraseMatched = true
		exp.PhraseBoost = s.Config.PhraseBoostFactor
		total *= s.Config.PhraseBoostFactor
	}

	exp.TotalScore = total
	return exp
}

// phraseMatch is the positional twin of DetectPhraseMatch: every query
// term must be present and each consecutive pair must sit in strictly
// adjacent segments.
func (s *IncrementalScorer[K]) phraseMatch(acc *incrementalAccumulator) bool {
	termCount := len(s.termIDFs)
	if termCount < 2 || len(acc.masks) < termCount {
		return false
	}
	for i := 0; i < termCount-1; i++ {
		if !acc.matched[i] || !acc.matched[i+1] {
			return false
		}
		if (acc.masks[i]<<1)&acc.masks[i+1] == 0 {
			return false
		}
	}
	return true
}
