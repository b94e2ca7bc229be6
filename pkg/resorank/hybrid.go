package resorank

// Hybrid scoring mixes BM25F text relevance with embedding similarity.
// BM25 scores are unbounded while cosine lives in 0..1, so the cosine
// side is stretched by Config.VectorScale before the linear mix:
//
//	final = (1-alpha)*bm25 + alpha*cosine*vectorScale
//
// VectorAlpha 0 keeps scoring purely textual.

// AttachANN installs an approximate-nearest-neighbor index used by
// SearchHybrid for vector-side candidate generation. Without one,
// SearchHybrid falls back to scanning every indexed document, which is
// fine for the entity-resolver scale this engine started at.
func (s *Scorer[K]) AttachANN(idx *ANNIndex[K]) {
	s.ann = idx
}

// ScoreHybrid scores one document against both a term query and a query
// vector. Either side may be empty; a missing document embedding drops
// the vector side to zero.
func (s *Scorer[K]) ScoreHybrid(query []string, queryVector []float32, docID K) float64 {
	textScore := 0.0
	if len(query) > 0 {
		textScore = s.Score(query, docID)
	}

	alpha := s.Config.VectorAlpha
	if alpha == 0 || len(queryVector) == 0 {
		return textScore
	}

	docMeta, ok := s.DocumentIndex[docID]
	if !ok {
		return 0.0
	}

	vectorScore := 0.0
	if len(docMeta.Embedding) > 0 {
		vectorScore = CosineSimilarity(queryVector, docMeta.Embedding)
		if vectorScore < 0 {
			vectorScore = 0
		}
	}

	return (1.0-alpha)*textScore + alpha*vectorScore*s.Config.VectorScale
}

// SearchHybrid unions text candidates (docs containing any query term)
// with vector candidates and ranks by ScoreHybrid. Zero-score results
// are dropped.
func (s *Scorer[K]) SearchHybrid(query []string, queryVector []float32, limit int) []SearchResult[K] {
	if limit <= 0 {
		limit = 10
	}

	cands := s.candidates(query)

	if len(queryVector) > 0 {
		if s.ann != nil {
			for _, docID := range s.ann.Search(queryVector, limit*2) {
				cands[docID] = struct{}{}
			}
		} else {
			// Brute-force fallback: every doc is a vector candidate.
			for docID := range s.DocumentIndex {
				cands[docID] = struct{}{}
			}
		}
	}

	results := make([]SearchResult[K], 0, len(cands))
	for docID := range cands {
		score := s.ScoreHybrid(query, queryVector, docID)
		if score > 0 {
			results = append(results, SearchResult[K]{DocID: docID, Score: score})
		}
	}

	sortResults(results)
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
