package resorank

// FieldContribution is one field's share of a term score.
type FieldContribution struct {
	Field        string  `json:"field"`
	TF           int     `json:"tf"`
	Weight       float64 `json:"weight"`
	NormalizedTF float64 `json:"normalizedTf"`
	Contribution float64 `json:"contribution"` // weight * normalizedTf
}

// TermExplanation breaks down one query term's score for a document.
type TermExplanation struct {
	Term string `json:"term"`
	// IDF is the inverse document frequency used for this term.
	IDF float64 `json:"idf"`
	// RawFieldScore is the weighted field sum before saturation.
	RawFieldScore float64 `json:"rawFieldScore"`
	// Saturated is the field sum after the k1 saturation curve.
	Saturated float64 `json:"saturated"`
	// ProximityMultiplier is the per-term local boost (PerTerm strategy
	// only; 1.0 otherwise).
	ProximityMultiplier float64 `json:"proximityMultiplier"`
	// Score is idf * saturated * proximityMultiplier.
	Score  float64             `json:"score"`
	Fields []FieldContribution `json:"fields,omitempty"`
}

// Explanation is the full scoring breakdown for one document. Querying a
// document that was never indexed yields a neutral explanation (zero
// total, unit multipliers) rather than an error.
type Explanation[K comparable] struct {
	DocID      K       `json:"docId"`
	TotalScore float64 `json:"totalScore"`
	// BM25Score is the summed per-term BM25F score before any boost.
	BM25Score float64 `json:"bm25Score"`
	// ProximityMultiplier is the document-level boost from the configured
	// strategy (1.0 for PerTerm, where the boost is folded into terms).
	ProximityMultiplier float64 `json:"proximityMultiplier"`
	// IDFProximityBoost is the rare-term scaling inside the IdfWeighted
	// strategy (1.0 for other strategies).
	IDFProximityBoost float64 `json:"idfProximityBoost"`
	// LengthDecay penalizes proximity evidence found in long documents.
	LengthDecay float64 `json:"lengthDecay"`
	// OverlapCount is the number of segments shared by every matched term.
	OverlapCount int `json:"overlapCount"`
	// PhraseMatched reports strict adjacent-segment ordering of the query.
	PhraseMatched bool `json:"phraseMatched"`
	// PhraseBoost is the multiplier applied for a phrase match (1.0 when
	// disabled or unmatched).
	PhraseBoost float64 `json:"phraseBoost"`
	Terms       []TermExplanation `json:"terms,omitempty"`
}

func neutralExplanation[K comparable](docID K) Explanation[K] {
	return Explanation[K]{
		DocID:               docID,
		ProximityMultiplier: 1.0,
		IDFProximityBoost:   1.0,
		LengthDecay:         1.0,
		PhraseBoost:         1.0,
	}
}
