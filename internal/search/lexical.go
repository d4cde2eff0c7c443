package search

import (
	"github.com/martin-papy/qdrant-loader-mcp-server/internal/store"
)

// LexicalScorer computes BM25 scores for a candidate set. Term statistics
// (document frequency, average length) come from the immutable corpus index;
// term frequency and length come from each candidate's own text, tokenized
// by the same analyzer that built the index.
type LexicalScorer struct {
	corpus *store.CorpusIndex
}

// NewLexicalScorer creates a scorer over corpus.
func NewLexicalScorer(corpus *store.CorpusIndex) *LexicalScorer {
	return &LexicalScorer{corpus: corpus}
}

// Score returns the BM25 score of every document keyed by id. A document
// sharing no term with the query scores 0.
func (s *LexicalScorer) Score(query string, docs []store.Document) map[string]float64 {
	scores := make(map[string]float64, len(docs))
	terms := s.corpus.Analyzer().UniqueTerms(query)

	params := s.corpus.Params()
	avgdl := s.corpus.AvgDocLen()

	idf := make(map[string]float64, len(terms))
	for _, t := range terms {
		idf[t] = s.corpus.IDF(t)
	}

	for _, doc := range docs {
		if len(terms) == 0 {
			scores[doc.ID] = 0
			continue
		}
		tf, dl := s.corpus.Analyzer().TermFrequencies(doc.Text)

		norm := 1.0
		if avgdl > 0 {
			norm = 1 - params.B + params.B*float64(dl)/avgdl
		}

		var score float64
		for _, t := range terms {
			f := float64(tf[t])
			if f == 0 {
				continue
			}
			score += idf[t] * f * (params.K1 + 1) / (f + params.K1*norm)
		}
		scores[doc.ID] = score
	}
	return scores
}
