package search

import (
	"sort"
)

// FusionRanker merges semantic and lexical scores into one ordering.
//
// Lexical scores are min-max normalized over the candidate set (all equal
// gives 0), then fused = Semantic*sem + Lexical*lexNorm. Results are sorted
// by fused score descending with ties broken by ascending document id.
type FusionRanker struct {
	weights Weights
}

// NewFusionRanker creates a ranker with the given weights.
func NewFusionRanker(w Weights) *FusionRanker {
	return &FusionRanker{weights: w}
}

// Weights returns the ranker's weights.
func (r *FusionRanker) Weights() Weights { return r.weights }

// Fuse combines one semantic score and one normalized lexical score.
func (r *FusionRanker) Fuse(semantic, lexicalNormalized float64) float64 {
	return r.weights.Semantic*semantic + r.weights.Lexical*lexicalNormalized
}

// Rank returns at most limit results in final order and whether candidates
// were dropped by the limit. cands is not modified.
func (r *FusionRanker) Rank(cands []ScoredCandidate, limit int) ([]SearchResult, bool) {
	lex := make([]float64, len(cands))
	for i, c := range cands {
		lex[i] = c.Lexical
	}
	norm := normalizeMinMax(lex)

	results := make([]SearchResult, len(cands))
	for i, c := range cands {
		results[i] = SearchResult{
			ID:                c.ID,
			Score:             r.Fuse(c.Semantic, norm[i]),
			Text:              c.Text,
			SourceType:        string(c.SourceType),
			SourceTitle:       c.SourceTitle,
			SourceURL:         c.SourceURL,
			FilePath:          c.FilePath,
			RepoName:          c.RepoName,
			Semantic:          c.Semantic,
			LexicalNormalized: norm[i],
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})

	if limit < 0 {
		limit = 0
	}
	if len(results) > limit {
		return results[:limit], true
	}
	return results, false
}

// normalizeMinMax maps scores onto [0,1]. If every score is equal the
// result is all zeros.
func normalizeMinMax(scores []float64) []float64 {
	out := make([]float64, len(scores))
	if len(scores) == 0 {
		return out
	}
	lo, hi := scores[0], scores[0]
	for _, s := range scores[1:] {
		lo = min(lo, s)
		hi = max(hi, s)
	}
	if hi == lo {
		return out
	}
	span := hi - lo
	for i, s := range scores {
		out[i] = (s - lo) / span
	}
	return out
}
