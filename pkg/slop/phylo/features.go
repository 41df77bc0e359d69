package phylo

import (
	"github.com/cognicore/slopfx/pkg/slop/canon"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
)

// FeatureMode selects how the feature universe is drawn from the sources.
type FeatureMode string

const (
	// FeaturesGlobal keeps the N words with the highest aggregate score
	// across all included sources.
	FeaturesGlobal FeatureMode = "global"

	// FeaturesPerSource keeps the union of each source's own top-N words.
	FeaturesPerSource FeatureMode = "per_source"
)

// SelectFeatures returns the feature universe for the named sources, ordered
// by aggregate score, then number of sources, then alphabetically. topN <= 0
// keeps every ranked word.
func SelectFeatures(fps map[string]fingerprint.Fingerprint, names []string, topN int, mode FeatureMode) []string {
	var allowed map[string]struct{}
	if mode == FeaturesPerSource && topN > 0 {
		allowed = make(map[string]struct{})
		for _, name := range names {
			words := fps[name].TopRepetitiveWords
			if len(words) > topN {
				words = words[:topN]
			}
			for _, w := range words {
				allowed[w.Word] = struct{}{}
			}
		}
	}

	index := make(map[string]int)
	var terms []canon.Term
	for _, name := range names {
		for _, w := range fps[name].TopRepetitiveWords {
			if allowed != nil {
				if _, ok := allowed[w.Word]; !ok {
					continue
				}
			}
			i, ok := index[w.Word]
			if !ok {
				i = len(terms)
				index[w.Word] = i
				terms = append(terms, canon.Term{Term: w.Word})
			}
			terms[i].Score += w.Score
			terms[i].Sources++
		}
	}
	canon.SortTerms(terms)

	if mode != FeaturesPerSource && topN > 0 && len(terms) > topN {
		terms = terms[:topN]
	}
	out := make([]string, len(terms))
	for i, t := range terms {
		out[i] = t.Term
	}
	return out
}

// Vector returns a source's coordinates over the feature universe: its own
// over-representation score for each feature, 0 where it did not rank it.
func Vector(fp fingerprint.Fingerprint, features []string) []float64 {
	scores := fp.WordScores()
	v := make([]float64, len(features))
	for i, f := range features {
		v[i] = scores[f]
	}
	return v
}
