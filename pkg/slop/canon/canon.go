// Package canon reduces many per-source fingerprints into canonical slop
// lists: terms that are over-represented in several sources but not in all
// of them.
package canon

import (
	"fmt"
	"sort"

	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// Options configures canonicalization.
type Options struct {
	// MaxItemsPerSource caps how many entries of each source's ranked list
	// are considered. 0 considers the whole list.
	MaxItemsPerSource int `yaml:"max_items_per_source" json:"max_items_per_source"`

	// Limit caps the length of each emitted list. 0 emits every term.
	Limit int `yaml:"limit" json:"limit"`
}

// Term is one canonical slop entry.
type Term struct {
	Term    string  `json:"term"`
	Score   float64 `json:"score"`   // sum of per-source scores
	Sources int     `json:"sources"` // number of sources ranking the term
}

// SlopLists holds one canonical list per n-gram order.
type SlopLists struct {
	Words    []Term `json:"words"`
	Bigrams  []Term `json:"bigrams"`
	Trigrams []Term `json:"trigrams"`

	// Generic lists, per order, the terms dropped because every source
	// ranked them. Sorted alphabetically.
	Generic map[int][]string `json:"generic,omitempty"`
}

// Order returns the list of the given n-gram order.
func (l SlopLists) Order(n int) []Term {
	switch n {
	case 1:
		return l.Words
	case 2:
		return l.Bigrams
	case 3:
		return l.Trigrams
	}
	return nil
}

// WordList returns the canonical words without scores.
func (l SlopLists) WordList() []string { return terms(l.Words) }

// BigramList returns the canonical bigrams without scores.
func (l SlopLists) BigramList() []string { return terms(l.Bigrams) }

// TrigramList returns the canonical trigrams without scores.
func (l SlopLists) TrigramList() []string { return terms(l.Trigrams) }

func terms(list []Term) []string {
	out := make([]string, len(list))
	for i, t := range list {
		out[i] = t.Term
	}
	return out
}

// Canonicalize builds the canonical slop lists.
//
// With a single source, that source's (capped) ranked lists are returned
// verbatim. With more sources, a term's canonical score is the sum of its
// per-source scores, so terms shared by several sources outrank terms seen
// in only one; terms ranked by every source are removed as generic. Lists are
// ordered by score, then by number of sources, then alphabetically.
func Canonicalize(fps map[string]fingerprint.Fingerprint, opts Options) (SlopLists, error) {
	if len(fps) == 0 {
		return SlopLists{}, fmt.Errorf("%w: no fingerprints to canonicalize", internalerr.ErrEmptyInput)
	}
	if err := fingerprint.ValidateAll(fps); err != nil {
		return SlopLists{}, err
	}
	if opts.MaxItemsPerSource < 0 || opts.Limit < 0 {
		return SlopLists{}, fmt.Errorf("%w: negative canonicalization limit", internalerr.ErrInvalidConfig)
	}

	names := fingerprint.SortedNames(fps)
	lists := SlopLists{Generic: make(map[int][]string)}
	for order := 1; order <= 3; order++ {
		var ranked []Term
		var generic []string
		if len(names) == 1 {
			ranked = single(fps[names[0]], order, opts.MaxItemsPerSource)
		} else {
			ranked, generic = combine(fps, names, order, opts.MaxItemsPerSource)
		}
		if opts.Limit > 0 && len(ranked) > opts.Limit {
			ranked = ranked[:opts.Limit]
		}
		if len(generic) > 0 {
			lists.Generic[order] = generic
		}
		switch order {
		case 1:
			lists.Words = ranked
		case 2:
			lists.Bigrams = ranked
		case 3:
			lists.Trigrams = ranked
		}
	}
	return lists, nil
}

func single(fp fingerprint.Fingerprint, order, maxItems int) []Term {
	list := capList(fp.Ranked(order), maxItems)
	out := make([]Term, len(list))
	for i, s := range list {
		out[i] = Term{Term: s.Term, Score: s.Score, Sources: 1}
	}
	return out
}

type aggregate struct {
	score   float64
	sources int
}

func combine(fps map[string]fingerprint.Fingerprint, names []string, order, maxItems int) ([]Term, []string) {
	agg := make(map[string]*aggregate)
	for _, name := range names {
		fp := fps[name]
		for _, s := range capList(fp.Ranked(order), maxItems) {
			a, ok := agg[s.Term]
			if !ok {
				a = &aggregate{}
				agg[s.Term] = a
			}
			a.score += s.Score
			a.sources++
		}
	}

	var out []Term
	var generic []string
	for term, a := range agg {
		if a.sources == len(names) {
			generic = append(generic, term)
			continue
		}
		out = append(out, Term{Term: term, Score: a.score, Sources: a.sources})
	}
	SortTerms(out)
	sort.Strings(generic)
	if out == nil {
		out = []Term{}
	}
	return out, generic
}

// SortTerms orders terms by score descending, then by number of sources
// descending, then alphabetically.
func SortTerms(list []Term) {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		if list[i].Sources != list[j].Sources {
			return list[i].Sources > list[j].Sources
		}
		return list[i].Term < list[j].Term
	})
}

func capList(list []fingerprint.Scored, maxItems int) []fingerprint.Scored {
	if maxItems > 0 && len(list) > maxItems {
		return list[:maxItems]
	}
	return list
}
