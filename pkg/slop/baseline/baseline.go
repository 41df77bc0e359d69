// Package baseline supplies the reference distributions that over-representation
// scores are measured against.
package baseline

import (
	"fmt"
	"math"

	"github.com/cognicore/slopfx/pkg/slop/analytics"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// Baseline returns the expected relative frequency of a term.
//
// order is the n-gram order of the term and distinct the number of distinct
// terms of that order observed in the source being profiled. Implementations
// must return a value > 0 for every term they are asked about.
type Baseline interface {
	Expected(term string, order int, distinct int) float64
}

// Uniform expects every distinct term of a source to be equally likely, so a
// term's score is its count relative to the mean count of its order.
type Uniform struct{}

// Expected implements Baseline.
func (Uniform) Expected(_ string, _ int, distinct int) float64 {
	if distinct <= 0 {
		return 1
	}
	return 1 / float64(distinct)
}

// DefaultFloor is the expected frequency assigned to terms missing from a
// Table without a fallback.
const DefaultFloor = 1e-6

// Table is a fixed reference distribution, typically corpus-wide word
// frequencies. Terms not in Freq use Fallback when set, otherwise Floor.
type Table struct {
	Freq     map[string]float64
	Floor    float64
	Fallback Baseline
}

// Expected implements Baseline.
func (t *Table) Expected(term string, order int, distinct int) float64 {
	if f, ok := t.Freq[term]; ok && f > 0 {
		return f
	}
	if t.Fallback != nil {
		return t.Fallback.Expected(term, order, distinct)
	}
	if t.Floor > 0 {
		return t.Floor
	}
	return DefaultFloor
}

// Validate rejects negative or non-finite frequencies.
func (t *Table) Validate() error {
	if t.Floor < 0 || math.IsNaN(t.Floor) || math.IsInf(t.Floor, 0) {
		return fmt.Errorf("%w: baseline floor %v", internalerr.ErrInvalidConfig, t.Floor)
	}
	for term, f := range t.Freq {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: baseline frequency for %q is %v", internalerr.ErrInvalidConfig, term, f)
		}
	}
	return nil
}

// FromCorpus builds a background distribution from reference corpus counts.
// Relative frequencies are add-k smoothed per order; unseen terms receive the
// smoothed mass of a zero count for their order.
func FromCorpus(corpus []analytics.Stats, smoothing float64) *Table {
	if smoothing <= 0 {
		smoothing = 1
	}

	var totals [analytics.MaxOrder + 1]float64
	counts := make([]map[string]float64, analytics.MaxOrder+1)
	for n := 1; n <= analytics.MaxOrder; n++ {
		counts[n] = make(map[string]float64)
	}
	for _, s := range corpus {
		for n := 1; n <= analytics.MaxOrder; n++ {
			totals[n] += float64(s.Total(n))
			for term, c := range s.Counts[n] {
				counts[n][term] += float64(c)
			}
		}
	}

	freq := make(map[string]float64)
	unseen := make(map[int]float64, analytics.MaxOrder)
	for n := 1; n <= analytics.MaxOrder; n++ {
		vocab := float64(len(counts[n]) + 1)
		denom := totals[n] + smoothing*vocab
		for term, c := range counts[n] {
			freq[term] = (c + smoothing) / denom
		}
		unseen[n] = smoothing / denom
	}

	return &Table{Freq: freq, Fallback: unseenMass(unseen)}
}

// unseenMass returns the smoothed frequency of a zero-count term by order.
type unseenMass map[int]float64

func (u unseenMass) Expected(_ string, order int, _ int) float64 {
	if f, ok := u[order]; ok && f > 0 {
		return f
	}
	return DefaultFloor
}
