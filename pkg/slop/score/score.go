package score

import (
	"fmt"
	"math"

	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// Combiner folds a source's repetition score and vocabulary complexity into a
// single slop score. Implementations must return a value >= 0 for
// repetition >= 0 and vocab in [0,1].
type Combiner interface {
	Combine(repetition, vocab float64) float64
}

// Func adapts an ordinary function to Combiner.
type Func func(repetition, vocab float64) float64

// Combine implements Combiner.
func (f Func) Combine(repetition, vocab float64) float64 {
	return f(repetition, vocab)
}

// Weighted is the default combiner:
//
//	slop = RepetitionWeight·repetition + VocabWeight·(1 - vocab)
//
// A richer vocabulary lowers the score, all else equal.
type Weighted struct {
	RepetitionWeight float64 `yaml:"repetition_weight" json:"repetition_weight"`
	VocabWeight      float64 `yaml:"vocab_weight" json:"vocab_weight"`
}

// DefaultWeights returns equal weighting of both signals.
func DefaultWeights() Weighted {
	return Weighted{RepetitionWeight: 1.0, VocabWeight: 1.0}
}

// Combine implements Combiner.
func (w Weighted) Combine(repetition, vocab float64) float64 {
	if vocab < 0 {
		vocab = 0
	} else if vocab > 1 {
		vocab = 1
	}
	if repetition < 0 {
		repetition = 0
	}
	return w.RepetitionWeight*repetition + w.VocabWeight*(1-vocab)
}

// Validate rejects weights that could produce a negative score.
func (w Weighted) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"repetition_weight", w.RepetitionWeight},
		{"vocab_weight", w.VocabWeight},
	}
	for _, f := range fields {
		name, v := f.name, f.v
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a finite value >= 0, got %v", internalerr.ErrInvalidConfig, name, v)
		}
	}
	return nil
}

// Repetition aggregates the top-K over-representation scores of each n-gram
// order: the mean of the per-order means, over orders that produced any term.
// Scores are already normalized by source size, so the result is comparable
// across sources of different lengths.
func Repetition(orders ...[]float64) float64 {
	var sum float64
	var used int
	for _, scores := range orders {
		if len(scores) == 0 {
			continue
		}
		var total float64
		for _, s := range scores {
			total += s
		}
		sum += total / float64(len(scores))
		used++
	}
	if used == 0 {
		return 0
	}
	return sum / float64(used)
}
