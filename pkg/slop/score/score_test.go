package score

import (
	"errors"
	"math"
	"testing"

	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

func TestWeightedCombine(t *testing.T) {
	w := DefaultWeights()

	tests := []struct {
		name       string
		repetition float64
		vocab      float64
		want       float64
	}{
		{"rich vocabulary", 2, 1, 2},
		{"poor vocabulary", 2, 0, 3},
		{"halfway", 1, 0.5, 1.5},
		{"clamped inputs", -1, 1.5, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := w.Combine(tc.repetition, tc.vocab); math.Abs(got-tc.want) > 1e-12 {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWeightedVocabLowersScore(t *testing.T) {
	w := Weighted{RepetitionWeight: 0.5, VocabWeight: 2}
	if w.Combine(1, 0.9) >= w.Combine(1, 0.3) {
		t.Error("richer vocabulary should lower the slop score")
	}
}

func TestWeightedValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights invalid: %v", err)
	}
	bad := []Weighted{
		{RepetitionWeight: -1, VocabWeight: 1},
		{RepetitionWeight: 1, VocabWeight: math.Inf(1)},
		{RepetitionWeight: math.NaN(), VocabWeight: 1},
	}
	for _, w := range bad {
		if err := w.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
			t.Errorf("%+v: expected ErrInvalidConfig, got %v", w, err)
		}
	}
}

func TestFuncCombiner(t *testing.T) {
	var c Combiner = Func(func(r, v float64) float64 { return r * 10 })
	if got := c.Combine(0.5, 0.2); got != 5 {
		t.Errorf("got %v, want 5", got)
	}
}

func TestRepetition(t *testing.T) {
	if got := Repetition(); got != 0 {
		t.Errorf("no orders: got %v", got)
	}
	if got := Repetition(nil, []float64{}); got != 0 {
		t.Errorf("empty orders: got %v", got)
	}
	// words mean 2, bigrams mean 4, trigrams absent: (2+4)/2
	if got := Repetition([]float64{3, 1}, []float64{4}, nil); math.Abs(got-3) > 1e-12 {
		t.Errorf("got %v, want 3", got)
	}
}
