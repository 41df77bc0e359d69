package baseline

import (
	"errors"
	"math"
	"testing"

	"github.com/cognicore/slopfx/pkg/slop/analytics"
	"github.com/cognicore/slopfx/pkg/slop/ingest"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

func TestUniform(t *testing.T) {
	var b Uniform
	if got := b.Expected("x", 1, 4); got != 0.25 {
		t.Errorf("got %v, want 0.25", got)
	}
	if got := b.Expected("x", 1, 0); got != 1 {
		t.Errorf("zero vocabulary should not divide by zero, got %v", got)
	}
}

func TestTableLookupAndFallback(t *testing.T) {
	table := &Table{Freq: map[string]float64{"the": 0.05}, Floor: 1e-4}
	if got := table.Expected("the", 1, 10); got != 0.05 {
		t.Errorf("the: got %v", got)
	}
	if got := table.Expected("delve", 1, 10); got != 1e-4 {
		t.Errorf("floor: got %v", got)
	}

	table.Fallback = Uniform{}
	if got := table.Expected("delve", 1, 10); got != 0.1 {
		t.Errorf("fallback: got %v", got)
	}

	empty := &Table{}
	if got := empty.Expected("x", 1, 1); got != DefaultFloor {
		t.Errorf("default floor: got %v", got)
	}
}

func TestTableValidate(t *testing.T) {
	tests := []struct {
		name  string
		table Table
		ok    bool
	}{
		{"valid", Table{Freq: map[string]float64{"a": 0.1}, Floor: 0.001}, true},
		{"negative frequency", Table{Freq: map[string]float64{"a": -1}}, false},
		{"nan frequency", Table{Freq: map[string]float64{"a": math.NaN()}}, false},
		{"negative floor", Table{Floor: -0.5}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.table.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestFromCorpus(t *testing.T) {
	tok := ingest.NewTokenizer(ingest.TokenizerOptions{})
	c := analytics.NewCounter()
	for _, s := range []string{"the cat sat", "the dog sat"} {
		c.Process(s, tok.Analyze(s))
	}

	table := FromCorpus([]analytics.Stats{c.Snapshot()}, 1)

	// 6 words, 4 distinct (+1 unseen slot): denom = 6 + 5 = 11.
	if got, want := table.Expected("the", 1, 0), 3.0/11.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("the: got %v, want %v", got, want)
	}
	if got, want := table.Expected("unseen", 1, 0), 1.0/11.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("unseen word: got %v, want %v", got, want)
	}
	if table.Expected("the cat", 2, 0) <= table.Expected("never seen", 2, 0) {
		t.Error("seen bigram should be more expected than unseen bigram")
	}
	if err := table.Validate(); err != nil {
		t.Errorf("corpus table should validate: %v", err)
	}
}
