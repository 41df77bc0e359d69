// Package profile turns a source's sentences into a fingerprint.
package profile

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/slopfx/pkg/slop/analytics"
	"github.com/cognicore/slopfx/pkg/slop/baseline"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/ingest"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
	"github.com/cognicore/slopfx/pkg/slop/score"
)

const (
	// DefaultTopK is the ranked list length used when Options.TopK is unset.
	DefaultTopK = 100

	// DefaultMinCount ranks every term that occurs at least once.
	DefaultMinCount = 1
)

// Source is a named collection of sentences, e.g. the outputs of one model.
type Source struct {
	Name      string
	Sentences []string
}

// Options configures a Profiler. Zero values select defaults.
type Options struct {
	Tokenizer *ingest.Tokenizer
	Baseline  baseline.Baseline
	Combiner  score.Combiner
	TopK      int
	MinCount  int64
	Clock     func() time.Time
}

// Profiler computes fingerprints. It holds no mutable state and is safe for
// concurrent use.
type Profiler struct {
	tokenizer *ingest.Tokenizer
	baseline  baseline.Baseline
	combiner  score.Combiner
	topK      int
	minCount  int64
	clock     func() time.Time
}

// New creates a profiler, filling unset options with defaults.
func New(opts Options) *Profiler {
	p := &Profiler{
		tokenizer: opts.Tokenizer,
		baseline:  opts.Baseline,
		combiner:  opts.Combiner,
		topK:      opts.TopK,
		minCount:  opts.MinCount,
		clock:     opts.Clock,
	}
	if p.tokenizer == nil {
		p.tokenizer = ingest.NewTokenizer(ingest.TokenizerOptions{})
	}
	if p.baseline == nil {
		p.baseline = baseline.Uniform{}
	}
	if p.combiner == nil {
		p.combiner = score.DefaultWeights()
	}
	if p.topK <= 0 {
		p.topK = DefaultTopK
	}
	if p.minCount <= 0 {
		p.minCount = DefaultMinCount
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	return p
}

// Profile computes the fingerprint of one source.
//
// A source without sentences, or whose sentences contain no tokens, fails
// with internalerr.ErrEmptyInput instead of producing zero-valued metrics.
func (p *Profiler) Profile(src Source) (fingerprint.Fingerprint, error) {
	if len(src.Sentences) == 0 {
		return fingerprint.Fingerprint{}, fmt.Errorf("%w: source %q has no sentences", internalerr.ErrEmptyInput, src.Name)
	}

	counter := analytics.NewCounter()
	for _, sentence := range src.Sentences {
		counter.Process(sentence, p.tokenizer.Analyze(sentence))
	}
	stats := counter.Snapshot()
	if stats.Total(1) == 0 {
		return fingerprint.Fingerprint{}, fmt.Errorf("%w: source %q has no tokens", internalerr.ErrEmptyInput, src.Name)
	}

	words := p.rank(stats, 1)
	bigrams := p.rank(stats, 2)
	trigrams := p.rank(stats, 3)

	vocab := stats.TypeTokenRatio()
	repetition := score.Repetition(scoresOf(words), scoresOf(bigrams), scoresOf(trigrams))
	slop := p.combiner.Combine(repetition, vocab)
	if slop < 0 {
		slop = 0
	}

	fp := fingerprint.Fingerprint{
		Model:              src.Name,
		NumSentences:       stats.Sentences,
		TotalTokens:        stats.Total(1),
		UniqueTokens:       int64(stats.Distinct(1)),
		AvgLength:          stats.AvgLength(),
		VocabComplexity:    vocab,
		RepetitionScore:    repetition,
		SlopScore:          slop,
		TopRepetitiveWords: make([]fingerprint.WordScore, 0, len(words)),
		TopBigrams:         make([]fingerprint.NGramScore, 0, len(bigrams)),
		TopTrigrams:        make([]fingerprint.NGramScore, 0, len(trigrams)),
		AnalysisTimestamp:  p.clock().UTC(),
	}
	for _, w := range words {
		fp.TopRepetitiveWords = append(fp.TopRepetitiveWords, fingerprint.WordScore{Word: w.term, Score: w.score, Count: w.count})
	}
	for _, g := range bigrams {
		fp.TopBigrams = append(fp.TopBigrams, fingerprint.NGramScore{NGram: g.term, Score: g.score, Count: g.count})
	}
	for _, g := range trigrams {
		fp.TopTrigrams = append(fp.TopTrigrams, fingerprint.NGramScore{NGram: g.term, Score: g.score, Count: g.count})
	}
	return fp, nil
}

type ranked struct {
	term  string
	score float64
	count int64
}

// rank scores every term of an order against the baseline and returns the
// top-K, descending by score. Ties keep first-seen order.
//
//	score(t) = (count(t) / N) / expected(t)
func (p *Profiler) rank(stats analytics.Stats, order int) []ranked {
	total := stats.Total(order)
	if total == 0 {
		return nil
	}
	distinct := stats.Distinct(order)

	terms := stats.Ranked(order)
	out := make([]ranked, 0, len(terms))
	for _, tc := range terms {
		if tc.Count < p.minCount {
			continue
		}
		expected := p.baseline.Expected(tc.Term, order, distinct)
		if expected <= 0 {
			expected = baseline.DefaultFloor
		}
		observed := float64(tc.Count) / float64(total)
		out = append(out, ranked{term: tc.Term, score: observed / expected, count: tc.Count})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	if len(out) > p.topK {
		out = out[:p.topK]
	}
	return out
}

func scoresOf(list []ranked) []float64 {
	out := make([]float64, len(list))
	for i, r := range list {
		out[i] = r.score
	}
	return out
}

// Validate checks a source before profiling.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: source name is required", internalerr.ErrEmptyInput)
	}
	if len(s.Sentences) == 0 {
		return fmt.Errorf("%w: source %q has no sentences", internalerr.ErrEmptyInput, s.Name)
	}
	return nil
}
