// Package fingerprint defines the statistical profile of one text source and
// the validation applied before downstream stages consume it.
package fingerprint

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// WordScore is an over-represented word.
type WordScore struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
	Count int64   `json:"count,omitempty"`
}

// NGramScore is an over-represented bigram or trigram, words joined by a space.
type NGramScore struct {
	NGram string  `json:"ngram"`
	Score float64 `json:"score"`
	Count int64   `json:"count,omitempty"`
}

// Fingerprint is the statistical profile of one source. Field names are fixed
// for persistence compatibility.
type Fingerprint struct {
	Model              string       `json:"model,omitempty"`
	NumSentences       int64        `json:"num_sentences,omitempty"`
	TotalTokens        int64        `json:"total_tokens,omitempty"`
	UniqueTokens       int64        `json:"unique_tokens,omitempty"`
	AvgLength          float64      `json:"avg_length"`
	VocabComplexity    float64      `json:"vocab_complexity"`
	RepetitionScore    float64      `json:"repetition_score"`
	SlopScore          float64      `json:"slop_score"`
	TopRepetitiveWords []WordScore  `json:"top_repetitive_words"`
	TopBigrams         []NGramScore `json:"top_bigrams"`
	TopTrigrams        []NGramScore `json:"top_trigrams"`
	AnalysisTimestamp  time.Time    `json:"analysis_timestamp"`
}

// Scored is a (term, score) pair of any n-gram order.
type Scored struct {
	Term  string
	Score float64
}

// Ranked returns the ranked list of the given order (1 words, 2 bigrams,
// 3 trigrams) as generic pairs. Unknown orders return nil.
func (f *Fingerprint) Ranked(order int) []Scored {
	switch order {
	case 1:
		out := make([]Scored, len(f.TopRepetitiveWords))
		for i, w := range f.TopRepetitiveWords {
			out[i] = Scored{Term: w.Word, Score: w.Score}
		}
		return out
	case 2:
		return ngramPairs(f.TopBigrams)
	case 3:
		return ngramPairs(f.TopTrigrams)
	}
	return nil
}

func ngramPairs(list []NGramScore) []Scored {
	out := make([]Scored, len(list))
	for i, g := range list {
		out[i] = Scored{Term: g.NGram, Score: g.Score}
	}
	return out
}

// WordScores returns the word list as a term -> score map.
func (f *Fingerprint) WordScores() map[string]float64 {
	out := make(map[string]float64, len(f.TopRepetitiveWords))
	for _, w := range f.TopRepetitiveWords {
		out[w.Word] = w.Score
	}
	return out
}

// Validate checks that every required field is present and consistent.
// It returns an error wrapping internalerr.ErrMalformedFingerprint.
func (f *Fingerprint) Validate() error {
	if f == nil {
		return malformed("nil fingerprint")
	}
	if f.TopRepetitiveWords == nil {
		return malformed("missing top_repetitive_words")
	}
	if f.TopBigrams == nil {
		return malformed("missing top_bigrams")
	}
	if f.TopTrigrams == nil {
		return malformed("missing top_trigrams")
	}
	if f.AnalysisTimestamp.IsZero() {
		return malformed("missing analysis_timestamp")
	}

	if !nonNegative(f.AvgLength) {
		return malformed("avg_length %v", f.AvgLength)
	}
	if !nonNegative(f.RepetitionScore) {
		return malformed("repetition_score %v", f.RepetitionScore)
	}
	if !nonNegative(f.SlopScore) {
		return malformed("slop_score %v", f.SlopScore)
	}
	if math.IsNaN(f.VocabComplexity) || f.VocabComplexity < 0 || f.VocabComplexity > 1 {
		return malformed("vocab_complexity %v outside [0,1]", f.VocabComplexity)
	}

	names := map[int]string{1: "top_repetitive_words", 2: "top_bigrams", 3: "top_trigrams"}
	for order := 1; order <= 3; order++ {
		if err := validateList(names[order], order, f.Ranked(order)); err != nil {
			return err
		}
	}
	return nil
}

func validateList(name string, order int, list []Scored) error {
	seen := make(map[string]struct{}, len(list))
	for i, s := range list {
		if strings.TrimSpace(s.Term) == "" {
			return malformed("%s[%d]: empty term", name, i)
		}
		if got := len(strings.Fields(s.Term)); got != order {
			return malformed("%s[%d]: %q has %d words, want %d", name, i, s.Term, got, order)
		}
		if _, dup := seen[s.Term]; dup {
			return malformed("%s[%d]: duplicate term %q", name, i, s.Term)
		}
		seen[s.Term] = struct{}{}
		if !nonNegative(s.Score) {
			return malformed("%s[%d]: score %v", name, i, s.Score)
		}
		if i > 0 && s.Score > list[i-1].Score {
			return malformed("%s[%d]: not sorted by descending score", name, i)
		}
	}
	return nil
}

func nonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", internalerr.ErrMalformedFingerprint, fmt.Sprintf(format, args...))
}

// Decode reads one JSON fingerprint and validates it. Missing list fields are
// reported as malformed rather than treated as empty.
func Decode(r io.Reader) (Fingerprint, error) {
	var f Fingerprint
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return Fingerprint{}, fmt.Errorf("%w: %v", internalerr.ErrMalformedFingerprint, err)
	}
	if err := f.Validate(); err != nil {
		return Fingerprint{}, err
	}
	return f, nil
}

// ValidateAll validates every fingerprint of a mapping, naming the offending
// source in the error.
func ValidateAll(fps map[string]Fingerprint) error {
	for _, name := range SortedNames(fps) {
		fp := fps[name]
		if err := fp.Validate(); err != nil {
			return fmt.Errorf("source %q: %w", name, err)
		}
	}
	return nil
}
