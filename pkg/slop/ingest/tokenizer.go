package ingest

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// TokenizerOptions controls normalization and filtering.
type TokenizerOptions struct {
	Stopwords         []string // dropped after normalization
	MinLength         int      // minimum rune length of a kept token (default 1)
	DropNumeric       bool     // drop tokens made only of digits and hyphens
	SplitContractions bool     // treat apostrophes as separators ("it's" -> "it", "s")
}

// Tokenizer handles text tokenization and normalization
type Tokenizer struct {
	stopwords map[string]struct{}
	minLength int
	dropNum   bool
	splitApos bool
}

// NewTokenizer creates a tokenizer with the given options
func NewTokenizer(opts TokenizerOptions) *Tokenizer {
	stops := make(map[string]struct{}, len(opts.Stopwords))
	for _, w := range opts.Stopwords {
		stops[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	minLen := opts.MinLength
	if minLen < 1 {
		minLen = 1
	}
	return &Tokenizer{
		stopwords: stops,
		minLength: minLen,
		dropNum:   opts.DropNumeric,
		splitApos: opts.SplitContractions,
	}
}

// Terms holds the token sequence of one sentence and its n-gram windows.
type Terms struct {
	Words    []string
	Bigrams  []string
	Trigrams []string
}

// Order returns the terms of the given n-gram order (1, 2 or 3).
func (t Terms) Order(n int) []string {
	switch n {
	case 1:
		return t.Words
	case 2:
		return t.Bigrams
	case 3:
		return t.Trigrams
	}
	return nil
}

// Analyze tokenizes text and derives its bigram and trigram windows.
func (t *Tokenizer) Analyze(text string) Terms {
	words := t.Tokenize(text)
	return Terms{
		Words:    words,
		Bigrams:  NGrams(words, 2),
		Trigrams: NGrams(words, 3),
	}
}

// Tokenize splits text into lower-cased, punctuation-stripped tokens.
// The same input always yields the same sequence; empty input yields an empty slice.
func (t *Tokenizer) Tokenize(text string) []string {
	tokens := []string{}
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := t.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range norm.NFKC.String(text) {
		r = foldApostrophe(r)
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '-':
			current.WriteRune(unicode.ToLower(r))
		case r == '\'' && !t.splitApos:
			current.WriteRune(r)
		default:
			flush()
		}
	}
	flush()

	return tokens
}

// processToken applies cleaning and filtering.
func (t *Tokenizer) processToken(token string) string {
	word := cleanToken(token)
	if word == "" || len([]rune(word)) < t.minLength {
		return ""
	}
	if t.dropNum && isNumericOnly(word) {
		return ""
	}
	if _, stop := t.stopwords[word]; stop {
		return ""
	}
	return word
}

// cleanToken strips leading/trailing hyphens and apostrophes and collapses
// repeated hyphens
func cleanToken(token string) string {
	token = strings.Trim(token, "-'")
	for strings.Contains(token, "--") {
		token = strings.ReplaceAll(token, "--", "-")
	}
	for strings.Contains(token, "''") {
		token = strings.ReplaceAll(token, "''", "'")
	}
	return token
}

func foldApostrophe(r rune) rune {
	switch r {
	case '‘', '’', 'ʼ':
		return '\''
	}
	return r
}

// isNumericOnly returns true if the token contains only digits and hyphens.
func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && r != '-' {
			return false
		}
	}
	return true
}

// IsStopword reports whether word is filtered by this tokenizer.
func (t *Tokenizer) IsStopword(word string) bool {
	_, ok := t.stopwords[strings.ToLower(word)]
	return ok
}

// NGrams returns the contiguous windows of size n over tokens, each joined
// with a single space. Sequences shorter than n produce no windows.
func NGrams(tokens []string, n int) []string {
	if n < 1 {
		return nil
	}
	if len(tokens) < n {
		return []string{}
	}
	out := make([]string, 0, len(tokens)-n+1)
	for i := 0; i+n <= len(tokens); i++ {
		out = append(out, strings.Join(tokens[i:i+n], " "))
	}
	return out
}
