package ingest

import (
	"strings"
	"unicode"
)

// SplitSentences breaks running text into sentences. A sentence ends at '.',
// '!' or '?' followed by whitespace (or end of text), or at a blank line.
// Pieces are trimmed and empty pieces dropped.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	flush := func() {
		s := strings.Join(strings.Fields(current.String()), " ")
		if s != "" {
			sentences = append(sentences, s)
		}
		current.Reset()
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if r == '\n' && i+1 < len(runes) && isBlankLineAhead(runes[i+1:]) {
			flush()
			continue
		}

		current.WriteRune(r)
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Absorb runs like "?!" or "..." and closing quotes/brackets.
		for i+1 < len(runes) && isTerminalTail(runes[i+1]) {
			i++
			current.WriteRune(runes[i])
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			flush()
		}
	}
	flush()

	return sentences
}

func isTerminalTail(r rune) bool {
	switch r {
	case '.', '!', '?', '"', '\'', ')', ']', '”', '’':
		return true
	}
	return false
}

// isBlankLineAhead reports whether rest starts with optional horizontal
// whitespace followed by another newline.
func isBlankLineAhead(rest []rune) bool {
	for _, r := range rest {
		switch r {
		case '\n':
			return true
		case ' ', '\t', '\r':
			continue
		default:
			return false
		}
	}
	return false
}
