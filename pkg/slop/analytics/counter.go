package analytics

import (
	"sort"
	"unicode/utf8"

	"github.com/cognicore/slopfx/pkg/slop/ingest"
)

// MaxOrder is the largest n-gram order tracked by the counter.
const MaxOrder = 3

// Counter aggregates per-source term statistics sentence by sentence.
type Counter struct {
	sentences  int64
	characters int64
	orders     [MaxOrder + 1]orderCounts
}

type orderCounts struct {
	total     int64
	counts    map[string]int64
	firstSeen map[string]int64
	next      int64
}

// NewCounter creates an empty counter.
func NewCounter() *Counter {
	c := &Counter{}
	for n := 1; n <= MaxOrder; n++ {
		c.orders[n] = orderCounts{
			counts:    make(map[string]int64),
			firstSeen: make(map[string]int64),
		}
	}
	return c
}

// Process consumes one sentence's raw text and its derived terms.
func (c *Counter) Process(sentence string, terms ingest.Terms) {
	c.sentences++
	c.characters += int64(utf8.RuneCountInString(sentence))

	for n := 1; n <= MaxOrder; n++ {
		oc := &c.orders[n]
		for _, term := range terms.Order(n) {
			if term == "" {
				continue
			}
			if _, ok := oc.counts[term]; !ok {
				oc.firstSeen[term] = oc.next
				oc.next++
			}
			oc.counts[term]++
			oc.total++
		}
	}
}

// TermCount is a term with its occurrence count and first-seen position.
type TermCount struct {
	Term      string
	Count     int64
	FirstSeen int64
}

// Stats exposes the aggregated counts.
type Stats struct {
	Sentences  int64
	Characters int64
	Totals     [MaxOrder + 1]int64            // windows per order
	Counts     [MaxOrder + 1]map[string]int64 // occurrences per term
	FirstSeen  [MaxOrder + 1]map[string]int64 // first-seen position per term
}

// Snapshot returns a copy of the accumulated statistics.
func (c *Counter) Snapshot() Stats {
	s := Stats{
		Sentences:  c.sentences,
		Characters: c.characters,
	}
	for n := 1; n <= MaxOrder; n++ {
		oc := c.orders[n]
		s.Totals[n] = oc.total
		s.Counts[n] = make(map[string]int64, len(oc.counts))
		s.FirstSeen[n] = make(map[string]int64, len(oc.firstSeen))
		for term, count := range oc.counts {
			s.Counts[n][term] = count
		}
		for term, pos := range oc.firstSeen {
			s.FirstSeen[n][term] = pos
		}
	}
	return s
}

// Distinct returns the number of distinct terms of the given order.
func (s Stats) Distinct(order int) int {
	if order < 1 || order > MaxOrder {
		return 0
	}
	return len(s.Counts[order])
}

// Total returns the number of windows observed for the given order.
func (s Stats) Total(order int) int64 {
	if order < 1 || order > MaxOrder {
		return 0
	}
	return s.Totals[order]
}

// Count returns how often term occurred at the given order.
func (s Stats) Count(order int, term string) int64 {
	if order < 1 || order > MaxOrder {
		return 0
	}
	return s.Counts[order][term]
}

// Ranked returns every term of the given order in first-seen order.
func (s Stats) Ranked(order int) []TermCount {
	if order < 1 || order > MaxOrder {
		return nil
	}
	out := make([]TermCount, 0, len(s.Counts[order]))
	for term, count := range s.Counts[order] {
		out = append(out, TermCount{
			Term:      term,
			Count:     count,
			FirstSeen: s.FirstSeen[order][term],
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FirstSeen < out[j].FirstSeen
	})
	return out
}

// AvgLength returns the mean character length of the processed sentences.
func (s Stats) AvgLength() float64 {
	if s.Sentences == 0 {
		return 0
	}
	return float64(s.Characters) / float64(s.Sentences)
}

// TypeTokenRatio returns distinct words divided by total words.
func (s Stats) TypeTokenRatio() float64 {
	if s.Totals[1] == 0 {
		return 0
	}
	return float64(len(s.Counts[1])) / float64(s.Totals[1])
}
