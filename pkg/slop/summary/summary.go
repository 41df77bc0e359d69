// Package summary condenses an analysis report into a human-readable digest.
package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cognicore/slopfx/pkg/slop"
	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
)

// TopItems is the number of terms listed per model and list.
const TopItems = 20

// Summary is the digest of one run.
type Summary struct {
	Overview   Overview       `json:"overview"`
	Models     []ModelSummary `json:"models"`
	Combined   *Combined      `json:"combined,omitempty"`
	ListsError string         `json:"lists_error,omitempty"`
	Newick     string         `json:"newick,omitempty"`
	TreeError  string         `json:"tree_error,omitempty"`
	Failures   []Failure      `json:"failures,omitempty"`
}

type Overview struct {
	RunID             string    `json:"run_id"`
	ModelsAnalyzed    []string  `json:"models_analyzed"`
	SentencesAnalyzed int64     `json:"sentences_analyzed"`
	AnalysisTimestamp time.Time `json:"analysis_timestamp"`
}

type ModelSummary struct {
	Model              string        `json:"model"`
	KeyMetrics         KeyMetrics    `json:"key_metrics"`
	PatternsFound      PatternsFound `json:"patterns_found"`
	TopRepetitiveWords []string      `json:"top_repetitive_words"`
	TopBigrams         []string      `json:"top_bigrams"`
	TopTrigrams        []string      `json:"top_trigrams"`
}

type KeyMetrics struct {
	AverageSentenceLength float64 `json:"average_sentence_length"`
	VocabularyComplexity  float64 `json:"vocabulary_complexity"`
	SlopScore             float64 `json:"slop_score"`
	RepetitionScore       float64 `json:"repetition_score"`
}

type PatternsFound struct {
	RepetitiveWordsCount int `json:"repetitive_words_count"`
	TopBigramsCount      int `json:"top_bigrams_count"`
	TopTrigramsCount     int `json:"top_trigrams_count"`
}

// Combined holds the head of each canonical slop list.
type Combined struct {
	Words        []string `json:"words"`
	Bigrams      []string `json:"bigrams"`
	Trigrams     []string `json:"trigrams"`
	GenericTerms int      `json:"generic_terms"`
}

type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Build digests a report. Models appear in input order.
func Build(r *slop.Report) Summary {
	s := Summary{
		Overview: Overview{
			RunID:             r.RunID,
			ModelsAnalyzed:    []string{},
			AnalysisTimestamp: r.CreatedAt,
		},
		Models: []ModelSummary{},
	}

	for _, res := range r.Batch.Results {
		if !res.OK() {
			s.Failures = append(s.Failures, Failure{Source: res.Source, Error: res.Err.Error()})
			continue
		}
		fp := res.Fingerprint
		s.Overview.ModelsAnalyzed = append(s.Overview.ModelsAnalyzed, res.Source)
		s.Overview.SentencesAnalyzed += fp.NumSentences
		s.Models = append(s.Models, modelSummary(res.Source, fp))
	}

	if r.Lists != nil {
		s.Combined = &Combined{
			Words:    head(r.Lists.WordList()),
			Bigrams:  head(r.Lists.BigramList()),
			Trigrams: head(r.Lists.TrigramList()),
		}
		for _, terms := range r.Lists.Generic {
			s.Combined.GenericTerms += len(terms)
		}
	}
	if r.ListsErr != nil {
		s.ListsError = r.ListsErr.Error()
	}
	if r.Tree != nil {
		s.Newick = r.Tree.Newick()
	}
	if r.TreeErr != nil {
		s.TreeError = r.TreeErr.Error()
	}
	return s
}

func modelSummary(name string, fp fingerprint.Fingerprint) ModelSummary {
	m := ModelSummary{
		Model: name,
		KeyMetrics: KeyMetrics{
			AverageSentenceLength: fp.AvgLength,
			VocabularyComplexity:  fp.VocabComplexity,
			SlopScore:             fp.SlopScore,
			RepetitionScore:       fp.RepetitionScore,
		},
		PatternsFound: PatternsFound{
			RepetitiveWordsCount: len(fp.TopRepetitiveWords),
			TopBigramsCount:      len(fp.TopBigrams),
			TopTrigramsCount:     len(fp.TopTrigrams),
		},
	}
	m.TopRepetitiveWords = scoredHead(fp.Ranked(1))
	m.TopBigrams = scoredHead(fp.Ranked(2))
	m.TopTrigrams = scoredHead(fp.Ranked(3))
	return m
}

func scoredHead(list []fingerprint.Scored) []string {
	out := make([]string, 0, min(len(list), TopItems))
	for _, s := range list {
		if len(out) == TopItems {
			break
		}
		out = append(out, s.Term)
	}
	return out
}

func head(list []string) []string {
	if len(list) > TopItems {
		return list[:TopItems]
	}
	if list == nil {
		return []string{}
	}
	return list
}

// Ranking returns the models ordered by slop score, highest first.
func (s Summary) Ranking() []ModelSummary {
	out := append([]ModelSummary(nil), s.Models...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].KeyMetrics.SlopScore != out[j].KeyMetrics.SlopScore {
			return out[i].KeyMetrics.SlopScore > out[j].KeyMetrics.SlopScore
		}
		return out[i].Model < out[j].Model
	})
	return out
}

// Markdown renders the summary as a Markdown document.
func (s Summary) Markdown() string {
	var b strings.Builder

	b.WriteString("# Slop analysis\n\n")
	fmt.Fprintf(&b, "Run `%s`: %d models, %d sentences, %s\n\n",
		s.Overview.RunID, len(s.Overview.ModelsAnalyzed), s.Overview.SentencesAnalyzed,
		s.Overview.AnalysisTimestamp.Format(time.RFC3339))

	if len(s.Models) > 0 {
		b.WriteString("## Metrics\n\n")
		b.WriteString("| Model | Slop | Repetition | Vocabulary | Avg length |\n")
		b.WriteString("|---|---:|---:|---:|---:|\n")
		for _, m := range s.Ranking() {
			k := m.KeyMetrics
			fmt.Fprintf(&b, "| %s | %.3f | %.3f | %.3f | %.1f |\n",
				escapeCell(m.Model), k.SlopScore, k.RepetitionScore, k.VocabularyComplexity, k.AverageSentenceLength)
		}
		b.WriteString("\n")

		for _, m := range s.Models {
			fmt.Fprintf(&b, "## %s\n\n", m.Model)
			writeTerms(&b, "Words", m.TopRepetitiveWords)
			writeTerms(&b, "Bigrams", m.TopBigrams)
			writeTerms(&b, "Trigrams", m.TopTrigrams)
			b.WriteString("\n")
		}
	}

	b.WriteString("## Combined slop lists\n\n")
	switch {
	case s.Combined != nil:
		writeTerms(&b, "Words", s.Combined.Words)
		writeTerms(&b, "Bigrams", s.Combined.Bigrams)
		writeTerms(&b, "Trigrams", s.Combined.Trigrams)
		if s.Combined.GenericTerms > 0 {
			fmt.Fprintf(&b, "\n%d terms shared by every model were dropped.\n", s.Combined.GenericTerms)
		}
	case s.ListsError != "":
		fmt.Fprintf(&b, "Not built: %s\n", s.ListsError)
	}
	b.WriteString("\n")

	switch {
	case s.Newick != "":
		b.WriteString("## Tree\n\n```\n")
		b.WriteString(s.Newick)
		b.WriteString("\n```\n\n")
	case s.TreeError != "":
		fmt.Fprintf(&b, "## Tree\n\nNot built: %s\n\n", s.TreeError)
	}

	if len(s.Failures) > 0 {
		b.WriteString("## Failures\n\n")
		for _, f := range s.Failures {
			fmt.Fprintf(&b, "- **%s**: %s\n", f.Source, f.Error)
		}
	}
	return b.String()
}

func writeTerms(b *strings.Builder, label string, terms []string) {
	if len(terms) == 0 {
		fmt.Fprintf(b, "- **%s:** none\n", label)
		return
	}
	fmt.Fprintf(b, "- **%s:** %s\n", label, strings.Join(terms, ", "))
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
