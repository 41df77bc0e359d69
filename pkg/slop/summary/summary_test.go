package summary

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/cognicore/slopfx/pkg/slop"
	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/profile"
)

func analyze(t *testing.T, opts slop.Options, sources []profile.Source) *slop.Report {
	t.Helper()
	clock := func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) }
	opts.Clock = clock
	opts.Profiler = profile.New(profile.Options{Clock: clock})
	report, err := slop.New(opts).Analyze(context.Background(), sources)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	return report
}

func TestBuild(t *testing.T) {
	var long []string
	for i := 0; i < 30; i++ {
		long = append(long, fmt.Sprintf("word%d appears here", i))
	}
	sources := []profile.Source{
		{Name: "verbose", Sentences: long},
		{Name: "terse", Sentences: []string{"delve delve delve.", "a rich tapestry."}},
		{Name: "broken", Sentences: []string{"..."}},
	}
	report := analyze(t, slop.Options{Phylo: &phylo.Options{}}, sources)

	s := Build(report)

	if s.Overview.RunID != report.RunID {
		t.Errorf("run id: %s", s.Overview.RunID)
	}
	if got := strings.Join(s.Overview.ModelsAnalyzed, ","); got != "verbose,terse" {
		t.Errorf("models: %s", got)
	}
	if s.Overview.SentencesAnalyzed != 32 {
		t.Errorf("sentences: %d", s.Overview.SentencesAnalyzed)
	}
	if len(s.Failures) != 1 || s.Failures[0].Source != "broken" {
		t.Errorf("failures: %+v", s.Failures)
	}

	verbose := s.Models[0]
	if len(verbose.TopRepetitiveWords) != TopItems {
		t.Errorf("per-model words should be capped at %d, got %d", TopItems, len(verbose.TopRepetitiveWords))
	}
	if verbose.PatternsFound.RepetitiveWordsCount <= TopItems {
		t.Errorf("pattern count should be uncapped: %d", verbose.PatternsFound.RepetitiveWordsCount)
	}
	if s.Models[1].TopRepetitiveWords[0] != "delve" {
		t.Errorf("terse top word: %v", s.Models[1].TopRepetitiveWords)
	}

	if s.Combined == nil || len(s.Combined.Words) > TopItems {
		t.Errorf("combined: %+v", s.Combined)
	}
	if s.Newick == "" || s.TreeError != "" {
		t.Errorf("tree: %q %q", s.Newick, s.TreeError)
	}

	if ranking := s.Ranking(); ranking[0].KeyMetrics.SlopScore < ranking[1].KeyMetrics.SlopScore {
		t.Errorf("ranking not descending: %+v", ranking)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"overview"`, `"key_metrics"`, `"patterns_found"`, `"top_bigrams"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("json missing %s", key)
		}
	}
}

func TestMarkdown(t *testing.T) {
	sources := []profile.Source{
		{Name: "a|b", Sentences: []string{"we delve into the tapestry."}},
	}
	report := analyze(t, slop.Options{Phylo: &phylo.Options{}}, sources)

	md := Build(report).Markdown()

	for _, want := range []string{
		"# Slop analysis",
		"Run `" + report.RunID + "`: 1 models, 1 sentences, 2025-06-01T00:00:00Z",
		"| a\\|b |",
		"## a|b",
		"- **Words:** we, delve, into, the, tapestry",
		"## Combined slop lists",
		"## Tree\n\nNot built: insufficient sources",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
	if strings.Contains(md, "## Failures") {
		t.Error("no failures expected")
	}
}
