package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/cognicore/slopfx/pkg/slop/phylo"
	"github.com/cognicore/slopfx/pkg/slop/store"
	"github.com/cognicore/slopfx/pkg/slop/summary"
)

// Styles holds the lipgloss styles for terminal output.
type Styles struct {
	Title  lipgloss.Style
	Header lipgloss.Style
	Model  lipgloss.Style
	Score  lipgloss.Style
	Bar    lipgloss.Style
	Dim    lipgloss.Style
	Error  lipgloss.Style
}

var styles = Styles{
	Title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")),
	Header: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245")),
	Model:  lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Score:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")),
	Bar:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	Dim:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	Error:  lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
}

const barWidth = 30

// renderMetrics prints the models ranked by slop score with a bar each.
func renderMetrics(w io.Writer, s summary.Summary) {
	ranking := s.Ranking()
	if len(ranking) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", styles.Title.Render("SLOP SCORES"))

	nameWidth := len("model")
	for _, m := range ranking {
		nameWidth = max(nameWidth, lipgloss.Width(m.Model))
	}
	header := fmt.Sprintf("%-*s  %7s  %7s  %7s  %s", nameWidth, "model", "slop", "repeat", "vocab", "top words")
	fmt.Fprintln(w, styles.Header.Render(header))

	maxScore := ranking[0].KeyMetrics.SlopScore
	for _, m := range ranking {
		k := m.KeyMetrics
		bar := ""
		if maxScore > 0 {
			bar = strings.Repeat("█", int(k.SlopScore/maxScore*barWidth+0.5))
		}
		top := m.TopRepetitiveWords
		if len(top) > 5 {
			top = top[:5]
		}
		name := lipgloss.NewStyle().Width(nameWidth).Render(m.Model)
		fmt.Fprintf(w, "%s  %s  %7.3f  %7.3f  %s\n",
			styles.Model.Render(name),
			styles.Score.Render(fmt.Sprintf("%7.3f", k.SlopScore)),
			k.RepetitionScore, k.VocabularyComplexity,
			styles.Dim.Render(strings.Join(top, ", ")))
		fmt.Fprintf(w, "%s  %s\n", strings.Repeat(" ", nameWidth), styles.Bar.Render(bar))
	}

	for _, f := range s.Failures {
		fmt.Fprintf(w, "%s %s: %s\n", styles.Error.Render("✗"), f.Source, f.Error)
	}
}

// renderTree prints the tree as an indented dendrogram with merge heights.
func renderTree(w io.Writer, t *phylo.Tree) {
	fmt.Fprintf(w, "\n%s %s\n\n", styles.Title.Render("SIMILARITY TREE"),
		styles.Dim.Render(fmt.Sprintf("(%s, %s linkage)", t.Distance, t.Linkage)))
	for _, row := range t.Outline() {
		indent := strings.Repeat("   ", row.Depth)
		if row.Leaf {
			fmt.Fprintf(w, "%s└─ %s\n", indent, styles.Model.Render(row.Label))
			continue
		}
		fmt.Fprintf(w, "%s┬ %s %s\n", indent, row.Label, styles.Dim.Render(fmt.Sprintf("@ %.4f", row.Height)))
	}
	fmt.Fprintf(w, "\n%s\n", styles.Dim.Render(t.Newick()))
}

// renderRuns prints stored run headers.
func renderRuns(w io.Writer, infos []store.RunInfo) {
	if len(infos) == 0 {
		fmt.Fprintln(w, "No runs stored.")
		return
	}
	fmt.Fprintf(w, "\n%s\n\n", styles.Title.Render("STORED RUNS"))
	fmt.Fprintln(w, styles.Header.Render(fmt.Sprintf("%-26s  %-20s  %7s  %6s  %s", "id", "created", "sources", "failed", "tree")))
	for _, info := range infos {
		tree := "no"
		if info.HasTree {
			tree = "yes"
		}
		fmt.Fprintf(w, "%s  %-20s  %7d  %6d  %s\n",
			styles.Model.Render(fmt.Sprintf("%-26s", info.ID)),
			info.CreatedAt.Format("2006-01-02 15:04:05"),
			info.Sources, info.Failed, tree)
	}
}

// renderMarkdown renders Markdown for the terminal, falling back to the raw
// text when no renderer is available.
func renderMarkdown(w io.Writer, md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(w, md)
		return
	}
	fmt.Fprint(w, out)
}
