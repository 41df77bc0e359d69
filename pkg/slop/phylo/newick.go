package phylo

import (
	"strconv"
	"strings"
)

// Newick renders the tree in Newick bracket notation. Branch lengths are the
// difference between parent and child merge heights; children appear in the
// order of their first member name, so equal trees render identically.
func (t *Tree) Newick() string {
	var b strings.Builder
	writeNewick(&b, t.Root, -1)
	b.WriteByte(';')
	return b.String()
}

func writeNewick(b *strings.Builder, n *Node, parentHeight float64) {
	if n.IsLeaf() {
		b.WriteString(newickLabel(n.Name))
	} else {
		b.WriteByte('(')
		for i, c := range n.Children {
			if i > 0 {
				b.WriteByte(',')
			}
			writeNewick(b, c, n.Height)
		}
		b.WriteByte(')')
	}
	if parentHeight >= 0 {
		b.WriteByte(':')
		b.WriteString(strconv.FormatFloat(parentHeight-n.Height, 'f', -1, 64))
	}
}

// newickLabel quotes names containing Newick metacharacters or whitespace.
func newickLabel(name string) string {
	if name == "" || strings.ContainsAny(name, "()[]':;, \t\n") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}

// OutlineEntry is one row of an indented text rendering of the tree.
type OutlineEntry struct {
	Depth  int
	Label  string
	Height float64
	Leaf   bool
}

// Outline flattens the tree into indented rows, parents before children.
// Internal nodes are labelled with their member count.
func (t *Tree) Outline() []OutlineEntry {
	var rows []OutlineEntry
	t.Walk(func(n *Node, depth int) {
		label := n.Name
		if !n.IsLeaf() {
			label = strconv.Itoa(len(n.Members)) + " sources"
		}
		rows = append(rows, OutlineEntry{
			Depth:  depth,
			Label:  label,
			Height: n.Height,
			Leaf:   n.IsLeaf(),
		})
	})
	return rows
}
