// Package phylo builds a hierarchical similarity tree ("phylogeny") over
// sources from their fingerprints. The tree is an agglomerative clustering
// dendrogram over stylistic feature vectors, not a biological lineage.
package phylo

import (
	"fmt"
	"math"
	"slices"

	"github.com/cognicore/slopfx/pkg/slop/fingerprint"
	"github.com/cognicore/slopfx/pkg/slop/internalerr"
)

// Linkage names the rule for the distance between two clusters.
type Linkage string

const (
	// Average linkage: mean pairwise distance between members (UPGMA).
	Average  Linkage = "average"
	Single   Linkage = "single"
	Complete Linkage = "complete"
)

func (l Linkage) valid() bool {
	return l == Average || l == Single || l == Complete
}

// DefaultTopNFeatures is the feature universe size used by the CLI and config
// defaults.
const DefaultTopNFeatures = 40

// tieTolerance is the distance within which two candidate merges are
// considered equidistant.
const tieTolerance = 1e-9

// Options configures tree construction.
type Options struct {
	TopNFeatures int                 // <= 0 uses every ranked word
	Ignore       map[string]struct{} // sources excluded before anything else
	Distance     Distance            // default Euclidean
	Linkage      Linkage             // default Average
	Features     FeatureMode         // default FeaturesGlobal
}

// Node is a tree node. Leaves carry a Name and height 0; internal nodes carry
// the merge height and exactly two children.
type Node struct {
	Name     string   `json:"name,omitempty"`
	Height   float64  `json:"height"`
	Members  []string `json:"members"`
	Children []*Node  `json:"children,omitempty"`
}

// IsLeaf reports whether n is a source.
func (n *Node) IsLeaf() bool { return len(n.Children) == 0 }

// Tree is the result of BuildTree.
type Tree struct {
	Root     *Node          `json:"root"`
	Leaves   []string       `json:"leaves"`
	Features []string       `json:"features"`
	Matrix   DistanceMatrix `json:"distances"`
	Distance Distance       `json:"distance"`
	Linkage  Linkage        `json:"linkage"`
}

// BuildTree clusters the fingerprints into a rooted binary tree.
//
// Sources named in opts.Ignore are excluded first. Fewer than two remaining
// sources fail with internalerr.ErrInsufficientSources; a malformed
// fingerprint fails with internalerr.ErrMalformedFingerprint. No partial tree
// is ever returned.
//
// Clusters are merged closest-first. Merges within tieTolerance of each other
// are ordered by the lexicographically smallest sorted list of combined
// member names, so the tree does not depend on input order.
func BuildTree(fps map[string]fingerprint.Fingerprint, opts Options) (*Tree, error) {
	if opts.Distance == "" {
		opts.Distance = Euclidean
	}
	if opts.Linkage == "" {
		opts.Linkage = Average
	}
	if opts.Features == "" {
		opts.Features = FeaturesGlobal
	}
	if !opts.Distance.valid() {
		return nil, fmt.Errorf("%w: unknown distance %q", internalerr.ErrInvalidConfig, opts.Distance)
	}
	if !opts.Linkage.valid() {
		return nil, fmt.Errorf("%w: unknown linkage %q", internalerr.ErrInvalidConfig, opts.Linkage)
	}
	if opts.Features != FeaturesGlobal && opts.Features != FeaturesPerSource {
		return nil, fmt.Errorf("%w: unknown feature mode %q", internalerr.ErrInvalidConfig, opts.Features)
	}

	var names []string
	for _, name := range fingerprint.SortedNames(fps) {
		if _, skip := opts.Ignore[name]; skip {
			continue
		}
		fp := fps[name]
		if err := fp.Validate(); err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		names = append(names, name)
	}
	if len(names) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 sources, have %d", internalerr.ErrInsufficientSources, len(names))
	}

	features := SelectFeatures(fps, names, opts.TopNFeatures, opts.Features)
	vectors := make([][]float64, len(names))
	for i, name := range names {
		vectors[i] = Vector(fps[name], features)
	}
	matrix := NewDistanceMatrix(names, vectors, opts.Distance)

	return &Tree{
		Root:     cluster(matrix, opts.Linkage),
		Leaves:   names,
		Features: features,
		Matrix:   matrix,
		Distance: opts.Distance,
		Linkage:  opts.Linkage,
	}, nil
}

type group struct {
	node    *Node
	members []int
}

func cluster(m DistanceMatrix, linkage Linkage) *Node {
	names := m.Names()
	active := make([]*group, len(names))
	for i, name := range names {
		active[i] = &group{
			node:    &Node{Name: name, Members: []string{name}},
			members: []int{i},
		}
	}

	for len(active) > 1 {
		bi, bj := -1, -1
		var bestD float64
		var bestKey []string

		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				d := linkageDistance(m, linkage, active[i].members, active[j].members)
				key := mergedMembers(active[i].node, active[j].node)
				switch {
				case bi < 0, d < bestD-tieTolerance:
				case math.Abs(d-bestD) <= tieTolerance && slices.Compare(key, bestKey) < 0:
				default:
					continue
				}
				bi, bj, bestD, bestKey = i, j, d, key
			}
		}

		a, b := active[bi], active[bj]
		left, right := a.node, b.node
		if right.Members[0] < left.Members[0] {
			left, right = right, left
		}
		height := math.Max(bestD, math.Max(a.node.Height, b.node.Height))
		merged := &group{
			node: &Node{
				Height:   height,
				Members:  bestKey,
				Children: []*Node{left, right},
			},
			members: append(append([]int(nil), a.members...), b.members...),
		}

		active = slices.Delete(active, bj, bj+1)
		active = slices.Delete(active, bi, bi+1)
		active = append(active, merged)
	}
	return active[0].node
}

func mergedMembers(a, b *Node) []string {
	out := make([]string, 0, len(a.Members)+len(b.Members))
	out = append(out, a.Members...)
	out = append(out, b.Members...)
	slices.Sort(out)
	return out
}

func linkageDistance(m DistanceMatrix, linkage Linkage, a, b []int) float64 {
	var sum float64
	minD, maxD := math.Inf(1), math.Inf(-1)
	for _, i := range a {
		for _, j := range b {
			d := m.At(i, j)
			sum += d
			minD = math.Min(minD, d)
			maxD = math.Max(maxD, d)
		}
	}
	switch linkage {
	case Single:
		return minD
	case Complete:
		return maxD
	default:
		return sum / float64(len(a)*len(b))
	}
}

// Height returns the root merge height.
func (t *Tree) Height() float64 { return t.Root.Height }

// Walk visits every node depth-first, parents before children.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var walk func(*Node, int)
	walk = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	walk(t.Root, 0)
}

// InternalNodes returns the number of merge events.
func (t *Tree) InternalNodes() int {
	count := 0
	t.Walk(func(n *Node, _ int) {
		if !n.IsLeaf() {
			count++
		}
	})
	return count
}

// Cut returns the groups of sources obtained by cutting the tree at the given
// height: every maximal subtree whose merge height is <= threshold forms one
// group. Groups are ordered by their first member name.
func (t *Tree) Cut(threshold float64) [][]string {
	var groups [][]string
	var cut func(*Node)
	cut = func(n *Node) {
		if n.IsLeaf() || n.Height <= threshold {
			groups = append(groups, append([]string(nil), n.Members...))
			return
		}
		for _, c := range n.Children {
			cut(c)
		}
	}
	cut(t.Root)
	slices.SortFunc(groups, func(a, b []string) int {
		return slices.Compare(a, b)
	})
	return groups
}
