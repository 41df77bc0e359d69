package phylo

import (
	"encoding/json"
	"math"
)

// Distance names a dissimilarity measure between feature vectors.
type Distance string

const (
	Euclidean Distance = "euclidean"
	Cosine    Distance = "cosine"
)

func (d Distance) valid() bool {
	return d == Euclidean || d == Cosine
}

// Measure returns the dissimilarity between two equal-length vectors.
func (d Distance) Measure(a, b []float64) float64 {
	switch d {
	case Cosine:
		return cosineDistance(a, b)
	default:
		return euclideanDistance(a, b)
	}
}

func euclideanDistance(a, b []float64) float64 {
	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// cosineDistance is 1 - cos(a,b). Two zero vectors are identical; a zero
// vector is maximally unlike any non-zero one.
func cosineDistance(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	switch {
	case na == 0 && nb == 0:
		return 0
	case na == 0 || nb == 0:
		return 1
	}
	d := 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
	if d < 0 {
		return 0
	}
	return d
}

// DistanceMatrix is a symmetric, zero-diagonal matrix of pairwise distances.
// It is immutable once built.
type DistanceMatrix struct {
	names  []string
	index  map[string]int
	values [][]float64
}

// NewDistanceMatrix computes every pairwise distance between vectors, which
// are aligned with names.
func NewDistanceMatrix(names []string, vectors [][]float64, metric Distance) DistanceMatrix {
	n := len(names)
	m := DistanceMatrix{
		names:  append([]string(nil), names...),
		index:  make(map[string]int, n),
		values: make([][]float64, n),
	}
	for i, name := range names {
		m.index[name] = i
		m.values[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric.Measure(vectors[i], vectors[j])
			m.values[i][j] = d
			m.values[j][i] = d
		}
	}
	return m
}

// Len returns the number of sources in the matrix.
func (m DistanceMatrix) Len() int { return len(m.names) }

// Names returns the row/column labels.
func (m DistanceMatrix) Names() []string {
	return append([]string(nil), m.names...)
}

// At returns the distance between rows i and j.
func (m DistanceMatrix) At(i, j int) float64 { return m.values[i][j] }

// Lookup returns the distance between two named sources.
func (m DistanceMatrix) Lookup(a, b string) (float64, bool) {
	i, ok := m.index[a]
	if !ok {
		return 0, false
	}
	j, ok := m.index[b]
	if !ok {
		return 0, false
	}
	return m.values[i][j], true
}

// MarshalJSON encodes the matrix as {"names": [...], "values": [[...]]}.
func (m DistanceMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Names  []string    `json:"names"`
		Values [][]float64 `json:"values"`
	}{m.names, m.values})
}
