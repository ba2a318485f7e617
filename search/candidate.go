package search

import (
	"cmp"
	"slices"

	"github.com/gammaray/spatialindex/geom"
)

// Candidate is a record found by a query together with its distance from the
// query origin. Candidates are created fresh for each query.
type Candidate struct {
	Record   int
	Location geom.Location
	Distance float64
}

// Compare orders candidates nearest first, breaking ties by record index.
func (c Candidate) Compare(o Candidate) int {
	if d := cmp.Compare(c.Distance, o.Distance); d != 0 {
		return d
	}
	return cmp.Compare(c.Record, o.Record)
}

func (c Candidate) Less(o Candidate) bool {
	return c.Compare(o) < 0
}

func SortCandidates(cs []Candidate) {
	slices.SortFunc(cs, Candidate.Compare)
}

// Records returns the record indexes of cs in order.
func Records(cs []Candidate) []int {
	out := make([]int, len(cs))
	for i, c := range cs {
		out[i] = c.Record
	}
	return out
}
