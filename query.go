package spatialindex

import (
	"container/heap"
	"errors"
	"fmt"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/gammaray/spatialindex/geom"
	"github.com/gammaray/spatialindex/search"
	"github.com/gammaray/spatialindex/source"
)

var (
	// ErrEmptyIndex is returned by queries on an index that holds no tree.
	ErrEmptyIndex = errors.New("spatialindex: index is empty")
	// ErrInsufficientSamples is returned when fewer samples than the
	// strategy's minimum satisfy its constraints.
	ErrInsufficientSamples = errors.New("spatialindex: insufficient samples")
)

// Algorithm selects how a neighbourhood query walks the tree. Both produce
// the same results; which is faster depends on the sample density.
type Algorithm int

const (
	// GenericRTreeBased collects everything in the neighbourhood's bounding
	// box, then sorts and filters it.
	GenericRTreeBased Algorithm = iota
	// TunedForLargeDataSets walks the tree nearest first and stops as soon
	// as the strategy is satisfied or the neighbourhood is exhausted.
	TunedForLargeDataSets
)

func (a Algorithm) String() string {
	switch a {
	case GenericRTreeBased:
		return "generic"
	case TunedForLargeDataSets:
		return "tuned"
	}
	return fmt.Sprintf("Algorithm(%d)", int(a))
}

// Search returns the samples around cell selected by strategy, nearest first,
// ties broken by record index. A cell that is itself a record of the indexed
// source is never returned. It fails with ErrEmptyIndex or
// ErrInsufficientSamples rather than returning a short result.
func (idx *Index) Search(alg Algorithm, cell source.Cell, strategy search.Strategy) ([]search.Candidate, error) {
	if err := strategy.Validate(); err != nil {
		return nil, err
	}
	if !cell.Center.Valid() {
		return nil, fmt.Errorf("%w: query at %+v", ErrInvalidCoordinate, cell.Center)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.tree == nil {
		return nil, ErrEmptyIndex
	}

	var sel *search.Selector
	switch alg {
	case TunedForLargeDataSets:
		sel = idx.searchTuned(cell, strategy)
	default:
		sel = idx.searchGeneric(cell, strategy)
	}

	if !sel.Sufficient() {
		if idx.log.Logger.IsLevelEnabled(logrus.DebugLevel) {
			idx.log.WithFields(logrus.Fields{
				"algorithm": alg,
				"center":    cell.Center,
				"found":     len(sel.Accepted()),
				"required":  strategy.MinRequiredSampleCount,
			}).Debug("not enough samples in neighborhood")
		}
		return nil, ErrInsufficientSamples
	}
	return sel.Accepted(), nil
}

// NearestWithinGenericRTreeBased returns the record indexes selected by
// strategy around cell, nearest first, or an empty slice if the index is
// empty or too few samples qualify.
func (idx *Index) NearestWithinGenericRTreeBased(cell source.Cell, strategy search.Strategy) []int {
	return idx.records(GenericRTreeBased, cell, strategy)
}

// NearestWithinTunedForLargeDataSets does the same as
// NearestWithinGenericRTreeBased, but is tuned for large, dense data sets. It
// may be slower on small ones.
func (idx *Index) NearestWithinTunedForLargeDataSets(cell source.Cell, strategy search.Strategy) []int {
	return idx.records(TunedForLargeDataSets, cell, strategy)
}

func (idx *Index) records(alg Algorithm, cell source.Cell, strategy search.Strategy) []int {
	found, err := idx.Search(alg, cell, strategy)
	if err != nil {
		return []int{}
	}
	return search.Records(found)
}

// isSelf reports whether record is the query cell itself. Caller holds mu.
func (idx *Index) isSelf(cell source.Cell, record int) bool {
	return cell.Kind == idx.kind && cell.Refers(idx.src, record)
}

// candidate builds the candidate for record if it is not the query cell and
// lies inside the neighbourhood. Caller holds mu.
func (idx *Index) candidate(cell source.Cell, nb search.Neighborhood, record int) (search.Candidate, bool) {
	if idx.isSelf(cell, record) {
		return search.Candidate{}, false
	}
	loc := idx.locations[record]
	if !nb.IsInside(cell.Center, loc) {
		return search.Candidate{}, false
	}
	return search.Candidate{Record: record, Location: loc, Distance: cell.Center.Distance(loc)}, true
}

func (idx *Index) searchGeneric(cell source.Cell, strategy search.Strategy) *search.Selector {
	sel := search.NewSelector(strategy)
	nb := strategy.Neighborhood

	q := nb.BoundingBox(cell.Center)
	if !q.Intersects(idx.bounds) {
		return sel
	}
	q = clip(q, idx.bounds)

	hits := idx.tree.search(q)
	candidates := make([]search.Candidate, 0, len(hits))
	for _, record := range hits {
		if c, ok := idx.candidate(cell, nb, record); ok {
			candidates = append(candidates, c)
		}
	}
	search.SortCandidates(candidates)
	if nb.HasSpatialFiltering() {
		candidates = nb.PerformSpatialFilter(cell.Center, candidates, strategy)
	}
	for _, c := range candidates {
		sel.Offer(c)
		if sel.Full() {
			break
		}
	}
	return sel
}

func (idx *Index) searchTuned(cell source.Cell, strategy search.Strategy) *search.Selector {
	sel := search.NewSelector(strategy)
	nb := strategy.Neighborhood
	sieve := nb.NewSieve(cell.Center, strategy)
	reach := nb.Reach()

	// Records arrive in order of their box distance, which may be less than
	// the distance to the record itself, so they wait in pending until
	// nothing still in the tree can be nearer.
	var pending candidateHeap
	flush := func(bound float64) bool {
		for pending.Len() > 0 && pending[0].Distance < bound {
			c := heap.Pop(&pending).(search.Candidate)
			if !sieve.Admit(c.Location) {
				continue
			}
			sel.Offer(c)
			if sel.Full() {
				return true
			}
		}
		return false
	}

	it := idx.tree.neighbors(cell.Center)
	for {
		record, distSq, ok := it.Next()
		if !ok {
			break
		}
		bound := math.Sqrt(distSq)
		if flush(bound) {
			return sel
		}
		if bound > reach {
			break
		}
		if c, ok := idx.candidate(cell, nb, record); ok {
			heap.Push(&pending, c)
		}
	}
	flush(math.Inf(1))
	return sel
}

// candidateHeap is a min-heap of candidates, nearest first.
type candidateHeap []search.Candidate

func (h candidateHeap) Len() int           { return len(h) }
func (h candidateHeap) Less(i, j int) bool { return h[i].Less(h[j]) }
func (h candidateHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *candidateHeap) Push(x any) { *h = append(*h, x.(search.Candidate)) }

func (h *candidateHeap) Pop() any {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

func clip(b, to geom.Box) geom.Box {
	return geom.Box{
		Min: geom.Location{X: max(b.Min.X, to.Min.X), Y: max(b.Min.Y, to.Min.Y), Z: max(b.Min.Z, to.Min.Z)},
		Max: geom.Location{X: min(b.Max.X, to.Max.X), Y: min(b.Max.Y, to.Max.Y), Z: min(b.Max.Z, to.Max.Z)},
	}
}
