package spatialindex

import (
	"math"

	"github.com/gammaray/spatialindex/geom"
	"github.com/gammaray/spatialindex/search"
	"github.com/gammaray/spatialindex/source"
)

// Nearest returns the indexes of the n records nearest to record, which is
// itself excluded.
func (idx *Index) Nearest(record, n int) []int {
	return idx.nearestToRecord(record, n, math.Inf(1))
}

// NearestTo returns the indexes of the n records nearest to (x, y, z).
func (idx *Index) NearestTo(x, y, z float64, n int) []int {
	return idx.nearest(source.LocationCell(geom.NewLocation(x, y, z)), n, math.Inf(1))
}

// NearestWithin returns the indexes of at most n records within distance of
// record, nearest first. It may return an empty slice.
func (idx *Index) NearestWithin(record, n int, distance float64) []int {
	return idx.nearestToRecord(record, n, distance)
}

func (idx *Index) nearestToRecord(record, n int, distance float64) []int {
	cell, ok := idx.Cell(record, 0)
	if !ok {
		return []int{}
	}
	return idx.nearest(cell, n, distance)
}

func (idx *Index) nearest(cell source.Cell, n int, distance float64) []int {
	if n <= 0 {
		return []int{}
	}
	nb, err := search.NewSphere(distance)
	if err != nil {
		return []int{}
	}
	strategy, err := search.NewStrategy(nb, n, 0, 0)
	if err != nil {
		return []int{}
	}
	return idx.records(TunedForLargeDataSets, cell, strategy)
}
