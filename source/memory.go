package source

import (
	"fmt"

	"github.com/gammaray/spatialindex/geom"
)

// PointSet is an in-memory point cloud with any number of attribute columns.
type PointSet struct {
	locations []geom.Location
	columns   [][]float64
}

// NewPointSet creates a point set. Every column must have one value per location.
func NewPointSet(locations []geom.Location, columns ...[]float64) (*PointSet, error) {
	for c, col := range columns {
		if len(col) != len(locations) {
			return nil, fmt.Errorf("%w: column %d has %d values for %d points", ErrShape, c, len(col), len(locations))
		}
	}
	return &PointSet{locations: locations, columns: columns}, nil
}

func (ps *PointSet) RecordCount() int { return len(ps.locations) }

func (ps *PointSet) Location(record int) geom.Location { return ps.locations[record] }

func (ps *PointSet) Value(record, column int) float64 { return ps.columns[column][record] }

// CartesianGrid is a regular grid of ni*nj*nk cells. Origin is the center of
// cell (0, 0, 0).
type CartesianGrid struct {
	Origin     geom.Location
	DX, DY, DZ float64
	ni, nj, nk int
	columns    [][]float64
}

// NewCartesianGrid creates a grid. Every column must have ni*nj*nk values in
// linear index order.
func NewCartesianGrid(origin geom.Location, dx, dy, dz float64, ni, nj, nk int, columns ...[]float64) (*CartesianGrid, error) {
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return nil, fmt.Errorf("%w: got %g x %g x %g", ErrCellSize, dx, dy, dz)
	}
	if ni < 0 || nj < 0 || nk < 0 {
		return nil, fmt.Errorf("%w: negative grid dimensions %dx%dx%d", ErrShape, ni, nj, nk)
	}
	n := ni * nj * nk
	for c, col := range columns {
		if len(col) != n {
			return nil, fmt.Errorf("%w: column %d has %d values for %d cells", ErrShape, c, len(col), n)
		}
	}
	return &CartesianGrid{Origin: origin, DX: dx, DY: dy, DZ: dz, ni: ni, nj: nj, nk: nk, columns: columns}, nil
}

func (g *CartesianGrid) RecordCount() int { return g.ni * g.nj * g.nk }

func (g *CartesianGrid) Dims() (int, int, int) { return g.ni, g.nj, g.nk }

func (g *CartesianGrid) Value(record, column int) float64 { return g.columns[column][record] }

// IJK splits a linear cell index into its grid coordinates.
func (g *CartesianGrid) IJK(record int) (i, j, k int) {
	k = record / (g.ni * g.nj)
	rest := record % (g.ni * g.nj)
	return rest % g.ni, rest / g.ni, k
}

func (g *CartesianGrid) CellCenter(record int) geom.Location {
	i, j, k := g.IJK(record)
	return geom.Location{
		X: g.Origin.X + float64(i)*g.DX,
		Y: g.Origin.Y + float64(j)*g.DY,
		Z: g.Origin.Z + float64(k)*g.DZ,
	}
}

func (g *CartesianGrid) CellBox(record int) geom.Box {
	c := g.CellCenter(record)
	return geom.Box{
		Min: geom.Location{X: c.X - g.DX/2, Y: c.Y - g.DY/2, Z: c.Z - g.DZ/2},
		Max: geom.Location{X: c.X + g.DX/2, Y: c.Y + g.DY/2, Z: c.Z + g.DZ/2},
	}
}

// SegmentSet is an in-memory set of line segments, e.g. drillhole intervals.
type SegmentSet struct {
	from, to []geom.Location
	columns  [][]float64
}

// NewSegmentSet creates a segment set from matching endpoint slices.
func NewSegmentSet(from, to []geom.Location, columns ...[]float64) (*SegmentSet, error) {
	if len(from) != len(to) {
		return nil, fmt.Errorf("%w: %d start points and %d end points", ErrShape, len(from), len(to))
	}
	for c, col := range columns {
		if len(col) != len(from) {
			return nil, fmt.Errorf("%w: column %d has %d values for %d segments", ErrShape, c, len(col), len(from))
		}
	}
	return &SegmentSet{from: from, to: to, columns: columns}, nil
}

func (ss *SegmentSet) RecordCount() int { return len(ss.from) }

func (ss *SegmentSet) Segment(record int) (geom.Location, geom.Location) {
	return ss.from[record], ss.to[record]
}

func (ss *SegmentSet) Value(record, column int) float64 { return ss.columns[column][record] }
