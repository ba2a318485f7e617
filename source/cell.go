package source

import (
	"fmt"
	"math"

	"github.com/gammaray/spatialindex/geom"
)

// Cell identifies one sample of a dataset: a point, a grid cell or a segment.
// It is a small value that does not own its source.
type Cell struct {
	Kind Kind
	// Source is nil for LocationKind cells.
	Source Source
	// Record is the row, linear cell index or segment number in Source.
	Record int
	// DataIndex is the attribute column read by ReadValue.
	DataIndex int
	Center    geom.Location
}

// PointCell references row record of a point cloud.
func PointCell(ps PointSource, column, record int) (Cell, error) {
	if err := checkRecord(ps, record); err != nil {
		return Cell{}, err
	}
	return Cell{Kind: PointKind, Source: ps, Record: record, DataIndex: column, Center: ps.Location(record)}, nil
}

// GridCell references the cell at (i, j, k) of a grid.
func GridCell(g GridSource, column, i, j, k int) (Cell, error) {
	ni, nj, nk := g.Dims()
	if i < 0 || j < 0 || k < 0 || i >= ni || j >= nj || k >= nk {
		return Cell{}, fmt.Errorf("%w: cell (%d, %d, %d) of a %dx%dx%d grid", ErrRange, i, j, k, ni, nj, nk)
	}
	return GridCellAt(g, column, i+j*ni+k*ni*nj)
}

// GridCellAt references a grid cell by its linear index.
func GridCellAt(g GridSource, column, record int) (Cell, error) {
	if err := checkRecord(g, record); err != nil {
		return Cell{}, err
	}
	return Cell{Kind: GridKind, Source: g, Record: record, DataIndex: column, Center: g.CellCenter(record)}, nil
}

// SegmentCell references a segment; its center is the segment midpoint.
func SegmentCell(ss SegmentSource, column, record int) (Cell, error) {
	if err := checkRecord(ss, record); err != nil {
		return Cell{}, err
	}
	from, to := ss.Segment(record)
	return Cell{Kind: SegmentKind, Source: ss, Record: record, DataIndex: column, Center: from.Midpoint(to)}, nil
}

// LocationCell is a query origin that is not part of any dataset.
func LocationCell(loc geom.Location) Cell {
	return Cell{Kind: LocationKind, Record: -1, DataIndex: -1, Center: loc}
}

// ReadValue returns the attribute this cell refers to, or NaN for cells
// without a source.
func (c Cell) ReadValue() float64 {
	switch c.Kind {
	case PointKind, GridKind, SegmentKind:
		return c.Source.Value(c.Record, c.DataIndex)
	}
	return math.NaN()
}

// Distance returns the Cartesian distance between the two cell centers.
func (c Cell) Distance(o Cell) float64 {
	return c.Center.Distance(o.Center)
}

// Refers reports whether the cell is record of s.
func (c Cell) Refers(s Source, record int) bool {
	return c.Kind != LocationKind && c.Record == record && c.Source == s
}

func checkRecord(s Source, record int) error {
	if record < 0 || record >= s.RecordCount() {
		return fmt.Errorf("%w: record %d of %d", ErrRange, record, s.RecordCount())
	}
	return nil
}
