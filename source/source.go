// Package source describes the read-only datasets a spatial index can be built
// from and the cells that reference individual records of them.
//
// Implementations must keep record indexes stable while an index built from
// them is in use, and must be comparable with == (pointer types are) so that
// cells can be matched back to the source they came from.
package source

import (
	"errors"

	"github.com/gammaray/spatialindex/geom"
)

var (
	ErrShape    = errors.New("source: inconsistent dimensions")
	ErrRange    = errors.New("source: index out of range")
	ErrCellSize = errors.New("source: cell sizes must be positive")
)

// Source is the part shared by every kind of dataset.
type Source interface {
	// RecordCount returns the number of records (points, cells or segments).
	RecordCount() int
	// Value returns the attribute in the given column of a record.
	Value(record, column int) float64
}

// PointSource is a point cloud.
type PointSource interface {
	Source
	Location(record int) geom.Location
}

// GridSource is a grid of hexahedral cells addressed by a linear index
// record = i + j*ni + k*ni*nj.
type GridSource interface {
	Source
	Dims() (ni, nj, nk int)
	CellCenter(record int) geom.Location
	CellBox(record int) geom.Box
}

// SegmentSource is a set of line segments such as drillhole intervals.
type SegmentSource interface {
	Source
	Segment(record int) (from, to geom.Location)
}

// Kind tags what sort of source a Cell refers to.
type Kind int

const (
	// LocationKind cells are bare query origins with no backing source.
	LocationKind Kind = iota
	PointKind
	GridKind
	SegmentKind
)

func (k Kind) String() string {
	switch k {
	case LocationKind:
		return "location"
	case PointKind:
		return "point"
	case GridKind:
		return "grid"
	case SegmentKind:
		return "segment"
	}
	return "unknown"
}

// RecordLocation returns the representative location of a record of a source
// of the given kind: the point itself, the cell center or the segment
// midpoint. ok is false if s is not that kind of source.
func RecordLocation(s Source, kind Kind, record int) (geom.Location, bool) {
	switch kind {
	case PointKind:
		if ps, ok := s.(PointSource); ok {
			return ps.Location(record), true
		}
	case GridKind:
		if g, ok := s.(GridSource); ok {
			return g.CellCenter(record), true
		}
	case SegmentKind:
		if ss, ok := s.(SegmentSource); ok {
			from, to := ss.Segment(record)
			return from.Midpoint(to), true
		}
	}
	return geom.Location{}, false
}
