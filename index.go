// Package spatialindex answers nearest neighbour queries over point sets,
// grids and segment sets under the shape, count and spacing constraints of a
// search strategy.
//
// An Index is filled once from a data source and then queried many times.
// Fill and Clear take an exclusive lock; queries take a shared lock, so any
// number of queries may run at once but never alongside a rebuild.
package spatialindex

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/gammaray/spatialindex/geom"
	"github.com/gammaray/spatialindex/source"
)

var (
	ErrNilSource          = errors.New("spatialindex: nil source")
	ErrUncomparableSource = errors.New("spatialindex: source is not comparable")
	ErrNegativeTolerance  = errors.New("spatialindex: negative tolerance")
	ErrInvalidCoordinate  = errors.New("spatialindex: invalid coordinate")
)

// Index is a bulk-loaded R-tree over the records of one data source.
type Index struct {
	backend  Backend
	nodeSize int
	log      *logrus.Entry

	mu        sync.RWMutex
	tree      broadPhase
	src       source.Source
	kind      source.Kind
	locations []geom.Location
	bounds    geom.Box
}

// Option configures an Index.
type Option func(*Index)

// WithBackend selects the R-tree implementation. The default is Packed.
func WithBackend(b Backend) Option {
	return func(idx *Index) { idx.backend = b }
}

// WithNodeSize sets the maximum number of children per tree node.
func WithNodeSize(n int) Option {
	return func(idx *Index) { idx.nodeSize = n }
}

// WithLogger sets the logger used for build and query diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(idx *Index) { idx.log = l.WithField("component", "spatialindex") }
}

// New returns an empty index.
func New(opts ...Option) *Index {
	idx := &Index{nodeSize: 16}
	for _, o := range opts {
		o(idx)
	}
	if idx.log == nil {
		idx.log = logrus.StandardLogger().WithField("component", "spatialindex")
	}
	return idx
}

// FillPoints rebuilds the index from a point cloud. Each point is indexed as a
// box extending tolerance along every axis.
func (idx *Index) FillPoints(ps source.PointSource, tolerance float64) error {
	if err := checkSource(ps); err != nil {
		return err
	}
	if tolerance < 0 {
		return fmt.Errorf("%w: %g", ErrNegativeTolerance, tolerance)
	}
	return idx.fill(ps, source.PointKind, func(i int) geom.Box {
		return geom.BoxAround(ps.Location(i), tolerance)
	})
}

// FillGrid rebuilds the index from the cells of a grid, each indexed by its
// own extents.
func (idx *Index) FillGrid(g source.GridSource) error {
	if err := checkSource(g); err != nil {
		return err
	}
	return idx.fill(g, source.GridKind, g.CellBox)
}

// FillSegments rebuilds the index from a segment set. Each segment is indexed
// by its bounding box grown by tolerance and located at its midpoint.
func (idx *Index) FillSegments(ss source.SegmentSource, tolerance float64) error {
	if err := checkSource(ss); err != nil {
		return err
	}
	if tolerance < 0 {
		return fmt.Errorf("%w: %g", ErrNegativeTolerance, tolerance)
	}
	return idx.fill(ss, source.SegmentKind, func(i int) geom.Box {
		from, to := ss.Segment(i)
		return geom.BoxOf(from, to).Expand(tolerance)
	})
}

// checkSource rejects nil sources, including nil pointers wrapped in the
// interface, and sources whose values cannot be compared with ==. Queries
// compare a cell's source with the indexed one to skip the query record.
func checkSource(src source.Source) error {
	if src == nil {
		return ErrNilSource
	}
	v := reflect.ValueOf(src)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return fmt.Errorf("%w: %T(nil)", ErrNilSource, src)
		}
	}
	if !v.Comparable() {
		return fmt.Errorf("%w: %T", ErrUncomparableSource, src)
	}
	return nil
}

func (idx *Index) fill(src source.Source, kind source.Kind, box func(int) geom.Box) error {
	start := time.Now()
	n := src.RecordCount()

	// build every entry first and hand the whole set to the tree in one go
	locations := make([]geom.Location, n)
	boxes := make([]geom.Box, n)
	for i := 0; i < n; i++ {
		loc, ok := source.RecordLocation(src, kind, i)
		if !ok {
			return fmt.Errorf("spatialindex: %T is not a %v source", src, kind)
		}
		b := box(i)
		if !loc.Valid() || !b.Min.Valid() || !b.Max.Valid() {
			return fmt.Errorf("%w: %v record %d at %+v", ErrInvalidCoordinate, kind, i, loc)
		}
		locations[i] = loc
		boxes[i] = b
	}

	var tree broadPhase
	bounds := geom.InvertedBox()
	if n > 0 {
		tree = buildBroadPhase(idx.backend, idx.nodeSize, boxes)
		bounds = tree.extent()
	}

	idx.mu.Lock()
	idx.tree = tree
	idx.src = src
	idx.kind = kind
	idx.locations = locations
	idx.bounds = bounds
	idx.mu.Unlock()

	idx.log.WithFields(logrus.Fields{
		"kind":     kind,
		"records":  n,
		"backend":  idx.backend,
		"duration": time.Since(start),
	}).Debug("spatial index filled")
	return nil
}

// Clear drops the tree and the reference to its source.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree = nil
	idx.src = nil
	idx.kind = source.LocationKind
	idx.locations = nil
	idx.bounds = geom.InvertedBox()
}

// IsEmpty reports whether there is no tree to query, either because the index
// was never filled, was cleared, or was filled from an empty source.
func (idx *Index) IsEmpty() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.tree == nil
}

// Len returns the number of indexed records.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.locations)
}

// Source returns the source the index was filled from, or nil.
func (idx *Index) Source() source.Source {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.src
}

// Cell returns a cell for one of the indexed records, reading column.
func (idx *Index) Cell(record, column int) (source.Cell, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if record < 0 || record >= len(idx.locations) {
		return source.Cell{}, false
	}
	return source.Cell{
		Kind:      idx.kind,
		Source:    idx.src,
		Record:    record,
		DataIndex: column,
		Center:    idx.locations[record],
	}, true
}
