package spatialindex

import (
	"fmt"
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/gammaray/spatialindex/flatbush"
	"github.com/gammaray/spatialindex/geom"
)

// Backend selects the R-tree implementation behind an Index.
type Backend int

const (
	// Packed is a static Hilbert-packed R-tree. It is the default and walks
	// neighbours lazily, which suits the tuned algorithm.
	Packed Backend = iota
	// RTree is a bulk-loaded dynamic R-tree.
	RTree
)

func (b Backend) String() string {
	switch b {
	case Packed:
		return "packed"
	case RTree:
		return "rtree"
	}
	return fmt.Sprintf("Backend(%d)", int(b))
}

// ParseBackend is the inverse of Backend.String.
func ParseBackend(s string) (Backend, error) {
	switch s {
	case "packed":
		return Packed, nil
	case "rtree":
		return RTree, nil
	}
	return 0, fmt.Errorf("spatialindex: unknown backend %q", s)
}

// broadPhase is the part of an R-tree the queries need. Items are identified
// by record index.
type broadPhase interface {
	// extent is the box enclosing every item.
	extent() geom.Box
	search(q geom.Box) []int
	// neighbors yields records in non-decreasing order of a lower bound of
	// their distance to p.
	neighbors(p geom.Location) neighborIterator
}

type neighborIterator interface {
	// Next returns a record and the squared lower bound of its distance.
	Next() (record int, distSq float64, ok bool)
}

func buildBroadPhase(b Backend, nodeSize int, boxes []geom.Box) broadPhase {
	switch b {
	case RTree:
		return newRTreeBackend(nodeSize, boxes)
	}
	return newPackedBackend(nodeSize, boxes)
}

type packedBackend struct {
	tree *flatbush.Flatbush64
}

func newPackedBackend(nodeSize int, boxes []geom.Box) *packedBackend {
	f := flatbush.NewFlatbush64()
	if nodeSize > 0 {
		f.NodeSize = nodeSize
	}
	f.Reserve(len(boxes))
	for _, b := range boxes {
		f.Add(b.Min.X, b.Min.Y, b.Min.Z, b.Max.X, b.Max.Y, b.Max.Z)
	}
	f.Finish()
	return &packedBackend{tree: f}
}

func (p *packedBackend) extent() geom.Box {
	b := p.tree.Bounds()
	return geom.Box{
		Min: geom.Location{X: b.MinX, Y: b.MinY, Z: b.MinZ},
		Max: geom.Location{X: b.MaxX, Y: b.MaxY, Z: b.MaxZ},
	}
}

func (p *packedBackend) search(q geom.Box) []int {
	return p.tree.Search(q.Min.X, q.Min.Y, q.Min.Z, q.Max.X, q.Max.Y, q.Max.Z)
}

func (p *packedBackend) neighbors(loc geom.Location) neighborIterator {
	return p.tree.Neighbors(loc.X, loc.Y, loc.Z)
}

// rtreego treats boxes that only touch as disjoint, so every box handed to it
// is grown a little and results are checked against the exact boxes.
const rtreeSlack = 1e-9

const rtreeMinChildren = 5

type rtreeItem struct {
	record int
	rect   rtreego.Rect
}

func (it *rtreeItem) Bounds() rtreego.Rect {
	return it.rect
}

type rtreeBackend struct {
	tree   *rtreego.Rtree
	exact  []geom.Box
	padded []geom.Box
	bounds geom.Box
}

func newRTreeBackend(nodeSize int, boxes []geom.Box) *rtreeBackend {
	maxChildren := nodeSize
	if maxChildren < 2*rtreeMinChildren {
		maxChildren = 16
	}
	b := &rtreeBackend{exact: boxes, padded: make([]geom.Box, len(boxes)), bounds: geom.InvertedBox()}
	items := make([]rtreego.Spatial, len(boxes))
	for i, box := range boxes {
		b.bounds = b.bounds.Union(box)
		b.padded[i] = slack(box)
		items[i] = &rtreeItem{record: i, rect: toRect(b.padded[i])}
	}
	b.tree = rtreego.NewTree(3, rtreeMinChildren, maxChildren, items...)
	return b
}

func slack(b geom.Box) geom.Box {
	scale := max(math.Abs(b.Min.X), math.Abs(b.Min.Y), math.Abs(b.Min.Z),
		math.Abs(b.Max.X), math.Abs(b.Max.Y), math.Abs(b.Max.Z), 1)
	return b.Expand(rtreeSlack * scale)
}

func toRect(b geom.Box) rtreego.Rect {
	r, err := rtreego.NewRectFromPoints(
		rtreego.Point{b.Min.X, b.Min.Y, b.Min.Z},
		rtreego.Point{b.Max.X, b.Max.Y, b.Max.Z},
	)
	if err != nil {
		// only reachable with mismatched dimensions
		panic(err)
	}
	return r
}

func (b *rtreeBackend) extent() geom.Box {
	return b.bounds
}

func (b *rtreeBackend) search(q geom.Box) []int {
	found := b.tree.SearchIntersect(toRect(slack(q)))
	out := make([]int, 0, len(found))
	for _, s := range found {
		it := s.(*rtreeItem)
		if b.exact[it.record].Intersects(q) {
			out = append(out, it.record)
		}
	}
	return out
}

func (b *rtreeBackend) neighbors(p geom.Location) neighborIterator {
	return &rtreeNeighbors{b: b, p: p, seen: make(map[int]struct{})}
}

// rtreeNeighbors pages through rtreego's k-nearest results with a growing k.
type rtreeNeighbors struct {
	b     *rtreeBackend
	p     geom.Location
	k     int
	batch []int
	pos   int
	seen  map[int]struct{}
	done  bool
}

func (it *rtreeNeighbors) Next() (int, float64, bool) {
	for {
		for it.pos < len(it.batch) {
			record := it.batch[it.pos]
			it.pos++
			if _, ok := it.seen[record]; ok {
				continue
			}
			it.seen[record] = struct{}{}
			return record, it.b.padded[record].MinDistanceSquared(it.p), true
		}
		if it.done {
			return -1, 0, false
		}
		it.fetch()
	}
}

func (it *rtreeNeighbors) fetch() {
	it.k = max(2*it.k, 16)
	found := it.b.tree.NearestNeighbors(it.k, rtreego.Point{it.p.X, it.p.Y, it.p.Z})
	it.batch = it.batch[:0]
	for _, s := range found {
		if s == nil {
			continue
		}
		it.batch = append(it.batch, s.(*rtreeItem).record)
	}
	it.pos = 0
	if len(it.batch) < it.k {
		it.done = true
	}
}
