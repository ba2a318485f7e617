package flatbush

import "github.com/tidwall/tinyqueue"

type queueItem struct {
	pos   int // leaf: insertion index. node: position of the first child
	level int
	leaf  bool
	dist  float64
}

func (item *queueItem) Less(b tinyqueue.Item) bool {
	other := b.(*queueItem)
	if item.dist != other.dist {
		return item.dist < other.dist
	}
	// leaves first so that equal distances are yielded without expanding more nodes
	return item.leaf && !other.leaf
}

// NeighborIterator walks the items of a finished tree in ascending distance
// from a query point. The distance is measured to the item's box, so it is a
// lower bound for the distance to anything contained in that box.
type NeighborIterator[TFloat float32 | float64] struct {
	f       *Flatbush[TFloat]
	x, y, z TFloat
	queue   *tinyqueue.Queue
}

// Neighbors returns an iterator over all items, nearest first. Nothing is
// visited until Next is called.
func (f *Flatbush[TFloat]) Neighbors(x, y, z TFloat) *NeighborIterator[TFloat] {
	it := &NeighborIterator[TFloat]{f: f, x: x, y: y, z: z, queue: tinyqueue.New(nil)}
	if len(f.levelBounds) != 0 && f.numItems != 0 {
		it.queue.Push(&queueItem{pos: len(f.boxes) - 1, level: len(f.levelBounds) - 1})
	}
	return it
}

// Next returns the next nearest item and its squared box distance. ok is false
// once the tree is exhausted.
func (it *NeighborIterator[TFloat]) Next() (index int, distSq float64, ok bool) {
	for it.queue.Len() > 0 {
		top := it.queue.Pop().(*queueItem)
		if top.leaf {
			return top.pos, top.dist, true
		}
		it.expand(top)
	}
	return -1, 0, false
}

func (it *NeighborIterator[TFloat]) expand(node *queueItem) {
	f := it.f
	end := min(node.pos+f.NodeSize, f.levelBounds[node.level])
	leaves := node.pos < f.numItems
	for pos := node.pos; pos < end; pos++ {
		b := &f.boxes[pos]
		it.queue.Push(&queueItem{
			pos:   b.Index,
			level: node.level - 1,
			leaf:  leaves,
			dist:  b.distSq(it.x, it.y, it.z),
		})
	}
}
