// Package flatbush is a packed Hilbert R-tree for static sets of 3D boxes.
//
// It started life as a port of https://github.com/mourner/flatbush and keeps
// its layout: all boxes live in one flat slice, leaves first, followed by each
// level of parent nodes. The tree cannot be modified after Finish().
package flatbush

import "math"

// Flatbush is a spatial index for efficient 3D box and nearest neighbour
// queries. TFloat selects the coordinate precision.
type Flatbush[TFloat float32 | float64] struct {
	NodeSize int // Minimum 2. Default 16

	boxes         []Box[TFloat]
	bounds        Box[TFloat]
	hilbertValues []uint32
	levelBounds   []int
	numItems      int
}

// Flatbush32 stores coordinates as 32-bit floats.
type Flatbush32 = Flatbush[float32]

// Flatbush64 stores coordinates as 64-bit floats.
type Flatbush64 = Flatbush[float64]

// NewFlatbush creates an empty index with the default node size.
func NewFlatbush[TFloat float32 | float64]() *Flatbush[TFloat] {
	return &Flatbush[TFloat]{
		NodeSize: 16,
		bounds:   InvertedBox[TFloat](),
	}
}

func NewFlatbush32() *Flatbush32 {
	return NewFlatbush[float32]()
}

func NewFlatbush64() *Flatbush64 {
	return NewFlatbush[float64]()
}

// Reserve enough boxes for the given number of items
func (f *Flatbush[TFloat]) Reserve(size int) {
	if f.NodeSize < 2 {
		f.NodeSize = 2
	}
	n := size
	numNodes := n
	for n > 1 {
		n = (n + f.NodeSize - 1) / f.NodeSize
		numNodes += n
	}
	f.boxes = make([]Box[TFloat], 0, numNodes)
}

// Add a new box, and return its index.
// The index of the box is zero based, and corresponds 1:1 with the insertion of order of the boxes.
// You must add all boxes before calling Finish().
func (f *Flatbush[TFloat]) Add(minX, minY, minZ, maxX, maxY, maxZ TFloat) int {
	index := len(f.boxes)
	f.boxes = append(f.boxes, Box[TFloat]{
		MinX:  minX,
		MinY:  minY,
		MinZ:  minZ,
		MaxX:  maxX,
		MaxY:  maxY,
		MaxZ:  maxZ,
		Index: index,
	})
	f.bounds.MinX = min(f.bounds.MinX, minX)
	f.bounds.MinY = min(f.bounds.MinY, minY)
	f.bounds.MinZ = min(f.bounds.MinZ, minZ)
	f.bounds.MaxX = max(f.bounds.MaxX, maxX)
	f.bounds.MaxY = max(f.bounds.MaxY, maxY)
	f.bounds.MaxZ = max(f.bounds.MaxZ, maxZ)
	return index
}

// Finish builds the spatial index, so that it can be queried.
func (f *Flatbush[TFloat]) Finish() {
	f.numItems = len(f.boxes)
	f.NodeSize, f.levelBounds, f.hilbertValues, f.boxes = finishIndexBuild(f.NodeSize, f.boxes, f.bounds)
}

// NumItems returns the number of boxes added before Finish().
func (f *Flatbush[TFloat]) NumItems() int {
	return f.numItems
}

// Bounds returns the box enclosing every item.
func (f *Flatbush[TFloat]) Bounds() Box[TFloat] {
	return f.bounds
}

// Search for all boxes that overlap the given query box.
func (f *Flatbush[TFloat]) Search(minX, minY, minZ, maxX, maxY, maxZ TFloat) []int {
	results := []int{}
	return f.SearchFast(minX, minY, minZ, maxX, maxY, maxZ, results)
}

// SearchFast accepts a 'results' as input. If you are performing millions of queries,
// then reusing a 'results' slice will reduce the number of allocations.
func (f *Flatbush[TFloat]) SearchFast(minX, minY, minZ, maxX, maxY, maxZ TFloat, results []int) []int {
	q := Box[TFloat]{MinX: minX, MinY: minY, MinZ: minZ, MaxX: maxX, MaxY: maxY, MaxZ: maxZ}
	return searchInTree(f.NodeSize, f.numItems, f.levelBounds, f.boxes, q, results)
}

// Box is one entry of the tree. For leaves, Index is the insertion index of
// the box. For parent nodes, Index is the position of the node's first child.
type Box[TFloat float32 | float64] struct {
	MinX  TFloat
	MinY  TFloat
	MinZ  TFloat
	MaxX  TFloat
	MaxY  TFloat
	MaxZ  TFloat
	Index int
}

func InvertedBox[TFloat float32 | float64]() Box[TFloat] {
	maxValue := TFloat(math.Inf(1))
	return Box[TFloat]{
		MinX:  maxValue,
		MinY:  maxValue,
		MinZ:  maxValue,
		MaxX:  -maxValue,
		MaxY:  -maxValue,
		MaxZ:  -maxValue,
		Index: -1,
	}
}

// PositiveUnion reports whether a and b overlap. Touching faces count.
func (a *Box[TFloat]) PositiveUnion(b *Box[TFloat]) bool {
	return b.MaxX >= a.MinX && b.MinX <= a.MaxX &&
		b.MaxY >= a.MinY && b.MinY <= a.MaxY &&
		b.MaxZ >= a.MinZ && b.MinZ <= a.MaxZ
}

// distSq returns the squared distance from (x, y, z) to the box, zero when the
// point is inside.
func (a *Box[TFloat]) distSq(x, y, z TFloat) float64 {
	dx := axisDist(x, a.MinX, a.MaxX)
	dy := axisDist(y, a.MinY, a.MaxY)
	dz := axisDist(z, a.MinZ, a.MaxZ)
	return dx*dx + dy*dy + dz*dz
}

func axisDist[TFloat float32 | float64](k, lo, hi TFloat) float64 {
	if k < lo {
		return float64(lo) - float64(k)
	}
	if k <= hi {
		return 0
	}
	return float64(k) - float64(hi)
}
