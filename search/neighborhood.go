// Package search holds the parameters that shape a neighbour query: the
// neighbourhood a sample must fall in and the strategy that decides how many
// samples are kept and how far apart they must be.
package search

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/gammaray/spatialindex/geom"
)

var ErrInvalidNeighborhood = errors.New("search: invalid neighborhood")

// boxPad widens bounding boxes by a relative amount so that rounding in the
// rotation never leaves an inside point out of the box.
const boxPad = 1e-9

// insideEps is the relative slack IsInside allows on the shape equation, so
// that points computed to lie on the surface count as inside. It must stay
// well below boxPad.
const insideEps = 1e-10

// Kind enumerates the neighbourhood shapes.
type Kind int

const (
	Sphere Kind = iota
	Ellipsoid
	SectoredEllipsoid
)

func (k Kind) String() string {
	switch k {
	case Sphere:
		return "sphere"
	case Ellipsoid:
		return "ellipsoid"
	case SectoredEllipsoid:
		return "sectored"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Anisotropy describes an ellipsoid with the GSLIB angle convention: Azimuth
// is measured clockwise from north (+Y) to the major axis, Dip rotates the
// major axis down from the horizontal, Rake rotates about the major axis.
// Angles are in degrees.
type Anisotropy struct {
	MajorRange    float64
	MinorRange    float64
	VerticalRange float64
	Azimuth       float64
	Dip           float64
	Rake          float64
}

// Neighborhood is a search shape centered on a query location. The zero value
// is not usable; build one with NewSphere, NewEllipsoid or NewSectored.
type Neighborhood struct {
	kind  Kind
	radii [3]float64
	// rot maps world offsets into the ellipsoid frame; rows are the
	// ellipsoid axes in world coordinates.
	rot          [3][3]float64
	sectors      int
	maxPerSector int
}

// NewSphere returns an isotropic neighbourhood. radius may be +Inf, or zero to
// match coincident points only.
func NewSphere(radius float64) (Neighborhood, error) {
	if !(radius >= 0) {
		return Neighborhood{}, fmt.Errorf("%w: radius %g", ErrInvalidNeighborhood, radius)
	}
	return Neighborhood{
		kind:  Sphere,
		radii: [3]float64{radius, radius, radius},
		rot:   [3][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}, nil
}

// NewEllipsoid returns an anisotropic neighbourhood.
func NewEllipsoid(a Anisotropy) (Neighborhood, error) {
	for _, r := range []float64{a.MajorRange, a.MinorRange, a.VerticalRange} {
		if !(r > 0) || math.IsInf(r, 0) {
			return Neighborhood{}, fmt.Errorf("%w: ranges must be positive and finite, got %g/%g/%g",
				ErrInvalidNeighborhood, a.MajorRange, a.MinorRange, a.VerticalRange)
		}
	}
	return Neighborhood{
		kind:  Ellipsoid,
		radii: [3]float64{a.MajorRange, a.MinorRange, a.VerticalRange},
		rot:   rotation(a.Azimuth, a.Dip, a.Rake),
	}, nil
}

// NewSectored restricts a sphere or ellipsoid to 4 horizontal quadrants or 8
// octants, each keeping at most maxPerSector samples. maxPerSector 0 means
// the desired sample count of the strategy spread evenly over the sectors.
func NewSectored(base Neighborhood, sectors, maxPerSector int) (Neighborhood, error) {
	if base.kind != Sphere && base.kind != Ellipsoid {
		return Neighborhood{}, fmt.Errorf("%w: cannot sector a %v neighborhood", ErrInvalidNeighborhood, base.kind)
	}
	if !(base.radii[0] > 0) || math.IsInf(base.radii[0], 0) {
		return Neighborhood{}, fmt.Errorf("%w: sectored search needs a positive finite radius", ErrInvalidNeighborhood)
	}
	if sectors != 4 && sectors != 8 {
		return Neighborhood{}, fmt.Errorf("%w: %d sectors, want 4 or 8", ErrInvalidNeighborhood, sectors)
	}
	if maxPerSector < 0 {
		return Neighborhood{}, fmt.Errorf("%w: negative samples per sector", ErrInvalidNeighborhood)
	}
	base.kind = SectoredEllipsoid
	base.sectors = sectors
	base.maxPerSector = maxPerSector
	return base, nil
}

// rotation builds the GSLIB world-to-ellipsoid rotation: azimuth about Z,
// then dip about the new Y, then rake about the new X.
func rotation(azimuth, dip, rake float64) [3][3]float64 {
	var alpha float64
	if azimuth >= 0 && azimuth < 270 {
		alpha = (90 - azimuth) * math.Pi / 180
	} else {
		alpha = (450 - azimuth) * math.Pi / 180
	}
	beta := -dip * math.Pi / 180
	theta := rake * math.Pi / 180

	sa, ca := math.Sincos(alpha)
	sb, cb := math.Sincos(beta)
	st, ct := math.Sincos(theta)

	rz := mat.NewDense(3, 3, []float64{
		ca, sa, 0,
		-sa, ca, 0,
		0, 0, 1,
	})
	ry := mat.NewDense(3, 3, []float64{
		cb, 0, -sb,
		0, 1, 0,
		sb, 0, cb,
	})
	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, ct, st,
		0, -st, ct,
	})
	var r mat.Dense
	r.Product(rx, ry, rz)

	var out [3][3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			out[i][j] = r.At(i, j)
		}
	}
	return out
}

func (n Neighborhood) Kind() Kind { return n.kind }

// Radii returns the major, minor and vertical ranges.
func (n Neighborhood) Radii() [3]float64 { return n.radii }

// Sectors returns the number of sectors, zero for unsectored shapes.
func (n Neighborhood) Sectors() int { return n.sectors }

// Rotation returns the world-to-ellipsoid rotation as a 3x3 matrix.
func (n Neighborhood) Rotation() *mat.Dense {
	r := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			r.Set(i, j, n.rot[i][j])
		}
	}
	return r
}

func (n Neighborhood) local(center, p geom.Location) [3]float64 {
	d := [3]float64{p.X - center.X, p.Y - center.Y, p.Z - center.Z}
	var l [3]float64
	for i := 0; i < 3; i++ {
		l[i] = n.rot[i][0]*d[0] + n.rot[i][1]*d[1] + n.rot[i][2]*d[2]
	}
	return l
}

// BoundingBox returns an axis aligned box that encloses the shape centered at
// center.
func (n Neighborhood) BoundingBox(center geom.Location) geom.Box {
	var half [3]float64
	switch n.kind {
	case Sphere:
		half = n.radii
	case Ellipsoid, SectoredEllipsoid:
		// extent along world axis i of an ellipsoid whose axis j points along row j of rot
		for i := 0; i < 3; i++ {
			var s float64
			for j := 0; j < 3; j++ {
				v := n.rot[j][i] * n.radii[j]
				s += v * v
			}
			half[i] = math.Sqrt(s)
		}
	}
	pad := boxPad * max(n.radii[0], n.radii[1], n.radii[2])
	return geom.Box{
		Min: geom.Location{X: center.X - half[0] - pad, Y: center.Y - half[1] - pad, Z: center.Z - half[2] - pad},
		Max: geom.Location{X: center.X + half[0] + pad, Y: center.Y + half[1] + pad, Z: center.Z + half[2] + pad},
	}
}

// Reach returns a distance beyond which no point can be inside the shape.
func (n Neighborhood) Reach() float64 {
	r := max(n.radii[0], n.radii[1], n.radii[2])
	return r + boxPad*r
}

// IsInside reports whether p lies in the shape centered at center.
func (n Neighborhood) IsInside(center, p geom.Location) bool {
	switch n.kind {
	case Sphere:
		return center.DistanceSquared(p) <= n.radii[0]*n.radii[0]*(1+insideEps)
	case Ellipsoid, SectoredEllipsoid:
		l := n.local(center, p)
		var s float64
		for i := 0; i < 3; i++ {
			v := l[i] / n.radii[i]
			s += v * v
		}
		return s <= 1+insideEps
	}
	return false
}

// HasSpatialFiltering reports whether PerformSpatialFilter can drop samples
// that IsInside accepts.
func (n Neighborhood) HasSpatialFiltering() bool {
	return n.kind == SectoredEllipsoid
}

// Sector returns the sector of p around center in the shape's own frame, or
// 0 for unsectored shapes. Points on a dividing plane go to the positive side.
func (n Neighborhood) Sector(center, p geom.Location) int {
	if n.kind != SectoredEllipsoid {
		return 0
	}
	l := n.local(center, p)
	s := 0
	if l[0] < 0 {
		s |= 1
	}
	if l[1] < 0 {
		s |= 2
	}
	if n.sectors == 8 && l[2] < 0 {
		s |= 4
	}
	return s
}

// PerSectorLimit returns how many samples one sector may contribute under the
// given strategy, or 0 for no limit.
func (n Neighborhood) PerSectorLimit(s Strategy) int {
	if n.kind != SectoredEllipsoid {
		return 0
	}
	if n.maxPerSector > 0 {
		return n.maxPerSector
	}
	return max(1, (s.DesiredSampleCount+n.sectors-1)/n.sectors)
}

// PerformSpatialFilter removes the candidates that the sector limits reject,
// keeping the survivors in their original order. It expects candidates sorted
// nearest first and returns the shortened slice.
func (n Neighborhood) PerformSpatialFilter(center geom.Location, candidates []Candidate, s Strategy) []Candidate {
	if !n.HasSpatialFiltering() {
		return candidates
	}
	sieve := n.NewSieve(center, s)
	kept := candidates[:0]
	for _, c := range candidates {
		if sieve.Admit(c.Location) {
			kept = append(kept, c)
		}
	}
	return kept
}

// Sieve is the running state of the sector filter for one query. Feeding it
// candidates one at a time, nearest first, gives the same answer as
// PerformSpatialFilter on the whole list.
type Sieve struct {
	n      Neighborhood
	center geom.Location
	limit  int
	counts [8]int
}

func (n Neighborhood) NewSieve(center geom.Location, s Strategy) *Sieve {
	return &Sieve{n: n, center: center, limit: n.PerSectorLimit(s)}
}

// Admit reports whether p passes the filter and counts it if so.
func (sv *Sieve) Admit(p geom.Location) bool {
	if sv.limit == 0 {
		return true
	}
	sector := sv.n.Sector(sv.center, p)
	if sv.counts[sector] >= sv.limit {
		return false
	}
	sv.counts[sector]++
	return true
}
