package search

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/gammaray/spatialindex/geom"
)

var origin = geom.Location{}

func mustSphere(t *testing.T, r float64) Neighborhood {
	n, err := NewSphere(r)
	require.NoError(t, err)
	return n
}

func mustEllipsoid(t *testing.T, a Anisotropy) Neighborhood {
	n, err := NewEllipsoid(a)
	require.NoError(t, err)
	return n
}

func TestSphere(t *testing.T) {
	n := mustSphere(t, 3)
	require.Equal(t, Sphere, n.Kind())
	require.False(t, n.HasSpatialFiltering())
	require.True(t, n.IsInside(origin, geom.Location{X: 3}))
	require.True(t, n.IsInside(origin, geom.Location{X: 1, Y: 2, Z: 2}))
	require.False(t, n.IsInside(origin, geom.Location{Y: 3.01}))

	c := geom.Location{X: 10, Y: -5, Z: 1}
	b := n.BoundingBox(c)
	require.InDelta(t, 7, b.Min.X, 1e-6)
	require.InDelta(t, -2, b.Max.Y, 1e-6)
	require.Zero(t, b.MinDistanceSquared(geom.Location{X: 13, Y: -5, Z: 1}))

	point := mustSphere(t, 0)
	require.True(t, point.IsInside(c, c))
	require.False(t, point.IsInside(c, geom.Location{X: 10, Y: -5, Z: 1.0001}))
	_, err := NewSphere(-1)
	require.ErrorIs(t, err, ErrInvalidNeighborhood)
	_, err = NewSphere(math.NaN())
	require.ErrorIs(t, err, ErrInvalidNeighborhood)

	inf := mustSphere(t, math.Inf(1))
	require.True(t, inf.IsInside(origin, geom.Location{X: 1e300}))
	require.True(t, math.IsInf(inf.Reach(), 1))
}

func TestEllipsoidAxes(t *testing.T) {
	north := mustEllipsoid(t, Anisotropy{MajorRange: 10, MinorRange: 2, VerticalRange: 1})
	require.True(t, north.IsInside(origin, geom.Location{Y: 9.9}))
	require.False(t, north.IsInside(origin, geom.Location{X: 9.9}))
	require.True(t, north.IsInside(origin, geom.Location{X: -1.9}))
	require.False(t, north.IsInside(origin, geom.Location{Z: 1.1}))

	east := mustEllipsoid(t, Anisotropy{MajorRange: 10, MinorRange: 2, VerticalRange: 1, Azimuth: 90})
	require.True(t, east.IsInside(origin, geom.Location{X: 9.9}))
	require.False(t, east.IsInside(origin, geom.Location{Y: 9.9}))

	dipping := mustEllipsoid(t, Anisotropy{MajorRange: 10, MinorRange: 2, VerticalRange: 1, Azimuth: 90, Dip: 90})
	require.True(t, dipping.IsInside(origin, geom.Location{Z: -9.9}))
	require.False(t, dipping.IsInside(origin, geom.Location{X: 9.9}))

	b := east.BoundingBox(origin)
	require.InDelta(t, 10, b.Max.X, 1e-6)
	require.InDelta(t, 2, b.Max.Y, 1e-6)
	require.InDelta(t, 1, b.Max.Z, 1e-6)
	require.InDelta(t, 10, east.Reach(), 1e-6)

	_, err := NewEllipsoid(Anisotropy{MajorRange: 10, MinorRange: 0, VerticalRange: 1})
	require.ErrorIs(t, err, ErrInvalidNeighborhood)
}

func TestRotationIsOrthonormal(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 50; i++ {
		n := mustEllipsoid(t, Anisotropy{
			MajorRange: 5, MinorRange: 3, VerticalRange: 1,
			Azimuth: rng.Float64() * 360, Dip: rng.Float64()*180 - 90, Rake: rng.Float64()*180 - 90,
		})
		r := n.Rotation()
		var p mat.Dense
		p.Mul(r, r.T())
		require.True(t, mat.EqualApprox(&p, eye(3), 1e-12))
	}
}

func eye(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

// surfacePoint maps a unit direction u in the ellipsoid frame, scaled by s,
// back to world coordinates around c.
func surfacePoint(n Neighborhood, c geom.Location, u [3]float64, s float64) geom.Location {
	var w [3]float64
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			w[i] += n.rot[j][i] * n.radii[j] * u[j] * s
		}
	}
	return geom.Location{X: c.X + w[0], Y: c.Y + w[1], Z: c.Z + w[2]}
}

func TestBoundingBoxEnclosesEllipsoid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 40; i++ {
		n := mustEllipsoid(t, Anisotropy{
			MajorRange:    1 + rng.Float64()*100,
			MinorRange:    1 + rng.Float64()*50,
			VerticalRange: 1 + rng.Float64()*10,
			Azimuth:       rng.Float64() * 360,
			Dip:           rng.Float64()*180 - 90,
			Rake:          rng.Float64()*180 - 90,
		})
		c := geom.Location{X: rng.Float64() * 1000, Y: rng.Float64() * 1000, Z: rng.Float64() * 100}
		b := n.BoundingBox(c)
		reach := n.Reach()
		for k := 0; k < 200; k++ {
			u := [3]float64{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			norm := math.Sqrt(u[0]*u[0] + u[1]*u[1] + u[2]*u[2])
			for j := range u {
				u[j] /= norm
			}
			on := surfacePoint(n, c, u, 1)
			require.Zero(t, b.MinDistanceSquared(on), "surface point %v outside %v", on, b)
			require.LessOrEqual(t, c.Distance(on), reach)
			require.True(t, n.IsInside(c, on), "surface point %v not inside", on)
			require.True(t, n.IsInside(c, surfacePoint(n, c, u, 0.999)))
			require.False(t, n.IsInside(c, surfacePoint(n, c, u, 1.001)))
		}
	}
}

func TestSectors(t *testing.T) {
	sphere := mustSphere(t, 10)
	oct, err := NewSectored(sphere, 8, 1)
	require.NoError(t, err)
	require.True(t, oct.HasSpatialFiltering())
	require.Equal(t, 8, oct.Sectors())

	seen := map[int]bool{}
	for _, x := range []float64{1, -1} {
		for _, y := range []float64{1, -1} {
			for _, z := range []float64{1, -1} {
				seen[oct.Sector(origin, geom.Location{X: x, Y: y, Z: z})] = true
			}
		}
	}
	require.Len(t, seen, 8)

	quad, err := NewSectored(sphere, 4, 0)
	require.NoError(t, err)
	require.Equal(t, quad.Sector(origin, geom.Location{X: 1, Y: 1, Z: 5}), quad.Sector(origin, geom.Location{X: 1, Y: 1, Z: -5}))
	require.Equal(t, 0, sphere.Sector(origin, geom.Location{X: -1}))

	_, err = NewSectored(sphere, 6, 1)
	require.ErrorIs(t, err, ErrInvalidNeighborhood)
	_, err = NewSectored(oct, 8, 1)
	require.ErrorIs(t, err, ErrInvalidNeighborhood)
	_, err = NewSectored(mustSphere(t, math.Inf(1)), 8, 1)
	require.ErrorIs(t, err, ErrInvalidNeighborhood)
	_, err = NewSectored(mustSphere(t, 0), 4, 1)
	require.ErrorIs(t, err, ErrInvalidNeighborhood)
}

func TestSectorsFollowRotation(t *testing.T) {
	at := func(azimuth float64) Neighborhood {
		e := mustEllipsoid(t, Anisotropy{MajorRange: 10, MinorRange: 5, VerticalRange: 2, Azimuth: azimuth})
		n, err := NewSectored(e, 8, 1)
		require.NoError(t, err)
		return n
	}

	// azimuth 90 puts the major axis on +X and the minor axis on +Y
	east := at(90)
	require.Equal(t, 0, east.Sector(origin, geom.Location{X: 2, Y: 1, Z: 0.5}))
	require.Equal(t, 1, east.Sector(origin, geom.Location{X: -2, Y: 1, Z: 0.5}))
	require.Equal(t, 2, east.Sector(origin, geom.Location{X: 2, Y: -1, Z: 0.5}))
	require.Equal(t, 3, east.Sector(origin, geom.Location{X: -2, Y: -1, Z: 0.5}))
	require.Equal(t, 4, east.Sector(origin, geom.Location{X: 2, Y: 1, Z: -0.5}))

	// azimuth 0 puts the major axis on +Y and the minor axis on -X
	north := at(0)
	require.Equal(t, 0, north.Sector(origin, geom.Location{X: -1, Y: 2, Z: 0.5}))
	require.Equal(t, 1, north.Sector(origin, geom.Location{X: -1, Y: -2, Z: 0.5}))
	require.Equal(t, 2, north.Sector(origin, geom.Location{X: 1, Y: 2, Z: 0.5}))
	require.Equal(t, 3, north.Sector(origin, geom.Location{X: 1, Y: -2, Z: 0.5}))
	require.Equal(t, 7, north.Sector(origin, geom.Location{X: 1, Y: -2, Z: -0.5}))

	// the same world point changes sector when the ellipsoid turns
	p := geom.Location{X: 2, Y: 1, Z: 0.5}
	require.NotEqual(t, east.Sector(origin, p), north.Sector(origin, p))

	// sectors are relative to the query center
	c := geom.Location{X: 100, Y: -40, Z: 7}
	require.Equal(t, 3, east.Sector(c, geom.Location{X: 98, Y: -41, Z: 7.5}))
}

func TestPerSectorLimit(t *testing.T) {
	quad, err := NewSectored(mustSphere(t, 10), 4, 0)
	require.NoError(t, err)
	require.Equal(t, 3, quad.PerSectorLimit(Strategy{DesiredSampleCount: 10}))
	require.Equal(t, 1, quad.PerSectorLimit(Strategy{DesiredSampleCount: 0}))

	fixed, err := NewSectored(mustSphere(t, 10), 4, 2)
	require.NoError(t, err)
	require.Equal(t, 2, fixed.PerSectorLimit(Strategy{DesiredSampleCount: 10}))
	require.Equal(t, 0, mustSphere(t, 10).PerSectorLimit(Strategy{DesiredSampleCount: 10}))
}

func TestPerformSpatialFilter(t *testing.T) {
	quad, err := NewSectored(mustSphere(t, 10), 4, 2)
	require.NoError(t, err)
	s, err := NewStrategy(quad, 8, 0, 0)
	require.NoError(t, err)

	locs := []geom.Location{{X: 1, Y: 1}, {X: -1, Y: 1.5}, {X: 2, Y: 1}, {X: 2, Y: 2}, {X: -3, Y: -1}, {X: 3, Y: 3}}
	candidates := make([]Candidate, len(locs))
	for i, loc := range locs {
		candidates[i] = Candidate{Record: i, Location: loc, Distance: origin.Distance(loc)}
	}
	kept := quad.PerformSpatialFilter(origin, candidates, s)
	require.Equal(t, []int{0, 1, 2, 4}, Records(kept))

	// the sieve gives the same result fed one at a time
	sieve := quad.NewSieve(origin, s)
	var admitted []int
	for i, loc := range locs {
		if sieve.Admit(loc) {
			admitted = append(admitted, i)
		}
	}
	require.Equal(t, []int{0, 1, 2, 4}, admitted)

	sphere := mustSphere(t, 10)
	all := []Candidate{{Record: 9}, {Record: 8}}
	require.Equal(t, all, sphere.PerformSpatialFilter(origin, all, Strategy{Neighborhood: sphere, DesiredSampleCount: 1}))
}

func TestStrategyValidate(t *testing.T) {
	n := mustSphere(t, 1)
	tests := []struct {
		name string
		s    Strategy
		ok   bool
	}{
		{"valid", Strategy{Neighborhood: n, DesiredSampleCount: 4, MinRequiredSampleCount: 1}, true},
		{"no neighborhood", Strategy{DesiredSampleCount: 4}, false},
		{"min above desired", Strategy{Neighborhood: n, DesiredSampleCount: 2, MinRequiredSampleCount: 3}, false},
		{"negative spacing", Strategy{Neighborhood: n, DesiredSampleCount: 2, MinDistanceBetweenSamples: -1}, false},
		{"nan spacing", Strategy{Neighborhood: n, DesiredSampleCount: 2, MinDistanceBetweenSamples: math.NaN()}, false},
		{"negative count", Strategy{Neighborhood: n, DesiredSampleCount: -1, MinRequiredSampleCount: -2}, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := test.s.Validate()
			if test.ok {
				require.NoError(t, err)
			} else {
				require.ErrorIs(t, err, ErrInvalidStrategy)
			}
		})
	}
}

func TestSortCandidates(t *testing.T) {
	cs := []Candidate{
		{Record: 7, Distance: 2},
		{Record: 3, Distance: 1},
		{Record: 5, Distance: 2},
		{Record: 1, Distance: 3},
	}
	SortCandidates(cs)
	require.Equal(t, []int{3, 5, 7, 1}, Records(cs))
	require.True(t, cs[1].Less(cs[2]))
}

func TestSelector(t *testing.T) {
	s, err := NewStrategy(mustSphere(t, 3), 10, 1.5, 1)
	require.NoError(t, err)
	sel := NewSelector(s)
	require.False(t, sel.Sufficient())
	require.True(t, sel.Offer(Candidate{Record: 1, Location: geom.Location{X: 1}, Distance: 1}))
	require.False(t, sel.Offer(Candidate{Record: 2, Location: geom.Location{X: 2}, Distance: 2}))
	require.True(t, sel.Offer(Candidate{Record: 3, Location: geom.Location{X: -1}, Distance: 1}))
	require.True(t, sel.Sufficient())
	require.Equal(t, []int{1, 3}, Records(sel.Accepted()))

	s.DesiredSampleCount = 1
	sel = NewSelector(s)
	require.True(t, sel.Offer(Candidate{Record: 1}))
	require.True(t, sel.Full())
	require.False(t, sel.Offer(Candidate{Record: 2, Location: geom.Location{X: 100}}))
}
