package source

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gammaray/spatialindex/geom"
)

func TestPointSet(t *testing.T) {
	ps, err := NewPointSet(
		[]geom.Location{{X: 0, Y: 0, Z: 0}, {X: 3, Y: 4, Z: 0}},
		[]float64{1.5, 2.5},
		[]float64{10, 20},
	)
	require.NoError(t, err)
	require.Equal(t, 2, ps.RecordCount())

	c, err := PointCell(ps, 1, 1)
	require.NoError(t, err)
	require.Equal(t, PointKind, c.Kind)
	require.Equal(t, geom.Location{X: 3, Y: 4}, c.Center)
	require.Equal(t, 20.0, c.ReadValue())
	require.True(t, c.Refers(ps, 1))
	require.False(t, c.Refers(ps, 0))

	o, err := PointCell(ps, 0, 0)
	require.NoError(t, err)
	require.Equal(t, 5.0, c.Distance(o))

	_, err = PointCell(ps, 0, 2)
	require.ErrorIs(t, err, ErrRange)

	_, err = NewPointSet([]geom.Location{{}}, []float64{1, 2})
	require.ErrorIs(t, err, ErrShape)
}

func TestCartesianGrid(t *testing.T) {
	values := make([]float64, 4*3*2)
	for i := range values {
		values[i] = float64(i)
	}
	g, err := NewCartesianGrid(geom.Location{X: 10, Y: 20, Z: 30}, 2, 4, 1, 4, 3, 2, values)
	require.NoError(t, err)
	require.Equal(t, 24, g.RecordCount())

	c, err := GridCell(g, 0, 1, 2, 1)
	require.NoError(t, err)
	require.Equal(t, 1+2*4+1*12, c.Record)
	require.Equal(t, float64(c.Record), c.ReadValue())
	require.Equal(t, geom.Location{X: 12, Y: 28, Z: 31}, c.Center)

	i, j, k := g.IJK(c.Record)
	require.Equal(t, []int{1, 2, 1}, []int{i, j, k})

	box := g.CellBox(c.Record)
	require.Equal(t, geom.Location{X: 11, Y: 26, Z: 30.5}, box.Min)
	require.Equal(t, geom.Location{X: 13, Y: 30, Z: 31.5}, box.Max)
	loc, ok := RecordLocation(g, GridKind, c.Record)
	require.True(t, ok)
	require.Equal(t, c.Center, loc)
	_, ok = RecordLocation(g, SegmentKind, c.Record)
	require.False(t, ok)

	_, err = GridCell(g, 0, 4, 0, 0)
	require.ErrorIs(t, err, ErrRange)

	_, err = NewCartesianGrid(geom.Location{}, 0, 1, 1, 1, 1, 1)
	require.ErrorIs(t, err, ErrCellSize)
	_, err = NewCartesianGrid(geom.Location{}, 1, 1, 1, 2, 2, 2, []float64{1})
	require.ErrorIs(t, err, ErrShape)
}

func TestSegmentSet(t *testing.T) {
	ss, err := NewSegmentSet(
		[]geom.Location{{X: 0, Y: 0, Z: 0}},
		[]geom.Location{{X: 0, Y: 0, Z: -10}},
		[]float64{0.7},
	)
	require.NoError(t, err)

	c, err := SegmentCell(ss, 0, 0)
	require.NoError(t, err)
	require.Equal(t, SegmentKind, c.Kind)
	require.Equal(t, geom.Location{Z: -5}, c.Center)
	require.Equal(t, 0.7, c.ReadValue())
	loc, ok := RecordLocation(ss, SegmentKind, 0)
	require.True(t, ok)
	require.Equal(t, c.Center, loc)
	_, ok = RecordLocation(ss, LocationKind, 0)
	require.False(t, ok)

	_, err = NewSegmentSet([]geom.Location{{}}, nil)
	require.ErrorIs(t, err, ErrShape)
}

func TestLocationCell(t *testing.T) {
	c := LocationCell(geom.Location{X: 1})
	require.Equal(t, LocationKind, c.Kind)
	require.True(t, math.IsNaN(c.ReadValue()))
	require.False(t, c.Refers(nil, -1))
	require.Equal(t, "location", c.Kind.String())
}
