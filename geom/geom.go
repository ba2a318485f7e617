// Package geom holds the small 3D value types shared by the index and the
// search neighbourhoods.
package geom

import (
	"math"

	"github.com/golang/geo/r3"
)

// Location is a point in 3D space.
type Location struct {
	X, Y, Z float64
}

func NewLocation(x, y, z float64) Location {
	return Location{X: x, Y: y, Z: z}
}

// FromVector converts an r3 vector into a Location.
func FromVector(v r3.Vector) Location {
	return Location{X: v.X, Y: v.Y, Z: v.Z}
}

// Vector returns the location as an r3 vector.
func (l Location) Vector() r3.Vector {
	return r3.Vector{X: l.X, Y: l.Y, Z: l.Z}
}

// Valid reports whether all coordinates are finite.
func (l Location) Valid() bool {
	return isFinite(l.X) && isFinite(l.Y) && isFinite(l.Z)
}

func (l Location) Distance(o Location) float64 {
	return l.Vector().Sub(o.Vector()).Norm()
}

func (l Location) DistanceSquared(o Location) float64 {
	return l.Vector().Sub(o.Vector()).Norm2()
}

// Midpoint returns the point halfway between l and o.
func (l Location) Midpoint(o Location) Location {
	return FromVector(l.Vector().Add(o.Vector()).Mul(0.5))
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
