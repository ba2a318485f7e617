package geom

import "math"

// Box is an axis aligned box. Boxes are closed: points on the faces are inside.
type Box struct {
	Min, Max Location
}

// InvertedBox returns a box that contains nothing and grows to fit whatever
// is unioned into it.
func InvertedBox() Box {
	return Box{
		Min: Location{math.MaxFloat64, math.MaxFloat64, math.MaxFloat64},
		Max: Location{-math.MaxFloat64, -math.MaxFloat64, -math.MaxFloat64},
	}
}

// BoxAround returns the box centred on p extending tol along each axis.
func BoxAround(p Location, tol float64) Box {
	return Box{
		Min: Location{p.X - tol, p.Y - tol, p.Z - tol},
		Max: Location{p.X + tol, p.Y + tol, p.Z + tol},
	}
}

// BoxOf returns the smallest box containing both a and b.
func BoxOf(a, b Location) Box {
	return Box{
		Min: Location{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)},
		Max: Location{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)},
	}
}

// Expand grows the box by tol on every face.
func (b Box) Expand(tol float64) Box {
	return Box{
		Min: Location{b.Min.X - tol, b.Min.Y - tol, b.Min.Z - tol},
		Max: Location{b.Max.X + tol, b.Max.Y + tol, b.Max.Z + tol},
	}
}

// Union returns the smallest box containing b and o.
func (b Box) Union(o Box) Box {
	return Box{
		Min: Location{math.Min(b.Min.X, o.Min.X), math.Min(b.Min.Y, o.Min.Y), math.Min(b.Min.Z, o.Min.Z)},
		Max: Location{math.Max(b.Max.X, o.Max.X), math.Max(b.Max.Y, o.Max.Y), math.Max(b.Max.Z, o.Max.Z)},
	}
}

func (b Box) Intersects(o Box) bool {
	return b.Min.X <= o.Max.X && b.Max.X >= o.Min.X &&
		b.Min.Y <= o.Max.Y && b.Max.Y >= o.Min.Y &&
		b.Min.Z <= o.Max.Z && b.Max.Z >= o.Min.Z
}

// MinDistanceSquared returns the squared distance from p to the nearest point
// of the box, zero when p is inside.
func (b Box) MinDistanceSquared(p Location) float64 {
	dx := axisDist(p.X, b.Min.X, b.Max.X)
	dy := axisDist(p.Y, b.Min.Y, b.Max.Y)
	dz := axisDist(p.Z, b.Min.Z, b.Max.Z)
	return dx*dx + dy*dy + dz*dz
}

func axisDist(k, min, max float64) float64 {
	if k < min {
		return min - k
	}
	if k <= max {
		return 0
	}
	return k - max
}
