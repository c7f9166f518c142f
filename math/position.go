package math

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
)

func NewPosition(latDeg, lonDeg float64) Position {
	return Position{latitudeDeg: latDeg, longitudeDeg: lonDeg}
}

// Position is a geodetic coordinate used when importing real world tracks.
type Position struct {
	latitudeDeg  float64
	longitudeDeg float64
}

func (p *Position) LatRad() float64 {
	return p.latitudeDeg * TO_RADIANS
}

func (p *Position) LonRad() float64 {
	return p.longitudeDeg * TO_RADIANS
}

func (p *Position) Lat() float64 {
	return p.latitudeDeg
}

func (p *Position) Lon() float64 {
	return p.longitudeDeg
}

func (p *Position) DistanceTo(end Position) float64 {
	latDiff := end.LatRad() - p.LatRad()
	lonDiff := end.LonRad() - p.LonRad()
	a := m.Pow(m.Sin(latDiff/2), 2) + m.Cos(p.LatRad())*m.Cos(end.LatRad())*m.Pow(m.Sin(lonDiff/2), 2)
	c := 2 * m.Atan2(m.Sqrt(a), m.Sqrt(1-a))

	return R * c // in metres
}

// ToLocal projects p onto a flat plane centred on origin. East maps to +X and
// north to -Z so that compass headings turn counter-clockwise from +X.
func (p *Position) ToLocal(origin Position) mgl64.Vec3 {
	east := (p.LonRad() - origin.LonRad()) * m.Cos(origin.LatRad()) * R
	north := (p.LatRad() - origin.LatRad()) * R
	return mgl64.Vec3{east, 0, -north}
}
