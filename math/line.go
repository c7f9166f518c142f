package math

import "github.com/go-gl/mathgl/mgl64"

type Line struct {
	Start, End mgl64.Vec3
}

type LinePosition struct {
	Pos mgl64.Vec3
	T   float64
}

func (l *Line) Length() float64 {
	return l.End.Sub(l.Start).Len()
}

func (l *Line) NearestPosition(pos mgl64.Vec3) LinePosition {
	AB := l.End.Sub(l.Start)
	AP := pos.Sub(l.Start)
	den := AB.Dot(AB)
	if den < EPSILON {
		return LinePosition{Pos: l.Start, T: 0}
	}
	t := AP.Dot(AB) / den

	t = max(0, min(1, t))
	closest := l.Start.Add(AB.Mul(t))
	return LinePosition{Pos: closest, T: t}
}

// Lerp returns the point at fraction t along the line.
func (l *Line) Lerp(t float64) mgl64.Vec3 {
	return l.Start.Add(l.End.Sub(l.Start).Mul(t))
}
