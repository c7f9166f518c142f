package math

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
)

type Curvature struct {
	Curvature, ArcLength, Angle float64
	Pos                         mgl64.Vec3
}

// CalculateCurvature fits a circle through three planar points.
func CalculateCurvature(a, b, c mgl64.Vec3) Curvature {
	lengthA := PlanarDist(a, b)
	lengthB := PlanarDist(a, c)
	lengthC := PlanarDist(b, c)

	sp := (lengthA + lengthB + lengthC) / 2
	area := m.Sqrt(max(0, sp*(sp-lengthA)*(sp-lengthB)*(sp-lengthC)))

	res := Curvature{Pos: b}
	lengthProd := lengthA * lengthB * lengthC
	if lengthProd < EPSILON || area < EPSILON {
		return res
	}

	res.Curvature = (4 * area) / lengthProd
	radius := 1.0 / res.Curvature

	num := radius*radius*2 - lengthB*lengthB
	den := 2 * radius * radius
	res.Angle = m.Acos(max(-1, min(1, num/den)))
	res.ArcLength = radius * res.Angle

	return res
}
