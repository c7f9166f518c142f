package math

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis aligned box.
type Box struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

func NewBox(center, halfExtents mgl64.Vec3) Box {
	return Box{Min: center.Sub(halfExtents), Max: center.Add(halfExtents)}
}

func (b *Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b *Box) PosInside(p mgl64.Vec3) bool {
	return p.X() >= b.Min.X() && p.X() <= b.Max.X() &&
		p.Y() >= b.Min.Y() && p.Y() <= b.Max.Y() &&
		p.Z() >= b.Min.Z() && p.Z() <= b.Max.Z()
}

func (a *Box) Overlapping(b Box) bool {
	return !(a.Min.X() > b.Max.X() || a.Max.X() < b.Min.X() ||
		a.Min.Y() > b.Max.Y() || a.Max.Y() < b.Min.Y() ||
		a.Min.Z() > b.Max.Z() || a.Max.Z() < b.Min.Z())
}

// ClosestPoint clamps p onto the box.
func (b *Box) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	var res mgl64.Vec3
	for i := range 3 {
		res[i] = m.Max(b.Min[i], m.Min(b.Max[i], p[i]))
	}
	return res
}

// RayIntersect returns the entry distance of the ray into the box using the
// slab method. A ray starting inside reports distance 0.
func (b *Box) RayIntersect(origin, dir mgl64.Vec3, maxDist float64) (float64, mgl64.Vec3, bool) {
	tMin, tMax := 0.0, maxDist
	var normal mgl64.Vec3
	for i := range 3 {
		if m.Abs(dir[i]) < EPSILON {
			if origin[i] < b.Min[i] || origin[i] > b.Max[i] {
				return 0, normal, false
			}
			continue
		}
		inv := 1 / dir[i]
		t1 := (b.Min[i] - origin[i]) * inv
		t2 := (b.Max[i] - origin[i]) * inv
		n := -1.0
		if t1 > t2 {
			t1, t2 = t2, t1
			n = 1
		}
		if t1 > tMin {
			tMin = t1
			normal = mgl64.Vec3{}
			normal[i] = n
		}
		tMax = m.Min(tMax, t2)
		if tMin > tMax {
			return 0, normal, false
		}
	}
	return tMin, normal, true
}
