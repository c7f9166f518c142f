package physics

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"

	tm "pfeifer.dev/trackd/math"
)

// CastRay returns the closest hit along dir within maxDist. dir does not need
// to be normalized.
func (s *Space) CastRay(origin, dir mgl64.Vec3, maxDist float64, filter QueryFilter) (RayHit, bool) {
	l := dir.Len()
	if l < tm.EPSILON || maxDist <= 0 {
		return RayHit{}, false
	}
	dir = dir.Mul(1 / l)

	best := RayHit{Distance: m.Inf(1)}
	found := false
	consider := func(hit RayHit) {
		if hit.Distance < best.Distance {
			best = hit
			found = true
		}
	}

	if s.ground != nil {
		if d, ok := rayPlane(origin, dir, *s.ground, maxDist); ok {
			consider(RayHit{Distance: d, Point: origin.Add(dir.Mul(d)), Normal: s.ground.Normal, Static: true})
		}
	}
	for i := range s.walls {
		if d, n, ok := s.walls[i].RayIntersect(origin, dir, maxDist); ok {
			consider(RayHit{Distance: d, Point: origin.Add(dir.Mul(d)), Normal: n, Static: true})
		}
	}
	if !filter.StaticOnly {
		for _, id := range s.order {
			if id == filter.Exclude {
				continue
			}
			b := s.bodies[id]
			if d, n, ok := rayBody(origin, dir, b, maxDist); ok {
				consider(RayHit{Distance: d, Point: origin.Add(dir.Mul(d)), Normal: n, Body: id})
			}
		}
	}
	return best, found
}

func rayPlane(origin, dir mgl64.Vec3, p Plane, maxDist float64) (float64, bool) {
	denom := dir.Dot(p.Normal)
	if m.Abs(denom) < tm.EPSILON {
		return 0, false
	}
	d := p.Point.Sub(origin).Dot(p.Normal) / denom
	if d < 0 || d > maxDist {
		return 0, false
	}
	return d, true
}

// rayBody intersects a vertical cylinder around the body.
func rayBody(origin, dir mgl64.Vec3, b *body, maxDist float64) (float64, mgl64.Vec3, bool) {
	o := tm.Planar(origin.Sub(b.pos))
	d := tm.Planar(dir)
	bottom, top := b.pos.Y()-b.halfExtents.Y(), b.pos.Y()+b.halfExtents.Y()
	inBand := func(t float64) bool {
		y := origin.Y() + dir.Y()*t
		return y >= bottom && y <= top
	}

	c := o.Dot(o) - b.radius*b.radius
	if c <= 0 {
		if inBand(0) {
			return 0, mgl64.Vec3{}, true
		}
		return 0, mgl64.Vec3{}, false
	}
	a := d.Dot(d)
	if a < tm.EPSILON {
		return 0, mgl64.Vec3{}, false
	}
	half := o.Dot(d)
	disc := half*half - a*c
	if disc < 0 {
		return 0, mgl64.Vec3{}, false
	}
	t := (-half - m.Sqrt(disc)) / a
	if t < 0 || t > maxDist || !inBand(t) {
		return 0, mgl64.Vec3{}, false
	}
	hit := o.Add(d.Mul(t))
	return t, hit.Mul(1 / b.radius), true
}
