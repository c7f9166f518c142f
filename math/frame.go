package math

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
)

// Up is the world vertical. Yaw is measured about it, counter-clockwise
// positive when seen from above, with zero yaw facing +X.
var Up = mgl64.Vec3{0, 1, 0}

func Forward(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{m.Cos(yaw), 0, -m.Sin(yaw)}
}

func Right(yaw float64) mgl64.Vec3 {
	return mgl64.Vec3{m.Sin(yaw), 0, m.Cos(yaw)}
}

// Yaw extracts the heading of a rotation, ignoring pitch and roll.
func Yaw(q mgl64.Quat) float64 {
	f := q.Rotate(mgl64.Vec3{1, 0, 0})
	if m.Hypot(f.X(), f.Z()) < EPSILON {
		return 0
	}
	return m.Atan2(-f.Z(), f.X())
}

func YawRotation(yaw float64) mgl64.Quat {
	return mgl64.QuatRotate(yaw, Up)
}

// Heading is the yaw that faces along a planar direction.
func Heading(dir mgl64.Vec3) float64 {
	return m.Atan2(-dir.Z(), dir.X())
}

func Planar(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v.X(), 0, v.Z()}
}

func PlanarLen(v mgl64.Vec3) float64 {
	return m.Hypot(v.X(), v.Z())
}

func PlanarDist(a, b mgl64.Vec3) float64 {
	return PlanarLen(b.Sub(a))
}

// LeftNormal is the planar normal pointing to the left of travel along dir.
func LeftNormal(dir mgl64.Vec3) mgl64.Vec3 {
	l := PlanarLen(dir)
	if l < EPSILON {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{dir.Z() / l, 0, -dir.X() / l}
}
