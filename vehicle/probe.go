package vehicle

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
)

// Probes is the proximity picture for one tick. Distances are +Inf when a ray
// found nothing.
type Probes struct {
	FrontBlocked bool    `json:"front_blocked"`
	FrontNear    bool    `json:"front_near"`
	LeftBlocked  bool    `json:"left_blocked"`
	RightBlocked bool    `json:"right_blocked"`
	FrontDist    float64 `json:"front_dist"`
	LeftDist     float64 `json:"left_dist"`
	RightDist    float64 `json:"right_dist"`
}

// probe casts a three ray front fan and one ray to each side. Only static
// geometry is considered so that other vehicles are left to the collision
// response.
func probe(world physics.World, self physics.BodyID, pos mgl64.Vec3, yaw float64, p Params) Probes {
	filter := physics.QueryFilter{Exclude: self, StaticOnly: true}
	cast := func(origin, dir mgl64.Vec3, reach float64) float64 {
		hit, ok := world.CastRay(origin, dir, reach, filter)
		if !ok {
			return m.Inf(1)
		}
		return hit.Distance
	}

	fwd := tm.Forward(yaw)
	bumper := pos.Add(fwd.Mul(p.HalfLength))
	res := Probes{FrontDist: m.Inf(1)}
	for _, offset := range []float64{0, p.FanAngle, -p.FanAngle} {
		res.FrontDist = min(res.FrontDist, cast(bumper, tm.Forward(yaw+offset), p.FrontReach))
	}
	sideReach := p.HalfWidth + p.SideMargin
	res.LeftDist = cast(pos, tm.Right(yaw).Mul(-1), sideReach)
	res.RightDist = cast(pos, tm.Right(yaw), sideReach)

	res.FrontBlocked = !m.IsInf(res.FrontDist, 1)
	res.FrontNear = res.FrontDist < p.NearDistance
	res.LeftBlocked = !m.IsInf(res.LeftDist, 1)
	res.RightBlocked = !m.IsInf(res.RightDist, 1)
	return res
}

// avoidSign picks the steering direction away from the more blocked side,
// positive to the left.
func (pr Probes) avoidSign() float64 {
	switch {
	case pr.LeftBlocked && !pr.RightBlocked:
		return -1
	case pr.RightBlocked && !pr.LeftBlocked:
		return 1
	case pr.RightDist > pr.LeftDist:
		return -1
	}
	return 1
}
