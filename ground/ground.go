package ground

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
)

type Params struct {
	RideHeight float64 `json:"ride_height"`
	// ProbeExtra is how far below the ride height the wheel rays reach.
	ProbeExtra        float64 `json:"probe_extra"`
	GroundedClearance float64 `json:"grounded_clearance"`
	Snap              float64 `json:"snap"`
	DescentFade       float64 `json:"descent_fade"`
	WheelInset        float64 `json:"wheel_inset"`
	HalfLength        float64 `json:"half_length"`
	HalfWidth         float64 `json:"half_width"`
	SlopeAlign        bool    `json:"slope_align"`
	AlignRate         float64 `json:"align_rate"`
	MaxTilt           float64 `json:"max_tilt"`
}

func DefaultParams() Params {
	return Params{
		RideHeight:        0.5,
		ProbeExtra:        0.6,
		GroundedClearance: 0.08,
		Snap:              0.25,
		DescentFade:       6,
		WheelInset:        0.4,
		HalfLength:        2.2,
		HalfWidth:         0.95,
		SlopeAlign:        false,
		AlignRate:         0.15,
		MaxTilt:           20 * tm.TO_RADIANS,
	}
}

func (p Params) Validate() error {
	if p.RideHeight <= 0 || p.ProbeExtra < 0 {
		return errors.New("ride height must be positive")
	}
	if p.Snap < 0 || p.Snap > 1 || p.AlignRate < 0 || p.AlignRate > 1 {
		return errors.New("snap and align rate must be within [0, 1]")
	}
	if p.DescentFade <= 0 {
		return errors.Errorf("descent fade must be positive, got %f", p.DescentFade)
	}
	if p.MaxTilt < 0 || p.MaxTilt >= m.Pi/2 {
		return errors.Errorf("max tilt must be within [0, pi/2), got %f", p.MaxTilt)
	}
	return nil
}

type Result struct {
	Contacts  int
	Grounded  bool
	Clearance float64
	Normal    mgl64.Vec3
	Snapped   bool
	Aligned   bool
}

type Assist struct {
	Params Params
}

func New(p Params) (*Assist, error) {
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid ground assist params")
	}
	return &Assist{Params: p}, nil
}

func (a *Assist) wheels(yaw float64) [4]mgl64.Vec3 {
	p := a.Params
	fwd := tm.Forward(yaw).Mul(p.HalfLength - p.WheelInset)
	right := tm.Right(yaw).Mul(p.HalfWidth)
	return [4]mgl64.Vec3{
		fwd.Add(right),
		fwd.Sub(right),
		fwd.Mul(-1).Add(right),
		fwd.Mul(-1).Sub(right),
	}
}

// Apply pulls a floating body toward the ground under its wheels and, when
// enabled, tilts it toward the ground plane. Horizontal velocity is never
// touched.
func (a *Assist) Apply(world physics.World, body physics.BodyID) Result {
	res := Result{Clearance: m.Inf(1)}
	p := a.Params
	pos, ok := world.Translation(body)
	if !ok {
		return res
	}
	rot, _ := world.Rotation(body)
	vel, _ := world.LinearVelocity(body)
	yaw := tm.Yaw(rot)

	down := mgl64.Vec3{0, -1, 0}
	reach := p.RideHeight + p.ProbeExtra
	filter := physics.QueryFilter{Exclude: body, StaticOnly: true}
	points := make([]mgl64.Vec3, 0, 4)
	nearest := m.Inf(1)
	for _, offset := range a.wheels(yaw) {
		hit, ok := world.CastRay(pos.Add(offset), down, reach, filter)
		if !ok {
			continue
		}
		points = append(points, hit.Point)
		nearest = min(nearest, hit.Distance)
		res.Clearance = min(res.Clearance, hit.Distance-p.RideHeight)
	}
	res.Contacts = len(points)
	if res.Contacts == 0 {
		return res
	}
	res.Grounded = res.Clearance <= p.GroundedClearance

	if !res.Grounded {
		fade := lo.Clamp(1-m.Abs(vel.Y())/p.DescentFade, 0, 1)
		if fade > 0 && p.Snap > 0 {
			target := pos.Y() - nearest + p.RideHeight
			pos[1] += (target - pos.Y()) * p.Snap * fade
			world.SetTranslation(body, pos)
			res.Snapped = true
		}
	}

	if p.SlopeAlign && len(points) >= 3 {
		if n, ok := fitNormal(points); ok {
			res.Normal = n
			world.SetRotation(body, mgl64.QuatSlerp(rot, a.alignedRotation(n, yaw), p.AlignRate))
			res.Aligned = true
		}
	}
	return res
}

// fitNormal returns the upward normal of the plane through the contacts.
func fitNormal(points []mgl64.Vec3) (mgl64.Vec3, bool) {
	var n mgl64.Vec3
	if len(points) >= 4 {
		n = points[3].Sub(points[0]).Cross(points[2].Sub(points[1]))
	} else {
		n = points[1].Sub(points[0]).Cross(points[2].Sub(points[0]))
	}
	if n.Len() < tm.EPSILON {
		return n, false
	}
	n = n.Normalize()
	if n.Y() < 0 {
		n = n.Mul(-1)
	}
	return n, true
}

// alignedRotation tilts the body up axis onto n, limited to MaxTilt, and
// keeps the heading.
func (a *Assist) alignedRotation(n mgl64.Vec3, yaw float64) mgl64.Quat {
	tilt := m.Acos(lo.Clamp(n.Dot(tm.Up), -1, 1))
	if tilt > a.Params.MaxTilt && tilt > tm.EPSILON {
		axis := tm.Up.Cross(n).Normalize()
		n = mgl64.QuatRotate(a.Params.MaxTilt, axis).Rotate(tm.Up)
	}
	q := mgl64.QuatBetweenVectors(tm.Up, n).Mul(tm.YawRotation(yaw))
	drift := tm.WrapAngle(yaw - tm.Yaw(q))
	return mgl64.QuatRotate(drift, n).Mul(q).Normalize()
}
