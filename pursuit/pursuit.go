package pursuit

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/samber/lo"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/waypoint"
)

// State is carried between ticks by the vehicle that owns the controller.
type State struct {
	PreviousYawRate     float64 `json:"previous_yaw_rate"`
	PreviousTargetSpeed float64 `json:"previous_target_speed"`
}

func (s *State) Reset() {
	*s = State{}
}

type Input struct {
	Position mgl64.Vec3
	Yaw      float64
	Velocity mgl64.Vec3
	// Speed is the signed speed along the heading.
	Speed float64
	Dt    float64
}

type Command struct {
	Throttle float64 `json:"throttle"`
	YawRate  float64 `json:"yaw_rate"`
}

// Debug exposes the intermediate values of the last step.
type Debug struct {
	Lookahead    float64
	Target       mgl64.Vec3
	Alpha        float64
	Kappa        float64
	CrossTrack   float64
	DesiredSpeed float64
	TargetSpeed  float64
	Horizon      float64
	EllipseScale float64
}

// Step computes one pure pursuit command and returns the state to use on the
// next tick. An empty path returns a neutral command.
func Step(path *waypoint.Path, in Input, prev State, p Params) (Command, State) {
	cmd, next, _ := StepDebug(path, in, prev, p)
	return cmd, next
}

func StepDebug(path *waypoint.Path, in Input, prev State, p Params) (Command, State, Debug) {
	dbg := Debug{}
	if path.Len() == 0 || !tm.Finite(in.Position.X(), in.Position.Z(), in.Yaw, in.Speed) {
		return Command{}, prev, dbg
	}
	speed := in.Speed
	absSpeed := m.Abs(speed)
	ayMax := p.AyMax()

	ld := lo.Clamp(p.L0+p.KV*absSpeed, p.LdMin, p.LdMax)
	db := deadbandFor(absSpeed, p)
	alpha, kappa, target := geometry(path, in, ld, db)
	if p.CornerShrink > 0 && m.Abs(kappa) > 1e-6 {
		shrunk := max(p.LdMin, ld/(1+p.CornerShrink*m.Abs(kappa)))
		if shrunk < ld {
			ld = shrunk
			alpha, kappa, target = geometry(path, in, ld, db)
		}
	}
	dbg.Lookahead, dbg.Target, dbg.Alpha, dbg.Kappa = ld, target, alpha, kappa

	crossTrack := 0.0
	if proj, ok := path.Project(in.Position); ok {
		crossTrack = proj.CrossTrack
	}
	dbg.CrossTrack = crossTrack

	yawRate := shapeYawRate(speed, kappa, crossTrack, prev.PreviousYawRate, in.Dt, p, &dbg)

	horizon := lo.Clamp(p.HorizonMin+p.HorizonPerSpeed*absSpeed, p.HorizonMin, p.HorizonMax)
	vWp := path.MinSpeedAhead(in.Position, horizon, p.VFloor)
	vK := m.Inf(1)
	if m.Abs(kappa) > 1e-6 {
		vK = m.Sqrt(ayMax / m.Abs(kappa))
	}
	desired := min(vWp, vK)

	vTarget := prev.PreviousTargetSpeed
	if desired > vTarget {
		vTarget = min(vTarget+p.RampUp*in.Dt, desired)
	} else {
		vTarget = max(vTarget-p.RampDown*in.Dt, desired)
	}
	dbg.Horizon, dbg.DesiredSpeed, dbg.TargetSpeed = horizon, desired, vTarget

	throttle := lo.Clamp(p.ThrottleGain*(vTarget-speed), -1, 1)
	if m.Abs(vTarget-speed) <= p.CoastBand {
		throttle = max(throttle, 0)
	}
	if speed-desired > p.OverspeedMargin {
		feedForward := -((speed - desired) / horizon) / ayMax
		throttle = lo.Clamp(min(throttle, feedForward), -1, 1)
	}

	return Command{Throttle: throttle, YawRate: yawRate}, State{PreviousYawRate: yawRate, PreviousTargetSpeed: vTarget}, dbg
}

func deadbandFor(absSpeed float64, p Params) float64 {
	ratio := 1.0
	if p.DeadbandSpeed > 0 {
		ratio = lo.Clamp(absSpeed/p.DeadbandSpeed, 0, 1)
	}
	return (p.DeadbandLow + (p.DeadbandHigh-p.DeadbandLow)*ratio) * tm.TO_RADIANS
}

// geometry returns the clockwise bearing from the heading to the lookahead
// point and the pure pursuit curvature toward it.
func geometry(path *waypoint.Path, in Input, ld, deadband float64) (alpha, kappa float64, target mgl64.Vec3) {
	target = path.Lookahead(in.Position, ld)
	delta := tm.Planar(target.Sub(in.Position))
	if delta.LenSqr() < 1e-8 {
		return 0, 0, target
	}
	alpha = tm.WrapAngle(in.Yaw - tm.Heading(delta))
	if m.Abs(alpha) < deadband {
		alpha = 0
	}
	return alpha, 2 * m.Sin(alpha) / ld, target
}

func shapeYawRate(speed, kappa, crossTrack, prev, dt float64, p Params, dbg *Debug) float64 {
	absSpeed := m.Abs(speed)
	ayMax := p.AyMax()

	raw := -speed*kappa - p.KEy*crossTrack/max(1, absSpeed)

	filterRatio := 1.0
	if p.FilterSpeed > 0 {
		filterRatio = lo.Clamp(absSpeed/p.FilterSpeed, 0, 1)
	}
	beta := p.FilterLow + (p.FilterHigh-p.FilterLow)*filterRatio
	r := prev + beta*(raw-prev)

	ay := speed * speed * m.Abs(kappa)
	scale := max(p.EllipseFloor, m.Sqrt(max(0, 1-m.Pow(ay/ayMax, 2))))
	dbg.EllipseScale = scale
	r *= scale

	if absSpeed > 0.1 && m.Abs(r)*absSpeed > ayMax {
		r = m.Copysign(ayMax/absSpeed, r)
	}

	r = lo.Clamp(r, prev-p.RRate*dt, prev+p.RRate*dt)
	return lo.Clamp(r, -p.RMax, p.RMax)
}
