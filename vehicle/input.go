package vehicle

import (
	m "math"

	"github.com/samber/lo"

	tm "pfeifer.dev/trackd/math"
)

// shaper smooths discrete key presses into analogue commands.
type shaper struct {
	throttle float64
	steer    float64
}

func (s *shaper) reset() {
	*s = shaper{}
}

// ramp moves current toward target, releasing toward zero at the release rate
// and building up at the engage rate.
func ramp(current, target, engage, release, dt float64) float64 {
	if current != 0 && tm.Sign(target) != tm.Sign(current) {
		return tm.MoveToward(current, 0, release*dt)
	}
	if m.Abs(target) < m.Abs(current) {
		return tm.MoveToward(current, target, release*dt)
	}
	return tm.MoveToward(current, target, engage*dt)
}

func deadzone(val, dz float64) float64 {
	if m.Abs(val) <= dz {
		return 0
	}
	return tm.Sign(val) * (m.Abs(val) - dz) / (1 - dz)
}

func keyAxis(pos, neg bool) float64 {
	v := 0.0
	if pos {
		v++
	}
	if neg {
		v--
	}
	return v
}

// Throttle returns the shaped throttle for the keys. Forward only input never
// produces a negative value.
func (s *shaper) Throttle(k Keys, p Params, dt float64) float64 {
	s.throttle = ramp(s.throttle, keyAxis(k.Forward, k.Back), p.ThrottleEngage, p.ThrottleRelease, dt)
	return tm.SignedPow(deadzone(s.throttle, p.InputDeadzone), p.ThrottleGamma)
}

// Steering returns the shaped steering input, positive to the left, adjusted
// for forward speed.
func (s *shaper) Steering(k Keys, p Params, speed, dt float64) float64 {
	s.steer = ramp(s.steer, keyAxis(k.Left, k.Right), p.SteerEngage, p.SteerRelease, dt)
	steer := deadzone(s.steer, p.InputDeadzone)

	ratio := lo.Clamp(m.Abs(speed)/p.MaxSpeed, 0, 1)
	scale := 1 - p.SteerHighSpeedCut*ratio*ratio
	if p.SteerLowSpeed > 0 && m.Abs(speed) < p.SteerLowSpeed {
		scale *= 1 + p.SteerLowBoost*(1-m.Abs(speed)/p.SteerLowSpeed)
	}
	return lo.Clamp(steer*scale, -1, 1)
}
