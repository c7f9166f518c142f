package math

import m "math"

const (
	TO_RADIANS = m.Pi / 180
	TO_DEGREES = 180 / m.Pi
	R          = 6373000.0 // earth radius in metres
	GRAVITY    = 9.81
	EPSILON    = 1e-9
)

// Sign returns -1, 0 or 1.
func Sign(val float64) float64 {
	switch {
	case val > 0:
		return 1
	case val < 0:
		return -1
	}
	return 0
}

// SignedPow raises |val| to exp and restores the sign of val.
func SignedPow(val, exp float64) float64 {
	return Sign(val) * m.Pow(m.Abs(val), exp)
}

// MoveToward steps current toward target by at most maxDelta.
func MoveToward(current, target, maxDelta float64) float64 {
	if m.Abs(target-current) <= maxDelta {
		return target
	}
	return current + Sign(target-current)*maxDelta
}

// WrapAngle maps an angle in radians into (-pi, pi].
func WrapAngle(a float64) float64 {
	a = m.Mod(a+m.Pi, 2*m.Pi)
	if a <= 0 {
		a += 2 * m.Pi
	}
	return a - m.Pi
}

func Finite(vals ...float64) bool {
	for _, v := range vals {
		if m.IsNaN(v) || m.IsInf(v, 0) {
			return false
		}
	}
	return true
}
