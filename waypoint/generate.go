package waypoint

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
)

const (
	MIN_ARC_STEP   = 0.6
	ARC_STEP_RATIO = 0.6
)

type TurnDirection int

const (
	TurnLeft  TurnDirection = 1
	TurnRight TurnDirection = -1
)

// CorneringSpeed is the fastest speed that keeps lateral acceleration on a
// circle of the given radius at or below maxLateralAccel.
func CorneringSpeed(radius, maxLateralAccel, speedLimit float64) float64 {
	if radius <= 0 || maxLateralAccel <= 0 {
		return speedLimit
	}
	return min(speedLimit, m.Sqrt(maxLateralAccel/(1/radius)))
}

// Straight interpolates max(2, ceil(length/spacing)) samples from start to end.
func Straight(start, end mgl64.Vec3, spacing, speed float64) ([]Sample, error) {
	if spacing <= 0 {
		return nil, errors.Errorf("spacing must be positive, got %f", spacing)
	}
	line := tm.Line{Start: start, End: end}
	n := max(2, int(m.Ceil(line.Length()/spacing)))
	out := make([]Sample, n)
	for i := range n {
		out[i] = Sample{Position: line.Lerp(float64(i) / float64(n-1)), TargetSpeed: speed}
	}
	return out, nil
}

type TurnParams struct {
	Start           mgl64.Vec3
	Heading         float64
	Approach        float64
	Radius          float64
	Exit            float64
	Direction       TurnDirection
	Spacing         float64
	SpeedLimit      float64
	MaxLateralAccel float64
}

func (p TurnParams) validate() error {
	if p.Radius <= 0 {
		return errors.Errorf("turn radius must be positive, got %f", p.Radius)
	}
	if p.Spacing <= 0 {
		return errors.Errorf("spacing must be positive, got %f", p.Spacing)
	}
	if p.Approach < 0 || p.Exit < 0 {
		return errors.New("approach and exit lengths must not be negative")
	}
	if p.Direction != TurnLeft && p.Direction != TurnRight {
		return errors.Errorf("unknown turn direction %d", p.Direction)
	}
	return nil
}

// Turn builds an approach straight, a quarter arc and an exit straight.
func Turn(p TurnParams) ([]Sample, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	r := NewRoute(p.Start, p.Heading, p.Spacing)
	r.Straight(p.Approach, p.SpeedLimit)
	r.Arc(p.Radius, float64(p.Direction)*m.Pi/2, p.SpeedLimit, p.MaxLateralAccel)
	r.Straight(p.Exit, p.SpeedLimit)
	return r.Samples(), r.Err()
}

// Composite joins sample runs, dropping a run's first sample when it repeats
// the previous run's last.
func Composite(parts ...[]Sample) []Sample {
	out := []Sample{}
	for _, part := range parts {
		for i, s := range part {
			if i == 0 && len(out) > 0 && out[len(out)-1].Position.ApproxEqualThreshold(s.Position, 1e-6) {
				continue
			}
			out = append(out, s)
		}
	}
	return out
}

// Route builds a path from a moving cursor. The first error sticks and turns
// later calls into no-ops.
type Route struct {
	pos     mgl64.Vec3
	heading float64
	spacing float64
	samples []Sample
	err     error
}

func NewRoute(start mgl64.Vec3, heading, spacing float64) *Route {
	r := &Route{pos: start, heading: heading, spacing: spacing}
	if spacing <= 0 {
		r.err = errors.Errorf("spacing must be positive, got %f", spacing)
	}
	return r
}

func (r *Route) Cursor() (mgl64.Vec3, float64) {
	return r.pos, r.heading
}

func (r *Route) append(part []Sample) {
	r.samples = Composite(r.samples, part)
}

func (r *Route) Straight(length, speed float64) *Route {
	if r.err != nil || length <= 0 {
		return r
	}
	end := r.pos.Add(tm.Forward(r.heading).Mul(length))
	part, err := Straight(r.pos, end, r.spacing, speed)
	if err != nil {
		r.err = err
		return r
	}
	r.append(part)
	r.pos = end
	return r
}

// Arc sweeps angle radians around a circle of the given radius. Positive
// angles turn left.
func (r *Route) Arc(radius, angle, speedLimit, maxLateralAccel float64) *Route {
	if r.err != nil || angle == 0 {
		return r
	}
	if radius <= 0 {
		r.err = errors.Errorf("arc radius must be positive, got %f", radius)
		return r
	}
	dir := tm.Sign(angle)
	left := tm.Right(r.heading).Mul(-1)
	center := r.pos.Add(left.Mul(dir * radius))
	spoke := r.pos.Sub(center)

	step := max(MIN_ARC_STEP, r.spacing*ARC_STEP_RATIO)
	n := max(1, int(m.Ceil(radius*m.Abs(angle)/step)))
	speed := CorneringSpeed(radius, maxLateralAccel, speedLimit)

	part := make([]Sample, 0, n+1)
	part = append(part, Sample{Position: r.pos, TargetSpeed: speed})
	for i := 1; i <= n; i++ {
		rot := mgl64.QuatRotate(angle*float64(i)/float64(n), tm.Up)
		part = append(part, Sample{Position: center.Add(rot.Rotate(spoke)), TargetSpeed: speed})
	}
	if len(r.samples) > 0 {
		// the arc's entry point belongs to the preceding run
		part = part[1:]
	}
	r.samples = append(r.samples, part...)
	r.pos = part[len(part)-1].Position
	r.heading = tm.WrapAngle(r.heading + angle)
	return r
}

func (r *Route) Samples() []Sample {
	out := make([]Sample, len(r.samples))
	copy(out, r.samples)
	return out
}

func (r *Route) Err() error {
	return r.err
}

// Build finalizes the route. A closed route drops its last sample when it
// lands back on the first.
func (r *Route) Build(closed bool) (*Path, error) {
	if r.err != nil {
		return nil, r.err
	}
	samples := r.Samples()
	if closed && len(samples) > 2 && tm.PlanarDist(samples[0].Position, samples[len(samples)-1].Position) < 1e-3 {
		samples = samples[:len(samples)-1]
	}
	return NewPath(samples, closed)
}
