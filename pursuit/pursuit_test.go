package pursuit

import (
	m "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/waypoint"
)

const dt = 1.0 / 60

func straightPath(t *testing.T, length, speed float64) *waypoint.Path {
	t.Helper()
	samples, err := waypoint.Straight(mgl64.Vec3{}, mgl64.Vec3{length, 0, 0}, 2, speed)
	require.NoError(t, err)
	p, err := waypoint.NewPath(samples, false)
	require.NoError(t, err)
	return p
}

func TestEmptyPathIsNeutral(t *testing.T) {
	prev := State{PreviousYawRate: 0.4, PreviousTargetSpeed: 3}
	cmd, next := Step(nil, Input{Speed: 5, Dt: dt}, prev, DefaultParams())
	assert.Equal(t, Command{}, cmd)
	assert.Equal(t, prev, next)
}

func TestAlignedOnPathDrivesStraight(t *testing.T) {
	p := straightPath(t, 100, 12)
	cmd, next := Step(p, Input{Speed: 0, Dt: dt}, State{}, DefaultParams())
	assert.Equal(t, 0.0, cmd.YawRate)
	assert.Greater(t, cmd.Throttle, 0.0)
	assert.InDelta(t, 4*dt, next.PreviousTargetSpeed, 1e-12)
}

// kinematic unicycle driven by the yaw rate command at constant speed
func TestConvergesFromHeadingError(t *testing.T) {
	params := DefaultParams()
	p := straightPath(t, 200, 5)
	for _, heading := range []float64{30, -30, 20, 15, 5, -10, -25} {
		for _, speed := range []float64{1.5, 2, 3, 4, 5, 6} {
			pos := mgl64.Vec3{}
			yaw := heading * tm.TO_RADIANS
			state := State{}
			ld := params.L0 + params.KV*speed
			ld = max(params.LdMin, min(params.LdMax, ld))

			var changes []int
			last := 0.0
			settle := 0
			dist := 0.0
			for k := 0; dist < 10*ld; k++ {
				var cmd Command
				cmd, state = Step(p, Input{Position: pos, Yaw: yaw, Speed: speed, Dt: dt}, state, params)
				sign := 0.0
				if cmd.YawRate > 1e-9 {
					sign = 1
				} else if cmd.YawRate < -1e-9 {
					sign = -1
				}
				if sign != 0 && last != 0 && sign != last {
					changes = append(changes, k)
				}
				if sign != 0 {
					last = sign
				}
				yaw += cmd.YawRate * dt
				pos = pos.Add(tm.Forward(yaw).Mul(speed * dt))
				dist += speed * dt
				if m.Abs(tm.WrapAngle(yaw)) > 2*tm.TO_RADIANS {
					settle = k + 1
				}
			}
			before := 0
			for _, c := range changes {
				if c < settle {
					before++
				}
			}
			assert.LessOrEqual(t, before, 2, "heading %f speed %f", heading, speed)
			assert.LessOrEqual(t, m.Abs(tm.WrapAngle(yaw)), 2*tm.TO_RADIANS, "heading %f speed %f", heading, speed)
		}
	}
}

func TestYawRateLimits(t *testing.T) {
	params := DefaultParams()
	p := straightPath(t, 200, 25)
	state := State{PreviousTargetSpeed: 15}
	// facing straight across the path
	in := Input{Position: mgl64.Vec3{20, 0, 6}, Yaw: m.Pi / 2, Speed: 15, Dt: dt}
	prevR := 0.0
	for range 120 {
		var cmd Command
		cmd, state = Step(p, in, state, params)
		assert.LessOrEqual(t, m.Abs(cmd.YawRate-prevR), params.RRate*dt+1e-12)
		assert.LessOrEqual(t, m.Abs(cmd.YawRate)*in.Speed, params.AyMax()+1e-9)
		assert.LessOrEqual(t, m.Abs(cmd.YawRate), params.RMax)
		prevR = cmd.YawRate
	}
	assert.Less(t, prevR, 0.0, "target lies clockwise of the heading")
}

func TestEllipseFloorThenHardCap(t *testing.T) {
	p := DefaultParams()
	ayMax := p.AyMax()
	dbg := Debug{}

	// saturated ellipse keeps the floor share of the command
	r := shapeYawRate(5, 0.5, 0, -2.5, 1, p, &dbg)
	assert.Equal(t, p.EllipseFloor, dbg.EllipseScale)
	assert.InDelta(t, -2.5*p.EllipseFloor, r, 1e-12)

	// the lateral acceleration cap still wins over the floor
	r = shapeYawRate(20, 0.1, 0, -2, 1, p, &dbg)
	assert.Equal(t, p.EllipseFloor, dbg.EllipseScale)
	assert.InDelta(t, -ayMax/20, r, 1e-12)
	assert.Less(t, m.Abs(r), 2*p.EllipseFloor)

	// below saturation the ellipse scale is used as is
	r = shapeYawRate(5, 0.05, 0, -0.25, 1, p, &dbg)
	scale := m.Sqrt(1 - m.Pow(1.25/ayMax, 2))
	assert.InDelta(t, scale, dbg.EllipseScale, 1e-12)
	assert.InDelta(t, -0.25*scale, r, 1e-12)

	p.EllipseFloor = 0
	r = shapeYawRate(5, 0.5, 0, -2.5, 1, p, &dbg)
	assert.Equal(t, 0.0, dbg.EllipseScale)
	assert.InDelta(t, 0.0, r, 1e-12)
}

func TestSpeedTargetRamps(t *testing.T) {
	params := DefaultParams()
	p := straightPath(t, 200, 20)
	state := State{}
	for range 30 {
		prev := state.PreviousTargetSpeed
		_, state = Step(p, Input{Speed: 0, Dt: dt}, state, params)
		assert.InDelta(t, params.RampUp*dt, state.PreviousTargetSpeed-prev, 1e-9)
	}

	slow := straightPath(t, 200, 2)
	state = State{PreviousTargetSpeed: 10}
	_, state = Step(slow, Input{Speed: 10, Dt: dt}, state, params)
	assert.InDelta(t, 10-params.RampDown*dt, state.PreviousTargetSpeed, 1e-9)
}

func TestNoBrakingInsideCoastBand(t *testing.T) {
	params := DefaultParams()
	p := straightPath(t, 200, 10)
	cmd, _ := Step(p, Input{Speed: 10.2, Dt: dt}, State{PreviousTargetSpeed: 10}, params)
	assert.Equal(t, 0.0, cmd.Throttle)
}

func TestOverspeedFeedForwardBrake(t *testing.T) {
	params := DefaultParams()
	p := straightPath(t, 200, 5)
	cmd, _ := Step(p, Input{Speed: 20, Dt: dt}, State{PreviousTargetSpeed: 20}, params)
	expected := -((20.0 - 5.0) / params.HorizonMax) / params.AyMax()
	assert.InDelta(t, expected, cmd.Throttle, 1e-9)
}

func TestCrossTrackRestores(t *testing.T) {
	params := DefaultParams()
	p := straightPath(t, 200, 5)
	// left of the path and aligned: pursuit and cross track both steer right
	cmd, _, dbg := StepDebug(p, Input{Position: mgl64.Vec3{10, 0, -1}, Speed: 4, Dt: dt}, State{}, params)
	assert.InDelta(t, 1.0, dbg.CrossTrack, 1e-9)
	assert.Less(t, cmd.YawRate, 0.0)
}

func TestParamsValidate(t *testing.T) {
	require.NoError(t, DefaultParams().Validate())
	bad := DefaultParams()
	bad.LdMax = 1
	assert.Error(t, bad.Validate())
	bad = DefaultParams()
	bad.Mu = 0
	assert.Error(t, bad.Validate())
}
