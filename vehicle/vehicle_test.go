package vehicle

import (
	m "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
	"pfeifer.dev/trackd/pursuit"
	"pfeifer.dev/trackd/waypoint"
)

const dt = 1.0 / 60

func newSpace() *physics.Space {
	s := physics.NewSpace()
	s.SetGround(physics.Plane{Normal: tm.Up})
	return s
}

func addVehicle(t *testing.T, s *physics.Space, pos mgl64.Vec3, mass float64, control ControlSource) *Vehicle {
	t.Helper()
	p := DefaultParams()
	id, err := s.AddBody(physics.BodyDesc{
		Position:    pos,
		Rotation:    mgl64.QuatIdent(),
		Mass:        mass,
		HalfExtents: p.HalfExtents(),
		Radius:      p.HalfLength,
		LockTilt:    true,
	})
	require.NoError(t, err)
	v, err := New("test", s, id, Spawn{Position: pos}, p, control)
	require.NoError(t, err)
	return v
}

func run(s *physics.Space, v *Vehicle, ticks int, each func()) {
	for range ticks {
		v.Tick(dt, s)
		if each != nil {
			each()
		}
		s.Step(dt)
	}
}

func TestNewValidates(t *testing.T) {
	s := newSpace()
	bad := DefaultParams()
	bad.EngineForce = 0
	_, err := New("bad", s, 1, Spawn{}, bad, nil)
	assert.Error(t, err)

	_, err = New("ghost", s, 42, Spawn{}, DefaultParams(), nil)
	assert.Error(t, err)

	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, nil)
	assert.IsType(t, &Manual{}, v.Control)
}

func TestValidateRejectsZeroDivisors(t *testing.T) {
	p := DefaultParams()
	p.SteerFadeSpeed = 0
	assert.ErrorContains(t, p.Validate(), "steer fade speed")
	_, err := New("fade", newSpace(), 1, Spawn{}, p, nil)
	assert.Error(t, err)

	p = DefaultParams()
	p.SteerLoadSpeed = 0
	assert.ErrorContains(t, p.Validate(), "steer load speed")
	p.SteerLoadSpeed = -1
	assert.Error(t, p.Validate())
}

func TestThrottleShaping(t *testing.T) {
	p := DefaultParams()
	s := shaper{}
	fwd := Keys{Forward: true}
	var out float64
	for i := range 10 {
		out = s.Throttle(fwd, p, dt)
		assert.GreaterOrEqual(t, out, 0.0, "tick %d", i)
	}
	expected := m.Pow((0.5-p.InputDeadzone)/(1-p.InputDeadzone), p.ThrottleGamma)
	assert.InDelta(t, expected, out, 1e-6)
	for range 25 {
		out = s.Throttle(fwd, p, dt)
	}
	assert.Equal(t, 1.0, out)

	// release is faster than engage
	released := 0
	for s.throttle > 0 {
		s.Throttle(Keys{}, p, dt)
		released++
	}
	assert.InDelta(t, 10, released, 1)

	back := shaper{}
	for range 30 {
		assert.LessOrEqual(t, back.Throttle(Keys{Back: true}, p, dt), 0.0)
	}
}

func TestSteeringShaping(t *testing.T) {
	p := DefaultParams()
	s := shaper{}
	for range 30 {
		s.Steering(Keys{Left: true}, p, 10, dt)
	}
	atSpeed := s.Steering(Keys{Left: true}, p, p.MaxSpeed, dt)
	atCruise := s.Steering(Keys{Left: true}, p, 10, dt)
	creep := s.Steering(Keys{Left: true}, p, 0.5, dt)
	assert.InDelta(t, 1-p.SteerHighSpeedCut, atSpeed, 1e-9)
	assert.Less(t, atSpeed, atCruise)
	assert.InDelta(t, 1.0, creep, 1e-9)

	right := shaper{}
	for range 30 {
		assert.LessOrEqual(t, right.Steering(Keys{Right: true}, p, 5, dt), 0.0)
	}
}

func TestDriveForceWithinFrictionCircle(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{Keys: Keys{Forward: true}})
	v.Params.EngineForce = 50000
	v.Params.Mu = 0.5
	limit := v.Params.TractionLimit(1200)
	run(s, v, 300, func() {
		assert.LessOrEqual(t, m.Abs(v.Last.DriveForce), limit+1e-9)
		assert.LessOrEqual(t, m.Abs(v.Last.BrakeForce), limit+1e-9)
	})
	assert.Greater(t, v.Last.ForwardSpeed, 1.0)
}

func TestSpeedCap(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{Keys: Keys{Forward: true}})
	s.SetLinearVelocity(v.Body, mgl64.Vec3{45, 0, 0})
	v.Tick(dt, s)
	vel, _ := s.LinearVelocity(v.Body)
	assert.LessOrEqual(t, tm.PlanarLen(vel), v.Params.MaxSpeed*v.Params.SpeedCapFactor+1e-9)
	assert.Equal(t, 0.0, v.Last.DriveForce)

	s.SetLinearVelocity(v.Body, mgl64.Vec3{0, 40, 0})
	v.Tick(dt, s)
	vel, _ = s.LinearVelocity(v.Body)
	assert.Equal(t, v.Params.MaxVerticalSpeed, vel.Y())
}

func TestRespawnBelowFloor(t *testing.T) {
	s := physics.NewSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, NewAutopilot(nil))
	v.Pursuit.PreviousTargetSpeed = 5
	s.SetTranslation(v.Body, mgl64.Vec3{3, -25, 4})
	s.SetLinearVelocity(v.Body, mgl64.Vec3{1, -30, 0})
	v.Tick(dt, s)

	pos, _ := s.Translation(v.Body)
	vel, _ := s.LinearVelocity(v.Body)
	assert.Equal(t, mgl64.Vec3{0, 0.5, 0}, pos)
	assert.Equal(t, mgl64.Vec3{}, vel)
	assert.Equal(t, 1, v.Respawns)
	assert.True(t, v.Last.Respawned)
	assert.Equal(t, 0.0, v.Pursuit.PreviousTargetSpeed)
}

func TestMissingBodyIsNoop(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, nil)
	s.RemoveBody(v.Body)
	assert.NotPanics(t, func() { v.Tick(dt, s) })
}

func TestBlockedFrontHoldsStill(t *testing.T) {
	s := newSpace()
	p := DefaultParams()
	wallX := p.HalfLength + 0.3
	s.AddWall(tm.NewBox(mgl64.Vec3{wallX + 0.5, 1, 0}, mgl64.Vec3{0.5, 1, 10}))
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{Keys: Keys{Forward: true}})

	run(s, v, 60, nil)
	assert.True(t, v.Last.Probes.FrontBlocked)
	assert.True(t, v.Last.Probes.FrontNear)
	vel, _ := s.LinearVelocity(v.Body)
	assert.LessOrEqual(t, vel.Dot(tm.Forward(0)), 0.0)
	pos, _ := s.Translation(v.Body)
	assert.LessOrEqual(t, pos.X(), 1e-9)
}

func TestEscapeImpulseOnNewBlock(t *testing.T) {
	s := newSpace()
	p := DefaultParams()
	s.AddWall(tm.NewBox(mgl64.Vec3{p.HalfLength + 2.5 + 0.5, 1, 0}, mgl64.Vec3{0.5, 1, 10}))
	s.AddWall(tm.NewBox(mgl64.Vec3{0, 1, -p.HalfWidth - 1}, mgl64.Vec3{1, 1, 0.2}))
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, NewAutopilot(nil))
	s.SetLinearVelocity(v.Body, mgl64.Vec3{5, 0, 0})

	v.Tick(dt, s)
	assert.True(t, v.Last.Probes.FrontBlocked)
	assert.False(t, v.Last.Probes.FrontNear)
	assert.True(t, v.Last.Probes.LeftBlocked)
	assert.True(t, v.Last.Escaping)
	assert.Equal(t, -1.0, v.avoidSign)
	vel, _ := s.LinearVelocity(v.Body)
	assert.InDelta(t, 5-p.EscapeImpulse, vel.X(), 1e-9)

	// staying blocked does not fire again
	v.Tick(dt, s)
	vel, _ = s.LinearVelocity(v.Body)
	assert.InDelta(t, 5-p.EscapeImpulse, vel.X(), 1e-9)
}

func TestESCLimitsYawSpike(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{})
	s.SetLinearVelocity(v.Body, mgl64.Vec3{10, 0, 0})
	s.SetAngularVelocity(v.Body, mgl64.Vec3{0, 5, 0})

	ps := newSpace()
	plain := addVehicle(t, ps, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{})
	plain.Params.EscGain = 0
	ps.SetLinearVelocity(plain.Body, mgl64.Vec3{10, 0, 0})
	ps.SetAngularVelocity(plain.Body, mgl64.Vec3{0, 5, 0})

	v.Tick(dt, s)
	plain.Tick(dt, ps)
	assert.Less(t, v.Last.YawTorque, 0.0)
	over := 5 - v.Params.MaxYawRate
	assert.InDelta(t, -v.Params.EscGain*over, v.Last.YawTorque-plain.Last.YawTorque, 1e-6)
	s.Step(dt)

	run(s, v, 30, func() {
		w, _ := s.AngularVelocity(v.Body)
		if w.Y() > v.Params.MaxYawRate+v.Params.EscMargin {
			assert.Less(t, v.Last.YawTorque, 0.0)
		}
	})
	w, _ := s.AngularVelocity(v.Body)
	assert.Less(t, m.Abs(w.Y()), 4.0)
}

func TestSlipDampingOpposesLateralVelocity(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{})
	traction := v.Params.TractionLimit(1200)

	// right is +Z at yaw 0
	s.SetLinearVelocity(v.Body, mgl64.Vec3{8, 0, 3})
	v.Tick(dt, s)
	assert.Less(t, v.Last.LateralForce, 0.0)
	assert.LessOrEqual(t, m.Abs(v.Last.LateralForce), traction)

	s.SetLinearVelocity(v.Body, mgl64.Vec3{8, 0, -3})
	v.Tick(dt, s)
	assert.Greater(t, v.Last.LateralForce, 0.0)

	// a hard slide saturates at the friction circle
	s.SetLinearVelocity(v.Body, mgl64.Vec3{8, 0, 25})
	v.Tick(dt, s)
	assert.InDelta(t, -traction, v.Last.LateralForce, 1e-9)
	s.Step(dt)

	run(s, v, 60, func() {
		assert.LessOrEqual(t, m.Abs(v.Last.LateralForce), traction+1e-9)
	})
	vel, _ := s.LinearVelocity(v.Body)
	assert.Less(t, m.Abs(vel.Z()), 25.0)
}

func TestAssistUsesManualPursuitParams(t *testing.T) {
	samples, err := waypoint.Straight(mgl64.Vec3{0, 0, -10}, mgl64.Vec3{200, 0, -10}, 2, 10)
	require.NoError(t, err)
	path, err := waypoint.NewPath(samples, false)
	require.NoError(t, err)

	targets := func(manual *Manual) []float64 {
		s := newSpace()
		v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, manual)
		s.SetLinearVelocity(v.Body, mgl64.Vec3{10, 0, 0})
		out := []float64{}
		for range 20 {
			v.Tick(dt, s)
			out = append(out, v.Last.TargetYawRate)
		}
		return out
	}

	defaults := targets(&Manual{Assist: path, AssistWeight: 1})
	explicit := targets(&Manual{Assist: path, AssistWeight: 1, Pursuit: pursuit.DefaultParams()})
	assert.Equal(t, defaults, explicit)
	assert.Greater(t, defaults[len(defaults)-1], 0.05)

	tuned := pursuit.DefaultParams()
	tuned.RMax = 0.05
	for _, r := range targets(&Manual{Assist: path, AssistWeight: 1, Pursuit: tuned}) {
		assert.LessOrEqual(t, m.Abs(r), 0.05+1e-12)
	}
}

func TestAntiCreepSnap(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{})
	s.SetLinearVelocity(v.Body, mgl64.Vec3{0.2, 0, 0.1})
	s.SetAngularVelocity(v.Body, mgl64.Vec3{0, 0.1, 0})
	v.Tick(dt, s)
	vel, _ := s.LinearVelocity(v.Body)
	w, _ := s.AngularVelocity(v.Body)
	assert.Equal(t, 0.0, tm.PlanarLen(vel))
	assert.Equal(t, mgl64.Vec3{}, w)
}

func TestAutopilotBrakesInsteadOfReversing(t *testing.T) {
	s := newSpace()
	samples, err := waypoint.Straight(mgl64.Vec3{}, mgl64.Vec3{200, 0, 0}, 2, 2)
	require.NoError(t, err)
	path, err := waypoint.NewPath(samples, false)
	require.NoError(t, err)
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, NewAutopilot(path))
	v.Pursuit.PreviousTargetSpeed = 10
	s.SetLinearVelocity(v.Body, mgl64.Vec3{10, 0, 0})

	v.Tick(dt, s)
	assert.Less(t, v.Last.Throttle, 0.0)
	assert.Greater(t, v.Last.BrakeForce, 0.0)
	assert.Equal(t, 0.0, v.Last.DriveForce)
}

func TestManualReverseDrives(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{Keys: Keys{Back: true}})
	run(s, v, 120, nil)
	vel, _ := s.LinearVelocity(v.Body)
	assert.Less(t, vel.X(), -0.5)
	assert.GreaterOrEqual(t, vel.X(), -v.Params.ReverseSpeed-0.5)
}

func TestManualSteeringTurnsLeft(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, &Manual{Keys: Keys{Forward: true}})
	run(s, v, 120, nil)
	v.SetKeys(Keys{Forward: true, Left: true})
	run(s, v, 60, nil)
	w, _ := s.AngularVelocity(v.Body)
	assert.Greater(t, w.Y(), 0.0)
	assert.LessOrEqual(t, w.Y(), v.Params.MaxYawRate+v.Params.EscMargin)
}

func TestSetControlResetsPursuit(t *testing.T) {
	s := newSpace()
	v := addVehicle(t, s, mgl64.Vec3{0, 0.5, 0}, 1200, NewAutopilot(nil))
	v.Pursuit.PreviousYawRate = 1
	v.SetControl(&Manual{})
	assert.Equal(t, 0.0, v.Pursuit.PreviousYawRate)
	v.SetKeys(Keys{Forward: true})
	assert.True(t, v.Control.(*Manual).Keys.Forward)
}
