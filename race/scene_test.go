package race

import (
	m "math"
	"testing"

	"github.com/bradleyjkemp/cupaloy/v2"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/vehicle"
	"pfeifer.dev/trackd/waypoint"
)

const dt = 1.0 / 60

var snapshotter = cupaloy.New(cupaloy.FailOnUpdate(false))

func defaults() settings.SimSettings {
	s := settings.SimSettings{}
	s.Default()
	return s
}

func straightTrack(t *testing.T, length, speed float64) *waypoint.Path {
	t.Helper()
	samples, err := waypoint.Straight(mgl64.Vec3{}, mgl64.Vec3{length, 0, 0}, 2, speed)
	require.NoError(t, err)
	path, err := waypoint.NewPath(samples, false)
	require.NoError(t, err)
	return path
}

func ovalTrack(t *testing.T) *waypoint.Path {
	t.Helper()
	path, err := waypoint.NewRoute(mgl64.Vec3{}, 0, 2).
		Straight(40, 12).
		Arc(15, m.Pi, 12, 8).
		Straight(40, 12).
		Arc(15, m.Pi, 12, 8).
		Build(true)
	require.NoError(t, err)
	return path
}

func newScene(t *testing.T, walls ...tm.Box) *Scene {
	t.Helper()
	world := physics.NewSpace()
	world.SetGround(physics.Plane{Normal: tm.Up})
	for _, w := range walls {
		world.AddWall(w)
	}
	scene, err := NewScene(world, defaults())
	require.NoError(t, err)
	return scene
}

func steps(s *Scene, n int, each func()) {
	for range n {
		s.Step(dt)
		if each != nil {
			each()
		}
	}
}

func at(x, z, yaw float64) vehicle.Spawn {
	return vehicle.Spawn{Position: mgl64.Vec3{x, 0.5, z}, Yaw: yaw}
}

func TestNewSceneValidates(t *testing.T) {
	_, err := NewScene(nil, defaults())
	assert.Error(t, err)

	bad := defaults()
	bad.TickRate = 0
	_, err = NewScene(physics.NewSpace(), bad)
	assert.Error(t, err)
}

func TestAddAndRemoveVehicles(t *testing.T) {
	s := newScene(t)
	car, err := s.AddVehicle("a", at(0, 0, 0), 0, true)
	require.NoError(t, err)
	_, manual := car.Vehicle.Control.(*vehicle.Manual)
	assert.True(t, manual, "autopilot without a track falls back to manual")
	mass, ok := s.World.Mass(car.Vehicle.Body)
	require.True(t, ok)
	assert.Equal(t, s.Settings.Vehicle.BaselineMass, mass)

	_, err = s.AddVehicle("a", at(10, 0, 0), 0, false)
	assert.Error(t, err)

	s.SetTrack(straightTrack(t, 50, 10))
	assert.NoError(t, s.SetAutopilot("a", true))
	_, auto := car.Vehicle.Control.(*vehicle.Autopilot)
	assert.True(t, auto)
	assert.Error(t, s.SetKeys("a", vehicle.Keys{Forward: true}))
	assert.Error(t, s.SetAutopilot("missing", true))

	assert.True(t, s.RemoveVehicle("a"))
	assert.False(t, s.RemoveVehicle("a"))
	assert.Empty(t, s.Cars())
	_, ok = s.World.Translation(car.Vehicle.Body)
	assert.False(t, ok)
}

func TestManualAssistFollowsPursuitSettings(t *testing.T) {
	s := newScene(t)
	s.SetTrack(straightTrack(t, 50, 10))
	car, err := s.AddVehicle("a", at(0, 0, 0), 0, false)
	require.NoError(t, err)
	manual := car.Vehicle.Control.(*vehicle.Manual)
	assert.Equal(t, s.Settings.Pursuit, manual.Pursuit)

	set := defaults()
	set.ManualAssist = 0.5
	set.Pursuit.RMax = 0.5
	require.NoError(t, s.ApplySettings(set))
	assert.Equal(t, 0.5, manual.Pursuit.RMax)
	assert.Same(t, s.Track, manual.Assist)

	other, err := s.AddVehicle("b", at(10, 5, 0), 0, false)
	require.NoError(t, err)
	assert.Equal(t, 0.5, other.Vehicle.Control.(*vehicle.Manual).Pursuit.RMax)
}

func TestStraightCruise(t *testing.T) {
	s := newScene(t)
	s.SetTrack(straightTrack(t, 100, 12))
	_, err := s.AddVehicle("car", at(0, 0, 0), 0, true)
	require.NoError(t, err)

	steps(s, 600, nil)
	car, ok := s.Snapshot().Car("car")
	require.True(t, ok)
	assert.GreaterOrEqual(t, car.Position.X(), 40.0)
	assert.LessOrEqual(t, car.Position.X(), 70.0)
	assert.Less(t, m.Abs(car.YawRate), 0.05)
	assert.Less(t, m.Abs(car.Position.Z()), 0.5)
	assert.Equal(t, uint64(600), s.Tick())
}

func TestTurnTracking(t *testing.T) {
	for _, dir := range []waypoint.TurnDirection{waypoint.TurnLeft, waypoint.TurnRight} {
		samples, err := waypoint.Turn(waypoint.TurnParams{
			Approach:        30,
			Radius:          10,
			Exit:            40,
			Direction:       dir,
			Spacing:         2,
			SpeedLimit:      12,
			MaxLateralAccel: 8,
		})
		require.NoError(t, err)
		path, err := waypoint.NewPath(samples, false)
		require.NoError(t, err)

		s := newScene(t)
		s.SetTrack(path)
		car, err := s.AddVehicle("car", at(0, 0, 0), 0, true)
		require.NoError(t, err)

		worst := 0.0
		steps(s, 840, func() {
			worst = max(worst, m.Abs(car.CrossTrack))
		})
		pos, _ := s.World.Translation(car.Vehicle.Body)
		assert.Less(t, worst, 3.5, "direction %d", dir)
		assert.InDelta(t, 40, pos.X(), 3, "direction %d", dir)
		assert.Less(t, float64(dir)*pos.Z(), -15.0, "direction %d", dir)
	}
}

func TestBlockedFrontHoldsStill(t *testing.T) {
	p := vehicle.DefaultParams()
	wallX := p.HalfLength + 0.3
	s := newScene(t, tm.NewBox(mgl64.Vec3{wallX + 0.5, 1, 0}, mgl64.Vec3{0.5, 1, 10}))
	car, err := s.AddVehicle("car", at(0, 0, 0), 0, false)
	require.NoError(t, err)
	require.NoError(t, s.SetKeys("car", vehicle.Keys{Forward: true}))

	steps(s, 60, nil)
	vel, _ := s.World.LinearVelocity(car.Vehicle.Body)
	assert.LessOrEqual(t, vel.Dot(tm.Forward(0)), 0.0)
	assert.True(t, car.Vehicle.Last.Probes.FrontNear)
}

func TestHeadOnCollisionIsSymmetric(t *testing.T) {
	s := newScene(t)
	a, err := s.AddVehicle("a", at(-6, 0, 0), 0, false)
	require.NoError(t, err)
	b, err := s.AddVehicle("b", at(6, 0, m.Pi), 0, false)
	require.NoError(t, err)
	s.World.SetLinearVelocity(a.Vehicle.Body, mgl64.Vec3{5, 0, 0})
	s.World.SetLinearVelocity(b.Vehicle.Body, mgl64.Vec3{-5, 0, 0})

	steps(s, 90, nil)
	va, _ := s.World.LinearVelocity(a.Vehicle.Body)
	vb, _ := s.World.LinearVelocity(b.Vehicle.Body)
	pa, _ := s.World.Translation(a.Vehicle.Body)
	pb, _ := s.World.Translation(b.Vehicle.Body)

	assert.Less(t, va.X(), 0.0)
	assert.Greater(t, vb.X(), 0.0)
	assert.InDelta(t, -va.X(), vb.X(), 1e-6)
	assert.InDelta(t, -pa.X(), pb.X(), 1e-6)
	assert.Equal(t, 1, a.Collisions)
	assert.Equal(t, 1, b.Collisions)
}

func TestPanickingVehicleIsIsolated(t *testing.T) {
	s := newScene(t)
	a, err := s.AddVehicle("a", at(0, 0, 0), 0, false)
	require.NoError(t, err)
	b, err := s.AddVehicle("b", at(0, 20, 0), 0, false)
	require.NoError(t, err)
	require.NoError(t, s.SetKeys("b", vehicle.Keys{Forward: true}))
	// a nil control source makes the tick panic
	a.Vehicle.Control = (*vehicle.Manual)(nil)

	assert.NotPanics(t, func() { steps(s, 30, nil) })
	assert.Equal(t, 30, a.Failures)
	assert.Equal(t, 0, b.Failures)
	assert.Greater(t, b.Vehicle.Last.ForwardSpeed, 0.0)
}

func TestLapCounting(t *testing.T) {
	s := newScene(t)
	s.SetTrack(ovalTrack(t))
	car, err := s.AddVehicle("car", at(0, 0, 0), 0, true)
	require.NoError(t, err)

	firstLap := 0
	for i := 1; i <= 3600 && firstLap == 0; i++ {
		s.Step(dt)
		if car.Laps > 0 {
			firstLap = i
		}
	}
	require.NotZero(t, firstLap, "no lap completed")
	assert.Greater(t, firstLap, 600)
	assert.Equal(t, 1, car.Laps)
}

func runGrid(t *testing.T) Snapshot {
	t.Helper()
	scene, err := Scenario{Track: ovalTrack(t), Cars: 2, GridGap: 20}.Build(defaults())
	require.NoError(t, err)
	steps(scene, 600, nil)
	return scene.Snapshot()
}

func TestDeterministic(t *testing.T) {
	first := runGrid(t)
	second := runGrid(t)
	assert.Equal(t, first, second)
	require.Len(t, first.Cars, 2)
	snapshotter.SnapshotT(t, first.Summary())
}

func TestGridSpawns(t *testing.T) {
	spawns, err := GridSpawns(straightTrack(t, 30, 10), 3, 10, 0.5)
	require.NoError(t, err)
	require.Len(t, spawns, 3)
	assert.Equal(t, mgl64.Vec3{0, 0.5, 0}, spawns[0].Position)
	assert.InDelta(t, 10, spawns[1].Position.X(), 1e-9)
	assert.InDelta(t, 20, spawns[2].Position.X(), 1e-9)
	assert.InDelta(t, 0, spawns[2].Yaw, 1e-9)

	_, err = GridSpawns(straightTrack(t, 30, 10), 5, 10, 0.5)
	assert.Error(t, err)
	_, err = GridSpawns(nil, 1, 10, 0.5)
	assert.Error(t, err)
}

func TestScenarioRejectsSpawnInWall(t *testing.T) {
	sc := Scenario{
		Track:   straightTrack(t, 30, 10),
		Cars:    2,
		GridGap: 10,
		Walls:   []tm.Box{tm.NewBox(mgl64.Vec3{10, 1, 0}, mgl64.Vec3{0.5, 1, 3})},
	}
	_, err := sc.Build(defaults())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "car2")

	sc.Walls[0] = tm.NewBox(mgl64.Vec3{10, 1, 6}, mgl64.Vec3{0.5, 1, 3})
	scene, err := sc.Build(defaults())
	require.NoError(t, err)
	assert.Len(t, scene.Cars(), 2)
}

func TestSnapshotFrame(t *testing.T) {
	s := newScene(t)
	_, err := s.AddVehicle("a", at(1, 2, 0.5), 0, false)
	require.NoError(t, err)
	s.Step(dt)

	frame := s.Snapshot().Frame(60, false)
	require.Len(t, frame.Vehicles, 1)
	v := frame.Vehicles[0]
	assert.Equal(t, "a", v.Name)
	assert.Equal(t, -1.0, v.FrontDist)
	assert.InDelta(t, 0.5, v.Yaw, 1e-6)
	assert.InDelta(t, 1, v.Position[0], 1e-6)
	assert.Equal(t, uint64(1), frame.Tick)
}
