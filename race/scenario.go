package race

import (
	"fmt"

	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/vehicle"
	"pfeifer.dev/trackd/waypoint"
)

const DEFAULT_GRID_GAP = 10.0

// Scenario describes a scene to build: a flat world, optional walls and a
// grid of cars spawned along the track.
type Scenario struct {
	Track  *waypoint.Path
	Walls  []tm.Box
	Cars   int
	Manual int
	// GridGap is the distance along the track between spawn points.
	GridGap float64
}

func (sc Scenario) Build(s settings.SimSettings) (*Scene, error) {
	world := physics.NewSpace()
	world.SetGround(physics.Plane{Normal: tm.Up})
	for _, w := range sc.Walls {
		world.AddWall(w)
	}
	scene, err := NewScene(world, s)
	if err != nil {
		return nil, err
	}
	scene.SetTrack(sc.Track)

	total := sc.Cars + sc.Manual
	spawns, err := GridSpawns(sc.Track, total, sc.GridGap, s.Vehicle.RideHeight)
	if err != nil {
		return nil, err
	}
	for i, spawn := range spawns {
		for j := range sc.Walls {
			if sc.Walls[j].PosInside(spawn.Position) {
				return nil, errors.Errorf("car%d spawns inside wall %d", i+1, j)
			}
		}
		autopilot := i < sc.Cars && s.AutopilotEnabled
		if _, err := scene.AddVehicle(fmt.Sprintf("car%d", i+1), spawn, 0, autopilot); err != nil {
			return nil, err
		}
	}
	return scene, nil
}

// GridSpawns places count cars along the track, the first on the start
// sample and each following one gap metres further, facing along the path.
func GridSpawns(track *waypoint.Path, count int, gap, rideHeight float64) ([]vehicle.Spawn, error) {
	if count == 0 {
		return nil, nil
	}
	if track.Len() < 2 {
		return nil, errors.New("spawning cars needs a track")
	}
	if gap <= 0 {
		gap = DEFAULT_GRID_GAP
	}
	spawns := make([]vehicle.Spawn, 0, count)
	travelled := 0.0
	next := 0.0
	for i := 0; i < track.Len() && len(spawns) < count; i++ {
		sample := track.At(i)
		if travelled >= next {
			j := i + 1
			if j == track.Len() {
				j = i - 1
			}
			dir := track.At(j).Position.Sub(sample.Position)
			if j < i {
				dir = dir.Mul(-1)
			}
			pos := sample.Position
			pos[1] += rideHeight
			spawns = append(spawns, vehicle.Spawn{Position: pos, Yaw: tm.Heading(dir)})
			next += gap
		}
		travelled += sample.DistanceToNext
	}
	if len(spawns) < count {
		return nil, errors.Errorf("track only fits %d of %d cars", len(spawns), count)
	}
	return spawns, nil
}
