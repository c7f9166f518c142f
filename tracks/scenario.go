package tracks

import (
	"pfeifer.dev/trackd/race"
)

// Scenario builds the track and places its walls into a race scenario.
func (t TrackSpec) Scenario(cars, manual int, gap float64) (race.Scenario, error) {
	path, err := t.Build()
	if err != nil {
		return race.Scenario{}, err
	}
	return race.Scenario{
		Track:   path,
		Walls:   t.WallBoxes(),
		Cars:    cars,
		Manual:  manual,
		GridGap: gap,
	}, nil
}
