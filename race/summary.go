package race

import (
	m "math"
)

type CarSummary struct {
	Name       string  `json:"name"`
	Laps       int     `json:"laps"`
	Respawns   int     `json:"respawns"`
	Collisions int     `json:"collisions"`
	Failures   int     `json:"failures"`
	Distance   float64 `json:"distance"`
	TopSpeed   float64 `json:"top_speed"`
	MeanSpeed  float64 `json:"mean_speed"`
	CrossTrack float64 `json:"cross_track"`
}

// Summary is the outcome of a run, rounded to centimetres so it reads well
// and compares stably.
type Summary struct {
	Ticks uint64       `json:"ticks"`
	Time  float64      `json:"time"`
	Cars  []CarSummary `json:"cars"`
}

func round(v float64) float64 {
	return m.Round(v*100) / 100
}

func (s Snapshot) Summary() Summary {
	out := Summary{Ticks: s.Tick, Time: round(s.Time), Cars: make([]CarSummary, 0, len(s.Cars))}
	for _, c := range s.Cars {
		mean := 0.0
		if s.Time > 0 {
			mean = c.Distance / s.Time
		}
		out.Cars = append(out.Cars, CarSummary{
			Name:       c.Name,
			Laps:       c.Laps,
			Respawns:   c.Respawns,
			Collisions: c.Collisions,
			Failures:   c.Failures,
			Distance:   round(c.Distance),
			TopSpeed:   round(c.TopSpeed),
			MeanSpeed:  round(mean),
			CrossTrack: round(c.CrossTrack),
		})
	}
	return out
}
