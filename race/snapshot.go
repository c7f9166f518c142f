package race

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/vehicle"
)

type CarState struct {
	Name       string            `json:"name"`
	Position   mgl64.Vec3        `json:"position"`
	Yaw        float64           `json:"yaw"`
	Velocity   mgl64.Vec3        `json:"velocity"`
	YawRate    float64           `json:"yaw_rate"`
	Autopilot  bool              `json:"autopilot"`
	Telemetry  vehicle.Telemetry `json:"telemetry"`
	Respawns   int               `json:"respawns"`
	Laps       int               `json:"laps"`
	Progress   float64           `json:"progress"`
	CrossTrack float64           `json:"cross_track"`
	Distance   float64           `json:"distance"`
	TopSpeed   float64           `json:"top_speed"`
	Collisions int               `json:"collisions"`
	Failures   int               `json:"failures"`
}

// Snapshot is a copy of the scene state that is safe to hand to other
// goroutines.
type Snapshot struct {
	Tick uint64     `json:"tick"`
	Time float64    `json:"time"`
	Cars []CarState `json:"cars"`
}

func (s *Scene) Snapshot() Snapshot {
	snap := Snapshot{Tick: s.tick, Time: s.time, Cars: make([]CarState, 0, len(s.cars))}
	for _, c := range s.cars {
		v := c.Vehicle
		state := CarState{
			Name:       v.Name,
			Telemetry:  v.Last,
			Respawns:   v.Respawns,
			Laps:       c.Laps,
			Progress:   c.Progress,
			CrossTrack: c.CrossTrack,
			Distance:   c.Distance,
			TopSpeed:   c.TopSpeed,
			Collisions: c.Collisions,
			Failures:   c.Failures,
		}
		_, state.Autopilot = v.Control.(*vehicle.Autopilot)
		if pos, ok := s.World.Translation(v.Body); ok {
			state.Position = pos
		}
		if rot, ok := s.World.Rotation(v.Body); ok {
			state.Yaw = tm.Yaw(rot)
		}
		if vel, ok := s.World.LinearVelocity(v.Body); ok {
			state.Velocity = vel
		}
		if w, ok := s.World.AngularVelocity(v.Body); ok {
			state.YawRate = w.Y()
		}
		snap.Cars = append(snap.Cars, state)
	}
	return snap
}

func (s Snapshot) Car(name string) (CarState, bool) {
	for _, c := range s.Cars {
		if c.Name == name {
			return c, true
		}
	}
	return CarState{}, false
}

// Frame converts the snapshot to the wire format. A front probe without a
// hit is reported as -1.
func (s Snapshot) Frame(hz float64, paused bool) telemetry.Frame {
	frame := telemetry.Frame{
		Tick:     s.Tick,
		Time:     s.Time,
		Hz:       hz,
		Paused:   paused,
		Vehicles: make([]telemetry.VehicleFrame, 0, len(s.Cars)),
	}
	for _, c := range s.Cars {
		front := c.Telemetry.Probes.FrontDist
		if m.IsInf(front, 0) || m.IsNaN(front) {
			front = -1
		}
		frame.Vehicles = append(frame.Vehicles, telemetry.VehicleFrame{
			Name:       c.Name,
			Position:   [3]float64(c.Position),
			Yaw:        c.Yaw,
			Speed:      c.Telemetry.ForwardSpeed,
			YawRate:    c.YawRate,
			Throttle:   c.Telemetry.Throttle,
			Autopilot:  c.Autopilot,
			Escaping:   c.Telemetry.Escaping,
			FrontDist:  front,
			Respawns:   c.Respawns,
			Laps:       c.Laps,
			Progress:   c.Progress,
			CrossTrack: c.CrossTrack,
		})
	}
	return frame
}
