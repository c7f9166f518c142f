package race

import (
	"log/slog"
	m "math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	"pfeifer.dev/trackd/contact"
	"pfeifer.dev/trackd/ground"
	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/physics"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/utils"
	"pfeifer.dev/trackd/vehicle"
	"pfeifer.dev/trackd/waypoint"
)

// Car is a vehicle in the scene plus the bookkeeping the scene keeps for it.
type Car struct {
	Vehicle *vehicle.Vehicle

	Laps       int
	Progress   float64
	CrossTrack float64
	Distance   float64
	TopSpeed   float64
	Collisions int
	Failures   int

	lastPos mgl64.Vec3
	tracked bool
}

// Scene owns a world and everything that acts on it once per tick.
type Scene struct {
	World    *physics.Space
	Queue    *contact.Queue
	Resolver *contact.Resolver
	Ground   *ground.Assist
	Settings settings.SimSettings
	Track    *waypoint.Path

	cars []*Car
	tick uint64
	time float64
}

func NewScene(world *physics.Space, s settings.SimSettings) (*Scene, error) {
	if world == nil {
		return nil, errors.New("scene needs a world")
	}
	if err := s.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid scene settings")
	}
	resolver, err := contact.NewResolver(s.Contact)
	if err != nil {
		return nil, err
	}
	assist, err := ground.New(s.Ground)
	if err != nil {
		return nil, err
	}
	scene := &Scene{
		World:    world,
		Queue:    contact.NewQueue(contact.DEFAULT_QUEUE_SIZE),
		Resolver: resolver,
		Ground:   assist,
		Settings: s,
	}
	world.SetContactSink(scene.Queue)
	return scene, nil
}

func (s *Scene) Tick() uint64 {
	return s.tick
}

func (s *Scene) Time() float64 {
	return s.time
}

func (s *Scene) Cars() []*Car {
	return s.cars
}

func (s *Scene) Car(name string) (*Car, bool) {
	for _, c := range s.cars {
		if c.Vehicle.Name == name {
			return c, true
		}
	}
	return nil, false
}

func (s *Scene) control(autopilot bool) vehicle.ControlSource {
	if autopilot && s.Track != nil {
		return &vehicle.Autopilot{Path: s.Track, Params: s.Settings.Pursuit}
	}
	manual := &vehicle.Manual{Pursuit: s.Settings.Pursuit}
	if s.Settings.ManualAssist > 0 {
		manual.Assist = s.Track
		manual.AssistWeight = s.Settings.ManualAssist
	}
	return manual
}

// AddVehicle spawns a car. A non-positive mass uses the baseline mass.
// Autopilot cars follow the scene track, without one they start manual.
func (s *Scene) AddVehicle(name string, spawn vehicle.Spawn, mass float64, autopilot bool) (*Car, error) {
	if _, exists := s.Car(name); exists {
		return nil, errors.Errorf("vehicle %s already exists", name)
	}
	p := s.Settings.Vehicle
	if mass <= 0 {
		mass = p.BaselineMass
	}
	body, err := s.World.AddBody(physics.BodyDesc{
		Position:    spawn.Position,
		Rotation:    tm.YawRotation(spawn.Yaw),
		Mass:        mass,
		HalfExtents: p.HalfExtents(),
		Radius:      p.HalfLength,
		LockTilt:    true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "could not add body for vehicle %s", name)
	}
	v, err := vehicle.New(name, s.World, body, spawn, p, s.control(autopilot))
	if err != nil {
		s.World.RemoveBody(body)
		return nil, err
	}
	car := &Car{Vehicle: v, lastPos: spawn.Position}
	s.cars = append(s.cars, car)
	slog.Info("vehicle added", "name", name, "mass", mass, "autopilot", autopilot && s.Track != nil)
	return car, nil
}

func (s *Scene) RemoveVehicle(name string) bool {
	for i, c := range s.cars {
		if c.Vehicle.Name == name {
			s.World.RemoveBody(c.Vehicle.Body)
			s.Resolver.Forget(c.Vehicle.Body)
			s.cars = append(s.cars[:i], s.cars[i+1:]...)
			return true
		}
	}
	return false
}

// SetTrack switches every autopilot car, and manual cars with assist, to a
// new path. Lap counting restarts.
func (s *Scene) SetTrack(path *waypoint.Path) {
	s.Track = path
	for _, c := range s.cars {
		switch ctl := c.Vehicle.Control.(type) {
		case *vehicle.Autopilot:
			c.Vehicle.SetControl(s.control(path != nil))
		case *vehicle.Manual:
			keys := ctl.Keys
			manual := s.control(false).(*vehicle.Manual)
			manual.Keys = keys
			c.Vehicle.SetControl(manual)
		}
		c.Laps = 0
		c.tracked = false
	}
}

func (s *Scene) SetAutopilot(name string, on bool) error {
	c, ok := s.Car(name)
	if !ok {
		return errors.Errorf("no vehicle named %s", name)
	}
	if on && s.Track == nil {
		return errors.New("autopilot needs a track")
	}
	c.Vehicle.SetControl(s.control(on))
	return nil
}

func (s *Scene) SetKeys(name string, keys vehicle.Keys) error {
	c, ok := s.Car(name)
	if !ok {
		return errors.Errorf("no vehicle named %s", name)
	}
	if _, manual := c.Vehicle.Control.(*vehicle.Manual); !manual {
		return errors.Errorf("vehicle %s is not under manual control", name)
	}
	c.Vehicle.SetKeys(keys)
	return nil
}

func (s *Scene) Respawn(name string) error {
	c, ok := s.Car(name)
	if !ok {
		return errors.Errorf("no vehicle named %s", name)
	}
	c.Vehicle.Respawn(s.World)
	c.lastPos = c.Vehicle.Spawn.Position
	c.tracked = false
	return nil
}

// ApplySettings swaps in new tuning. Contact cooldowns restart.
func (s *Scene) ApplySettings(set settings.SimSettings) error {
	if err := set.Validate(); err != nil {
		return errors.Wrap(err, "invalid scene settings")
	}
	resolver, err := contact.NewResolver(set.Contact)
	if err != nil {
		return err
	}
	assist, err := ground.New(set.Ground)
	if err != nil {
		return err
	}
	s.Settings = set
	s.Resolver = resolver
	s.Ground = assist
	for _, c := range s.cars {
		c.Vehicle.Params = set.Vehicle
		switch ctl := c.Vehicle.Control.(type) {
		case *vehicle.Autopilot:
			ctl.Params = set.Pursuit
		case *vehicle.Manual:
			ctl.AssistWeight = set.ManualAssist
			ctl.Pursuit = set.Pursuit
			ctl.Assist = nil
			if set.ManualAssist > 0 {
				ctl.Assist = s.Track
			}
		}
	}
	return nil
}

// Step advances the scene by one fixed tick: contact cooldowns, queued
// contacts, every vehicle, the ground assist and finally the world.
func (s *Scene) Step(dt float64) {
	if dt <= 0 || m.IsNaN(dt) {
		return
	}
	s.Resolver.Advance(dt)
	for _, r := range s.Resolver.Process(s.World, s.Queue.Drain()) {
		for _, c := range s.cars {
			if c.Vehicle.Body == r.A || c.Vehicle.Body == r.B {
				c.Collisions++
			}
		}
	}

	for _, c := range s.cars {
		err := utils.Guard(c.Vehicle.Name, func() {
			c.Vehicle.Tick(dt, s.World)
		})
		if err != nil {
			c.Failures++
			utils.Loge(errors.Wrapf(err, "vehicle tick failed at tick %d", s.tick))
		}
	}

	if s.Ground != nil {
		for _, c := range s.cars {
			s.Ground.Apply(s.World, c.Vehicle.Body)
		}
	}

	s.World.Step(dt)
	s.tick++
	s.time += dt

	for _, c := range s.cars {
		s.track(c)
	}
}

// track updates distance, speed and lap bookkeeping after the world step.
func (s *Scene) track(c *Car) {
	pos, ok := s.World.Translation(c.Vehicle.Body)
	if !ok {
		return
	}
	if c.Vehicle.Last.Respawned {
		c.lastPos = pos
		c.tracked = false
	}
	c.Distance += tm.PlanarDist(c.lastPos, pos)
	c.lastPos = pos
	if vel, ok := s.World.LinearVelocity(c.Vehicle.Body); ok {
		c.TopSpeed = max(c.TopSpeed, tm.PlanarLen(vel))
	}

	if s.Track == nil {
		return
	}
	if proj, ok := s.Track.Project(pos); ok {
		c.CrossTrack = proj.CrossTrack
	}
	progress := s.Track.Progress(pos)
	length := s.Track.Length()
	if c.tracked && s.Track.Closed() && length > 0 {
		switch {
		case c.Progress > 0.75*length && progress < 0.25*length:
			c.Laps++
			slog.Info("lap", "vehicle", c.Vehicle.Name, "laps", c.Laps, "time", s.time)
		case c.Progress < 0.25*length && progress > 0.75*length:
			c.Laps = max(0, c.Laps-1)
		}
	}
	c.Progress = progress
	c.tracked = true
}
