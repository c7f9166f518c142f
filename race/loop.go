package race

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/utils"
	"pfeifer.dev/trackd/vehicle"
	"pfeifer.dev/trackd/waypoint"
)

const (
	// MAX_SUBSTEPS bounds the catch up work after a stall.
	MAX_SUBSTEPS   = 5
	HZ_WINDOW      = 30
	COMMAND_BUDGET = 16
)

type FramePublisher interface {
	Send(telemetry.Frame) error
}

type CommandSource interface {
	Read() (telemetry.Command, bool)
}

type TrackLoader func(name string) (*waypoint.Path, error)

// Loop runs a scene against the wall clock with a fixed timestep.
type Loop struct {
	Scene     *Scene
	Settings  *settings.SimSettings
	Publisher FramePublisher
	Commands  CommandSource
	LoadTrack TrackLoader
	Paused    bool
	Tracker   utils.UpdateTracker

	accumulator float64
}

func NewLoop(scene *Scene, s *settings.SimSettings) *Loop {
	l := &Loop{Scene: scene, Settings: s}
	l.Tracker.Init(HZ_WINDOW)
	return l
}

// Run ticks until ctx is done.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(float64(time.Second) * l.Settings.Dt()))
	defer ticker.Stop()
	tickRate := l.Settings.TickRate
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			l.Tracker.UpdateAt(now)
			l.Poll()
			l.Advance(now.Sub(last).Seconds())
			last = now
			if l.Settings.TickRate != tickRate {
				tickRate = l.Settings.TickRate
				ticker.Reset(time.Duration(float64(time.Second) * l.Settings.Dt()))
			}
		}
	}
}

// Advance consumes elapsed seconds in fixed ticks and returns how many ran.
// Time beyond MAX_SUBSTEPS ticks is dropped.
func (l *Loop) Advance(elapsed float64) int {
	if l.Paused || elapsed <= 0 {
		return 0
	}
	dt := l.Settings.Dt()
	l.accumulator += elapsed
	steps := 0
	for l.accumulator >= dt && steps < MAX_SUBSTEPS {
		l.Scene.Step(dt)
		l.accumulator -= dt
		steps++
		if every := uint64(l.Settings.TelemetryEvery); every > 0 && l.Scene.Tick()%every == 0 {
			l.Publish()
		}
	}
	if steps == MAX_SUBSTEPS && l.accumulator >= dt {
		slog.Debug("loop behind, dropping time", "seconds", l.accumulator)
		l.accumulator = 0
	}
	return steps
}

func (l *Loop) Publish() {
	if l.Publisher == nil {
		return
	}
	frame := l.Scene.Snapshot().Frame(l.Tracker.Hz(), l.Paused)
	utils.Logwe(errors.Wrap(l.Publisher.Send(frame), "could not publish telemetry frame"))
}

// Poll handles the queued commands, at most COMMAND_BUDGET per call.
func (l *Loop) Poll() {
	if l.Commands == nil {
		return
	}
	for range COMMAND_BUDGET {
		cmd, ok := l.Commands.Read()
		if !ok {
			return
		}
		utils.Logwe(l.Handle(cmd))
	}
}

func (l *Loop) Handle(cmd telemetry.Command) error {
	slog.Debug("command", "type", cmd.Type, "vehicle", cmd.Vehicle)
	switch cmd.Type {
	case telemetry.SetKeys:
		keys := vehicle.Keys{}
		if cmd.Keys != nil {
			keys = vehicle.Keys(*cmd.Keys)
		}
		return l.Scene.SetKeys(cmd.Vehicle, keys)
	case telemetry.Respawn:
		return l.Scene.Respawn(cmd.Vehicle)
	case telemetry.Pause:
		l.Paused = true
		l.accumulator = 0
		return nil
	case telemetry.Resume:
		l.Paused = false
		return nil
	case telemetry.LoadTrack:
		if l.LoadTrack == nil {
			return errors.New("no track loader configured")
		}
		path, err := l.LoadTrack(cmd.Str)
		if err != nil {
			return errors.Wrapf(err, "could not load track %s", cmd.Str)
		}
		l.Scene.SetTrack(path)
		l.Settings.Track = cmd.Str
		return nil
	case telemetry.SetAutopilot:
		if cmd.Vehicle != "" {
			return l.Scene.SetAutopilot(cmd.Vehicle, cmd.Bool)
		}
	}

	if !l.Settings.Handle(cmd) {
		return errors.Errorf("unknown command %s", cmd.Type)
	}
	if err := l.Scene.ApplySettings(*l.Settings); err != nil {
		return err
	}
	if cmd.Type == telemetry.SetAutopilot {
		for _, c := range l.Scene.Cars() {
			if err := l.Scene.SetAutopilot(c.Vehicle.Name, cmd.Bool); err != nil {
				return err
			}
		}
	}
	return nil
}
