package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"

	"pfeifer.dev/trackd/cli"
	"pfeifer.dev/trackd/params"
	"pfeifer.dev/trackd/race"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/tracks"
	"pfeifer.dev/trackd/utils"
)

func main() {
	cli.Handle()

	params.EnsureParamDirectories()
	settings.Settings.LoadWithRetries(5)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := daemon(ctx, cli.Daemon); err != nil {
		slog.Error("trackd stopped", "error", err)
		os.Exit(1)
	}
}

func findTrack(opts cli.DaemonOptions) tracks.TrackSpec {
	name := settings.Settings.Track
	if name == "" {
		name = opts.Track
	}
	spec, err := tracks.Find(name)
	if err != nil {
		slog.Warn("could not find track, using default", "track", name, "error", err)
		spec = tracks.Builtin[cli.DEFAULT_TRACK]
	}
	return spec
}

func daemon(ctx context.Context, opts cli.DaemonOptions) error {
	spec := findTrack(opts)
	scenario, err := spec.Scenario(opts.Cars, opts.Manual, opts.Gap)
	if err != nil {
		return errors.Wrap(err, "could not build scenario")
	}
	scene, err := scenario.Build(settings.Settings)
	if err != nil {
		return errors.Wrap(err, "could not build scene")
	}

	pub, err := telemetry.NewPublisher[telemetry.Frame](telemetry.OUT_SERVICE)
	if err != nil {
		return err
	}
	sub, err := telemetry.NewSubscriber[telemetry.Command](telemetry.IN_SERVICE, false)
	if err != nil {
		return err
	}
	frames := telemetry.Fanout[telemetry.Frame]{&pub}
	commands := telemetry.Merge[telemetry.Command]{&sub}

	if opts.ViewerAddr != "" {
		hub := telemetry.NewHub()
		frames = append(frames, hub)
		commands = append(commands, hub)
		go func() {
			utils.Loge(hub.Serve(ctx, opts.ViewerAddr))
		}()
	}

	loop := race.NewLoop(scene, &settings.Settings)
	loop.Publisher = frames
	loop.Commands = commands
	loop.LoadTrack = tracks.LoadPath

	slog.Info("trackd started", "track", spec.Name, "cars", len(scene.Cars()), "tick_rate", settings.Settings.TickRate)
	err = loop.Run(ctx)

	data, jerr := json.Marshal(loop.Scene.Snapshot().Summary())
	if jerr == nil {
		utils.Logwe(errors.Wrap(params.PutParam(params.LAST_SUMMARY, data), "could not store summary"))
	}
	return err
}
