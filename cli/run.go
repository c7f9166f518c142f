package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	m "math"

	"github.com/pkg/errors"

	"pfeifer.dev/trackd/params"
	"pfeifer.dev/trackd/race"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/tracks"
	"pfeifer.dev/trackd/utils"
)

const CANCEL_CHECK_TICKS = 256

type runOptions struct {
	Track    string
	Cars     int
	Manual   int
	Gap      float64
	Seconds  float64
	TickRate float64
}

// runHeadless steps a scene as fast as possible and writes the summary as
// JSON. The summary is also kept as the last summary param.
func runHeadless(ctx context.Context, w io.Writer, opts runOptions) error {
	s := settings.Settings
	if opts.TickRate > 0 {
		s.TickRate = opts.TickRate
	}
	if err := s.Validate(); err != nil {
		return err
	}
	if opts.Seconds <= 0 {
		return errors.Errorf("seconds must be positive, got %f", opts.Seconds)
	}

	spec, err := tracks.Find(opts.Track)
	if err != nil {
		return err
	}
	scenario, err := spec.Scenario(opts.Cars, opts.Manual, opts.Gap)
	if err != nil {
		return err
	}
	scene, err := scenario.Build(s)
	if err != nil {
		return err
	}

	dt := s.Dt()
	ticks := int(m.Ceil(opts.Seconds/dt - 1e-9))
	slog.Info("running headless", "track", spec.Name, "cars", len(scene.Cars()), "ticks", ticks)
	for i := range ticks {
		if i%CANCEL_CHECK_TICKS == 0 && ctx.Err() != nil {
			break
		}
		scene.Step(dt)
	}

	data, err := json.MarshalIndent(scene.Snapshot().Summary(), "", "  ")
	if err != nil {
		return errors.Wrap(err, "could not encode summary")
	}
	utils.Logwe(errors.Wrap(params.PutParam(params.LAST_SUMMARY, data), "could not store summary"))
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func importTrack(ctx context.Context, input string, opts tracks.ImportOptions) error {
	spec, err := tracks.ImportOSM(ctx, input, opts)
	if err != nil {
		return err
	}
	path := tracks.Resolve(spec.Name)
	if err := tracks.Save(path, spec); err != nil {
		return err
	}
	fmt.Printf("saved %s with %d points to %s\n", spec.Name, len(spec.Points), path)
	return nil
}

func printTracks(w io.Writer) {
	for _, name := range tracks.List() {
		fmt.Fprintln(w, name)
	}
}

func lastSummary() (summary race.Summary, err error) {
	data, err := params.GetParam(params.LAST_SUMMARY)
	if err != nil {
		return summary, err
	}
	err = json.Unmarshal(data, &summary)
	return summary, errors.Wrap(err, "could not decode last summary")
}
