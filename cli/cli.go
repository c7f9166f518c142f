package cli

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"pfeifer.dev/trackd/params"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/tracks"
)

func Handle() {
	shouldExit := true
	cmd := &cli.Command{
		Commands: []*cli.Command{
			{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Send commands to an active trackd instance",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					interactive()
					return nil
				},
			},
			{
				Name:    "prompt",
				Aliases: []string{"p"},
				Usage:   "Send a single command to an active trackd instance",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return prompt()
				},
			},
			{
				Name:    "run",
				Aliases: []string{"r"},
				Usage:   "Run a headless race and print its summary",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Category: "Scene",
						Name:     "track",
						Aliases:  []string{"t"},
						Usage:    "The track name or track file to race on",
						Value:    "oval",
					},
					&cli.IntFlag{
						Category: "Scene",
						Name:     "cars",
						Aliases:  []string{"c"},
						Usage:    "The number of autopilot cars",
						Value:    2,
					},
					&cli.IntFlag{
						Category: "Scene",
						Name:     "manual",
						Usage:    "The number of idle manual cars",
						Value:    0,
					},
					&cli.Float64Flag{
						Category: "Scene",
						Name:     "gap",
						Usage:    "The distance in metres between grid slots",
						Value:    15,
					},
					&cli.Float64Flag{
						Category: "Timing",
						Name:     "seconds",
						Aliases:  []string{"s"},
						Usage:    "How many simulated seconds to run",
						Value:    60,
					},
					&cli.Float64Flag{
						Category: "Timing",
						Name:     "tick-rate",
						Usage:    "Overrides the configured tick rate when set",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					params.EnsureParamDirectories()
					settings.Settings.Load()
					return runHeadless(ctx, os.Stdout, runOptions{
						Track:    cmd.String("track"),
						Cars:     cmd.Int("cars"),
						Manual:   cmd.Int("manual"),
						Gap:      cmd.Float64("gap"),
						Seconds:  cmd.Float64("seconds"),
						TickRate: cmd.Float64("tick-rate"),
					})
				},
			},
			{
				Name:  "import",
				Usage: "Import an open street maps way as a track",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Category: "Inputs and Outputs",
						Name:     "input-file",
						Aliases:  []string{"i"},
						Usage:    "The .osm or .osm.pbf file to read",
						Value:    "./map.osm.pbf",
					},
					&cli.StringFlag{
						Category: "Inputs and Outputs",
						Name:     "name",
						Aliases:  []string{"n"},
						Usage:    "The name to store the track under",
					},
					&cli.StringFlag{
						Category: "Way",
						Name:     "way-name",
						Usage:    "Only consider ways with this name tag",
					},
					&cli.Int64Flag{
						Category: "Way",
						Name:     "way-id",
						Usage:    "Import exactly this way",
					},
					&cli.BoolFlag{
						Category: "Way",
						Name:     "closed",
						Usage:    "Treat the way as a loop even if it does not end where it starts",
					},
					&cli.Float64Flag{
						Category: "Speeds",
						Name:     "spacing",
						Usage:    "The distance in metres between waypoints",
						Value:    tracks.DEFAULT_SPACING,
					},
					&cli.Float64Flag{
						Category: "Speeds",
						Name:     "default-speed",
						Usage:    "Speed in m/s used when the way has no maxspeed tag",
						Value:    tracks.DEFAULT_SPEED_LIMIT,
					},
					&cli.Float64Flag{
						Category: "Speeds",
						Name:     "lateral-accel",
						Usage:    "The lateral acceleration in m/s^2 corners are limited to",
						Value:    tracks.DEFAULT_LATERAL_ACCEL,
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return importTrack(ctx, cmd.String("input-file"), tracks.ImportOptions{
						Name:            cmd.String("name"),
						WayName:         cmd.String("way-name"),
						WayID:           cmd.Int64("way-id"),
						Spacing:         cmd.Float64("spacing"),
						MaxLateralAccel: cmd.Float64("lateral-accel"),
						DefaultSpeed:    cmd.Float64("default-speed"),
						Closed:          cmd.Bool("closed"),
					})
				},
			},
			{
				Name:  "tracks",
				Usage: "List the available tracks",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					printTracks(os.Stdout)
					return nil
				},
			},
		},
		Name:  "Trackd",
		Usage: "Start an instance of trackd",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Category: "Scene",
				Local:    true,
				Name:     "track",
				Usage:    "The track to load when no track is stored in the settings",
				Value:    DEFAULT_TRACK,
			},
			&cli.IntFlag{
				Category: "Scene",
				Local:    true,
				Name:     "cars",
				Usage:    "The number of autopilot cars",
				Value:    DEFAULT_CARS,
			},
			&cli.IntFlag{
				Category: "Scene",
				Local:    true,
				Name:     "manual",
				Usage:    "The number of manual cars",
				Value:    DEFAULT_MANUAL,
			},
			&cli.StringFlag{
				Category: "Viewers",
				Local:    true,
				Name:     "viewer-addr",
				Usage:    "Serve telemetry to websocket viewers on this address, empty disables it",
				Sources:  cli.EnvVars("TRACKD_VIEWER_ADDR"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			shouldExit = false
			Daemon = DaemonOptions{
				Track:      cmd.String("track"),
				Cars:       cmd.Int("cars"),
				Manual:     cmd.Int("manual"),
				Gap:        DEFAULT_GAP,
				ViewerAddr: cmd.String("viewer-addr"),
			}
			return nil
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}

	if shouldExit {
		os.Exit(0)
	}
}
