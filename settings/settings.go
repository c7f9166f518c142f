package settings

import (
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/pkg/errors"

	"pfeifer.dev/trackd/contact"
	"pfeifer.dev/trackd/ground"
	"pfeifer.dev/trackd/params"
	"pfeifer.dev/trackd/pursuit"
	"pfeifer.dev/trackd/telemetry"
	"pfeifer.dev/trackd/utils"
	"pfeifer.dev/trackd/vehicle"
)

var (
	Settings = SimSettings{}
)

type SimSettings struct {
	LogLevel         string  `json:"log_level"`
	TickRate         float64 `json:"tick_rate"`
	TelemetryEvery   int     `json:"telemetry_every"`
	AutopilotEnabled bool    `json:"autopilot_enabled"`
	// ManualAssist is the weight of the path following yaw blended into
	// manual steering, zero disables it.
	ManualAssist float64 `json:"manual_assist"`
	Track        string  `json:"track"`

	Vehicle vehicle.Params `json:"vehicle"`
	Pursuit pursuit.Params `json:"pursuit"`
	Contact contact.Params `json:"contact"`
	Ground  ground.Params  `json:"ground"`
}

func (s *SimSettings) Default() {
	s.LogLevel = "error"
	s.TickRate = DEFAULT_TICK_RATE
	s.TelemetryEvery = DEFAULT_TELEMETRY_EVERY
	s.AutopilotEnabled = true
	s.ManualAssist = 0
	s.Track = ""
	s.Vehicle = vehicle.DefaultParams()
	s.Pursuit = pursuit.DefaultParams()
	s.Contact = contact.DefaultParams()
	s.Ground = ground.DefaultParams()
	s.syncGround()
}

func (s *SimSettings) Recommended() {
	s.Default()
	s.LogLevel = "warn"
	s.TelemetryEvery = 2
	s.ManualAssist = 0.3
	s.Ground.SlopeAlign = true
}

// syncGround keeps the wheel layout of the ground assist on the vehicle body.
func (s *SimSettings) syncGround() {
	s.Ground.RideHeight = s.Vehicle.RideHeight
	s.Ground.HalfLength = s.Vehicle.HalfLength
	s.Ground.HalfWidth = s.Vehicle.HalfWidth
}

func (s *SimSettings) Validate() error {
	if s.TickRate <= 0 || s.TickRate > MAX_TICK_RATE {
		return errors.Errorf("tick rate must be within (0, %d], got %f", MAX_TICK_RATE, s.TickRate)
	}
	if s.TelemetryEvery < 1 {
		return errors.Errorf("telemetry every must be at least 1, got %d", s.TelemetryEvery)
	}
	if s.ManualAssist < 0 || s.ManualAssist > 1 {
		return errors.Errorf("manual assist must be within [0, 1], got %f", s.ManualAssist)
	}
	if err := s.Vehicle.Validate(); err != nil {
		return errors.Wrap(err, "invalid vehicle settings")
	}
	if err := s.Pursuit.Validate(); err != nil {
		return errors.Wrap(err, "invalid pursuit settings")
	}
	if err := s.Contact.Validate(); err != nil {
		return errors.Wrap(err, "invalid contact settings")
	}
	if err := s.Ground.Validate(); err != nil {
		return errors.Wrap(err, "invalid ground settings")
	}
	return nil
}

// Dt is the fixed timestep for the configured tick rate.
func (s *SimSettings) Dt() float64 {
	return 1 / s.TickRate
}

func (s *SimSettings) Load() (success bool) {
	s.Default() // set defaults so settings not already in param are defaulted
	data, err := params.GetParam(params.TRACKD_SETTINGS)
	if err != nil {
		utils.Loge(err)
		return false
	}

	err = json.Unmarshal(data, s)
	if err != nil {
		utils.Loge(errors.Wrap(err, "could not parse settings"))
		s.Default()
		return false
	}
	s.syncGround()

	err = s.Validate()
	if err != nil {
		utils.Loge(err)
		s.Default()
		return false
	}

	s.setLogLevel()

	return true
}

func (s *SimSettings) LoadWithRetries(tries int) {
	for range tries {
		if s.Load() {
			break
		}
		time.Sleep(1 * time.Second)
	}
	s.Save()
}

func (s *SimSettings) Save() {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		utils.Loge(err)
		return
	}
	err = params.PutParam(params.TRACKD_SETTINGS, data)
	if err != nil {
		utils.Loge(err)
		return
	}
}

func (s *SimSettings) setLogLevel() {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		slog.SetLogLoggerLevel(slog.LevelDebug)
	case "info":
		slog.SetLogLoggerLevel(slog.LevelInfo)
	case "warn":
		slog.SetLogLoggerLevel(slog.LevelWarn)
	case "error":
		slog.SetLogLoggerLevel(slog.LevelError)
	default:
		slog.SetLogLoggerLevel(slog.LevelError)
	}
}

// Handle applies a settings command. It reports whether the command was a
// settings command; scene commands are left to the caller. Values that
// would make the settings invalid are rejected.
func (s *SimSettings) Handle(input telemetry.Command) bool {
	previous := *s
	switch input.Type {
	case telemetry.ReloadSettings:
		s.Load()
		return true
	case telemetry.SaveSettings:
		go s.Save()
		return true
	case telemetry.LoadDefaultSettings:
		s.Default()
	case telemetry.LoadRecommendedSettings:
		s.Recommended()
	case telemetry.SetLogLevel:
		s.LogLevel = input.Str
		s.setLogLevel()
	case telemetry.SetTickRate:
		s.TickRate = input.Float
	case telemetry.SetTelemetryEvery:
		s.TelemetryEvery = int(input.Float)
	case telemetry.SetAutopilot:
		s.AutopilotEnabled = input.Bool
	case telemetry.SetManualAssist:
		s.ManualAssist = input.Float
	case telemetry.SetSlopeAlign:
		s.Ground.SlopeAlign = input.Bool
	case telemetry.SetMaxSpeed:
		s.Vehicle.MaxSpeed = input.Float
	case telemetry.SetEngineForce:
		s.Vehicle.EngineForce = input.Float
	case telemetry.SetFriction:
		s.Vehicle.Mu = input.Float
	case telemetry.SetLookahead:
		s.Pursuit.L0 = input.Float
	case telemetry.SetRestitution:
		s.Contact.Restitution = input.Float
	default:
		return false
	}
	if err := s.Validate(); err != nil {
		slog.Warn("rejected settings command", "type", input.Type, "error", err)
		*s = previous
	}
	return true
}
