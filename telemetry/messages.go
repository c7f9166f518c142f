package telemetry

import (
	"encoding/json"

	"github.com/pkg/errors"
)

type VehicleFrame struct {
	Name      string     `json:"name"`
	Position  [3]float64 `json:"position"`
	Yaw       float64    `json:"yaw"`
	Speed     float64    `json:"speed"`
	YawRate   float64    `json:"yaw_rate"`
	Throttle  float64    `json:"throttle"`
	Autopilot bool       `json:"autopilot"`
	Escaping  bool       `json:"escaping"`
	FrontDist float64    `json:"front_dist"`
	Respawns  int        `json:"respawns"`
	Laps      int        `json:"laps"`
	Progress  float64    `json:"progress"`
	// CrossTrack is the signed distance from the path, left positive.
	CrossTrack float64 `json:"cross_track"`
}

type Frame struct {
	Tick     uint64         `json:"tick"`
	Time     float64        `json:"time"`
	Hz       float64        `json:"hz"`
	Paused   bool           `json:"paused"`
	Vehicles []VehicleFrame `json:"vehicles"`
}

type CommandType string

const (
	ReloadSettings          CommandType = "reload_settings"
	SaveSettings            CommandType = "save_settings"
	LoadDefaultSettings     CommandType = "load_default_settings"
	LoadRecommendedSettings CommandType = "load_recommended_settings"
	SetLogLevel             CommandType = "set_log_level"
	SetTickRate             CommandType = "set_tick_rate"
	SetTelemetryEvery       CommandType = "set_telemetry_every"
	SetAutopilot            CommandType = "set_autopilot"
	SetManualAssist         CommandType = "set_manual_assist"
	SetSlopeAlign           CommandType = "set_slope_align"
	SetMaxSpeed             CommandType = "set_max_speed"
	SetEngineForce          CommandType = "set_engine_force"
	SetFriction             CommandType = "set_friction"
	SetLookahead            CommandType = "set_lookahead"
	SetRestitution          CommandType = "set_restitution"
	SetKeys                 CommandType = "set_keys"
	Respawn                 CommandType = "respawn"
	LoadTrack               CommandType = "load_track"
	Pause                   CommandType = "pause"
	Resume                  CommandType = "resume"
)

type Keys struct {
	Forward bool `json:"forward"`
	Back    bool `json:"back"`
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Brake   bool `json:"brake"`
}

type Command struct {
	Type    CommandType `json:"type"`
	Vehicle string      `json:"vehicle,omitempty"`
	Float   float64     `json:"float,omitempty"`
	Bool    bool        `json:"bool,omitempty"`
	Str     string      `json:"str,omitempty"`
	Keys    *Keys       `json:"keys,omitempty"`
}

func Encode[T any](v T) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "could not encode telemetry message")
	}
	return data, nil
}

func Decode[T any](data []byte) (v T, err error) {
	if len(data) == 0 {
		return v, errors.New("empty telemetry message")
	}
	err = json.Unmarshal(data, &v)
	if err != nil {
		return v, errors.Wrap(err, "could not decode telemetry message")
	}
	return v, nil
}
