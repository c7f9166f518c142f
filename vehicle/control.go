package vehicle

import (
	"pfeifer.dev/trackd/pursuit"
	"pfeifer.dev/trackd/waypoint"
)

// Keys is the state of the manual controls sampled once per tick.
type Keys struct {
	Forward bool `json:"forward"`
	Back    bool `json:"back"`
	Left    bool `json:"left"`
	Right   bool `json:"right"`
	Brake   bool `json:"brake"`
}

func (k Keys) Any() bool {
	return k.Forward || k.Back || k.Left || k.Right || k.Brake
}

// ControlSource is either *Manual or *Autopilot.
type ControlSource interface {
	controlSource()
}

type Manual struct {
	Keys Keys
	// Assist blends the path following yaw rate into manual steering when a
	// path is set.
	Assist       *waypoint.Path
	AssistWeight float64
	// Pursuit tunes the assist, the zero value uses the defaults.
	Pursuit pursuit.Params
}

func (c *Manual) assistParams() pursuit.Params {
	if c.Pursuit == (pursuit.Params{}) {
		return pursuit.DefaultParams()
	}
	return c.Pursuit
}

type Autopilot struct {
	Path   *waypoint.Path
	Params pursuit.Params
}

func (*Manual) controlSource()    {}
func (*Autopilot) controlSource() {}

func NewAutopilot(path *waypoint.Path) *Autopilot {
	return &Autopilot{Path: path, Params: pursuit.DefaultParams()}
}

// intent is what a control source asks of the drivetrain for one tick.
type intent struct {
	throttle float64
	yawRate  float64
	brake    bool
	// steering is the shaped manual steering input, zero for autopilot.
	steering float64
	idle     bool
}
