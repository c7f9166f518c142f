package vehicle

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
)

type Params struct {
	BaselineMass float64 `json:"baseline_mass"`
	EngineForce  float64 `json:"engine_force"`
	Mu           float64 `json:"mu"`
	MaxSpeed     float64 `json:"max_speed"`
	ReverseSpeed float64 `json:"reverse_speed"`

	// yaw regulation
	MaxYawRate        float64 `json:"max_yaw_rate"`
	YawReferenceSpeed float64 `json:"yaw_reference_speed"`
	YawKp             float64 `json:"yaw_kp"`
	YawKd             float64 `json:"yaw_kd"`
	SteerStrength     float64 `json:"steer_strength"`
	YawDeadband       float64 `json:"yaw_deadband"`
	SteerFadeSpeed    float64 `json:"steer_fade_speed"`
	ReverseSteerGate  float64 `json:"reverse_steer_gate"`
	EscMargin         float64 `json:"esc_margin"`
	EscGain           float64 `json:"esc_gain"`

	// traction and resistance, decelerations in m/s² at MaxSpeed
	LateralGrip      float64 `json:"lateral_grip"`
	LateralThreshold float64 `json:"lateral_threshold"`
	DragDecel        float64 `json:"drag_decel"`
	RollingDecel     float64 `json:"rolling_decel"`
	DownforceDecel   float64 `json:"downforce_decel"`
	BrakeFraction    float64 `json:"brake_fraction"`
	SteerLoadSpeed   float64 `json:"steer_load_speed"`
	SteerLoadCut     float64 `json:"steer_load_cut"`
	ReverseBoost     float64 `json:"reverse_boost"`
	MaxVerticalSpeed float64 `json:"max_vertical_speed"`
	SpeedCapFactor   float64 `json:"speed_cap_factor"`
	FloorY           float64 `json:"floor_y"`

	// body geometry
	HalfLength float64 `json:"half_length"`
	HalfWidth  float64 `json:"half_width"`
	RideHeight float64 `json:"ride_height"`

	// proximity probes
	FrontReach     float64 `json:"front_reach"`
	NearDistance   float64 `json:"near_distance"`
	FanAngle       float64 `json:"fan_angle"`
	SideMargin     float64 `json:"side_margin"`
	EscapeImpulse  float64 `json:"escape_impulse"`
	EscapeMinSpeed float64 `json:"escape_min_speed"`
	AvoidDuration  float64 `json:"avoid_duration"`
	AvoidYawRate   float64 `json:"avoid_yaw_rate"`
	EscapeThrottle float64 `json:"escape_throttle"`

	// manual input shaping
	ThrottleEngage    float64 `json:"throttle_engage"`
	ThrottleRelease   float64 `json:"throttle_release"`
	SteerEngage       float64 `json:"steer_engage"`
	SteerRelease      float64 `json:"steer_release"`
	InputDeadzone     float64 `json:"input_deadzone"`
	ThrottleGamma     float64 `json:"throttle_gamma"`
	SteerHighSpeedCut float64 `json:"steer_high_speed_cut"`
	SteerLowSpeed     float64 `json:"steer_low_speed"`
	SteerLowBoost     float64 `json:"steer_low_boost"`
	AntiCreepSpeed    float64 `json:"anti_creep_speed"`
	AntiCreepYawRate  float64 `json:"anti_creep_yaw_rate"`
}

func DefaultParams() Params {
	return Params{
		BaselineMass: 1200,
		EngineForce:  1800,
		Mu:           1.0,
		MaxSpeed:     30,
		ReverseSpeed: 8,

		MaxYawRate:        2.2,
		YawReferenceSpeed: 6,
		YawKp:             20000,
		YawKd:             250,
		SteerStrength:     12000,
		YawDeadband:       0.01,
		SteerFadeSpeed:    1.5,
		ReverseSteerGate:  0.15,
		EscMargin:         0.15,
		EscGain:           15000,

		LateralGrip:      6,
		LateralThreshold: 0.05,
		DragDecel:        1.2,
		RollingDecel:     0.3,
		DownforceDecel:   2.0,
		BrakeFraction:    0.8,
		SteerLoadSpeed:   6,
		SteerLoadCut:     0.35,
		ReverseBoost:     1.5,
		MaxVerticalSpeed: 15,
		SpeedCapFactor:   1.05,
		FloorY:           -20,

		HalfLength: 2.2,
		HalfWidth:  0.95,
		RideHeight: 0.5,

		FrontReach:     3,
		NearDistance:   0.6,
		FanAngle:       20 * tm.TO_RADIANS,
		SideMargin:     1.2,
		EscapeImpulse:  1.5,
		EscapeMinSpeed: 0.5,
		AvoidDuration:  0.8,
		AvoidYawRate:   1.0,
		EscapeThrottle: -0.6,

		ThrottleEngage:    3,
		ThrottleRelease:   6,
		SteerEngage:       5,
		SteerRelease:      8,
		InputDeadzone:     0.05,
		ThrottleGamma:     1.7,
		SteerHighSpeedCut: 0.5,
		SteerLowSpeed:     3,
		SteerLowBoost:     0.25,
		AntiCreepSpeed:    0.35,
		AntiCreepYawRate:  0.2,
	}
}

func (p Params) Validate() error {
	switch {
	case p.BaselineMass <= 0:
		return errors.Errorf("baseline mass must be positive, got %f", p.BaselineMass)
	case p.EngineForce <= 0:
		return errors.Errorf("engine force must be positive, got %f", p.EngineForce)
	case p.Mu <= 0:
		return errors.Errorf("mu must be positive, got %f", p.Mu)
	case p.MaxSpeed <= 0 || p.ReverseSpeed < 0:
		return errors.New("speed limits must be positive")
	case p.MaxYawRate <= 0 || p.YawReferenceSpeed <= 0:
		return errors.New("yaw limits must be positive")
	case p.SteerFadeSpeed <= 0:
		return errors.Errorf("steer fade speed must be positive, got %f", p.SteerFadeSpeed)
	case p.SteerLoadSpeed <= 0:
		return errors.Errorf("steer load speed must be positive, got %f", p.SteerLoadSpeed)
	case p.HalfLength <= 0 || p.HalfWidth <= 0 || p.RideHeight <= 0:
		return errors.New("body dimensions must be positive")
	case p.SpeedCapFactor < 1:
		return errors.Errorf("speed cap factor must be at least 1, got %f", p.SpeedCapFactor)
	case p.InputDeadzone < 0 || p.InputDeadzone >= 1:
		return errors.Errorf("input deadzone must be within [0, 1), got %f", p.InputDeadzone)
	case p.ThrottleGamma <= 0:
		return errors.New("throttle gamma must be positive")
	case p.ThrottleEngage <= 0 || p.ThrottleRelease <= 0 || p.SteerEngage <= 0 || p.SteerRelease <= 0:
		return errors.New("input ramp rates must be positive")
	}
	return nil
}

// HalfExtents of the body box, X forward.
func (p Params) HalfExtents() mgl64.Vec3 {
	return mgl64.Vec3{p.HalfLength, p.RideHeight, p.HalfWidth}
}

// TractionLimit is the friction circle radius for the given mass.
func (p Params) TractionLimit(mass float64) float64 {
	return mass * tm.GRAVITY * p.Mu
}
