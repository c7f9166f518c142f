package pursuit

import (
	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
)

type Params struct {
	L0    float64 `json:"l0"`
	KV    float64 `json:"kv"`
	LdMin float64 `json:"ld_min"`
	LdMax float64 `json:"ld_max"`
	// CornerShrink scales the lookahead by 1/(1+c|kappa|) in corners.
	CornerShrink float64 `json:"corner_shrink"`
	// Angular deadband in degrees at rest and at DeadbandSpeed.
	DeadbandLow   float64 `json:"deadband_low"`
	DeadbandHigh  float64 `json:"deadband_high"`
	DeadbandSpeed float64 `json:"deadband_speed"`
	KEy           float64 `json:"k_ey"`
	// Low pass coefficient toward the new command, from FilterLow at rest to
	// FilterHigh at FilterSpeed.
	FilterLow   float64 `json:"filter_low"`
	FilterHigh  float64 `json:"filter_high"`
	FilterSpeed float64 `json:"filter_speed"`
	Mu          float64 `json:"mu"`
	// EllipseFloor keeps some authority when the friction ellipse is saturated.
	EllipseFloor    float64 `json:"ellipse_floor"`
	RRate           float64 `json:"r_rate"`
	RMax            float64 `json:"r_max"`
	HorizonMin      float64 `json:"horizon_min"`
	HorizonMax      float64 `json:"horizon_max"`
	HorizonPerSpeed float64 `json:"horizon_per_speed"`
	VFloor          float64 `json:"v_floor"`
	RampUp          float64 `json:"ramp_up"`
	RampDown        float64 `json:"ramp_down"`
	ThrottleGain    float64 `json:"throttle_gain"`
	CoastBand       float64 `json:"coast_band"`
	OverspeedMargin float64 `json:"overspeed_margin"`
}

func DefaultParams() Params {
	return Params{
		L0:              2.5,
		KV:              0.35,
		LdMin:           3,
		LdMax:           14,
		CornerShrink:    4,
		DeadbandLow:     0.8,
		DeadbandHigh:    0.5,
		DeadbandSpeed:   15,
		KEy:             0.35,
		FilterLow:       0.35,
		FilterHigh:      0.7,
		FilterSpeed:     20,
		Mu:              0.9,
		EllipseFloor:    0.4,
		RRate:           6,
		RMax:            2,
		HorizonMin:      1.2,
		HorizonMax:      2.0,
		HorizonPerSpeed: 0.04,
		VFloor:          3,
		RampUp:          4,
		RampDown:        3,
		ThrottleGain:    0.22,
		CoastBand:       0.3,
		OverspeedMargin: 1.5,
	}
}

func (p Params) AyMax() float64 {
	return p.Mu * tm.GRAVITY
}

func (p Params) Validate() error {
	switch {
	case p.LdMin <= 0 || p.LdMax < p.LdMin:
		return errors.Errorf("invalid lookahead range [%f, %f]", p.LdMin, p.LdMax)
	case p.Mu <= 0:
		return errors.Errorf("mu must be positive, got %f", p.Mu)
	case p.RRate <= 0 || p.RMax <= 0:
		return errors.New("yaw rate limits must be positive")
	case p.HorizonMin <= 0 || p.HorizonMax < p.HorizonMin:
		return errors.Errorf("invalid planning horizon [%f, %f]", p.HorizonMin, p.HorizonMax)
	case p.RampUp <= 0 || p.RampDown <= 0:
		return errors.New("speed ramps must be positive")
	case p.CornerShrink < 0 || p.KEy < 0 || p.ThrottleGain <= 0:
		return errors.New("gains must not be negative")
	}
	return nil
}
