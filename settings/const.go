package settings

import (
	"time"
)

const (
	LOOP_DELAY              = 50 * time.Millisecond
	DEFAULT_TICK_RATE       = 60
	DEFAULT_TELEMETRY_EVERY = 3
	MS_TO_KPH               = 3.6
	KPH_TO_MS               = 1 / 3.6
	MPH_TO_MS               = 0.44704
	KNOTS_TO_MS             = 0.514444
	MAX_TICK_RATE           = 1000
)
