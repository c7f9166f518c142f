package utils

import (
	"time"

	m "pfeifer.dev/trackd/math"
)

// UpdateTracker measures the period between successive updates.
type UpdateTracker struct {
	LastTime time.Time
	Time     time.Time
	DiffMA   m.MovingAverage
}

func (u *UpdateTracker) Init(maLength int) {
	u.LastTime = time.Now()
	u.Time = u.LastTime
	u.DiffMA.Init(maLength)
}

func (u *UpdateTracker) Update() {
	u.UpdateAt(time.Now())
}

func (u *UpdateTracker) UpdateAt(now time.Time) {
	u.LastTime = u.Time
	u.Time = now
	u.DiffMA.Update(u.Time.Sub(u.LastTime).Seconds())
}

// Hz is the smoothed update frequency.
func (u *UpdateTracker) Hz() float64 {
	if u.DiffMA.Estimate <= 0 {
		return 0
	}
	return 1 / u.DiffMA.Estimate
}
