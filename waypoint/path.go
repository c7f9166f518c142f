package waypoint

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"

	m "pfeifer.dev/trackd/math"
)

// Segments at or below this length are skipped when walking the path.
const DEGENERATE_SEGMENT = 1e-4

type Sample struct {
	Position       mgl64.Vec3 `json:"position"`
	TargetSpeed    float64    `json:"target_speed"`
	DistanceToNext float64    `json:"distance_to_next"`
}

// Path is an immutable ordered list of samples. It is safe to share between
// vehicles.
type Path struct {
	samples []Sample
	closed  bool
	length  float64
}

var ErrTooFewSamples = errors.New("path needs at least 2 samples")

// NewPath copies samples and computes the distance from each sample to the
// next. On a closed path the last sample links back to the first.
func NewPath(samples []Sample, closed bool) (*Path, error) {
	if len(samples) < 2 {
		return nil, errors.Wrapf(ErrTooFewSamples, "got %d", len(samples))
	}
	p := &Path{samples: make([]Sample, len(samples)), closed: closed}
	copy(p.samples, samples)
	for i, s := range p.samples {
		if !m.Finite(s.Position.X(), s.Position.Y(), s.Position.Z(), s.TargetSpeed) {
			return nil, errors.Errorf("sample %d is not finite", i)
		}
		if s.TargetSpeed < 0 {
			return nil, errors.Errorf("sample %d has negative target speed %f", i, s.TargetSpeed)
		}
	}
	p.finalize()
	return p, nil
}

func (p *Path) finalize() {
	n := len(p.samples)
	p.length = 0
	for i := range p.samples {
		if i == n-1 && !p.closed {
			p.samples[i].DistanceToNext = 0
			continue
		}
		next := p.samples[(i+1)%n].Position
		p.samples[i].DistanceToNext = next.Sub(p.samples[i].Position).Len()
		p.length += p.samples[i].DistanceToNext
	}
}

// Samples returns a copy of the ordered samples.
func (p *Path) Samples() []Sample {
	if p == nil {
		return nil
	}
	out := make([]Sample, len(p.samples))
	copy(out, p.samples)
	return out
}

func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.samples)
}

func (p *Path) At(i int) Sample {
	return p.samples[i]
}

func (p *Path) Closed() bool {
	return p != nil && p.closed
}

// Length is the total distance along the path, including the closing segment
// of a closed path.
func (p *Path) Length() float64 {
	if p == nil {
		return 0
	}
	return p.length
}

func (p *Path) next(i int) (int, bool) {
	n := len(p.samples)
	if i+1 < n {
		return i + 1, true
	}
	if p.closed {
		return 0, true
	}
	return i, false
}

func (p *Path) prev(i int) (int, bool) {
	if i > 0 {
		return i - 1, true
	}
	if p.closed {
		return len(p.samples) - 1, true
	}
	return i, false
}
