package waypoint

import (
	m "math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeSamplePath(t *testing.T) *Path {
	t.Helper()
	p, err := NewPath([]Sample{
		{Position: mgl64.Vec3{0, 0, 0}, TargetSpeed: 5},
		{Position: mgl64.Vec3{5, 0, 0}, TargetSpeed: 5},
		{Position: mgl64.Vec3{10, 0, 0}, TargetSpeed: 5},
	}, false)
	require.NoError(t, err)
	return p
}

func TestNewPathRejectsShortPaths(t *testing.T) {
	_, err := NewPath(nil, false)
	assert.True(t, errors.Is(err, ErrTooFewSamples))
	_, err = NewPath([]Sample{{}}, true)
	assert.True(t, errors.Is(err, ErrTooFewSamples))
	_, err = NewPath([]Sample{{}, {TargetSpeed: m.NaN()}}, false)
	assert.Error(t, err)
}

func TestFinalizeDistances(t *testing.T) {
	open := threeSamplePath(t)
	assert.Equal(t, 5.0, open.At(0).DistanceToNext)
	assert.Equal(t, 0.0, open.At(2).DistanceToNext)
	assert.Equal(t, 10.0, open.Length())

	closed, err := NewPath(open.Samples(), true)
	require.NoError(t, err)
	assert.Equal(t, 10.0, closed.At(2).DistanceToNext)
	assert.Equal(t, 20.0, closed.Length())
}

func TestSamplesAreCopies(t *testing.T) {
	p := threeSamplePath(t)
	s := p.Samples()
	s[0].TargetSpeed = 99
	assert.Equal(t, 5.0, p.At(0).TargetSpeed)
}

func TestStraight(t *testing.T) {
	s, err := Straight(mgl64.Vec3{}, mgl64.Vec3{100, 0, 0}, 3, 12)
	require.NoError(t, err)
	assert.Len(t, s, 34)
	assert.Equal(t, mgl64.Vec3{100, 0, 0}, s[len(s)-1].Position)
	for _, sample := range s {
		assert.Equal(t, 12.0, sample.TargetSpeed)
	}

	short, err := Straight(mgl64.Vec3{}, mgl64.Vec3{0.1, 0, 0}, 3, 12)
	require.NoError(t, err)
	assert.Len(t, short, 2)

	_, err = Straight(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 0, 12)
	assert.Error(t, err)
}

func TestTurnCurvatureSpeedLimit(t *testing.T) {
	for _, dir := range []TurnDirection{TurnLeft, TurnRight} {
		samples, err := Turn(TurnParams{
			Approach:        20,
			Radius:          10,
			Exit:            20,
			Direction:       dir,
			Spacing:         2,
			SpeedLimit:      12,
			MaxLateralAccel: 8,
		})
		require.NoError(t, err)
		arcSamples := 0
		for _, s := range samples {
			assert.LessOrEqual(t, s.TargetSpeed, 12.0)
			if s.TargetSpeed < 12 {
				arcSamples++
				assert.LessOrEqual(t, s.TargetSpeed, m.Sqrt(8*10)+1e-9)
			}
		}
		assert.Greater(t, arcSamples, 10)

		last := samples[len(samples)-1].Position
		assert.InDelta(t, 30.0, last.X(), 1e-9)
		assert.InDelta(t, -float64(dir)*30, last.Z(), 1e-9)
	}
}

func TestTurnSlowLimitWins(t *testing.T) {
	samples, err := Turn(TurnParams{Radius: 50, Direction: TurnLeft, Spacing: 2, SpeedLimit: 5, MaxLateralAccel: 8})
	require.NoError(t, err)
	for _, s := range samples {
		assert.Equal(t, 5.0, s.TargetSpeed)
	}
}

func TestTurnValidation(t *testing.T) {
	_, err := Turn(TurnParams{Radius: 0, Direction: TurnLeft, Spacing: 1})
	assert.Error(t, err)
	_, err = Turn(TurnParams{Radius: 5, Direction: 0, Spacing: 1})
	assert.Error(t, err)
}

func TestArcSpacing(t *testing.T) {
	r := NewRoute(mgl64.Vec3{}, 0, 0.5)
	r.Arc(10, m.Pi/2, 20, 8)
	s := r.Samples()
	for i := 1; i < len(s); i++ {
		d := s[i].Position.Sub(s[i-1].Position).Len()
		assert.LessOrEqual(t, d, 0.6+1e-9)
		assert.InDelta(t, 10.0, s[i].Position.Sub(mgl64.Vec3{0, 0, -10}).Len(), 1e-9)
	}
}

func TestClosedRoute(t *testing.T) {
	r := NewRoute(mgl64.Vec3{}, 0, 2)
	for range 4 {
		r.Straight(30, 12).Arc(10, m.Pi/2, 12, 8)
	}
	p, err := r.Build(true)
	require.NoError(t, err)
	assert.True(t, p.Closed())
	expected := 4*30 + 4*(10*m.Pi/2)
	assert.InDelta(t, expected, p.Length(), 0.5)
	assert.Greater(t, p.At(p.Len()-1).DistanceToNext, 0.0)

	assert.InDelta(t, 0, p.Progress(mgl64.Vec3{}), 1e-9)
	assert.InDelta(t, 10, p.Progress(mgl64.Vec3{10, 0, 0.5}), 1e-9)
	assert.Less(t, p.Progress(mgl64.Vec3{-0.01, 0, 0.5}), p.Length())
}

func TestRouteErrorSticks(t *testing.T) {
	r := NewRoute(mgl64.Vec3{}, 0, 2)
	r.Arc(-1, 1, 10, 8).Straight(10, 5)
	_, err := r.Build(false)
	assert.Error(t, err)
}

func TestSamplesWithinRadius(t *testing.T) {
	p := threeSamplePath(t)
	near := p.SamplesWithinRadius(mgl64.Vec3{4, 3, 0}, 1.5)
	require.Len(t, near, 1)
	assert.Equal(t, mgl64.Vec3{5, 0, 0}, near[0].Position)
	assert.Empty(t, p.SamplesWithinRadius(mgl64.Vec3{50, 0, 0}, 1))
}

func TestLookaheadClampsToPathEnd(t *testing.T) {
	p := threeSamplePath(t)
	assert.Equal(t, mgl64.Vec3{10, 0, 0}, p.Lookahead(mgl64.Vec3{0, 0, 0}, 50))
	assert.True(t, p.Lookahead(mgl64.Vec3{0, 0, 1}, 7).ApproxEqual(mgl64.Vec3{7, 0, 0}))
}

func TestLookaheadWrapsClosedPath(t *testing.T) {
	p, err := NewPath([]Sample{
		{Position: mgl64.Vec3{0, 0, 0}},
		{Position: mgl64.Vec3{10, 0, 0}},
		{Position: mgl64.Vec3{10, 0, 10}},
		{Position: mgl64.Vec3{0, 0, 10}},
	}, true)
	require.NoError(t, err)
	got := p.Lookahead(mgl64.Vec3{0, 0, 9}, 5)
	assert.True(t, got.ApproxEqual(mgl64.Vec3{0, 0, 5}), "%v", got)
}

func TestLookaheadSkipsDegenerateSegments(t *testing.T) {
	p, err := NewPath([]Sample{
		{Position: mgl64.Vec3{0, 0, 0}},
		{Position: mgl64.Vec3{0, 0, 0}},
		{Position: mgl64.Vec3{4, 0, 0}},
	}, false)
	require.NoError(t, err)
	got := p.Lookahead(mgl64.Vec3{}, 2)
	assert.True(t, got.ApproxEqual(mgl64.Vec3{2, 0, 0}))
	assert.False(t, m.IsNaN(got.X()))
}

func TestLookaheadEmptyPath(t *testing.T) {
	var p *Path
	from := mgl64.Vec3{1, 2, 3}
	assert.Equal(t, from, p.Lookahead(from, 5))
	assert.Equal(t, -1, p.Nearest(from))
}

func TestProjectCrossTrack(t *testing.T) {
	p := threeSamplePath(t)
	left, ok := p.Project(mgl64.Vec3{3, 0, -2})
	require.True(t, ok)
	assert.InDelta(t, 2.0, left.CrossTrack, 1e-9)
	assert.True(t, left.Point.ApproxEqual(mgl64.Vec3{3, 0, 0}))

	right, ok := p.Project(mgl64.Vec3{7, 0, 1.5})
	require.True(t, ok)
	assert.InDelta(t, -1.5, right.CrossTrack, 1e-9)
	assert.Equal(t, 1, right.Index)

	assert.InDelta(t, 7.0, p.Progress(mgl64.Vec3{7, 0, 1.5}), 1e-9)
}

func TestMinSpeedAhead(t *testing.T) {
	samples, err := Straight(mgl64.Vec3{}, mgl64.Vec3{100, 0, 0}, 1, 10)
	require.NoError(t, err)
	for i := 50; i < len(samples); i++ {
		samples[i].TargetSpeed = 4
	}
	p, err := NewPath(samples, false)
	require.NoError(t, err)

	// 1.5 s at 10 m/s only reaches x=15
	assert.Equal(t, 10.0, p.MinSpeedAhead(mgl64.Vec3{}, 1.5, 3))
	assert.Equal(t, 4.0, p.MinSpeedAhead(mgl64.Vec3{40, 0, 0}, 1.5, 3))
}
