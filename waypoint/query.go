package waypoint

import (
	m "math"

	"github.com/go-gl/mathgl/mgl64"

	tm "pfeifer.dev/trackd/math"
)

// SamplesWithinRadius returns the samples whose planar distance to point is at
// most r, in path order.
func (p *Path) SamplesWithinRadius(point mgl64.Vec3, r float64) []Sample {
	if p == nil {
		return nil
	}
	out := []Sample{}
	for _, s := range p.samples {
		if tm.PlanarDist(s.Position, point) <= r {
			out = append(out, s)
		}
	}
	return out
}

// Nearest returns the index of the sample closest to point in the ground
// plane, or -1 for an empty path.
func (p *Path) Nearest(point mgl64.Vec3) int {
	if p.Len() == 0 {
		return -1
	}
	best := 0
	bestDist := m.Inf(1)
	for i, s := range p.samples {
		d := tm.Planar(s.Position.Sub(point)).LenSqr()
		if d < bestDist {
			bestDist = d
			best = i
		}
	}
	return best
}

// Lookahead walks ld metres forward from the sample nearest to from and
// returns the interpolated point. An open path never extrapolates beyond its
// last sample.
func (p *Path) Lookahead(from mgl64.Vec3, ld float64) mgl64.Vec3 {
	i := p.Nearest(from)
	if i < 0 {
		return from
	}
	return p.lookaheadFrom(i, ld)
}

func (p *Path) lookaheadFrom(i int, ld float64) mgl64.Vec3 {
	remaining := max(0, ld)
	for range 4 * len(p.samples) {
		j, ok := p.next(i)
		if !ok {
			return p.samples[i].Position
		}
		d := p.samples[i].DistanceToNext
		if d <= DEGENERATE_SEGMENT {
			i = j
			continue
		}
		if remaining <= d {
			seg := tm.Line{Start: p.samples[i].Position, End: p.samples[j].Position}
			return seg.Lerp(remaining / d)
		}
		remaining -= d
		i = j
	}
	return p.samples[i].Position
}

type Projection struct {
	// Index of the segment start sample.
	Index int
	Point mgl64.Vec3
	// Tangent is the unit planar direction of the segment.
	Tangent mgl64.Vec3
	// CrossTrack is the signed offset of the query point along the segment's
	// left normal.
	CrossTrack float64
	T          float64
}

// Project finds the closest point on the segments adjacent to the nearest
// sample. ok is false when the path has no usable segment there.
func (p *Path) Project(point mgl64.Vec3) (proj Projection, ok bool) {
	i := p.Nearest(point)
	if i < 0 {
		return proj, false
	}
	return p.projectNear(i, point)
}

func (p *Path) projectNear(i int, point mgl64.Vec3) (proj Projection, ok bool) {
	bestDist := m.Inf(1)
	candidates := [2][2]int{}
	count := 0
	if a, has := p.prev(i); has {
		candidates[count] = [2]int{a, i}
		count++
	}
	if b, has := p.next(i); has {
		candidates[count] = [2]int{i, b}
		count++
	}
	flat := tm.Planar(point)
	for _, c := range candidates[:count] {
		seg := tm.Line{Start: tm.Planar(p.samples[c[0]].Position), End: tm.Planar(p.samples[c[1]].Position)}
		if seg.Length() <= DEGENERATE_SEGMENT {
			continue
		}
		near := seg.NearestPosition(flat)
		d := flat.Sub(near.Pos).LenSqr()
		if d >= bestDist {
			continue
		}
		bestDist = d
		tangent := seg.End.Sub(seg.Start).Normalize()
		proj = Projection{
			Index:      c[0],
			Point:      p.samples[c[0]].Position.Add(p.samples[c[1]].Position.Sub(p.samples[c[0]].Position).Mul(near.T)),
			Tangent:    tangent,
			CrossTrack: flat.Sub(near.Pos).Dot(tm.LeftNormal(tangent)),
			T:          near.T,
		}
		ok = true
	}
	return proj, ok
}

// MinSpeedAhead scans forward from the sample nearest to from until the
// accumulated travel time reaches horizon seconds and returns the lowest
// target speed seen. Travel time uses at least floor m/s per segment.
func (p *Path) MinSpeedAhead(from mgl64.Vec3, horizon, floor float64) float64 {
	i := p.Nearest(from)
	if i < 0 {
		return 0
	}
	floor = max(floor, tm.EPSILON)
	minSpeed := m.Inf(1)
	elapsed := 0.0
	for range len(p.samples) {
		s := p.samples[i]
		minSpeed = min(minSpeed, s.TargetSpeed)
		elapsed += s.DistanceToNext / max(floor, s.TargetSpeed)
		if elapsed >= horizon {
			break
		}
		j, ok := p.next(i)
		if !ok {
			break
		}
		i = j
	}
	return minSpeed
}

// Progress is the distance along the path to the projection of point. On a
// closed path it is within [0, Length).
func (p *Path) Progress(point mgl64.Vec3) float64 {
	proj, ok := p.Project(point)
	if !ok {
		return 0
	}
	dist := 0.0
	for k := range proj.Index {
		dist += p.samples[k].DistanceToNext
	}
	dist += proj.T * p.samples[proj.Index].DistanceToNext
	if p.closed && dist >= p.length-DEGENERATE_SEGMENT {
		dist = max(0, dist-p.length)
	}
	return dist
}
