package tracks

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/waypoint"
)

const (
	DEFAULT_SPACING       = 2.0
	DEFAULT_SPEED_LIMIT   = 12.0
	DEFAULT_LATERAL_ACCEL = 8.0
	DEFAULT_TURN_ANGLE    = 90.0
	SEGMENT_STRAIGHT      = "straight"
	SEGMENT_TURN          = "turn"
	SEGMENT_ARC           = "arc"
	DIRECTION_LEFT        = "left"
	DIRECTION_RIGHT       = "right"
)

// Segment is one piece of a track. Angles are in degrees.
type Segment struct {
	Type      string  `json:"type"`
	Length    float64 `json:"length,omitempty"`
	Radius    float64 `json:"radius,omitempty"`
	Direction string  `json:"direction,omitempty"`
	Angle     float64 `json:"angle,omitempty"`
	Speed     float64 `json:"speed,omitempty"`
}

// Point is a polyline vertex, used by imported tracks.
type Point struct {
	Position [3]float64 `json:"position"`
	Speed    float64    `json:"speed"`
}

type Wall struct {
	Center      [3]float64 `json:"center"`
	HalfExtents [3]float64 `json:"half_extents"`
}

// TrackSpec describes a track either as segments driven from Start and
// Heading or as a polyline of Points.
type TrackSpec struct {
	Name            string     `json:"name"`
	Closed          bool       `json:"closed"`
	Spacing         float64    `json:"spacing,omitempty"`
	SpeedLimit      float64    `json:"speed_limit,omitempty"`
	MaxLateralAccel float64    `json:"max_lateral_accel,omitempty"`
	Start           [3]float64 `json:"start"`
	Heading         float64    `json:"heading"`
	Segments        []Segment  `json:"segments,omitempty"`
	Points          []Point    `json:"points,omitempty"`
	Walls           []Wall     `json:"walls,omitempty"`
}

func (t *TrackSpec) applyDefaults() {
	if t.Spacing <= 0 {
		t.Spacing = DEFAULT_SPACING
	}
	if t.SpeedLimit <= 0 {
		t.SpeedLimit = DEFAULT_SPEED_LIMIT
	}
	if t.MaxLateralAccel <= 0 {
		t.MaxLateralAccel = DEFAULT_LATERAL_ACCEL
	}
}

func Parse(data []byte) (spec TrackSpec, err error) {
	err = json.Unmarshal(data, &spec)
	if err != nil {
		return spec, errors.Wrap(err, "could not parse track spec")
	}
	return spec, nil
}

func (t TrackSpec) Validate() error {
	if len(t.Segments) == 0 && len(t.Points) < 2 {
		return errors.Errorf("track %s needs segments or at least 2 points", t.Name)
	}
	if len(t.Segments) > 0 && len(t.Points) > 0 {
		return errors.Errorf("track %s has both segments and points", t.Name)
	}
	for i, s := range t.Segments {
		switch strings.ToLower(s.Type) {
		case SEGMENT_STRAIGHT:
			if s.Length <= 0 {
				return errors.Errorf("segment %d: straight needs a positive length", i)
			}
		case SEGMENT_TURN, SEGMENT_ARC:
			if s.Radius <= 0 {
				return errors.Errorf("segment %d: %s needs a positive radius", i, s.Type)
			}
			if _, err := direction(s.Direction); err != nil {
				return errors.Wrapf(err, "segment %d", i)
			}
		default:
			return errors.Errorf("segment %d: unknown type %q", i, s.Type)
		}
		if s.Speed < 0 {
			return errors.Errorf("segment %d: negative speed", i)
		}
	}
	return t.validateWalls()
}

func (t TrackSpec) validateWalls() error {
	boxes := t.WallBoxes()
	for i, w := range t.Walls {
		for _, h := range w.HalfExtents {
			if h <= 0 {
				return errors.Errorf("wall %d: half extents must be positive", i)
			}
		}
		for j := range i {
			if boxes[i].Overlapping(boxes[j]) {
				return errors.Errorf("wall %d overlaps wall %d", i, j)
			}
		}
	}
	starts := []mgl64.Vec3{mgl64.Vec3(t.Start)}
	if len(t.Points) > 0 {
		starts = lo.Map(t.Points, func(p Point, _ int) mgl64.Vec3 { return mgl64.Vec3(p.Position) })
	}
	for i := range boxes {
		for _, p := range starts {
			if insideWall(boxes[i], p) {
				return errors.Errorf("wall %d covers the track at %v", i, p)
			}
		}
	}
	return nil
}

// insideWall reports whether p lies within the wall's footprint, ignoring
// height.
func insideWall(wall tm.Box, p mgl64.Vec3) bool {
	p[1] = wall.Center().Y()
	return wall.PosInside(p)
}

func direction(d string) (float64, error) {
	switch strings.ToLower(d) {
	case DIRECTION_LEFT, "":
		return 1, nil
	case DIRECTION_RIGHT:
		return -1, nil
	}
	return 0, errors.Errorf("unknown direction %q", d)
}

// Build turns the spec into a path. Segment speeds default to the track speed
// limit and arcs are further limited by MaxLateralAccel.
func (t TrackSpec) Build() (*waypoint.Path, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	t.applyDefaults()
	if len(t.Points) > 0 {
		return t.buildPolyline()
	}

	r := waypoint.NewRoute(mgl64.Vec3(t.Start), t.Heading*tm.TO_RADIANS, t.Spacing)
	for _, s := range t.Segments {
		speed := t.SpeedLimit
		if s.Speed > 0 {
			speed = s.Speed
		}
		switch strings.ToLower(s.Type) {
		case SEGMENT_STRAIGHT:
			r.Straight(s.Length, speed)
		case SEGMENT_TURN, SEGMENT_ARC:
			dir, _ := direction(s.Direction)
			angle := s.Angle
			if angle == 0 {
				angle = DEFAULT_TURN_ANGLE
			}
			r.Arc(s.Radius, dir*angle*tm.TO_RADIANS, speed, t.MaxLateralAccel)
		}
	}
	path, err := r.Build(t.Closed)
	if err != nil {
		return nil, errors.Wrapf(err, "could not build track %s", t.Name)
	}
	return path, nil
}

func (t TrackSpec) buildPolyline() (*waypoint.Path, error) {
	points := t.Points
	if t.Closed {
		points = append(slices.Clone(points), points[0])
	}
	parts := make([][]waypoint.Sample, 0, len(points))
	for i := range len(points) - 1 {
		a, b := points[i], points[i+1]
		speed := a.Speed
		if speed <= 0 {
			speed = t.SpeedLimit
		}
		part, err := waypoint.Straight(mgl64.Vec3(a.Position), mgl64.Vec3(b.Position), t.Spacing, speed)
		if err != nil {
			return nil, errors.Wrapf(err, "could not build track %s", t.Name)
		}
		parts = append(parts, part)
	}
	samples := waypoint.Composite(parts...)
	if t.Closed && len(samples) > 2 && tm.PlanarDist(samples[0].Position, samples[len(samples)-1].Position) < 1e-3 {
		samples = samples[:len(samples)-1]
	}
	path, err := waypoint.NewPath(samples, t.Closed)
	if err != nil {
		return nil, errors.Wrapf(err, "could not build track %s", t.Name)
	}
	return path, nil
}

func (t TrackSpec) WallBoxes() []tm.Box {
	boxes := make([]tm.Box, 0, len(t.Walls))
	for _, w := range t.Walls {
		boxes = append(boxes, tm.NewBox(mgl64.Vec3(w.Center), mgl64.Vec3(w.HalfExtents)))
	}
	return boxes
}
