package tracks

import (
	"slices"

	"github.com/samber/lo"
)

// Builtin tracks are always available without a file in TracksPath.
var Builtin = map[string]TrackSpec{
	"oval": {
		Name:       "oval",
		Closed:     true,
		SpeedLimit: 12,
		Segments: []Segment{
			{Type: SEGMENT_STRAIGHT, Length: 40},
			{Type: SEGMENT_ARC, Radius: 15, Direction: DIRECTION_LEFT, Angle: 180},
			{Type: SEGMENT_STRAIGHT, Length: 40},
			{Type: SEGMENT_ARC, Radius: 15, Direction: DIRECTION_LEFT, Angle: 180},
		},
	},
	"square": {
		Name:       "square",
		Closed:     true,
		SpeedLimit: 10,
		Segments: []Segment{
			{Type: SEGMENT_STRAIGHT, Length: 30},
			{Type: SEGMENT_TURN, Radius: 10, Direction: DIRECTION_RIGHT},
			{Type: SEGMENT_STRAIGHT, Length: 30},
			{Type: SEGMENT_TURN, Radius: 10, Direction: DIRECTION_RIGHT},
			{Type: SEGMENT_STRAIGHT, Length: 30},
			{Type: SEGMENT_TURN, Radius: 10, Direction: DIRECTION_RIGHT},
			{Type: SEGMENT_STRAIGHT, Length: 30},
			{Type: SEGMENT_TURN, Radius: 10, Direction: DIRECTION_RIGHT},
		},
	},
	"hairpin": {
		Name:       "hairpin",
		SpeedLimit: 14,
		Segments: []Segment{
			{Type: SEGMENT_STRAIGHT, Length: 60},
			{Type: SEGMENT_ARC, Radius: 8, Direction: DIRECTION_LEFT, Angle: 180},
			{Type: SEGMENT_STRAIGHT, Length: 60},
		},
	},
}

func BuiltinNames() []string {
	names := lo.Keys(Builtin)
	slices.Sort(names)
	return names
}
