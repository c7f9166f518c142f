package tracks

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
	"github.com/paulmach/osm/osmxml"
	"github.com/pkg/errors"

	tm "pfeifer.dev/trackd/math"
	"pfeifer.dev/trackd/settings"
	"pfeifer.dev/trackd/waypoint"
)

type ImportOptions struct {
	Name            string
	WayName         string
	WayID           int64
	Spacing         float64
	MaxLateralAccel float64
	DefaultSpeed    float64
	Closed          bool
}

func ParseMaxSpeed(maxspeed string) float64 {
	splitSpeed := strings.Split(strings.TrimSpace(maxspeed), " ")
	numeric, err := strconv.ParseUint(splitSpeed[0], 10, 64)
	if err != nil {
		return 0
	}
	if len(splitSpeed) == 1 {
		return settings.KPH_TO_MS * float64(numeric)
	}

	switch splitSpeed[1] {
	case "kph", "km/h", "kmh":
		return settings.KPH_TO_MS * float64(numeric)
	case "mph":
		return settings.MPH_TO_MS * float64(numeric)
	case "knots":
		return settings.KNOTS_TO_MS * float64(numeric)
	}
	return 0
}

// ImportOSM reads a .pbf or .osm extract and turns one way into a polyline
// track centred on the way's first node.
func ImportOSM(ctx context.Context, path string, opts ImportOptions) (TrackSpec, error) {
	file, err := os.Open(path)
	if err != nil {
		return TrackSpec{}, errors.Wrap(err, "could not open osm file")
	}
	defer file.Close()

	if opts.Name == "" {
		opts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if strings.HasSuffix(path, ".pbf") {
		scanner := osmpbf.New(ctx, file, runtime.GOMAXPROCS(-1))
		scanner.SkipRelations = true
		defer scanner.Close()
		return importFrom(scanner, opts)
	}
	return ImportOSMXML(ctx, file, opts)
}

func ImportOSMXML(ctx context.Context, r io.Reader, opts ImportOptions) (TrackSpec, error) {
	scanner := osmxml.New(ctx, r)
	defer scanner.Close()
	return importFrom(scanner, opts)
}

func (o ImportOptions) matches(way *osm.Way) bool {
	if o.WayID != 0 {
		return int64(way.ID) == o.WayID
	}
	if o.WayName != "" {
		return way.Tags.Find("name") == o.WayName
	}
	return true
}

// wayPositions resolves the way's nodes, preferring coordinates embedded in
// the way itself.
func wayPositions(way *osm.Way, nodes map[osm.NodeID]tm.Position) ([]tm.Position, error) {
	positions := make([]tm.Position, 0, len(way.Nodes))
	for _, wn := range way.Nodes {
		if wn.Lat != 0 || wn.Lon != 0 {
			positions = append(positions, tm.NewPosition(wn.Lat, wn.Lon))
			continue
		}
		pos, ok := nodes[wn.ID]
		if !ok {
			return nil, errors.Errorf("way %d references missing node %d", way.ID, wn.ID)
		}
		positions = append(positions, pos)
	}
	return positions, nil
}

// wayLength is the great circle length of the way in metres.
func wayLength(positions []tm.Position) float64 {
	length := 0.0
	for i := 1; i < len(positions); i++ {
		length += positions[i-1].DistanceTo(positions[i])
	}
	return length
}

func importFrom(scanner osm.Scanner, opts ImportOptions) (TrackSpec, error) {
	nodes := map[osm.NodeID]tm.Position{}
	candidates := []*osm.Way{}
	for scanner.Scan() {
		switch o := scanner.Object().(type) {
		case *osm.Node:
			nodes[o.ID] = tm.NewPosition(o.Lat, o.Lon)
		case *osm.Way:
			if len(o.Nodes) < 2 || !opts.matches(o) {
				continue
			}
			candidates = append(candidates, o)
		}
	}
	if err := scanner.Err(); err != nil {
		return TrackSpec{}, errors.Wrap(err, "could not scan osm data")
	}
	if len(candidates) == 0 {
		return TrackSpec{}, errors.New("no matching way found")
	}

	// the longest matching way wins
	var best *osm.Way
	var positions []tm.Position
	bestLength := -1.0
	var lastErr error
	for _, way := range candidates {
		pos, err := wayPositions(way, nodes)
		if err != nil {
			slog.Warn("skipping osm way", "id", way.ID, "error", err)
			lastErr = err
			continue
		}
		if length := wayLength(pos); length > bestLength {
			best, positions, bestLength = way, pos, length
		}
	}
	if best == nil {
		return TrackSpec{}, lastErr
	}

	closed := opts.Closed
	if best.Nodes[0].ID == best.Nodes[len(best.Nodes)-1].ID {
		closed = true
		positions = positions[:len(positions)-1]
	}
	if len(positions) < 2 {
		return TrackSpec{}, errors.Errorf("way %d is too short", best.ID)
	}

	limit := ParseMaxSpeed(best.Tags.Find("maxspeed"))
	if limit == 0 {
		limit = opts.DefaultSpeed
	}
	spec := TrackSpec{
		Name:            opts.Name,
		Closed:          closed,
		Spacing:         opts.Spacing,
		SpeedLimit:      limit,
		MaxLateralAccel: opts.MaxLateralAccel,
	}
	spec.applyDefaults()

	origin := positions[0]
	local := make([]Point, len(positions))
	for i := range positions {
		local[i].Position = positions[i].ToLocal(origin)
		local[i].Speed = spec.SpeedLimit
	}
	limitCorners(local, closed, spec.SpeedLimit, spec.MaxLateralAccel)
	spec.Points = local

	slog.Info("imported osm way", "id", best.ID, "name", best.Tags.Find("name"), "points", len(local), "length", bestLength, "closed", closed)
	return spec, nil
}

// limitCorners slows every vertex down to the speed its circumscribed circle
// allows. The lower of the two adjacent vertices governs each segment.
func limitCorners(points []Point, closed bool, limit, maxLateralAccel float64) {
	n := len(points)
	corner := make([]float64, n)
	for i := range n {
		corner[i] = limit
		if !closed && (i == 0 || i == n-1) {
			continue
		}
		prev := points[(i-1+n)%n].Position
		next := points[(i+1)%n].Position
		c := tm.CalculateCurvature(prev, points[i].Position, next)
		if c.Curvature > 0 {
			corner[i] = waypoint.CorneringSpeed(1/c.Curvature, maxLateralAccel, limit)
		}
	}
	for i := range n {
		next := corner[i]
		if closed || i < n-1 {
			next = corner[(i+1)%n]
		}
		points[i].Speed = min(corner[i], next)
	}
}
