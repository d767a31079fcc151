package geo

import (
	"encoding/json"
	"errors"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/routethat/playsim/pkg/core"
)

// ErrInvalidRoute is returned when route JSON is structurally malformed.
var ErrInvalidRoute = errors.New("invalid route")

// ParseWaypoints parses a JSON array of timed points.
// Input format: "[[x1,y1,t1],[x2,y2,t2],...]"
func ParseWaypoints(input string) ([]core.Waypoint, error) {
	var coords [][]float64
	if err := json.Unmarshal([]byte(input), &coords); err != nil {
		return nil, fmt.Errorf("failed to parse waypoint JSON: %w", err)
	}

	wps := make([]core.Waypoint, len(coords))
	for i, c := range coords {
		if len(c) < 3 {
			return nil, fmt.Errorf("%w: waypoint %d has %d values, want 3", ErrInvalidRoute, i, len(c))
		}
		wps[i] = core.Waypoint{Point: core.FieldPoint{X: c[0], Y: c[1]}, AtMs: c[2]}
	}
	return wps, nil
}

// ParseRouteSpec decodes a full route document keyed by slot name.
func ParseRouteSpec(data []byte) (core.RouteSpec, error) {
	var spec core.RouteSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoute, err)
	}
	if spec == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalidRoute)
	}
	return spec, nil
}

// Path builds the line string a route traces, start point first.
// Routes with no waypoints yield an error since a line needs two points.
func Path(r core.RoleRoute) (geom.LineString, error) {
	if len(r.Waypoints) == 0 {
		return geom.LineString{}, fmt.Errorf("%w: route has no waypoints", ErrInvalidRoute)
	}

	flat := make([]float64, 0, (len(r.Waypoints)+1)*2)
	flat = append(flat, r.Start.X, r.Start.Y)
	for _, w := range r.Waypoints {
		flat = append(flat, w.Point.X, w.Point.Y)
	}

	seq := geom.NewSequence(flat, geom.DimXY)
	return geom.NewLineString(seq)
}

// PathLength returns the drawn length of a route.
func PathLength(r core.RoleRoute) float64 {
	total := 0.0
	prev := r.Start
	for _, w := range r.Waypoints {
		total += Distance(prev, w.Point)
		prev = w.Point
	}
	return total
}
