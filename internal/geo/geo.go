package geo

import (
	"errors"
	"math"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/routethat/playsim/pkg/core"
)

// Field geometry is a flat plane: x grows to the right, y grows toward the
// offense's own goal line. No projection is ever applied.

// ErrInvalidCoordinates is returned when a point string cannot be parsed
var ErrInvalidCoordinates = errors.New("invalid coordinates provided")

// PointFromString parses "x,y" into a core.FieldPoint.
func PointFromString(coords string) (core.FieldPoint, error) {
	split := strings.Split(coords, ",")
	if len(split) != 2 {
		return core.FieldPoint{}, ErrInvalidCoordinates
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(split[0]), 64)
	if err != nil {
		return core.FieldPoint{}, ErrInvalidCoordinates
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(split[1]), 64)
	if err != nil {
		return core.FieldPoint{}, ErrInvalidCoordinates
	}
	return core.FieldPoint{X: x, Y: y}, nil
}

// ToPoint converts a field point into a simplefeatures point.
func ToPoint(p core.FieldPoint) (geom.Point, error) {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: p.X, Y: p.Y},
		Type: geom.DimXY,
	})
}

// Segment builds a two-point line string from a to b.
func Segment(a, b core.FieldPoint) (geom.LineString, error) {
	seq := geom.NewSequence([]float64{a.X, a.Y, b.X, b.Y}, geom.DimXY)
	return geom.NewLineString(seq)
}

// Distance returns the Euclidean distance between two field points.
func Distance(a, b core.FieldPoint) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// DistanceToSegment returns the shortest distance from p to the closed segment ab.
// A zero-length segment degrades to a point distance.
func DistanceToSegment(p, a, b core.FieldPoint) float64 {
	if a == b {
		return Distance(p, a)
	}
	pt, err := ToPoint(p)
	if err != nil {
		return math.Min(Distance(p, a), Distance(p, b))
	}
	seg, err := Segment(a, b)
	if err != nil {
		return math.Min(Distance(p, a), Distance(p, b))
	}
	d, ok := geom.Distance(pt.AsGeometry(), seg.AsGeometry())
	if !ok {
		return Distance(p, a)
	}
	return d
}

// Direction returns the unit vector from a to b, or the zero vector when a == b.
func Direction(a, b core.FieldPoint) core.FieldPoint {
	d := b.Sub(a)
	l := d.Len()
	if l == 0 || math.IsNaN(l) || math.IsInf(l, 0) {
		return core.FieldPoint{}
	}
	return d.Scale(1 / l)
}

// Bounds is an axis-aligned rectangle of legal positions.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Clamp pulls p inside the bounds.
func (b Bounds) Clamp(p core.FieldPoint) core.FieldPoint {
	return core.FieldPoint{
		X: math.Max(b.MinX, math.Min(b.MaxX, p.X)),
		Y: math.Max(b.MinY, math.Min(b.MaxY, p.Y)),
	}
}

// Contains reports whether p lies inside the bounds, edges included.
func (b Bounds) Contains(p core.FieldPoint) bool {
	return p.X >= b.MinX && p.X <= b.MaxX && p.Y >= b.MinY && p.Y <= b.MaxY
}
