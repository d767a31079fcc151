// pkg/core/field.go
package core

import (
	"encoding/json"
	"fmt"
	"math"
)

// FieldPoint is a position (or a per-millisecond displacement) in field-plane units.
type FieldPoint struct {
	X float64
	Y float64
}

// Pt is shorthand for FieldPoint{X: x, Y: y}.
func Pt(x, y float64) FieldPoint {
	return FieldPoint{X: x, Y: y}
}

func (p FieldPoint) Add(q FieldPoint) FieldPoint { return FieldPoint{X: p.X + q.X, Y: p.Y + q.Y} }
func (p FieldPoint) Sub(q FieldPoint) FieldPoint { return FieldPoint{X: p.X - q.X, Y: p.Y - q.Y} }
func (p FieldPoint) Scale(k float64) FieldPoint  { return FieldPoint{X: p.X * k, Y: p.Y * k} }

// Len returns the Euclidean length of p treated as a vector.
func (p FieldPoint) Len() float64 { return math.Hypot(p.X, p.Y) }

// IsFinite reports whether both coordinates are finite numbers.
func (p FieldPoint) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsNaN(p.Y) && !math.IsInf(p.X, 0) && !math.IsInf(p.Y, 0)
}

// MarshalJSON encodes the point as [x, y].
func (p FieldPoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

// UnmarshalJSON decodes a point from [x, y].
func (p *FieldPoint) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 2 {
		return fmt.Errorf("point needs 2 values, got %d", len(raw))
	}
	p.X, p.Y = raw[0], raw[1]
	return nil
}

// Waypoint is a point a player must reach at an absolute time from play start.
type Waypoint struct {
	Point FieldPoint
	AtMs  float64
}

// MarshalJSON encodes the waypoint as [x, y, timeMs].
func (w Waypoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]float64{w.Point.X, w.Point.Y, w.AtMs})
}

// UnmarshalJSON decodes a waypoint from [x, y, timeMs].
func (w *Waypoint) UnmarshalJSON(data []byte) error {
	var raw []float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) < 3 {
		return fmt.Errorf("waypoint needs 3 values, got %d", len(raw))
	}
	w.Point = FieldPoint{X: raw[0], Y: raw[1]}
	w.AtMs = raw[2]
	return nil
}

// RoleRoute is the start point and ordered waypoints for one formation slot.
type RoleRoute struct {
	Start     FieldPoint `json:"start"`
	Waypoints []Waypoint `json:"waypoints"`
}

// RouteSpec maps a formation slot name (QB, WR1, LT, ...) to its route.
type RouteSpec map[string]RoleRoute

// Clone returns a deep copy so edits never alias a compiled play.
func (rs RouteSpec) Clone() RouteSpec {
	out := make(RouteSpec, len(rs))
	for name, r := range rs {
		wps := make([]Waypoint, len(r.Waypoints))
		copy(wps, r.Waypoints)
		out[name] = RoleRoute{Start: r.Start, Waypoints: wps}
	}
	return out
}

// SavedPlay is a named RouteSpec snapshot.
type SavedPlay struct {
	Name   string    `json:"name"`
	Routes RouteSpec `json:"routeData"`
}
