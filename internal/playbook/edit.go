package playbook

import (
	"errors"
	"fmt"

	"github.com/routethat/playsim/pkg/core"
)

// AppendGapMs is the time added after a slot's last waypoint when a new one is drawn.
const AppendGapMs = 1000.0

var (
	ErrUnknownSlot   = errors.New("unknown slot")
	ErrWaypointIndex = errors.New("waypoint index out of range")
)

// AppendWaypoint returns a copy of spec with p appended to slot's route,
// AppendGapMs after its last waypoint (or at AppendGapMs for an empty route).
func AppendWaypoint(spec core.RouteSpec, slot string, p core.FieldPoint) (core.RouteSpec, error) {
	out := spec.Clone()
	r, ok := out[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}

	at := AppendGapMs
	if n := len(r.Waypoints); n > 0 {
		at = r.Waypoints[n-1].AtMs + AppendGapMs
	}
	r.Waypoints = append(r.Waypoints, core.Waypoint{Point: p, AtMs: at})
	out[slot] = r
	return out, nil
}

// MoveWaypoint returns a copy of spec with one waypoint relocated; its time is kept.
func MoveWaypoint(spec core.RouteSpec, slot string, index int, p core.FieldPoint) (core.RouteSpec, error) {
	out := spec.Clone()
	r, ok := out[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	if index < 0 || index >= len(r.Waypoints) {
		return nil, fmt.Errorf("%w: %s[%d]", ErrWaypointIndex, slot, index)
	}
	r.Waypoints[index].Point = p
	out[slot] = r
	return out, nil
}

// MoveStart returns a copy of spec with slot's start point moved.
func MoveStart(spec core.RouteSpec, slot string, p core.FieldPoint) (core.RouteSpec, error) {
	out := spec.Clone()
	r, ok := out[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	r.Start = p
	out[slot] = r
	return out, nil
}

// ClearRoute returns a copy of spec with slot's waypoints removed.
func ClearRoute(spec core.RouteSpec, slot string) (core.RouteSpec, error) {
	out := spec.Clone()
	r, ok := out[slot]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSlot, slot)
	}
	r.Waypoints = []core.Waypoint{}
	out[slot] = r
	return out, nil
}
