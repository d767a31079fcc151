package engine

import (
	"math"
	"sort"

	"github.com/routethat/playsim/internal/geo"
	"github.com/routethat/playsim/pkg/core"
)

// fillerMs is the duration of the static segment emitted for degenerate transitions.
const fillerMs = 1.0

// CompileRoute converts a start point and ordered waypoints into a gapless list
// of constant-velocity segments covering [0, +Inf).
//
// Stationary roles ignore their waypoints. A waypoint at zero distance, or with a
// timestamp not after the previous one, becomes a one millisecond static filler
// and the player keeps moving from where it actually is.
func CompileRoute(start core.FieldPoint, waypoints []core.Waypoint, role core.Role) []core.MotionSegment {
	if role.Stationary() {
		return []core.MotionSegment{hold(0, start)}
	}

	segs := make([]core.MotionSegment, 0, len(waypoints)+1)
	prev, prevT := start, 0.0

	for _, w := range waypoints {
		dist := geo.Distance(prev, w.Point)
		dur := w.AtMs - prevT
		if dist == 0 || dur <= 0 || math.IsNaN(dist) || math.IsInf(dist, 0) {
			segs = append(segs, core.MotionSegment{
				Start:  prevT,
				End:    prevT + fillerMs,
				Origin: prev,
				Dest:   prev,
			})
			prevT += fillerMs
			continue
		}
		segs = append(segs, core.MotionSegment{
			Start:    prevT,
			End:      w.AtMs,
			Velocity: w.Point.Sub(prev).Scale(1 / dur),
			Origin:   prev,
			Dest:     w.Point,
		})
		prev, prevT = w.Point, w.AtMs
	}

	return append(segs, hold(prevT, prev))
}

func hold(from float64, at core.FieldPoint) core.MotionSegment {
	return core.MotionSegment{Start: from, End: math.Inf(1), Origin: at, Dest: at}
}

// SegmentAt returns the index of the first segment whose interval contains t.
// Times before zero map to the first segment.
func SegmentAt(segs []core.MotionSegment, t float64) int {
	if len(segs) == 0 {
		return -1
	}
	i := sort.Search(len(segs), func(i int) bool {
		return segs[i].Unbounded() || segs[i].End >= t
	})
	if i == len(segs) {
		return len(segs) - 1
	}
	return i
}

// scripted evaluates the route regime: the position reached by following the
// compiled segments up to t.
func scripted(p core.Player, t float64) core.FieldPoint {
	i := SegmentAt(p.Segments, t)
	if i < 0 {
		return p.Start
	}
	s := p.Segments[i]
	switch {
	case t <= s.Start:
		return s.Origin
	case !s.Unbounded() && t >= s.End:
		return s.Dest
	}
	return s.Origin.Add(s.Velocity.Scale(t - s.Start))
}

// TimeWaypoints assigns arrival times to a list of points travelled at
// StandardSpeed, starting from start at t=0.
func TimeWaypoints(start core.FieldPoint, points []core.FieldPoint) []core.Waypoint {
	wps := make([]core.Waypoint, 0, len(points))
	prev, t := start, 0.0
	for _, p := range points {
		t += geo.Distance(prev, p) / StandardSpeed
		wps = append(wps, core.Waypoint{Point: p, AtMs: t})
		prev = p
	}
	return wps
}
