package engine

import (
	"math"
	"math/rand"
	"sort"

	"github.com/routethat/playsim/pkg/core"
)

// CompileDefense compiles motion for every defender against spec.
func CompileDefense(defense []core.Player, a core.DefensiveAssignment, spec core.RouteSpec, rng *rand.Rand) []core.Player {
	out := make([]core.Player, len(defense))
	for i, d := range defense {
		d.Segments = CompileCoverage(d, a, spec, rng)
		out[i] = d
	}
	return out
}

// CompileCoverage produces one defender's motion segments.
// rng is only consumed for a man assignment that carries no trail offset.
func CompileCoverage(d core.Player, a core.DefensiveAssignment, spec core.RouteSpec, rng *rand.Rand) []core.MotionSegment {
	if a.Roles[d.Name] == core.DefenderLine {
		return CompileRoute(d.Start, nil, d.Role)
	}

	switch a.Scheme {
	case core.CoverageMan:
		slot, ok := a.ManTarget(d.Name)
		if !ok {
			break
		}
		r, ok := spec[slot]
		if !ok {
			break
		}
		offset, ok := a.TrailOffsets[d.Name]
		if !ok {
			offset = TrailOffset(rng)
		}
		return compileMan(d, CompileSlot(slot, r), offset)
	case core.CoverageCover2, core.CoverageCover3:
		return compileZone(d, a)
	}

	return CompileRoute(d.Start, nil, d.Role)
}

// TrailOffset draws the constant separation a man defender keeps from its receiver.
func TrailOffset(rng *rand.Rand) core.FieldPoint {
	mag := MinTrail + rng.Float64()*(MaxTrail-MinTrail)
	angle := rng.Float64() * 2 * math.Pi
	return core.Pt(math.Cos(angle)*mag, math.Sin(angle)*mag)
}

func compileMan(d core.Player, receiver core.Player, offset core.FieldPoint) []core.MotionSegment {
	var wps []core.Waypoint
	for _, t := range manSampleTimes(receiver) {
		// the defender already lines up on the route start sample
		if t <= 0 {
			continue
		}
		p := Resolve(receiver, t, 0, nil).Add(offset)
		wps = append(wps, core.Waypoint{Point: p, AtMs: t})
	}
	wps = append(wps, wps[len(wps)-1])

	return CompileRoute(d.Start, wps, d.Role)
}

// manSampleTimes is route start, the get-off delay and every waypoint time of
// the receiver, capped at the play ceiling.
func manSampleTimes(receiver core.Player) []float64 {
	seen := map[float64]bool{0: true, ManGetOffDelayMs: true}
	times := []float64{0, ManGetOffDelayMs}
	for _, s := range receiver.Segments {
		if s.Unbounded() {
			continue
		}
		t := math.Min(s.End, PlayCeilingMs)
		if !seen[t] {
			seen[t] = true
			times = append(times, t)
		}
	}
	sort.Float64s(times)
	return times
}

func compileZone(d core.Player, a core.DefensiveAssignment) []core.MotionSegment {
	var drop core.FieldPoint
	var patrol float64

	switch a.Roles[d.Name] {
	case core.DefenderDeep:
		drop = core.Pt(d.Start.X, ZoneDeepY)
		patrol = DeepPatrol
	case core.DefenderUnderneath:
		lanes := [3]float64{FieldWidth / 4, 3 * FieldWidth / 4, FieldWidth / 2}
		drop = core.Pt(lanes[a.Lanes[d.Name]%len(lanes)], ZoneIntermediateY)
		patrol = UnderneathPatrol
	default:
		return CompileRoute(d.Start, nil, d.Role)
	}

	drop.X = clampX(drop.X)
	points := []core.FieldPoint{
		drop,
		core.Pt(clampX(drop.X-patrol), drop.Y),
		core.Pt(clampX(drop.X+patrol), drop.Y),
		drop,
	}
	return CompileRoute(d.Start, TimeWaypoints(d.Start, points), d.Role)
}

func clampX(x float64) float64 {
	return math.Max(ZoneMinX, math.Min(ZoneMaxX, x))
}
