package engine

import (
	"math"

	"github.com/routethat/playsim/internal/geo"
	"github.com/routethat/playsim/pkg/core"
)

// Possession describes who holds the ball during run-after-catch.
// A zero Start means nobody does and every player follows its script.
type Possession struct {
	Start float64
	// Side is the side of the ball carrier.
	Side core.Side
	// Target is the live carrier position that the other side chases.
	Target *core.FieldPoint
}

// Active reports whether a possession has begun.
func (p Possession) Active() bool {
	return p.Start > 0
}

// Resolve returns the boundary-clamped position of p at time t, with the
// offense holding the ball from r (0 if no one does). target is the live
// carrier position defenders pursue.
func Resolve(p core.Player, t, r float64, target *core.FieldPoint) core.FieldPoint {
	return ResolveAt(p, t, Possession{Start: r, Side: core.SideOffense, Target: target})
}

// ResolveAt is Resolve with an explicit carrier side, so interception returns
// reverse the roles of chaser and runner.
func ResolveAt(p core.Player, t float64, pos Possession) core.FieldPoint {
	if p.Role.Stationary() {
		return p.Start
	}
	if !pos.Active() || t <= pos.Start {
		return FieldBounds.Clamp(scripted(p, t))
	}

	base := ResolveAt(p, pos.Start, Possession{})
	elapsed := t - pos.Start

	if p.Side != pos.Side {
		if pos.Target == nil {
			return base
		}
		dist := geo.Distance(base, *pos.Target)
		step := math.Min(PursuitSpeed*elapsed, dist)
		return FieldBounds.Clamp(base.Add(geo.Direction(base, *pos.Target).Scale(step)))
	}

	return FieldBounds.Clamp(base.Add(core.FieldPoint{Y: goalDirection(p.Side) * StandardSpeed * elapsed}))
}

// goalDirection is the sign of y travel toward the goal a side attacks.
func goalDirection(s core.Side) float64 {
	if s == core.SideDefense {
		return 1
	}
	return -1
}
