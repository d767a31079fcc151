package engine

import (
	"math"

	"github.com/routethat/playsim/pkg/core"
)

// FlightProgress is the fraction of the flight completed at t, in [0, 1].
func FlightProgress(f core.InFlight, t float64) float64 {
	return math.Max(0, math.Min(1, (t-f.ThrowTime)/FlightTimeMs))
}

// BallPosition interpolates a pass linearly in x and along a parabolic arc in y.
func BallPosition(f core.InFlight, t float64) core.FieldPoint {
	p := FlightProgress(f, t)
	if p >= 1 {
		return f.TargetPoint
	}
	pos := f.Origin.Add(f.TargetPoint.Sub(f.Origin).Scale(p))
	pos.Y -= 4 * ArcHeight * p * (1 - p)
	return pos
}

// Yards converts a carrier depth into yards gained past the line of scrimmage.
func Yards(los, carrierY float64) int {
	return int(math.Round((los - carrierY) / PxPerYard))
}

// inPlay reports whether the carrier is strictly inside the field limits.
func inPlay(p core.FieldPoint) bool {
	b := FieldBounds
	return p.X > b.MinX && p.X < b.MaxX && p.Y > b.MinY && p.Y < b.MaxY
}

// scored reports whether a carrier of side has reached the goal it attacks.
func scored(side core.Side, p core.FieldPoint) bool {
	if side == core.SideDefense {
		return p.Y >= BottomEndzoneLine
	}
	return p.Y <= TopEndzoneLine
}
