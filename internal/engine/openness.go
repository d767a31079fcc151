package engine

import (
	"math"

	"github.com/routethat/playsim/internal/geo"
	"github.com/routethat/playsim/pkg/core"
)

// Openness scores how open receiver will be when a pass thrown at throwTime
// arrives. Higher is more open. Line defenders are ignored.
func Openness(receiver core.Player, defense []core.Player, throwTime float64) float64 {
	catchT := throwTime + FlightTimeMs
	at := Resolve(receiver, catchT, 0, nil)

	minSep, total, n := math.Inf(1), 0.0, 0
	for _, d := range defense {
		if d.Role.Line() {
			continue
		}
		sep := geo.Distance(at, Resolve(d, catchT, 0, nil))
		minSep = math.Min(minSep, sep)
		total += sep
		n++
	}
	if n == 0 {
		return OpenScore
	}

	score := MinSeparationScale*minSep + total/float64(n)
	if minSep < CrowdedSeparation {
		score -= CrowdedPenalty * (CrowdedSeparation - minSep)
	}
	if at.Y <= TopEndzoneLine && minSep < EndzoneSeparation {
		score -= EndzonePenalty
	}
	return score
}

// ChooseTarget picks the eligible receiver with the best openness plus
// priority bonus. Ties go to the earlier receiver in roster order.
func ChooseTarget(offense, defense []core.Player, throwTime float64) (core.Player, bool) {
	var best core.Player
	bestScore, found := math.Inf(-1), false

	for _, p := range offense {
		if !p.Role.Eligible() {
			continue
		}
		score := Openness(p, defense, throwTime) + priorityBonus[p.Name]
		if !found || score > bestScore {
			best, bestScore, found = p, score, true
		}
	}
	return best, found
}
