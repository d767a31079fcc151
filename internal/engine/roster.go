package engine

import "github.com/routethat/playsim/pkg/core"

// RosterOrder is the fixed slot order of the offensive formation.
var RosterOrder = []string{"LT", "LG", "C", "RG", "RT", "QB", "RB", "TE", "WR1", "WR2", "WR3"}

// ReceiverOrder is the order receivers are matched to man defenders.
var ReceiverOrder = []string{"WR1", "WR2", "WR3", "TE", "RB"}

var slotRoles = map[string]core.Role{
	"LT":  core.RoleOL,
	"LG":  core.RoleOL,
	"C":   core.RoleOL,
	"RG":  core.RoleOL,
	"RT":  core.RoleOL,
	"QB":  core.RoleQB,
	"RB":  core.RoleRB,
	"TE":  core.RoleTE,
	"WR1": core.RoleWR,
	"WR2": core.RoleWR,
	"WR3": core.RoleWR,
}

// SlotRole returns the role for an offensive slot name.
func SlotRole(slot string) (core.Role, bool) {
	r, ok := slotRoles[slot]
	return r, ok
}

// CompileOffense builds the offensive roster from route data in slot order.
// Slots missing from the spec are dropped and unknown keys are ignored.
func CompileOffense(spec core.RouteSpec) []core.Player {
	players := make([]core.Player, 0, len(RosterOrder))
	for _, slot := range RosterOrder {
		r, ok := spec[slot]
		if !ok {
			continue
		}
		players = append(players, CompileSlot(slot, r))
	}
	return players
}

// CompileSlot compiles one offensive slot.
func CompileSlot(slot string, r core.RoleRoute) core.Player {
	role := slotRoles[slot]
	return core.Player{
		Name:     slot,
		Side:     core.SideOffense,
		Role:     role,
		Start:    r.Start,
		Segments: CompileRoute(r.Start, r.Waypoints, role),
	}
}

// LineOfScrimmage is the center's starting depth.
func LineOfScrimmage(spec core.RouteSpec) float64 {
	if c, ok := spec["C"]; ok {
		return c.Start.Y
	}
	return DefaultLineOfScrimmage
}

// formationCenter is the x the defensive line is centered on.
func formationCenter(spec core.RouteSpec) float64 {
	if c, ok := spec["C"]; ok {
		return c.Start.X
	}
	return FieldWidth / 2
}

func findPlayer(players []core.Player, name string) (core.Player, bool) {
	for _, p := range players {
		if p.Name == name {
			return p, true
		}
	}
	return core.Player{}, false
}
