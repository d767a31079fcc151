package playbook

import (
	"sort"
	"strings"

	"github.com/routethat/playsim/pkg/core"
)

// DefaultFormation is the blank formation every play starts from.
func DefaultFormation() core.RouteSpec {
	return core.RouteSpec{
		"LT":  {Start: core.Pt(200, 540), Waypoints: []core.Waypoint{}},
		"LG":  {Start: core.Pt(240, 540), Waypoints: []core.Waypoint{}},
		"C":   {Start: core.Pt(280, 540), Waypoints: []core.Waypoint{}},
		"RG":  {Start: core.Pt(320, 540), Waypoints: []core.Waypoint{}},
		"RT":  {Start: core.Pt(360, 540), Waypoints: []core.Waypoint{}},
		"QB":  {Start: core.Pt(280, 580), Waypoints: []core.Waypoint{}},
		"RB":  {Start: core.Pt(320, 580), Waypoints: []core.Waypoint{}},
		"TE":  {Start: core.Pt(420, 540), Waypoints: []core.Waypoint{}},
		"WR1": {Start: core.Pt(520, 540), Waypoints: []core.Waypoint{}},
		"WR2": {Start: core.Pt(80, 540), Waypoints: []core.Waypoint{}},
		"WR3": {Start: core.Pt(10, 540), Waypoints: []core.Waypoint{}},
	}
}

var builtin = []LegacyPlay{verts, flood}

// Builtin returns the shipped plays converted to route data.
func Builtin() []core.SavedPlay {
	plays := make([]core.SavedPlay, 0, len(builtin))
	for _, lp := range builtin {
		plays = append(plays, core.SavedPlay{Name: lp.Name, Routes: Convert(lp)})
	}
	return plays
}

// Lookup finds a built-in play by case-insensitive name. "default" and ""
// return the blank formation.
func Lookup(name string) (core.RouteSpec, bool) {
	if name == "" || strings.EqualFold(name, "default") {
		return DefaultFormation(), true
	}
	for _, lp := range builtin {
		if strings.EqualFold(lp.Name, name) {
			return Convert(lp), true
		}
	}
	return nil, false
}

// Names lists the built-in play names, sorted.
func Names() []string {
	names := make([]string, 0, len(builtin))
	for _, lp := range builtin {
		names = append(names, lp.Name)
	}
	sort.Strings(names)
	return names
}
