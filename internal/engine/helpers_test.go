package engine

import (
	"github.com/routethat/playsim/pkg/core"
)

func wp(x, y, t float64) core.Waypoint {
	return core.Waypoint{Point: core.Pt(x, y), AtMs: t}
}

func defender(name string, at core.FieldPoint) core.Player {
	return core.Player{
		Name:     name,
		Side:     core.SideDefense,
		Role:     core.RoleCB,
		Start:    at,
		Segments: CompileRoute(at, nil, core.RoleCB),
	}
}

func qb() core.Player {
	return CompileSlot("QB", core.RoleRoute{Start: core.Pt(280, 580)})
}

func runToEnd(d *Director, dt float64) core.Snapshot {
	snap := d.Snapshot()
	for i := 0; i < 5000 && !snap.Done(); i++ {
		snap = d.Step(dt)
	}
	return snap
}

func formation() core.RouteSpec {
	return core.RouteSpec{
		"LT":  {Start: core.Pt(200, 540)},
		"LG":  {Start: core.Pt(240, 540)},
		"C":   {Start: core.Pt(280, 540)},
		"RG":  {Start: core.Pt(320, 540)},
		"RT":  {Start: core.Pt(360, 540)},
		"QB":  {Start: core.Pt(280, 580)},
		"RB":  {Start: core.Pt(320, 580), Waypoints: []core.Waypoint{wp(380, 520, 1000)}},
		"TE":  {Start: core.Pt(420, 540), Waypoints: []core.Waypoint{wp(420, 440, 1500)}},
		"WR1": {Start: core.Pt(520, 540), Waypoints: []core.Waypoint{wp(520, 420, 1500), wp(470, 360, 2300)}},
		"WR2": {Start: core.Pt(80, 540), Waypoints: []core.Waypoint{wp(80, 300, 2500)}},
		"WR3": {Start: core.Pt(10, 540), Waypoints: []core.Waypoint{wp(60, 480, 1000), wp(200, 450, 2500)}},
	}
}
