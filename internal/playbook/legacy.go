package playbook

import "github.com/routethat/playsim/pkg/core"

// Movement is a relative move: travel (DX, DY) over Duration ms, starting at Delay.
type Movement struct {
	Delay    float64 `json:"delay"`
	Duration float64 `json:"duration"`
	DX       float64 `json:"dx"`
	DY       float64 `json:"dy"`
}

// LegacySlot is a slot expressed as a start point and relative movements.
type LegacySlot struct {
	Start     core.FieldPoint `json:"start"`
	Movements []Movement      `json:"movements,omitempty"`
}

// LegacyPlay is the delta-movement play format.
type LegacyPlay struct {
	Name  string                `json:"name"`
	Slots map[string]LegacySlot `json:"slots"`
}

// Convert turns a delta-movement play into absolute waypoints. Each movement
// arrives at Delay+Duration. Slots the play omits keep their default
// formation spot with no route.
func Convert(lp LegacyPlay) core.RouteSpec {
	spec := DefaultFormation()
	for name, slot := range lp.Slots {
		if _, ok := spec[name]; !ok {
			continue
		}
		spec[name] = core.RoleRoute{Start: slot.Start, Waypoints: toWaypoints(slot)}
	}
	return spec
}

func toWaypoints(slot LegacySlot) []core.Waypoint {
	wps := make([]core.Waypoint, 0, len(slot.Movements))
	at := slot.Start
	for _, m := range slot.Movements {
		at = at.Add(core.Pt(m.DX, m.DY))
		wps = append(wps, core.Waypoint{Point: at, AtMs: m.Delay + m.Duration})
	}
	return wps
}

var line = map[string]LegacySlot{
	"LT": {Start: core.Pt(233, 540)},
	"LG": {Start: core.Pt(266, 540)},
	"C":  {Start: core.Pt(300, 540)},
	"RG": {Start: core.Pt(333, 540)},
	"RT": {Start: core.Pt(366, 540)},
}

func withLine(slots map[string]LegacySlot) map[string]LegacySlot {
	for k, v := range line {
		slots[k] = v
	}
	return slots
}

var verts = LegacyPlay{
	Name: "Verts",
	Slots: withLine(map[string]LegacySlot{
		"QB": {Start: core.Pt(300, 570), Movements: []Movement{{0, 1000, 0, 20}}},
		"RB": {Start: core.Pt(260, 570), Movements: []Movement{
			{0, 2500, -50, -100},
			{2500, 2500, -200, -50},
		}},
		"TE": {Start: core.Pt(140, 540), Movements: []Movement{
			{0, 2000, 10, -150},
			{2000, 3000, -150, -100},
		}},
		"WR1": {Start: core.Pt(400, 540), Movements: []Movement{
			{0, 500, -10, -50},
			{500, 3000, -300, -10},
			{3500, 1500, 10, -500},
		}},
		"WR2": {Start: core.Pt(60, 540), Movements: []Movement{
			{0, 3000, 10, -300},
			{3000, 2000, 400, -100},
		}},
		"WR3": {Start: core.Pt(433, 540), Movements: []Movement{
			{0, 2000, -10, -200},
			{2000, 3000, -200, -100},
		}},
	}),
}

var flood = LegacyPlay{
	Name: "Flood",
	Slots: withLine(map[string]LegacySlot{
		"QB": {Start: core.Pt(300, 570), Movements: []Movement{{0, 1000, 0, 20}}},
		"RB": {Start: core.Pt(260, 570), Movements: []Movement{
			{0, 2500, -50, -100},
			{2500, 2500, -200, -50},
		}},
		"TE": {Start: core.Pt(140, 540), Movements: []Movement{
			{0, 2000, 10, -150},
			{2000, 3000, -150, -100},
		}},
		"WR1": {Start: core.Pt(400, 540), Movements: []Movement{
			{0, 500, -10, -50},
			{500, 3000, -300, -10},
			{3500, 1500, 10, -300},
		}},
		"WR2": {Start: core.Pt(60, 540), Movements: []Movement{
			{0, 3000, 10, -300},
			{3000, 2000, 400, -100},
		}},
		"WR3": {Start: core.Pt(433, 540), Movements: []Movement{
			{0, 2000, -10, -200},
			{2000, 3000, -200, -100},
		}},
	}),
}
