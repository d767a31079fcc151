package engine

import (
	"fmt"
	"math/rand"

	"github.com/routethat/playsim/pkg/core"
)

// Schemes lists the coverage schemes in draw order.
var Schemes = []core.CoverageScheme{core.CoverageMan, core.CoverageCover2, core.CoverageCover3}

var lineNames = [LineCount]string{"DE1", "DT1", "DT2", "DE2"}

var secondaryRoles = []core.Role{core.RoleLB, core.RoleCB, core.RoleS}

// GenerateDefense draws a scheme uniformly and lays out a defense against spec.
func GenerateDefense(spec core.RouteSpec, rng *rand.Rand) ([]core.Player, core.DefensiveAssignment) {
	scheme := Schemes[rng.Intn(len(Schemes))]
	return ArrangeDefense(spec, scheme, rng)
}

// ArrangeDefense lays out a defense for a fixed scheme. The returned players
// carry no segments yet; see CompileDefense.
func ArrangeDefense(spec core.RouteSpec, scheme core.CoverageScheme, rng *rand.Rand) ([]core.Player, core.DefensiveAssignment) {
	a := core.DefensiveAssignment{
		Scheme: scheme,
		Roles:  make(map[string]core.DefenderRole, LineCount+SecondaryCount),
	}
	players := make([]core.Player, 0, LineCount+SecondaryCount)

	center := formationCenter(spec)
	for i, name := range lineNames {
		players = append(players, core.Player{
			Name:  name,
			Side:  core.SideDefense,
			Role:  core.RoleDL,
			Start: core.Pt(center+(float64(i)-1.5)*LineSpacing, DefensiveLineY),
		})
		a.Roles[name] = core.DefenderLine
	}

	secondary := make([]core.Player, SecondaryCount)
	for i := range secondary {
		secondary[i] = core.Player{
			Name:  fmt.Sprintf("D%d", i+1),
			Side:  core.SideDefense,
			Role:  secondaryRoles[rng.Intn(len(secondaryRoles))],
			Start: core.Pt(MinSpawnX+rng.Float64()*(MaxSpawnX-MinSpawnX), DefensiveLineY-secondaryDepths[i%len(secondaryDepths)]),
		}
	}

	switch scheme {
	case core.CoverageMan:
		assignMan(spec, secondary, &a, rng)
	default:
		assignZone(secondary, &a)
	}

	return append(players, secondary...), a
}

// assignMan lines each assigned defender up at its receiver plus the trail
// offset it keeps for the whole route.
func assignMan(spec core.RouteSpec, secondary []core.Player, a *core.DefensiveAssignment, rng *rand.Rand) {
	a.ManTargets = make(map[string]string)
	a.TrailOffsets = make(map[string]core.FieldPoint)

	next := 0
	for _, slot := range ReceiverOrder {
		r, ok := spec[slot]
		if !ok {
			continue
		}
		if next >= len(secondary) {
			break
		}
		d := &secondary[next]
		next++

		offset := TrailOffset(rng)
		a.ManTargets[d.Name] = slot
		a.TrailOffsets[d.Name] = offset
		d.Start = r.Start.Add(offset)
	}

	for _, d := range secondary {
		a.Roles[d.Name] = core.DefenderUnderneath
	}
}

func assignZone(secondary []core.Player, a *core.DefensiveAssignment) {
	deep := 2
	if a.Scheme == core.CoverageCover3 {
		deep = 3
	}
	a.Lanes = make(map[string]int)

	// lane is the roster index mod 3
	for i, d := range secondary {
		if i < deep {
			a.Roles[d.Name] = core.DefenderDeep
			continue
		}
		a.Roles[d.Name] = core.DefenderUnderneath
		a.Lanes[d.Name] = i % 3
	}
}
