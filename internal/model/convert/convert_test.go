package convert

import (
	"testing"
	"time"

	"github.com/routethat/playsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func samplePlay() core.SavedPlay {
	return core.SavedPlay{
		Name: "Slant",
		Routes: core.RouteSpec{
			"WR1": {
				Start: core.Pt(100, 540),
				Waypoints: []core.Waypoint{
					{Point: core.Pt(100, 480), AtMs: 1000},
					{Point: core.Pt(160, 420), AtMs: 2000},
				},
			},
			"C": {Start: core.Pt(300, 540)},
		},
	}
}

func TestPlayRoundTrip(t *testing.T) {
	gp, err := CoreToPlay(samplePlay())
	require.NoError(t, err)
	assert.Equal(t, "Slant", gp.Name)
	assert.Contains(t, string(gp.Routes), `"waypoints"`)

	back, err := PlayToCore(gp)
	require.NoError(t, err)
	assert.Equal(t, samplePlay(), back)
}

func TestCoreToPlay_NilRoutes(t *testing.T) {
	gp, err := CoreToPlay(core.SavedPlay{Name: "Empty"})
	require.NoError(t, err)
	assert.Equal(t, "{}", string(gp.Routes))

	back, err := PlayToCore(gp)
	require.NoError(t, err)
	assert.Empty(t, back.Routes)
}

func TestPlayToCore_BadJSON(t *testing.T) {
	gp, err := CoreToPlay(samplePlay())
	require.NoError(t, err)
	gp.Routes = []byte("[1,2")

	_, err = PlayToCore(gp)
	assert.ErrorContains(t, err, "Slant")
}

func TestRunRoundTrip(t *testing.T) {
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := core.PlayRun{
		ID:              "run-1",
		PlayName:        "Slant",
		Seed:            42,
		SpeedMultiplier: 2,
		StartedAt:       started,
		Routes:          samplePlay().Routes,
		Defense: []core.Player{
			{Name: "CB1", Side: core.SideDefense, Role: core.RoleCB, Start: core.Pt(100, 500)},
		},
		Assignment: core.DefensiveAssignment{
			Scheme:     core.CoverageMan,
			Roles:      map[string]core.DefenderRole{"CB1": core.DefenderUnderneath},
			ManTargets: map[string]string{"CB1": "WR1"},
		},
	}

	gr, err := CoreToRun(run)
	require.NoError(t, err)
	assert.Equal(t, "man", gr.Coverage)

	back, err := RunToCore(gr)
	require.NoError(t, err)
	assert.Equal(t, run, back)
}

func TestFrameRoundTrip(t *testing.T) {
	progress := 0.5
	snap := core.Snapshot{
		Tick:      12,
		ElapsedMs: 200,
		Players: []core.PlayerPosition{
			{Name: "QB", Side: core.SideOffense, Role: core.RoleQB, Position: core.Pt(300, 580)},
		},
		Ball: core.BallView{
			Position:       core.Pt(310.5, 420.25),
			Phase:          core.PhaseInFlight,
			FlightProgress: &progress,
			Target:         "WR1",
		},
		YardsGained: 3,
		Status:      "THROWN",
	}

	gf, err := CoreToFrame("run-1", snap)
	require.NoError(t, err)
	assert.Equal(t, "run-1", gf.RunID)
	assert.Equal(t, "in_flight", gf.Phase)

	back, err := FrameToCore(gf)
	require.NoError(t, err)
	assert.Equal(t, snap, back)
}

func TestResultRoundTrip(t *testing.T) {
	res := core.PlayResult{
		RunID:       "run-1",
		PlayName:    "Slant",
		Coverage:    core.CoverageCover2,
		Outcome:     core.Outcome{Kind: core.OutcomeTackled, Interception: true},
		Status:      "INTERCEPTION - TACKLED",
		Carrier:     "D3",
		Target:      "WR1",
		YardsGained: -4,
		ElapsedMs:   4200,
		Ticks:       252,
		EndedAt:     time.Date(2026, 3, 1, 12, 0, 5, 0, time.UTC),
	}

	gr := CoreToResult(res)
	assert.Equal(t, "tackled", gr.Outcome)
	assert.True(t, gr.Interception)
	assert.Equal(t, res, ResultToCore(gr))
}
