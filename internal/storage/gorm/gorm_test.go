package gormstorage

import (
	"context"
	"testing"
	"time"

	"github.com/routethat/playsim/internal/database"
	"github.com/routethat/playsim/internal/model"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time interface checks
var (
	_ storage.Backend      = (*Backend)(nil)
	_ storage.PlayStore    = (*Backend)(nil)
	_ storage.ResultReader = (*Backend)(nil)
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.GetSqliteDB("")
	require.NoError(t, err)

	// long interval so tests control flushing
	b := New(Dependencies{DB: db, FlushInterval: time.Hour})
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func testRun(id string) *core.PlayRun {
	return &core.PlayRun{
		ID:        id,
		PlayName:  "Verts",
		Seed:      3,
		StartedAt: time.Date(2026, 4, 4, 10, 0, 0, 0, time.UTC),
		Routes: core.RouteSpec{
			"WR3": {Start: core.Pt(450, 540), Waypoints: []core.Waypoint{{Point: core.Pt(450, 200), AtMs: 4000}}},
		},
		Defense: []core.Player{{Name: "D1", Side: core.SideDefense, Role: core.RoleS, Start: core.Pt(300, 456)}},
		Assignment: core.DefensiveAssignment{
			Scheme: core.CoverageCover2,
			Roles:  map[string]core.DefenderRole{"D1": core.DefenderDeep},
		},
	}
}

func snap(tick int) *core.Snapshot {
	return &core.Snapshot{
		Tick:      tick,
		ElapsedMs: float64(tick) * 16.67,
		Players: []core.PlayerPosition{
			{Name: "WR3", Side: core.SideOffense, Role: core.RoleWR, Position: core.Pt(450, 540-float64(tick))},
		},
		Ball:   core.BallView{Position: core.Pt(300, 580), Phase: core.PhasePreThrow},
		Status: "PENDING",
	}
}

func TestInitClose(t *testing.T) {
	db, err := database.GetSqliteDB("")
	require.NoError(t, err)

	b := New(Dependencies{DB: db})
	assert.Equal(t, DefaultFlushInterval, b.deps.FlushInterval)
	require.NoError(t, b.Init())
	assert.True(t, db.Migrator().HasTable(&model.Frame{}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

func TestRecordFrame_QueuesUntilFlush(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.StartRun(testRun("run-1")))
	require.NoError(t, b.RecordFrame("run-1", snap(2)))
	require.NoError(t, b.RecordFrame("run-1", snap(1)))
	assert.Equal(t, 2, b.Pending())

	frames, err := b.Frames(ctx, "run-1")
	require.NoError(t, err)
	assert.Empty(t, frames)

	require.NoError(t, b.Flush())
	assert.Zero(t, b.Pending())

	frames, err = b.Frames(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, frames, 2)
	assert.Equal(t, 1, frames[0].Tick)
	assert.Equal(t, core.Pt(450, 539), frames[0].Players[0].Position)
	assert.Equal(t, core.Pt(300, 580), frames[0].Ball.Position)
}

func TestFlush_FailureKeepsFramesQueued(t *testing.T) {
	b := newTestBackend(t)

	sqlDB, err := b.DB().DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	require.NoError(t, b.RecordFrame("run-1", snap(1)))
	assert.Error(t, b.Flush())
	assert.Equal(t, 1, b.Pending())
}

func TestRunRoundTrip(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.StartRun(testRun("run-1")))

	run, err := b.Run(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "Verts", run.PlayName)
	assert.Equal(t, core.CoverageCover2, run.Assignment.Scheme)
	assert.Equal(t, core.DefenderDeep, run.Assignment.Roles["D1"])
	require.Len(t, run.Defense, 1)
	assert.Equal(t, core.Pt(300, 456), run.Defense[0].Start)

	_, err = b.Run(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrRunNotFound)
}

func TestEndRun_FlushesAndUpsertsResult(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	require.NoError(t, b.StartRun(testRun("run-1")))
	require.NoError(t, b.RecordFrame("run-1", snap(1)))

	result := &core.PlayResult{
		RunID:    "run-1",
		PlayName: "Verts",
		Coverage: core.CoverageCover2,
		Outcome:  core.Outcome{Kind: core.OutcomeTouchdown},
		Status:   "TOUCHDOWN",
		Carrier:  "WR3",
		Ticks:    1,
		EndedAt:  time.Now(),
	}
	require.NoError(t, b.EndRun(result))
	assert.Zero(t, b.Pending())

	result.YardsGained = 70
	require.NoError(t, b.EndRun(result))

	results, err := b.Results(ctx, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, core.OutcomeTouchdown, results[0].Outcome.Kind)
	assert.Equal(t, 70, results[0].YardsGained)
	assert.Equal(t, "WR3", results[0].Carrier)
}

func TestResults_NewestFirstWithLimit(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()
	base := time.Date(2026, 4, 4, 10, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.StartRun(testRun(id)))
		require.NoError(t, b.EndRun(&core.PlayResult{
			RunID:   id,
			Outcome: core.Outcome{Kind: core.OutcomeIncomplete},
			EndedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	results, err := b.Results(ctx, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "c", results[0].RunID)
	assert.Equal(t, "b", results[1].RunID)
}

func TestPlayStore(t *testing.T) {
	b := newTestBackend(t)
	ctx := context.Background()

	verts := core.SavedPlay{Name: "Verts", Routes: testRun("x").Routes}
	flood := core.SavedPlay{Name: "Flood", Routes: core.RouteSpec{
		"TE": {Start: core.Pt(400, 540), Waypoints: []core.Waypoint{{Point: core.Pt(480, 440), AtMs: 1500}}},
	}}

	require.NoError(t, b.SavePlay(ctx, verts))
	require.NoError(t, b.SavePlay(ctx, flood))

	verts.Routes["WR3"] = core.RoleRoute{Start: core.Pt(440, 540), Waypoints: []core.Waypoint{{Point: core.Pt(440, 100), AtMs: 5000}}}
	require.NoError(t, b.SavePlay(ctx, verts))

	plays, err := b.LoadPlays(ctx)
	require.NoError(t, err)
	require.Len(t, plays, 2)
	assert.Equal(t, "Verts", plays[0].Name)
	assert.Equal(t, core.Pt(440, 540), plays[0].Routes["WR3"].Start)
	assert.Equal(t, flood, plays[1])

	require.NoError(t, b.DeletePlay(ctx, "Verts"))
	assert.ErrorIs(t, b.DeletePlay(ctx, "Verts"), storage.ErrPlayNotFound)

	_, err = storage.FindPlay(ctx, b, "Verts")
	assert.ErrorIs(t, err, storage.ErrPlayNotFound)
}
