package convert

import (
	"encoding/json"
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/routethat/playsim/internal/model"
	"github.com/routethat/playsim/pkg/core"
)

// pointToField converts a geom.Point to a core.FieldPoint. Empty points map to the origin.
func pointToField(p geom.Point) core.FieldPoint {
	coord, ok := p.Coordinates()
	if !ok {
		return core.FieldPoint{}
	}
	return core.FieldPoint{X: coord.XY.X, Y: coord.XY.Y}
}

// PlayToCore converts a GORM Play to a core.SavedPlay.
func PlayToCore(p model.Play) (core.SavedPlay, error) {
	routes := core.RouteSpec{}
	if len(p.Routes) > 0 {
		if err := json.Unmarshal(p.Routes, &routes); err != nil {
			return core.SavedPlay{}, fmt.Errorf("decode routes for %q: %w", p.Name, err)
		}
	}
	return core.SavedPlay{Name: p.Name, Routes: routes}, nil
}

// RunToCore converts a GORM Run to a core.PlayRun.
func RunToCore(r model.Run) (core.PlayRun, error) {
	run := core.PlayRun{
		ID:              r.ID,
		PlayName:        r.PlayName,
		Seed:            r.Seed,
		SpeedMultiplier: r.SpeedMultiplier,
		StartedAt:       r.StartedAt,
	}
	if len(r.Routes) > 0 {
		if err := json.Unmarshal(r.Routes, &run.Routes); err != nil {
			return core.PlayRun{}, fmt.Errorf("decode routes: %w", err)
		}
	}
	if len(r.Defense) > 0 {
		if err := json.Unmarshal(r.Defense, &run.Defense); err != nil {
			return core.PlayRun{}, fmt.Errorf("decode defense: %w", err)
		}
	}
	if len(r.Assignment) > 0 {
		if err := json.Unmarshal(r.Assignment, &run.Assignment); err != nil {
			return core.PlayRun{}, fmt.Errorf("decode assignment: %w", err)
		}
	}
	return run, nil
}

// FrameToCore converts a GORM Frame back to a snapshot. The outcome is only
// known from the result row, so it is left nil.
func FrameToCore(f model.Frame) (core.Snapshot, error) {
	var players []core.PlayerPosition
	if len(f.Players) > 0 {
		if err := json.Unmarshal(f.Players, &players); err != nil {
			return core.Snapshot{}, fmt.Errorf("decode players for tick %d: %w", f.Tick, err)
		}
	}

	return core.Snapshot{
		Tick:      f.Tick,
		ElapsedMs: f.ElapsedMs,
		Players:   players,
		Ball: core.BallView{
			Position:       pointToField(f.Ball),
			Phase:          core.Phase(f.Phase),
			FlightProgress: f.FlightProgress,
			Carrier:        f.Carrier,
			Target:         f.Target,
		},
		YardsGained: f.YardsGained,
		Status:      f.Status,
	}, nil
}

// ResultToCore converts a GORM Result to a core.PlayResult.
func ResultToCore(r model.Result) core.PlayResult {
	return core.PlayResult{
		RunID:    r.RunID,
		PlayName: r.PlayName,
		Coverage: core.CoverageScheme(r.Coverage),
		Outcome: core.Outcome{
			Kind:         core.OutcomeKind(r.Outcome),
			Interception: r.Interception,
		},
		Status:      r.Status,
		Target:      r.Target,
		Carrier:     r.Carrier,
		YardsGained: r.YardsGained,
		ElapsedMs:   r.ElapsedMs,
		Ticks:       r.Ticks,
		EndedAt:     r.EndedAt,
	}
}
