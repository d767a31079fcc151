// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/routethat/playsim/internal/geo"
	"github.com/routethat/playsim/internal/model"
	"github.com/routethat/playsim/pkg/core"
	"gorm.io/datatypes"
)

func toJSON(v any, empty string) (datatypes.JSON, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return datatypes.JSON(empty), nil
	}
	return datatypes.JSON(data), nil
}

// CoreToPlay converts a core.SavedPlay to a GORM model.Play.
func CoreToPlay(p core.SavedPlay) (model.Play, error) {
	routes, err := toJSON(p.Routes, "{}")
	if err != nil {
		return model.Play{}, fmt.Errorf("encode routes for %q: %w", p.Name, err)
	}
	return model.Play{Name: p.Name, Routes: routes}, nil
}

// CoreToRun converts a core.PlayRun to a GORM model.Run.
func CoreToRun(r core.PlayRun) (model.Run, error) {
	routes, err := toJSON(r.Routes, "{}")
	if err != nil {
		return model.Run{}, fmt.Errorf("encode routes: %w", err)
	}
	defense, err := toJSON(r.Defense, "[]")
	if err != nil {
		return model.Run{}, fmt.Errorf("encode defense: %w", err)
	}
	assignment, err := toJSON(r.Assignment, "{}")
	if err != nil {
		return model.Run{}, fmt.Errorf("encode assignment: %w", err)
	}

	return model.Run{
		ID:              r.ID,
		PlayName:        r.PlayName,
		Seed:            r.Seed,
		SpeedMultiplier: r.SpeedMultiplier,
		Coverage:        string(r.Assignment.Scheme),
		Routes:          routes,
		Defense:         defense,
		Assignment:      assignment,
		StartedAt:       r.StartedAt,
	}, nil
}

// CoreToFrame converts a snapshot recorded for runID to a GORM model.Frame.
func CoreToFrame(runID string, s core.Snapshot) (model.Frame, error) {
	players, err := toJSON(s.Players, "[]")
	if err != nil {
		return model.Frame{}, fmt.Errorf("encode players for tick %d: %w", s.Tick, err)
	}
	ball, err := geo.ToPoint(s.Ball.Position)
	if err != nil {
		return model.Frame{}, fmt.Errorf("ball position for tick %d: %w", s.Tick, err)
	}

	return model.Frame{
		RunID:          runID,
		Tick:           s.Tick,
		ElapsedMs:      s.ElapsedMs,
		Phase:          string(s.Ball.Phase),
		Ball:           ball,
		FlightProgress: s.Ball.FlightProgress,
		Carrier:        s.Ball.Carrier,
		Target:         s.Ball.Target,
		YardsGained:    s.YardsGained,
		Status:         s.Status,
		Players:        players,
	}, nil
}

// CoreToResult converts a core.PlayResult to a GORM model.Result.
func CoreToResult(r core.PlayResult) model.Result {
	return model.Result{
		RunID:        r.RunID,
		PlayName:     r.PlayName,
		Coverage:     string(r.Coverage),
		Outcome:      string(r.Outcome.Kind),
		Interception: r.Outcome.Interception,
		Status:       r.Status,
		Target:       r.Target,
		Carrier:      r.Carrier,
		YardsGained:  r.YardsGained,
		ElapsedMs:    r.ElapsedMs,
		Ticks:        r.Ticks,
		EndedAt:      r.EndedAt,
	}
}
