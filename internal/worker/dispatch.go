package worker

import (
	"context"
	"fmt"

	"github.com/routethat/playsim/internal/dispatcher"
	"github.com/routethat/playsim/pkg/core"
)

// Command names understood by the dispatcher
const (
	CmdSimulate      = "simulate"
	CmdPlaysSave     = "plays.save"
	CmdPlaysList     = "plays.list"
	CmdPlaysDelete   = "plays.delete"
	CmdResultsList   = "results.list"
	CmdResultsRecord = "results.record"
)

// RegisterHandlers registers all command handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Simulation and play store - sync, callers need the answer
	d.Register(CmdSimulate, m.handleSimulate, dispatcher.Logged())
	d.Register(CmdPlaysSave, m.handleSavePlay, dispatcher.Logged())
	d.Register(CmdPlaysList, m.handleListPlays)
	d.Register(CmdPlaysDelete, m.handleDeletePlay, dispatcher.Logged())
	d.Register(CmdResultsList, m.handleListResults)

	// Telemetry writes - buffered
	d.Register(CmdResultsRecord, m.handleRecordResult, dispatcher.Buffered(1000), dispatcher.Logged())

	m.results = func(ctx context.Context, r *core.PlayResult) {
		c, err := dispatcher.NewCommand(CmdResultsRecord, r)
		if err != nil {
			return
		}
		if _, err := d.Dispatch(ctx, c); err != nil {
			m.logger().Warn("Failed to queue result", "runId", r.RunID, "error", err)
		}
	}
}

func (m *Manager) handleSimulate(ctx context.Context, c dispatcher.Command) (any, error) {
	var req SimulateRequest
	if err := c.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return m.Simulate(ctx, req)
}

func (m *Manager) handleSavePlay(ctx context.Context, c dispatcher.Command) (any, error) {
	var play core.SavedPlay
	if err := c.Decode(&play); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := m.SavePlay(ctx, play); err != nil {
		return nil, err
	}
	return play, nil
}

func (m *Manager) handleListPlays(ctx context.Context, _ dispatcher.Command) (any, error) {
	return m.LoadPlays(ctx)
}

func (m *Manager) handleDeletePlay(ctx context.Context, c dispatcher.Command) (any, error) {
	var req DeleteRequest
	if err := c.Decode(&req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil, m.DeletePlay(ctx, req.Name)
}

func (m *Manager) handleListResults(ctx context.Context, c dispatcher.Command) (any, error) {
	var req ResultsRequest
	if len(c.Payload) > 0 {
		if err := c.Decode(&req); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
	}
	return m.Results(ctx, req.Limit)
}

func (m *Manager) handleRecordResult(_ context.Context, c dispatcher.Command) (any, error) {
	var r core.PlayResult
	if err := c.Decode(&r); err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	return nil, m.RecordResult(&r)
}
