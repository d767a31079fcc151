package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/influx"
	"github.com/routethat/playsim/internal/logging"
	"github.com/routethat/playsim/internal/playbook"
	"github.com/routethat/playsim/internal/session"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
	"go.opentelemetry.io/otel/metric"
)

// ErrNoPlayStore is returned by play commands when no store is configured
var ErrNoPlayStore = errors.New("no play store configured")

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	LogManager *logging.SlogManager
	Plays      storage.PlayStore // optional
	Influx     *influx.Manager   // optional
	Meter      metric.Meter
	Sim        config.SimConfig
}

// Manager runs simulations and play store commands on behalf of the CLI and API
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	// recording backends track one run at a time
	recordMu sync.Mutex
	results  resultRecorder
}

// resultRecorder forwards finished runs to the results.record command.
type resultRecorder func(ctx context.Context, r *core.PlayResult)

// NewManager creates a new worker manager. backend may be nil.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	return &Manager{
		deps:    deps,
		backend: backend,
		results: func(context.Context, *core.PlayResult) {},
	}
}

func (m *Manager) logger() *slog.Logger {
	if m.deps.LogManager == nil {
		return slog.Default()
	}
	return m.deps.LogManager.Logger()
}

func (m *Manager) hasBackend() bool {
	return m.backend != nil
}

// Backend returns the run recorder, or nil.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

// ResolvePlay finds a play by name in the play store, falling back to the
// built-in playbook.
func (m *Manager) ResolvePlay(ctx context.Context, name string) (core.SavedPlay, error) {
	if m.deps.Plays != nil && name != "" {
		p, err := storage.FindPlay(ctx, m.deps.Plays, name)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, storage.ErrPlayNotFound) {
			return core.SavedPlay{}, fmt.Errorf("failed to load plays: %w", err)
		}
	}
	if routes, ok := playbook.Lookup(name); ok {
		if name == "" {
			name = "default"
		}
		return core.SavedPlay{Name: name, Routes: routes}, nil
	}
	return core.SavedPlay{}, fmt.Errorf("%w: %s", storage.ErrPlayNotFound, name)
}

// NewSession builds a session for play using configured defaults for every
// zero field of req. The session reports only to observers; Simulate adds
// the recording backend itself.
func (m *Manager) NewSession(play core.SavedPlay, req SimulateRequest, observers ...session.Observer) *session.Session {
	opts := session.Options{
		SpeedMultiplier: m.deps.Sim.SpeedMultiplier,
		Seed:            m.deps.Sim.Seed,
		MaxTicks:        m.deps.Sim.MaxTicks,
		Scheme:          core.CoverageScheme(m.deps.Sim.Coverage),
	}
	if req.SpeedMultiplier > 0 {
		opts.SpeedMultiplier = req.SpeedMultiplier
	}
	if req.Seed != 0 {
		opts.Seed = req.Seed
	}
	if req.Coverage != "" {
		opts.Scheme = req.Coverage
	}

	return session.New(play, opts, session.Dependencies{
		LogManager: m.deps.LogManager,
		Meter:      m.deps.Meter,
		Observers:  observers,
	})
}

// LookupRequest resolves the play a request names, or wraps its inline routes.
func (m *Manager) LookupRequest(ctx context.Context, req SimulateRequest) (core.SavedPlay, error) {
	if err := req.Validate(); err != nil {
		return core.SavedPlay{}, err
	}
	if req.Routes != nil {
		return core.SavedPlay{Name: req.Play, Routes: req.Routes}, nil
	}
	return m.ResolvePlay(ctx, req.Play)
}

// Simulate runs a play headless to completion and records its result. A run
// cut off by the tick limit returns its partial result with session.ErrTickLimit.
func (m *Manager) Simulate(ctx context.Context, req SimulateRequest) (*SimulateResponse, error) {
	play, err := m.LookupRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	m.recordMu.Lock()
	defer m.recordMu.Unlock()

	var observers []session.Observer
	if m.hasBackend() {
		observers = append(observers, m.backend)
	}
	s := m.NewSession(play, req, observers...)
	result, err := s.Run(ctx)
	if err != nil && !errors.Is(err, session.ErrTickLimit) {
		return nil, err
	}
	m.results(ctx, result)

	resp := &SimulateResponse{Result: *result, Final: s.Snapshot()}
	if e, ok := m.backend.(storage.Exportable); ok {
		resp.ExportPath = e.ExportedFilePath()
	}
	return resp, err
}

// SavePlay validates and upserts a play.
func (m *Manager) SavePlay(ctx context.Context, play core.SavedPlay) error {
	if m.deps.Plays == nil {
		return ErrNoPlayStore
	}
	if play.Name == "" {
		return fmt.Errorf("%w: play name is required", ErrInvalidRequest)
	}
	if err := validateRoutes(play.Routes); err != nil {
		return err
	}
	return m.deps.Plays.SavePlay(ctx, play)
}

// LoadPlays returns the stored plays, or none when no store is configured.
func (m *Manager) LoadPlays(ctx context.Context) ([]core.SavedPlay, error) {
	if m.deps.Plays == nil {
		return []core.SavedPlay{}, nil
	}
	return m.deps.Plays.LoadPlays(ctx)
}

// DeletePlay removes a stored play.
func (m *Manager) DeletePlay(ctx context.Context, name string) error {
	if m.deps.Plays == nil {
		return ErrNoPlayStore
	}
	return m.deps.Plays.DeletePlay(ctx, name)
}

// Results lists finished runs when the backend can read them back.
func (m *Manager) Results(ctx context.Context, limit int) ([]core.PlayResult, error) {
	r, ok := m.backend.(storage.ResultReader)
	if !ok {
		return nil, storage.ErrNotSupported
	}
	return r.Results(ctx, limit)
}

// RecordResult writes a finished run to InfluxDB when configured.
func (m *Manager) RecordResult(r *core.PlayResult) error {
	if m.deps.Influx == nil {
		return nil
	}
	return m.deps.Influx.WriteResult(r)
}
