package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/routethat/playsim/internal/engine"
	"github.com/routethat/playsim/internal/logging"
	"github.com/routethat/playsim/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/routethat/playsim/internal/session"

// ErrTickLimit is returned when a run hits MaxTicks before reaching an outcome.
var ErrTickLimit = errors.New("tick limit reached before the play ended")

// ErrRunning is returned when a second loop is started on a busy session.
var ErrRunning = errors.New("session is already running")

// Observer receives the lifecycle of every run. storage.Backend satisfies it.
type Observer interface {
	StartRun(run *core.PlayRun) error
	RecordFrame(runID string, snap *core.Snapshot) error
	EndRun(result *core.PlayResult) error
}

// Options controls the clock and randomness of a session.
type Options struct {
	SpeedMultiplier float64
	Seed            int64 // 0 seeds from the clock
	MaxTicks        int   // 0 means unlimited
	Scheme          core.CoverageScheme
	Interval        time.Duration // wall time between realtime ticks
}

// Dependencies holds everything a session reports to.
type Dependencies struct {
	LogManager *logging.SlogManager
	Meter      metric.Meter
	Observers  []Observer
}

// Session drives one play through its director, one tick at a time.
// Each tick replaces the published snapshot atomically; Snapshot never sees
// a half-built state. Cancelling the context passed to Run or Play pauses
// between ticks and a later call resumes from the same snapshot.
type Session struct {
	play      core.SavedPlay
	opts      Options
	observers []Observer
	log       *slog.Logger
	runCtx    *logging.RunContext

	loopMu   sync.Mutex
	director *engine.Director
	run      *core.PlayRun
	result   *core.PlayResult
	snap     atomic.Pointer[core.Snapshot]

	ticks    metric.Int64Counter
	outcomes metric.Int64Counter
}

// New compiles the play and draws its defense.
func New(play core.SavedPlay, opts Options, deps Dependencies) *Session {
	if opts.SpeedMultiplier <= 0 {
		opts.SpeedMultiplier = 1
	}
	if opts.Interval <= 0 {
		tickMs := engine.BaseTickMs
		opts.Interval = time.Duration(tickMs * float64(time.Millisecond))
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}

	s := &Session{
		play:      core.SavedPlay{Name: play.Name, Routes: play.Routes.Clone()},
		opts:      opts,
		observers: deps.Observers,
		log:       slog.Default(),
		runCtx:    &logging.RunContext{},
	}
	if deps.LogManager != nil {
		s.log = deps.LogManager.Logger()
		s.runCtx = deps.LogManager.Run()
	}
	s.initMetrics(deps.Meter)

	var popts []engine.PlayOption
	if opts.Scheme != "" {
		popts = append(popts, engine.WithScheme(opts.Scheme))
	}
	s.director = engine.NewPlay(s.play.Routes, rand.New(rand.NewSource(opts.Seed)), popts...)
	s.publish(s.director.Snapshot())
	return s
}

func (s *Session) initMetrics(meter metric.Meter) {
	if meter == nil {
		meter = noop.NewMeterProvider().Meter(instrumentationName)
	}
	var err error
	if s.ticks, err = meter.Int64Counter("session.ticks",
		metric.WithDescription("Simulation ticks advanced"),
	); err != nil {
		s.log.Warn("failed to create tick counter", "error", err)
	}
	if s.outcomes, err = meter.Int64Counter("session.outcomes",
		metric.WithDescription("Finished plays by outcome"),
	); err != nil {
		s.log.Warn("failed to create outcome counter", "error", err)
	}
}

// Snapshot returns the most recently published state.
func (s *Session) Snapshot() core.Snapshot {
	return *s.snap.Load()
}

// Director exposes the compiled play.
func (s *Session) Director() *engine.Director {
	return s.director
}

// Options returns the effective options, with defaults applied.
func (s *Session) Options() Options {
	return s.opts
}

// Result returns the summary of the last finished run, or nil.
func (s *Session) Result() *core.PlayResult {
	s.loopMu.Lock()
	defer s.loopMu.Unlock()
	return s.result
}

// Run steps the play as fast as possible until it ends, the tick limit is
// hit or ctx is cancelled.
func (s *Session) Run(ctx context.Context) (*core.PlayResult, error) {
	return s.loop(ctx, nil)
}

// Play steps the play once per Interval of wall time.
func (s *Session) Play(ctx context.Context) (*core.PlayResult, error) {
	ticker := time.NewTicker(s.opts.Interval)
	defer ticker.Stop()
	return s.loop(ctx, ticker.C)
}

// Replay rewinds to t=0 with the same roster and defense. The next Run or
// Play records a new run.
func (s *Session) Replay() error {
	if !s.loopMu.TryLock() {
		return ErrRunning
	}
	defer s.loopMu.Unlock()

	s.director.Reset()
	s.run, s.result = nil, nil
	s.publish(s.director.Snapshot())
	return nil
}

func (s *Session) loop(ctx context.Context, tick <-chan time.Time) (*core.PlayResult, error) {
	if !s.loopMu.TryLock() {
		return nil, ErrRunning
	}
	defer s.loopMu.Unlock()

	if s.result != nil {
		return s.result, nil
	}
	if s.run == nil {
		if err := s.begin(); err != nil {
			return nil, err
		}
	}

	dt := engine.BaseTickMs * s.opts.SpeedMultiplier
	for !s.director.Done() {
		if s.opts.MaxTicks > 0 && s.director.Snapshot().Tick >= s.opts.MaxTicks {
			s.finish()
			return s.result, ErrTickLimit
		}

		if tick != nil {
			select {
			case <-ctx.Done():
				s.log.Debug("Run paused", "tick", s.director.Snapshot().Tick)
				return nil, ctx.Err()
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			s.log.Debug("Run paused", "tick", s.director.Snapshot().Tick)
			return nil, err
		}

		s.step(ctx, dt)
	}

	s.finish()
	return s.result, nil
}

func (s *Session) begin() error {
	s.run = &core.PlayRun{
		ID:              uuid.NewString(),
		PlayName:        s.play.Name,
		Seed:            s.opts.Seed,
		SpeedMultiplier: s.opts.SpeedMultiplier,
		StartedAt:       time.Now().UTC(),
		Routes:          s.play.Routes,
		Defense:         s.director.Defense(),
		Assignment:      s.director.Assignment(),
	}
	s.runCtx.Begin(s.run.ID, s.run.PlayName)
	s.log.Info("Run started",
		"coverage", s.run.Assignment.Scheme,
		"seed", s.run.Seed,
		"speedMultiplier", s.run.SpeedMultiplier,
	)

	for _, o := range s.observers {
		if err := o.StartRun(s.run); err != nil {
			s.runCtx.End()
			s.run = nil
			return fmt.Errorf("failed to start run: %w", err)
		}
	}
	first := s.director.Snapshot()
	s.record(&first)
	return nil
}

func (s *Session) step(ctx context.Context, dt float64) {
	prev := s.director.Snapshot()
	next := s.director.Step(dt)
	s.publish(next)
	s.runCtx.Advance(next.ElapsedMs)
	s.ticks.Add(ctx, 1)

	if next.Ball.Phase != prev.Ball.Phase {
		s.log.Debug("Ball phase changed",
			"from", prev.Ball.Phase,
			"to", next.Ball.Phase,
			"status", next.Status,
		)
	}
	s.record(&next)
}

func (s *Session) record(snap *core.Snapshot) {
	for _, o := range s.observers {
		if err := o.RecordFrame(s.run.ID, snap); err != nil {
			s.log.Warn("Failed to record frame", "tick", snap.Tick, "error", err)
		}
	}
}

func (s *Session) finish() {
	final := s.director.Snapshot()
	s.result = &core.PlayResult{
		RunID:       s.run.ID,
		PlayName:    s.run.PlayName,
		Coverage:    s.run.Assignment.Scheme,
		Status:      final.Status,
		Carrier:     final.Ball.Carrier,
		YardsGained: final.YardsGained,
		ElapsedMs:   final.ElapsedMs,
		Ticks:       final.Tick,
		EndedAt:     time.Now().UTC(),
	}
	if final.Outcome != nil {
		s.result.Outcome = *final.Outcome
	}
	if t, ok := s.director.Target(); ok {
		s.result.Target = t
	}

	for _, o := range s.observers {
		if err := o.EndRun(s.result); err != nil {
			s.log.Warn("Failed to end run", "error", err)
		}
	}
	s.outcomes.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("outcome", string(s.result.Outcome.Kind)),
		attribute.String("coverage", string(s.result.Coverage)),
	))
	s.log.Info("Run finished",
		"status", s.result.Status,
		"yards", s.result.YardsGained,
		"ticks", s.result.Ticks,
	)
	s.runCtx.End()
}

func (s *Session) publish(snap core.Snapshot) {
	s.snap.Store(&snap)
}
