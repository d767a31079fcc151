// Package memory records runs in memory and exports each finished run to a
// JSON file. It also provides a JSON-file play store.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
)

// Backend stores the active run in memory and exports it to JSON when the run ends
type Backend struct {
	cfg config.MemoryConfig

	run     *core.PlayRun
	frames  []core.Snapshot
	results []core.PlayResult

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run, discarding any unfinished one
func (b *Backend) StartRun(run *core.PlayRun) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	cp := *run
	cp.Routes = run.Routes.Clone()
	b.run = &cp
	b.frames = nil
	return nil
}

// RecordFrame appends a snapshot to the active run
func (b *Backend) RecordFrame(runID string, s *core.Snapshot) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil || b.run.ID != runID {
		return storage.ErrRunNotFound
	}
	frame := *s
	frame.Players = append([]core.PlayerPosition(nil), s.Players...)
	b.frames = append(b.frames, frame)
	return nil
}

// EndRun stores the result and exports the run when an output directory is configured
func (b *Backend) EndRun(result *core.PlayResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil || b.run.ID != result.RunID {
		return storage.ErrRunNotFound
	}
	b.results = append(b.results, *result)

	var err error
	if b.cfg.OutputDir != "" {
		err = b.exportJSON(*result)
	}
	b.run = nil
	b.frames = nil
	return err
}

// Frames returns a copy of the snapshots recorded for the active run
func (b *Backend) Frames() []core.Snapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Snapshot(nil), b.frames...)
}

// Results returns finished runs, newest first
func (b *Backend) Results(_ context.Context, limit int) ([]core.PlayResult, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := append([]core.PlayResult(nil), b.results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndedAt.After(out[j].EndedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ExportedFilePath returns the path of the most recent export
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
