package storage

import (
	"context"
	"errors"

	"github.com/routethat/playsim/pkg/core"
)

var (
	// ErrPlayNotFound is returned when a named play does not exist.
	ErrPlayNotFound = errors.New("play not found")
	// ErrRunNotFound is returned when a run id is unknown to the backend.
	ErrRunNotFound = errors.New("run not found")
	// ErrNotSupported is returned when a backend lacks an optional capability.
	ErrNotSupported = errors.New("operation not supported by storage backend")
)

// Backend is the interface all run recorders must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.PlayRun) error
	EndRun(result *core.PlayResult) error

	// State recording, once per published tick
	RecordFrame(runID string, s *core.Snapshot) error
}

// PlayStore persists named route specifications. Save upserts by name.
type PlayStore interface {
	SavePlay(ctx context.Context, play core.SavedPlay) error
	LoadPlays(ctx context.Context) ([]core.SavedPlay, error)
	DeletePlay(ctx context.Context, name string) error
}

// ResultReader is an optional interface for backends that can list finished runs,
// newest first. limit <= 0 returns all.
type ResultReader interface {
	Results(ctx context.Context, limit int) ([]core.PlayResult, error)
}

// Exportable is an optional interface for backends that write a file per run.
type Exportable interface {
	ExportedFilePath() string
}

// FindPlay returns the play with the given name from a store.
func FindPlay(ctx context.Context, s PlayStore, name string) (core.SavedPlay, error) {
	plays, err := s.LoadPlays(ctx)
	if err != nil {
		return core.SavedPlay{}, err
	}
	for _, p := range plays {
		if p.Name == name {
			return p, nil
		}
	}
	return core.SavedPlay{}, ErrPlayNotFound
}
