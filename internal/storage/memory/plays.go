package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
)

// PlayFile is a storage.PlayStore backed by a single JSON array on disk,
// kept in the order plays were first saved.
type PlayFile struct {
	path string
	mu   sync.Mutex
}

// NewPlayFile creates a play store at path. The file is created on first save.
func NewPlayFile(path string) *PlayFile {
	return &PlayFile{path: path}
}

func (f *PlayFile) read() ([]core.SavedPlay, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return []core.SavedPlay{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read plays file: %w", err)
	}
	if len(data) == 0 {
		return []core.SavedPlay{}, nil
	}
	var plays []core.SavedPlay
	if err := json.Unmarshal(data, &plays); err != nil {
		return nil, fmt.Errorf("decode plays file %s: %w", f.path, err)
	}
	return plays, nil
}

func (f *PlayFile) write(plays []core.SavedPlay) error {
	if dir := filepath.Dir(f.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create plays dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(plays, "", "  ")
	if err != nil {
		return fmt.Errorf("encode plays: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write plays file: %w", err)
	}
	return os.Rename(tmp, f.path)
}

// SavePlay upserts a play by name.
func (f *PlayFile) SavePlay(_ context.Context, play core.SavedPlay) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	plays, err := f.read()
	if err != nil {
		return err
	}
	play.Routes = play.Routes.Clone()
	for i := range plays {
		if plays[i].Name == play.Name {
			plays[i] = play
			return f.write(plays)
		}
	}
	return f.write(append(plays, play))
}

// LoadPlays returns every saved play.
func (f *PlayFile) LoadPlays(context.Context) ([]core.SavedPlay, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// DeletePlay removes a play by name.
func (f *PlayFile) DeletePlay(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	plays, err := f.read()
	if err != nil {
		return err
	}
	for i := range plays {
		if plays[i].Name == name {
			return f.write(append(plays[:i], plays[i+1:]...))
		}
	}
	return storage.ErrPlayNotFound
}
