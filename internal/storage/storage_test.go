package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type listStore struct {
	plays []core.SavedPlay
	err   error
}

func (s *listStore) SavePlay(context.Context, core.SavedPlay) error { return nil }
func (s *listStore) DeletePlay(context.Context, string) error       { return nil }
func (s *listStore) LoadPlays(context.Context) ([]core.SavedPlay, error) {
	return s.plays, s.err
}

func TestFindPlay(t *testing.T) {
	s := &listStore{plays: []core.SavedPlay{{Name: "Verts"}, {Name: "Flood"}}}

	p, err := storage.FindPlay(context.Background(), s, "Flood")
	require.NoError(t, err)
	assert.Equal(t, "Flood", p.Name)

	_, err = storage.FindPlay(context.Background(), s, "flood")
	assert.ErrorIs(t, err, storage.ErrPlayNotFound)
}

func TestFindPlay_LoadError(t *testing.T) {
	boom := errors.New("boom")
	_, err := storage.FindPlay(context.Background(), &listStore{err: boom}, "Verts")
	assert.ErrorIs(t, err, boom)
}
