package main

import (
	"path/filepath"
	"testing"

	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/logging"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/internal/storage/memory"
	sqlitestorage "github.com/routethat/playsim/internal/storage/sqlite"
	wsstorage "github.com/routethat/playsim/internal/storage/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	SlogManager = logging.NewSlogManager()
	Logger = SlogManager.Logger()
}

func TestHttpToWS(t *testing.T) {
	assert.Equal(t, "ws://localhost:8080/api/v1/ingest", httpToWS("http://localhost:8080/api/v1/ingest/"))
	assert.Equal(t, "wss://example.com", httpToWS("https://example.com"))
	assert.Equal(t, "ws://already", httpToWS("ws://already"))
}

func TestCreateStorageBackend(t *testing.T) {
	dir := t.TempDir()
	cfg := config.StorageConfig{
		Memory: config.MemoryConfig{PlaysFile: filepath.Join(dir, "plays.json")},
	}

	cfg.Type = "memory"
	b, err := createStorageBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)
	assert.IsType(t, &memory.PlayFile{}, createPlayStore(cfg, b).Store())

	cfg.Type = "sqlite"
	b, err = createStorageBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &sqlitestorage.Backend{}, b)
	_, ok := createPlayStore(cfg, b).Store().(*sqlitestorage.Backend)
	assert.True(t, ok)

	cfg.Type = "websocket"
	b, err = createStorageBackend(cfg)
	require.NoError(t, err)
	assert.IsType(t, &wsstorage.Backend{}, b)
	assert.IsType(t, &memory.PlayFile{}, createPlayStore(cfg, b).Store())

	cfg.Type = "floppy"
	_, err = createStorageBackend(cfg)
	assert.Error(t, err)

	var ps storage.PlayStore = createPlayStore(cfg, nil)
	assert.NotNil(t, ps)
}
