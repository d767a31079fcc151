package main

import (
	"fmt"
	"strings"

	"github.com/routethat/playsim/internal/cache"
	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/storage"
	gormstorage "github.com/routethat/playsim/internal/storage/gorm"
	"github.com/routethat/playsim/internal/storage/memory"
	redisstorage "github.com/routethat/playsim/internal/storage/redis"
	sqlitestorage "github.com/routethat/playsim/internal/storage/sqlite"
	wsstorage "github.com/routethat/playsim/internal/storage/websocket"
	"github.com/spf13/viper"
)

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend initialized")
		return gormstorage.New(gormstorage.Dependencies{
			LogManager: SlogManager,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, SlogManager)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend initialized", "dumpPath", storageCfg.SQLite.DumpPath)
		return backend, nil

	case "redis":
		backend, err := redisstorage.New(redisstorage.Config{
			URL:    viper.GetString("redis.url"),
			Prefix: viper.GetString("redis.prefix"),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis backend: %w", err)
		}
		Logger.Info("Redis storage backend initialized")
		return backend, nil

	case "websocket":
		wsURL := httpToWS(viper.GetString("stream.url"))
		Logger.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: viper.GetString("stream.secret"),
		}, Logger), nil

	case "memory", "":
		Logger.Info("Memory storage backend initialized")
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// createPlayStore uses the backend when it can persist plays and the JSON
// plays file otherwise, behind a read-through cache.
func createPlayStore(storageCfg config.StorageConfig, backend storage.Backend) *cache.PlayCache {
	if ps, ok := backend.(storage.PlayStore); ok {
		return cache.NewPlayCache(ps)
	}
	return cache.NewPlayCache(memory.NewPlayFile(storageCfg.Memory.PlaysFile))
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}
