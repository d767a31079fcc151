// Package redisstorage keeps saved plays and finished runs in Redis.
// Frames go to a capped stream per run so a renderer can tail them.
package redisstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
)

// TTL constants
const (
	RunTTL        = 24 * time.Hour
	FrameTTL      = 2 * time.Hour
	FrameMaxLen   = 2000
	opTimeout     = 5 * time.Second
	defaultPrefix = "playsim"
)

// Config holds Redis backend settings.
type Config struct {
	URL    string
	Prefix string
}

// Backend implements storage.Backend, storage.PlayStore and storage.ResultReader on Redis.
type Backend struct {
	client *redis.Client
	prefix string
	owned  bool
}

// New parses cfg.URL and creates a client owned by the backend.
func New(cfg Config) (*Backend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	b := NewWithClient(redis.NewClient(opts), cfg.Prefix)
	b.owned = true
	return b, nil
}

// NewWithClient wraps an existing client; Close leaves it open.
func NewWithClient(client *redis.Client, prefix string) *Backend {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Backend{client: client, prefix: prefix}
}

func (b *Backend) playsKey() string           { return b.prefix + ":plays" }
func (b *Backend) playOrderKey() string       { return b.prefix + ":plays:order" }
func (b *Backend) runKey(id string) string    { return fmt.Sprintf("%s:run:%s", b.prefix, id) }
func (b *Backend) framesKey(id string) string { return fmt.Sprintf("%s:run:%s:frames", b.prefix, id) }
func (b *Backend) resultKey(id string) string { return fmt.Sprintf("%s:result:%s", b.prefix, id) }
func (b *Backend) resultsIndexKey() string    { return b.prefix + ":results" }

func opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), opTimeout)
}

// Init verifies connectivity.
func (b *Backend) Init() error {
	ctx, cancel := opContext()
	defer cancel()
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the client if the backend created it.
func (b *Backend) Close() error {
	if !b.owned {
		return nil
	}
	return b.client.Close()
}

// StartRun stores the run description.
func (b *Backend) StartRun(run *core.PlayRun) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("marshaling run: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()
	return b.client.Set(ctx, b.runKey(run.ID), data, RunTTL).Err()
}

// RecordFrame appends the snapshot to the run's frame stream.
func (b *Backend) RecordFrame(runID string, s *core.Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling frame: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()

	key := b.framesKey(runID)
	pipe := b.client.Pipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: key,
		MaxLen: FrameMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":   string(data),
			"tick":   s.Tick,
			"status": s.Status,
		},
	})
	pipe.Expire(ctx, key, FrameTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// EndRun stores the result and indexes it by end time.
func (b *Backend) EndRun(result *core.PlayResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	ctx, cancel := opContext()
	defer cancel()

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, b.resultKey(result.RunID), data, 0)
	pipe.ZAdd(ctx, b.resultsIndexKey(), redis.Z{
		Score:  float64(result.EndedAt.UnixMilli()),
		Member: result.RunID,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// Frames reads back the streamed frames of a run in order.
func (b *Backend) Frames(ctx context.Context, runID string) ([]core.Snapshot, error) {
	msgs, err := b.client.XRange(ctx, b.framesKey(runID), "-", "+").Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.Snapshot, 0, len(msgs))
	for _, msg := range msgs {
		raw, _ := msg.Values["data"].(string)
		var s core.Snapshot
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("unmarshaling frame %s: %w", msg.ID, err)
		}
		out = append(out, s)
	}
	return out, nil
}

// Results returns finished runs, newest first.
func (b *Backend) Results(ctx context.Context, limit int) ([]core.PlayResult, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}
	ids, err := b.client.ZRevRange(ctx, b.resultsIndexKey(), 0, stop).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []core.PlayResult{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = b.resultKey(id)
	}
	values, err := b.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	out := make([]core.PlayResult, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var r core.PlayResult
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("unmarshaling result %s: %w", ids[i], err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SavePlay upserts a play by name, keeping the position of its first save.
func (b *Backend) SavePlay(ctx context.Context, play core.SavedPlay) error {
	data, err := json.Marshal(play.Routes)
	if err != nil {
		return fmt.Errorf("marshaling routes: %w", err)
	}

	pipe := b.client.TxPipeline()
	pipe.HSet(ctx, b.playsKey(), play.Name, data)
	pipe.ZAddNX(ctx, b.playOrderKey(), redis.Z{
		Score:  float64(time.Now().UnixNano()),
		Member: play.Name,
	})
	_, err = pipe.Exec(ctx)
	return err
}

// LoadPlays returns every saved play in first-save order.
func (b *Backend) LoadPlays(ctx context.Context) ([]core.SavedPlay, error) {
	names, err := b.client.ZRange(ctx, b.playOrderKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []core.SavedPlay{}, nil
	}

	values, err := b.client.HMGet(ctx, b.playsKey(), names...).Result()
	if err != nil {
		return nil, err
	}

	plays := make([]core.SavedPlay, 0, len(names))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		routes := core.RouteSpec{}
		if err := json.Unmarshal([]byte(raw), &routes); err != nil {
			return nil, fmt.Errorf("unmarshaling play %q: %w", names[i], err)
		}
		plays = append(plays, core.SavedPlay{Name: names[i], Routes: routes})
	}
	return plays, nil
}

// DeletePlay removes a play by name.
func (b *Backend) DeletePlay(ctx context.Context, name string) error {
	pipe := b.client.TxPipeline()
	del := pipe.HDel(ctx, b.playsKey(), name)
	pipe.ZRem(ctx, b.playOrderKey(), name)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	if del.Val() == 0 {
		return storage.ErrPlayNotFound
	}
	return nil
}
