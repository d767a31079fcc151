package websocket

import (
	"log/slog"
	"time"

	"github.com/routethat/playsim/pkg/core"
	"github.com/routethat/playsim/pkg/streaming"
)

const defaultAckTimeout = 10 * time.Second

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string

	AckTimeout    time.Duration // default 10s
	ReconnectBase time.Duration // first reconnect backoff, default 1s
}

// Backend streams runs to a renderer: start_play and end_play wait for an ack,
// frames are fire-and-forget. It does not implement storage.PlayStore.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if cfg.AckTimeout <= 0 {
		cfg.AckTimeout = defaultAckTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "storage.websocket"), cfg.ReconnectBase),
		cfg:  cfg,
	}
}

// Init connects to the renderer.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the renderer.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped returns how many messages were dropped because the send buffer was full.
func (b *Backend) Dropped() int64 {
	return b.conn.dropped.Load()
}

// StartRun sends start_play and waits for the renderer's ack.
func (b *Backend) StartRun(run *core.PlayRun) error {
	data, err := streaming.Marshal(streaming.TypeStartPlay, streaming.StartPlayPayload{Run: run})
	if err != nil {
		return err
	}

	b.conn.mu.Lock()
	b.conn.cachedStart = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartPlay, b.cfg.AckTimeout)
}

// RecordFrame queues a frame for sending.
func (b *Backend) RecordFrame(runID string, s *core.Snapshot) error {
	data, err := streaming.Marshal(streaming.TypeFrame, streaming.FramePayload{RunID: runID, Snapshot: s})
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// EndRun sends end_play and waits for the renderer's ack.
func (b *Backend) EndRun(result *core.PlayResult) error {
	data, err := streaming.Marshal(streaming.TypeEndPlay, streaming.EndPlayPayload{Result: result})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndPlay, b.cfg.AckTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStart = nil
	b.conn.mu.Unlock()

	return err
}
