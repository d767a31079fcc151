package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/routethat/playsim/internal/session"
	"github.com/routethat/playsim/internal/worker"
	"github.com/routethat/playsim/pkg/core"
	"github.com/routethat/playsim/pkg/streaming"
)

var errNoPlay = errors.New("no play loaded")

// liveSession plays one session at a time in real time for a single viewer.
// It doubles as the session's observer, turning lifecycle callbacks into
// stream envelopes.
type liveSession struct {
	srv  *Server
	peer *peer
	ctx  context.Context

	mu      sync.Mutex
	sess    *session.Session
	cancel  context.CancelFunc
	stopped chan struct{}
}

// handleLive runs plays on request and streams their frames back.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ls := &liveSession{srv: s, peer: newPeer(conn), ctx: ctx}
	s.live.add(ls.peer)
	defer s.live.remove(ls.peer)

	go ls.peer.writePump()
	ls.peer.readPump(ls.handle)
	ls.stop()
}

func (l *liveSession) handle(data []byte) {
	env, err := streaming.Decode(data, nil)
	if err != nil {
		l.fail(err)
		return
	}

	switch env.Type {
	case streaming.TypePlay:
		var p streaming.PlayPayload
		if _, err := streaming.Decode(data, &p); err != nil {
			l.fail(err)
			return
		}
		err = l.load(p)
	case streaming.TypePause:
		err = l.pause()
	case streaming.TypeResume:
		err = l.resume()
	case streaming.TypeReplay:
		err = l.replay()
	default:
		err = fmt.Errorf("unknown message type %q", env.Type)
	}

	if err != nil {
		l.fail(err)
		return
	}
	l.peer.deliver(streaming.Ack(env.Type))
}

func (l *liveSession) load(p streaming.PlayPayload) error {
	req := worker.SimulateRequest{
		Play:            p.Play,
		Routes:          p.Routes,
		Seed:            p.Seed,
		SpeedMultiplier: p.SpeedMultiplier,
		Coverage:        p.Coverage,
	}
	play, err := l.srv.deps.Workers.LookupRequest(l.ctx, req)
	if err != nil {
		return err
	}

	l.stop()
	l.mu.Lock()
	l.sess = l.srv.deps.Workers.NewSession(play, req, l)
	l.mu.Unlock()
	l.start()
	return nil
}

func (l *liveSession) pause() error {
	if l.current() == nil {
		return errNoPlay
	}
	l.stop()
	return nil
}

func (l *liveSession) resume() error {
	if l.current() == nil {
		return errNoPlay
	}
	l.start()
	return nil
}

func (l *liveSession) replay() error {
	sess := l.current()
	if sess == nil {
		return errNoPlay
	}
	l.stop()
	if err := sess.Replay(); err != nil {
		return err
	}
	l.start()
	return nil
}

func (l *liveSession) current() *session.Session {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sess
}

// start plays the current session in the background unless it already runs.
func (l *liveSession) start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil || l.sess == nil {
		return
	}

	ctx, cancel := context.WithCancel(l.ctx)
	stopped := make(chan struct{})
	l.cancel, l.stopped = cancel, stopped

	sess := l.sess
	go func() {
		defer close(stopped)
		_, err := sess.Play(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			l.fail(err)
		}
	}()
}

// stop pauses the running session and waits for its loop to exit.
func (l *liveSession) stop() {
	l.mu.Lock()
	cancel, stopped := l.cancel, l.stopped
	l.cancel, l.stopped = nil, nil
	l.mu.Unlock()

	if cancel != nil {
		cancel()
		<-stopped
	}
}

func (l *liveSession) fail(err error) {
	data, mErr := streaming.Marshal(streaming.TypeError, streaming.ErrorPayload{Message: err.Error()})
	if mErr != nil {
		return
	}
	l.peer.deliver(data)
}

func (l *liveSession) emit(msgType string, payload any) error {
	data, err := streaming.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	if !l.peer.deliver(data) {
		return errors.New("viewer disconnected")
	}
	return nil
}

// StartRun implements session.Observer.
func (l *liveSession) StartRun(run *core.PlayRun) error {
	return l.emit(streaming.TypeStartPlay, streaming.StartPlayPayload{Run: run})
}

// RecordFrame implements session.Observer.
func (l *liveSession) RecordFrame(runID string, snap *core.Snapshot) error {
	return l.emit(streaming.TypeFrame, streaming.FramePayload{RunID: runID, Snapshot: snap})
}

// EndRun implements session.Observer.
func (l *liveSession) EndRun(result *core.PlayResult) error {
	return l.emit(streaming.TypeEndPlay, streaming.EndPlayPayload{Result: result})
}
