package websocket

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/pkg/core"
	"github.com/routethat/playsim/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*Backend)(nil)

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
	secrets  []string
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]streaming.Envelope(nil), m.messages...)
}

func (m *messageLog) count(msgType string) int {
	n := 0
	for _, env := range m.all() {
		if env.Type == msgType {
			n++
		}
	}
	return n
}

// testServer upgrades to WebSocket, records received envelopes and acks
// start_play/end_play unless ack is false.
func testServer(t *testing.T, ack bool) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ml.mu.Lock()
		ml.secrets = append(ml.secrets, r.URL.Query().Get("secret"))
		ml.mu.Unlock()

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			env, err := streaming.Decode(msg, nil)
			if err != nil {
				continue
			}
			ml.add(env)

			if ack && (env.Type == streaming.TypeStartPlay || env.Type == streaming.TypeEndPlay) {
				if err := c.WriteMessage(ws.TextMessage, streaming.Ack(env.Type)); err != nil {
					return
				}
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv, ml
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t, true)

	b := New(Config{URL: wsURL(srv), Secret: "test"}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	run := &core.PlayRun{ID: "run-1", PlayName: "Verts"}
	require.NoError(t, b.StartRun(run))
	require.NoError(t, b.RecordFrame("run-1", &core.Snapshot{Tick: 1, Status: "PENDING"}))
	require.NoError(t, b.RecordFrame("run-1", &core.Snapshot{Tick: 2, Status: "PENDING"}))
	require.NoError(t, b.EndRun(&core.PlayResult{RunID: "run-1", Status: "SACK"}))

	msgs := ml.all()
	require.Len(t, msgs, 4)
	assert.Equal(t, streaming.TypeStartPlay, msgs[0].Type)
	assert.Equal(t, streaming.TypeFrame, msgs[1].Type)
	assert.Equal(t, streaming.TypeFrame, msgs[2].Type)
	assert.Equal(t, streaming.TypeEndPlay, msgs[3].Type)
	assert.Equal(t, []string{"test"}, ml.secrets)
	assert.Zero(t, b.Dropped())

	var sp streaming.StartPlayPayload
	require.NoError(t, json.Unmarshal(msgs[0].Payload, &sp))
	assert.Equal(t, "Verts", sp.Run.PlayName)

	b.conn.mu.Lock()
	assert.Nil(t, b.conn.cachedStart)
	b.conn.mu.Unlock()
}

func TestStartRun_AckTimeout(t *testing.T) {
	srv, _ := testServer(t, false)

	b := New(Config{URL: wsURL(srv), AckTimeout: 50 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()

	err := b.StartRun(&core.PlayRun{ID: "run-1"})
	assert.ErrorContains(t, err, "timeout waiting for ack")
}

func TestInit_DialFailure(t *testing.T) {
	b := New(Config{URL: "ws://127.0.0.1:1/nowhere"}, nil)
	assert.ErrorContains(t, b.Init(), "websocket dial failed")
	assert.NoError(t, b.Close())
}

func TestInit_BadURL(t *testing.T) {
	b := New(Config{URL: "://bad"}, nil)
	assert.ErrorContains(t, b.Init(), "invalid websocket URL")
}

func TestReconnectReplaysStartPlay(t *testing.T) {
	ml := &messageLog{}
	var mu sync.Mutex
	var conns []*ws.Conn

	upgrader := ws.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		conns = append(conns, c)
		mu.Unlock()
		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}
			env, err := streaming.Decode(msg, nil)
			if err != nil {
				continue
			}
			ml.add(env)
			if env.Type == streaming.TypeStartPlay {
				_ = c.WriteMessage(ws.TextMessage, streaming.Ack(env.Type))
			}
		}
	}))
	defer srv.Close()

	b := New(Config{URL: wsURL(srv), ReconnectBase: 10 * time.Millisecond}, nil)
	require.NoError(t, b.Init())
	defer b.Close()
	require.NoError(t, b.StartRun(&core.PlayRun{ID: "run-1"}))

	// drop the first server-side connection
	mu.Lock()
	require.Len(t, conns, 1)
	_ = conns[0].Close()
	mu.Unlock()

	assert.Eventually(t, func() bool {
		return ml.count(streaming.TypeStartPlay) == 2
	}, 2*time.Second, 10*time.Millisecond)
}
