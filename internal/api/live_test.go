package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/routethat/playsim/internal/logging"
	wsstorage "github.com/routethat/playsim/internal/storage/websocket"
	"github.com/routethat/playsim/pkg/core"
	"github.com/routethat/playsim/pkg/streaming"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func wsURL(ts *testServer, path string) string {
	return "ws" + strings.TrimPrefix(ts.http.URL, "http") + path
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(15 * time.Second))
	return conn
}

func sendMsg(t *testing.T, conn *websocket.Conn, msgType string, payload any) {
	t.Helper()
	data, err := streaming.Marshal(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

// next reads one message, returning its type, its ack target when it is an
// ack, and the raw bytes.
func next(t *testing.T, conn *websocket.Conn) (string, string, []byte) {
	t.Helper()
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	env, err := streaming.Decode(data, nil)
	require.NoError(t, err)
	if env.Type == streaming.TypeAck {
		var ack streaming.AckMessage
		require.NoError(t, json.Unmarshal(data, &ack))
		return env.Type, ack.For, data
	}
	return env.Type, "", data
}

// readRun collects frames until end_play, noting acks along the way.
func readRun(t *testing.T, conn *websocket.Conn, acks map[string]int) ([]core.Snapshot, *core.PlayResult) {
	t.Helper()
	var frames []core.Snapshot
	for {
		typ, ackFor, data := next(t, conn)
		switch typ {
		case streaming.TypeAck:
			acks[ackFor]++
		case streaming.TypeFrame:
			var f streaming.FramePayload
			_, err := streaming.Decode(data, &f)
			require.NoError(t, err)
			frames = append(frames, *f.Snapshot)
		case streaming.TypeEndPlay:
			var end streaming.EndPlayPayload
			_, err := streaming.Decode(data, &end)
			require.NoError(t, err)
			return frames, end.Result
		case streaming.TypeError:
			t.Fatalf("unexpected error message: %s", data)
		}
	}
}

func TestLive_PlayToEnd(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	conn := dial(t, wsURL(ts, "/api/v1/live"))

	sendMsg(t, conn, streaming.TypePlay, streaming.PlayPayload{Play: "Verts", SpeedMultiplier: 8})

	acks := map[string]int{}
	frames, result := readRun(t, conn, acks)

	assert.Equal(t, 1, acks[streaming.TypePlay])
	require.NotNil(t, result)
	assert.NotEmpty(t, result.Outcome.Kind)
	require.Len(t, frames, result.Ticks+1)
	for i, f := range frames {
		assert.Equal(t, i, f.Tick)
	}
}

func TestLive_PauseResumeReplay(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	conn := dial(t, wsURL(ts, "/api/v1/live"))

	sendMsg(t, conn, streaming.TypePlay, streaming.PlayPayload{Play: "Flood", SpeedMultiplier: 8, Seed: 4})

	// wait for a few frames, then pause
	lastTick := -1
	for lastTick < 3 {
		typ, _, data := next(t, conn)
		if typ == streaming.TypeFrame {
			var f streaming.FramePayload
			_, err := streaming.Decode(data, &f)
			require.NoError(t, err)
			lastTick = f.Snapshot.Tick
		}
	}
	sendMsg(t, conn, streaming.TypePause, nil)

	// frames queued before the pause still arrive ahead of its ack
	for {
		typ, ackFor, data := next(t, conn)
		if typ == streaming.TypeAck && ackFor == streaming.TypePause {
			break
		}
		if typ == streaming.TypeFrame {
			var f streaming.FramePayload
			_, err := streaming.Decode(data, &f)
			require.NoError(t, err)
			lastTick = f.Snapshot.Tick
		}
	}

	sendMsg(t, conn, streaming.TypeResume, nil)
	acks := map[string]int{}
	frames, first := readRun(t, conn, acks)
	assert.Equal(t, 1, acks[streaming.TypeResume])
	require.NotEmpty(t, frames)
	assert.Equal(t, lastTick+1, frames[0].Tick)
	require.NotNil(t, first)

	sendMsg(t, conn, streaming.TypeReplay, nil)
	frames, second := readRun(t, conn, acks)
	assert.Equal(t, 1, acks[streaming.TypeReplay])
	require.NotEmpty(t, frames)
	assert.Equal(t, 0, frames[0].Tick)
	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Outcome, second.Outcome)
	assert.Equal(t, first.Ticks, second.Ticks)
}

func TestLive_Errors(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	conn := dial(t, wsURL(ts, "/api/v1/live"))

	for _, msgType := range []string{streaming.TypePause, "bogus"} {
		sendMsg(t, conn, msgType, nil)
		typ, _, data := next(t, conn)
		require.Equal(t, streaming.TypeError, typ)

		var e streaming.ErrorPayload
		_, err := streaming.Decode(data, &e)
		require.NoError(t, err)
		assert.NotEmpty(t, e.Message)
	}

	sendMsg(t, conn, streaming.TypePlay, streaming.PlayPayload{Play: "Hail Mary"})
	typ, _, data := next(t, conn)
	require.Equal(t, streaming.TypeError, typ)
	assert.Contains(t, string(data), "play not found")
}

func TestIngest_RelaysToWatchers(t *testing.T) {
	ts := newTestServer(t, serverOptions{secret: "s3cret"})
	watcher := dial(t, wsURL(ts, "/api/v1/watch"))
	require.Eventually(t, func() bool { _, w := ts.srv.Connections(); return w == 1 }, 2*time.Second, 10*time.Millisecond)

	backend := wsstorage.New(wsstorage.Config{
		URL:        wsURL(ts, "/api/v1/ingest"),
		Secret:     "s3cret",
		AckTimeout: 2 * time.Second,
	}, logging.NewSlogManager().Logger())
	require.NoError(t, backend.Init())
	defer backend.Close()

	run := &core.PlayRun{ID: "run-1", PlayName: "Verts"}
	require.NoError(t, backend.StartRun(run))
	require.NoError(t, backend.RecordFrame(run.ID, &core.Snapshot{Tick: 1, Status: "PENDING"}))
	require.NoError(t, backend.EndRun(&core.PlayResult{RunID: run.ID, Status: "SACK"}))

	var types []string
	for len(types) < 3 {
		typ, _, _ := next(t, watcher)
		types = append(types, typ)
	}
	assert.Equal(t, []string{streaming.TypeStartPlay, streaming.TypeFrame, streaming.TypeEndPlay}, types)
}

func TestIngest_RejectsBadSecret(t *testing.T) {
	ts := newTestServer(t, serverOptions{secret: "s3cret"})

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/api/v1/ingest?secret=nope"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
