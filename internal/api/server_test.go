package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/routethat/playsim/internal/config"
	"github.com/routethat/playsim/internal/dispatcher"
	"github.com/routethat/playsim/internal/logging"
	"github.com/routethat/playsim/internal/playbook"
	"github.com/routethat/playsim/internal/storage"
	"github.com/routethat/playsim/internal/storage/memory"
	"github.com/routethat/playsim/internal/worker"
	"github.com/routethat/playsim/pkg/core"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	srv    *Server
	http   *httptest.Server
	client *Client
}

type serverOptions struct {
	secret    string
	noBackend bool
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	var backend storage.Backend
	if !opts.noBackend {
		mem := memory.New(config.MemoryConfig{})
		require.NoError(t, mem.Init())
		backend = mem
	}
	workers := worker.NewManager(worker.Dependencies{
		Plays: memory.NewPlayFile(filepath.Join(t.TempDir(), "plays.json")),
		Sim:   config.SimConfig{Seed: 17, MaxTicks: 5000},
	}, backend)

	d, err := dispatcher.New(logging.NewZerologAdapter(zerolog.Nop()))
	require.NoError(t, err)
	workers.RegisterHandlers(d)
	t.Cleanup(d.Close)

	srv := NewServer(config.APIConfig{CORSOrigins: []string{"*"}}, Dependencies{
		Dispatcher: d,
		Workers:    workers,
		Secret:     opts.secret,
	})
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testServer{srv: srv, http: ts, client: NewClient(ts.URL, opts.secret)}
}

func TestServer_Health(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	resp, err := http.Get(ts.http.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
	assert.Contains(t, body["commands"], worker.CmdSimulate)
	assert.NoError(t, ts.client.Healthcheck())
}

func TestServer_Playbook(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	resp, err := http.Get(ts.http.URL + "/api/v1/playbook")
	require.NoError(t, err)
	defer resp.Body.Close()

	var plays []core.SavedPlay
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&plays))
	assert.Len(t, plays, len(playbook.Names()))
}

func TestServer_PlayCRUD(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ctx := context.Background()

	plays, err := ts.client.ListPlays(ctx)
	require.NoError(t, err)
	assert.Empty(t, plays)

	routes := playbook.DefaultFormation()
	require.NoError(t, ts.client.SavePlay(ctx, core.SavedPlay{Name: "Go Route", Routes: routes}))

	plays, err = ts.client.ListPlays(ctx)
	require.NoError(t, err)
	require.Len(t, plays, 1)
	assert.Equal(t, "Go Route", plays[0].Name)
	assert.Len(t, plays[0].Routes, len(routes))

	require.NoError(t, ts.client.DeletePlay(ctx, "Go Route"))
	assert.ErrorIs(t, ts.client.DeletePlay(ctx, "Go Route"), storage.ErrPlayNotFound)
}

func TestServer_SavePlayMalformed(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	resp, err := http.Post(ts.http.URL+"/api/v1/plays", "application/json", strings.NewReader(`{"name":`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var e ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	assert.Equal(t, http.StatusBadRequest, e.Code)
}

func TestServer_Simulate(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ctx := context.Background()

	resp, err := ts.client.Simulate(ctx, worker.SimulateRequest{Play: "Verts"})
	require.NoError(t, err)
	assert.Equal(t, "Verts", resp.Result.PlayName)
	assert.NotEmpty(t, resp.Result.Outcome.Kind)
	assert.True(t, resp.Final.Done())

	results, err := ts.client.Results(ctx, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, resp.Result.RunID, results[0].RunID)
}

func TestServer_SimulateErrors(t *testing.T) {
	ts := newTestServer(t, serverOptions{})
	ctx := context.Background()

	_, err := ts.client.Simulate(ctx, worker.SimulateRequest{Play: "Hail Mary"})
	assert.ErrorIs(t, err, storage.ErrPlayNotFound)

	_, err = ts.client.Simulate(ctx, worker.SimulateRequest{Play: "Verts", Coverage: "cover9"})
	assert.ErrorIs(t, err, worker.ErrInvalidRequest)
}

func TestServer_ResultsNotSupported(t *testing.T) {
	ts := newTestServer(t, serverOptions{noBackend: true})

	_, err := ts.client.Results(context.Background(), 5)
	assert.ErrorIs(t, err, storage.ErrNotSupported)
}

func TestServer_ImportPlays(t *testing.T) {
	ts := newTestServer(t, serverOptions{secret: "s3cret"})

	data, err := json.Marshal(playbook.Builtin())
	require.NoError(t, err)
	file := filepath.Join(t.TempDir(), "playbook.json")
	require.NoError(t, os.WriteFile(file, data, 0644))

	_, err = NewClient(ts.http.URL, "wrong").ImportPlays(file)
	assert.Error(t, err)

	n, err := ts.client.ImportPlays(file)
	require.NoError(t, err)
	assert.Equal(t, len(playbook.Names()), n)

	plays, err := ts.client.ListPlays(context.Background())
	require.NoError(t, err)
	assert.Len(t, plays, n)
}

func TestServer_CORS(t *testing.T) {
	ts := newTestServer(t, serverOptions{})

	req, err := http.NewRequest(http.MethodOptions, ts.http.URL+"/api/v1/plays", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://renderer.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(worker.ErrInvalidRequest))
	assert.Equal(t, http.StatusNotFound, statusFor(storage.ErrPlayNotFound))
	assert.Equal(t, http.StatusNotImplemented, statusFor(worker.ErrNoPlayStore))
	assert.Equal(t, http.StatusGatewayTimeout, statusFor(context.DeadlineExceeded))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}
