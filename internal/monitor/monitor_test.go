package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/routethat/playsim/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingBackend struct{ n int }

func (pendingBackend) Init() error                              { return nil }
func (pendingBackend) Close() error                             { return nil }
func (pendingBackend) StartRun(*core.PlayRun) error             { return nil }
func (pendingBackend) EndRun(*core.PlayResult) error            { return nil }
func (pendingBackend) RecordFrame(string, *core.Snapshot) error { return nil }
func (p pendingBackend) Pending() int                           { return p.n }

func TestGetStatus(t *testing.T) {
	s := NewService(Dependencies{
		Connections: func() (int, int) { return 2, 5 },
	})
	st := s.GetStatus()

	assert.Equal(t, 2, st.LiveSessions)
	assert.Equal(t, 5, st.Watchers)
	assert.Positive(t, st.Goroutines)
	assert.Zero(t, st.PendingWrites)

	s = NewService(Dependencies{Storage: pendingBackend{n: 3}})
	assert.Equal(t, 3, s.GetStatus().PendingWrites)
}

func TestStatusPoint(t *testing.T) {
	st := Status{Time: time.Unix(100, 0), Goroutines: 7, LiveSessions: 1}
	line := influxdb2_write.PointToLineProtocol(StatusPoint(st), time.Second)

	assert.True(t, strings.HasPrefix(line, MeasurementServerStatus+" "))
	assert.Contains(t, line, "goroutines=7i")
	assert.Contains(t, line, "live_sessions=1i")
	assert.Contains(t, line, " 100\n")
}

func TestStartWritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	s := NewService(Dependencies{
		StatusFile:  path,
		Interval:    10 * time.Millisecond,
		Connections: func() (int, int) { return 1, 0 },
	})

	require.NoError(t, s.Start())
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err != nil {
			return false
		}
		var st Status
		return json.Unmarshal(data, &st) == nil && st.LiveSessions == 1
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}
