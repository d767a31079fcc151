package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) log(level, msg string, kv ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, kv))
}

func (l *testLogger) Debug(msg string, kv ...any) { l.log("DEBUG", msg, kv...) }
func (l *testLogger) Info(msg string, kv ...any)  { l.log("INFO", msg, kv...) }
func (l *testLogger) Error(msg string, kv ...any) { l.log("ERROR", msg, kv...) }

func (l *testLogger) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	t.Helper()
	logger := &testLogger{}
	d, err := New(logger)
	require.NoError(t, err)
	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("plays.list", func(_ context.Context, c Command) (any, error) {
		return []string{"verts"}, nil
	})

	result, err := d.Dispatch(context.Background(), Command{Name: "plays.list"})
	require.NoError(t, err)
	assert.Equal(t, []string{"verts"}, result)
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(context.Background(), Command{Name: "nope"})
	assert.ErrorContains(t, err, "unknown command")
}

func TestDispatcher_FillsTimestamp(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got time.Time
	d.Register("ts", func(_ context.Context, c Command) (any, error) {
		got = c.Timestamp
		return nil, nil
	})

	_, err := d.Dispatch(context.Background(), Command{Name: "ts"})
	require.NoError(t, err)
	assert.False(t, got.IsZero())
}

func TestCommand_Decode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	c, err := NewCommand("plays.save", payload{Name: "Verts"})
	require.NoError(t, err)

	var p payload
	require.NoError(t, c.Decode(&p))
	assert.Equal(t, "Verts", p.Name)

	empty, err := NewCommand("plays.list", nil)
	require.NoError(t, err)
	assert.Error(t, empty.Decode(&p))

	bad := Command{Name: "x", Payload: []byte("{")}
	assert.ErrorContains(t, bad.Decode(&p), "decode payload")
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("results.record", func(_ context.Context, c Command) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(context.Background(), Command{Name: "results.record"})
		require.NoError(t, err)
		assert.Equal(t, Queued, result)
	}

	d.Close()
	assert.Equal(t, int32(3), processed.Load())
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("full", func(_ context.Context, c Command) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(2))

	ctx := context.Background()
	_, err := d.Dispatch(ctx, Command{Name: "full"})
	require.NoError(t, err)
	<-started

	_, err = d.Dispatch(ctx, Command{Name: "full"})
	require.NoError(t, err)
	_, err = d.Dispatch(ctx, Command{Name: "full"})
	require.NoError(t, err)

	_, err = d.Dispatch(ctx, Command{Name: "full"})
	assert.ErrorContains(t, err, "queue full")

	close(block)
	d.Close()
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("blocking", func(_ context.Context, c Command) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	ctx := context.Background()
	_, _ = d.Dispatch(ctx, Command{Name: "blocking"})
	<-started
	_, _ = d.Dispatch(ctx, Command{Name: "blocking"})

	done := make(chan struct{})
	go func() {
		_, _ = d.Dispatch(ctx, Command{Name: "blocking"})
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
	}

	close(block)
	<-done
	d.Close()
}

func TestDispatcher_BlockingHonoursContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{}, 1)
	block := make(chan struct{})
	d.Register("blocking", func(_ context.Context, c Command) (any, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	_, _ = d.Dispatch(context.Background(), Command{Name: "blocking"})
	<-started
	_, _ = d.Dispatch(context.Background(), Command{Name: "blocking"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := d.Dispatch(ctx, Command{Name: "blocking"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(block)
	d.Close()
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("logged", func(_ context.Context, c Command) (any, error) {
		return "ok", nil
	}, Logged())

	_, err := d.Dispatch(context.Background(), Command{Name: "logged"})
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(logger.snapshot()), 2)
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("broken", func(_ context.Context, c Command) (any, error) {
		return nil, errors.New("boom")
	}, Logged())

	_, err := d.Dispatch(context.Background(), Command{Name: "broken"})
	require.Error(t, err)

	var hasError bool
	for _, msg := range logger.snapshot() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
		}
	}
	assert.True(t, hasError, "expected an error log line")
}

func TestDispatcher_HasHandlerAndCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	noop := func(context.Context, Command) (any, error) { return nil, nil }
	d.Register("plays.save", noop)
	d.Register("export", noop)

	assert.True(t, d.HasHandler("export"))
	assert.False(t, d.HasHandler("simulate"))
	assert.Equal(t, []string{"export", "plays.save"}, d.Commands())
}

func TestDispatcher_CloseRejectsCommands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("x", func(context.Context, Command) (any, error) { return nil, nil }, Buffered(1))
	d.Close()
	d.Close()

	_, err := d.Dispatch(context.Background(), Command{Name: "x"})
	assert.ErrorContains(t, err, "closed")
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("combined", func(_ context.Context, c Command) (any, error) {
		processed.Add(1)
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(context.Background(), Command{Name: "combined"})
	require.NoError(t, err)
	assert.Equal(t, Queued, result)

	d.Close()
	assert.Equal(t, int32(1), processed.Load())
	assert.GreaterOrEqual(t, len(logger.snapshot()), 2)
}
