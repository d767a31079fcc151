// Package monitor periodically reports server status to a file and InfluxDB.
package monitor

import (
	"encoding/json"
	"os"
	"runtime"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/routethat/playsim/internal/influx"
	"github.com/routethat/playsim/internal/logging"
	"github.com/routethat/playsim/internal/storage"
)

// MeasurementServerStatus is the measurement status samples are written to.
const MeasurementServerStatus = "server_status"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager *logging.SlogManager
	Influx     *influx.Manager // optional
	Storage    storage.Backend
	// Connections reports open live and watch sockets.
	Connections func() (live, watchers int)
	StatusFile  string // rewritten every sample when set
	Interval    time.Duration
}

// Status is one sample of server health.
type Status struct {
	Time          time.Time `json:"time"`
	UptimeSec     float64   `json:"uptimeSec"`
	Goroutines    int       `json:"goroutines"`
	HeapAllocMB   float64   `json:"heapAllocMb"`
	LiveSessions  int       `json:"liveSessions"`
	Watchers      int       `json:"watchers"`
	PendingWrites int       `json:"pendingWrites"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	started   time.Time
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = 10 * time.Second
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps, started: time.Now()}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus samples the current server status.
func (s *Service) GetStatus() Status {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	st := Status{
		Time:        time.Now(),
		UptimeSec:   time.Since(s.started).Seconds(),
		Goroutines:  runtime.NumGoroutine(),
		HeapAllocMB: float64(mem.HeapAlloc) / (1 << 20),
	}
	if s.deps.Connections != nil {
		st.LiveSessions, st.Watchers = s.deps.Connections()
	}
	if p, ok := s.deps.Storage.(interface{ Pending() int }); ok {
		st.PendingWrites = p.Pending()
	}
	return st
}

// StatusPoint builds the line-protocol point for a status sample.
func StatusPoint(st Status) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementServerStatus).
		AddField("uptime_sec", st.UptimeSec).
		AddField("goroutines", st.Goroutines).
		AddField("heap_alloc_mb", st.HeapAllocMB).
		AddField("live_sessions", st.LiveSessions).
		AddField("watchers", st.Watchers).
		AddField("pending_writes", st.PendingWrites).
		SetTime(st.Time)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.loop()
	return nil
}

func (s *Service) loop() {
	defer func() {
		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()
		close(s.done)
	}()

	logger := s.deps.LogManager.Logger().With("component", "monitor")
	logger.Debug("Starting status monitor", "interval", s.deps.Interval)

	ticker := time.NewTicker(s.deps.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			st := s.GetStatus()
			if err := s.writeStatusFile(st); err != nil {
				logger.Error("Error writing status file", "error", err)
			}
			if s.deps.Influx != nil {
				if err := s.deps.Influx.WritePoint(s.deps.Influx.Bucket(), StatusPoint(st)); err != nil {
					logger.Warn("Error writing status to InfluxDB", "error", err)
				}
			}
		}
	}
}

func (s *Service) writeStatusFile(st Status) error {
	if s.deps.StatusFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.deps.StatusFile, append(data, '\n'), 0644)
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
