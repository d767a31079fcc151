package logging

import (
	"log/slog"
	"sync"
)

// RunContext holds the identity of the play run currently being simulated.
type RunContext struct {
	mu        sync.RWMutex
	runID     string
	play      string
	elapsedMs float64
	active    bool
}

// Begin marks a run as in progress.
func (c *RunContext) Begin(runID, play string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runID, c.play, c.elapsedMs, c.active = runID, play, 0, true
}

// Advance records the simulated clock of the current run.
func (c *RunContext) Advance(elapsedMs float64) {
	c.mu.Lock()
	c.elapsedMs = elapsedMs
	c.mu.Unlock()
}

// End clears the current run.
func (c *RunContext) End() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runID, c.play, c.elapsedMs, c.active = "", "", 0, false
}

// Attrs is a ContextProvider yielding the current run's attributes, or none.
func (c *RunContext) Attrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.active {
		return nil
	}
	return []slog.Attr{
		slog.String("runId", c.runID),
		slog.String("play", c.play),
		slog.Float64("elapsedMs", c.elapsedMs),
	}
}
