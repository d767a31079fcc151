package worker

import (
	"errors"
	"fmt"
	"math"

	"github.com/routethat/playsim/pkg/core"
)

// ErrInvalidRequest wraps every validation failure
var ErrInvalidRequest = errors.New("invalid request")

// SimulateRequest is the payload of the simulate command. Routes, when set,
// are run directly under the name Play instead of looking the play up.
type SimulateRequest struct {
	Play            string              `json:"play"`
	Routes          core.RouteSpec      `json:"routes,omitempty"`
	Seed            int64               `json:"seed,omitempty"`
	SpeedMultiplier float64             `json:"speedMultiplier,omitempty"`
	Coverage        core.CoverageScheme `json:"coverage,omitempty"`
}

// Validate checks the request without touching storage.
func (r SimulateRequest) Validate() error {
	if r.SpeedMultiplier < 0 || math.IsNaN(r.SpeedMultiplier) || math.IsInf(r.SpeedMultiplier, 0) {
		return fmt.Errorf("%w: speedMultiplier must be positive", ErrInvalidRequest)
	}
	switch r.Coverage {
	case "", core.CoverageMan, core.CoverageCover2, core.CoverageCover3:
	default:
		return fmt.Errorf("%w: unknown coverage %q", ErrInvalidRequest, r.Coverage)
	}
	if r.Routes != nil {
		return validateRoutes(r.Routes)
	}
	return nil
}

// SimulateResponse carries the outcome of a headless run.
type SimulateResponse struct {
	Result     core.PlayResult `json:"result"`
	Final      core.Snapshot   `json:"final"`
	ExportPath string          `json:"exportPath,omitempty"`
}

// DeleteRequest is the payload of plays.delete.
type DeleteRequest struct {
	Name string `json:"name"`
}

// ResultsRequest is the payload of results.list.
type ResultsRequest struct {
	Limit int `json:"limit"`
}

// validateRoutes rejects waypoint times that go backwards. Equal times are
// allowed; the route compiler turns them into filler segments.
func validateRoutes(spec core.RouteSpec) error {
	for slot, r := range spec {
		last := 0.0
		for i, w := range r.Waypoints {
			if w.AtMs < last {
				return fmt.Errorf("%w: %s waypoint %d at %vms is before %vms", ErrInvalidRequest, slot, i, w.AtMs, last)
			}
			last = w.AtMs
		}
	}
	return nil
}
