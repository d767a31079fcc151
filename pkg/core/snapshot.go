package core

import "time"

// PlayerPosition is a resolved player location for one tick.
type PlayerPosition struct {
	Name     string     `json:"name"`
	Side     Side       `json:"side"`
	Role     Role       `json:"role"`
	Position FieldPoint `json:"position"`
}

// BallView is the renderable projection of the ball state.
type BallView struct {
	Position       FieldPoint `json:"position"`
	Phase          Phase      `json:"phase"`
	FlightProgress *float64   `json:"flightProgress,omitempty"`
	Carrier        string     `json:"carrier,omitempty"`
	Target         string     `json:"target,omitempty"`
}

// Snapshot is the full published state after a tick.
type Snapshot struct {
	Tick        int              `json:"tick"`
	ElapsedMs   float64          `json:"elapsedMs"`
	Players     []PlayerPosition `json:"players"`
	Ball        BallView         `json:"ball"`
	Outcome     *Outcome         `json:"outcome,omitempty"`
	YardsGained int              `json:"yardsGained"`
	Status      string           `json:"status"`
}

// Done reports whether the snapshot is terminal.
func (s Snapshot) Done() bool {
	return s.Outcome != nil
}

// PlayRun describes one simulated instance of a play.
type PlayRun struct {
	ID              string              `json:"id"`
	PlayName        string              `json:"playName"`
	Seed            int64               `json:"seed"`
	SpeedMultiplier float64             `json:"speedMultiplier"`
	StartedAt       time.Time           `json:"startedAt"`
	Routes          RouteSpec           `json:"routes"`
	Defense         []Player            `json:"defense"`
	Assignment      DefensiveAssignment `json:"assignment"`
}

// PlayResult summarises a finished run.
type PlayResult struct {
	RunID       string         `json:"runId"`
	PlayName    string         `json:"playName"`
	Coverage    CoverageScheme `json:"coverage"`
	Outcome     Outcome        `json:"outcome"`
	Status      string         `json:"status"`
	Target      string         `json:"target,omitempty"`
	Carrier     string         `json:"carrier,omitempty"`
	YardsGained int            `json:"yardsGained"`
	ElapsedMs   float64        `json:"elapsedMs"`
	Ticks       int            `json:"ticks"`
	EndedAt     time.Time      `json:"endedAt"`
}
