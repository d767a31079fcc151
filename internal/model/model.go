package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Play{},
	&Run{},
	&Frame{},
	&Result{},
}

// Play is a named, saved route specification
type Play struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Name      string         `json:"name" gorm:"size:127;uniqueIndex:idx_play_name"`
	Routes    datatypes.JSON `json:"routeData"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

func (*Play) TableName() string {
	return "plays"
}

// Run is one simulated instance of a play, with the defense it was generated against
type Run struct {
	ID              string         `json:"id" gorm:"primarykey;size:36"`
	PlayName        string         `json:"playName" gorm:"size:127;index:idx_run_play_name"`
	Seed            int64          `json:"seed"`
	SpeedMultiplier float64        `json:"speedMultiplier"`
	Coverage        string         `json:"coverage" gorm:"size:16"`
	Routes          datatypes.JSON `json:"routes"`
	Defense         datatypes.JSON `json:"defense"`
	Assignment      datatypes.JSON `json:"assignment"`
	StartedAt       time.Time      `json:"startedAt" gorm:"index:idx_run_started_at"`
}

func (*Run) TableName() string {
	return "runs"
}

// Frame is the published snapshot for a single tick of a run
type Frame struct {
	ID             uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID          string         `json:"runId" gorm:"size:36;index:idx_frame_run_tick,priority:1"`
	Run            Run            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Tick           int            `json:"tick" gorm:"index:idx_frame_run_tick,priority:2"`
	ElapsedMs      float64        `json:"elapsedMs"`
	Phase          string         `json:"phase" gorm:"size:16"`
	Ball           geom.Point     `json:"ball"`
	FlightProgress *float64       `json:"flightProgress"`
	Carrier        string         `json:"carrier" gorm:"size:8"`
	Target         string         `json:"target" gorm:"size:8"`
	YardsGained    int            `json:"yardsGained"`
	Status         string         `json:"status" gorm:"size:32"`
	Players        datatypes.JSON `json:"players"`
}

func (*Frame) TableName() string {
	return "frames"
}

// Result is the summary of a finished run
type Result struct {
	ID           uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID        string    `json:"runId" gorm:"size:36;uniqueIndex:idx_result_run"`
	PlayName     string    `json:"playName" gorm:"size:127;index:idx_result_play_name"`
	Coverage     string    `json:"coverage" gorm:"size:16"`
	Outcome      string    `json:"outcome" gorm:"size:32;index:idx_result_outcome"`
	Interception bool      `json:"interception"`
	Status       string    `json:"status" gorm:"size:32"`
	Target       string    `json:"target" gorm:"size:8"`
	Carrier      string    `json:"carrier" gorm:"size:8"`
	YardsGained  int       `json:"yardsGained"`
	ElapsedMs    float64   `json:"elapsedMs"`
	Ticks        int       `json:"ticks"`
	EndedAt      time.Time `json:"endedAt" gorm:"index:idx_result_ended_at"`
}

func (*Result) TableName() string {
	return "results"
}
