package engine

import "github.com/routethat/playsim/internal/geo"

// Field dimensions, in field-plane units.
const (
	FieldWidth    = 600.0
	FieldHeight   = 800.0
	EndzoneHeight = 50.0
	PxPerYard     = 7.0

	// TopEndzoneLine is the goal line the offense attacks.
	TopEndzoneLine = EndzoneHeight
	// BottomEndzoneLine is the goal line an intercepting defender returns to.
	BottomEndzoneLine = FieldHeight - EndzoneHeight

	DefaultLineOfScrimmage = 540.0
)

// Boundary margins allow play to spill slightly past the painted field.
var FieldBounds = geo.Bounds{
	MinX: 0,
	MaxX: FieldWidth,
	MinY: EndzoneHeight - 35,
	MaxY: FieldHeight + 35,
}

// Speeds, in units per simulated millisecond.
const (
	BaseTickMs    = 16.67
	StandardSpeed = 0.055
	PursuitSpeed  = 1.15 * StandardSpeed
)

// Contact radii.
const (
	CatchRadius        = 15.0
	InterceptionRadius = 10.0
	DeflectionRadius   = 5.0
	TackleRadius       = 15.0
)

// Play clock, in simulated milliseconds.
const (
	SackThresholdMs  = 8000.0
	FlightTimeMs     = 1200.0
	DecisionDelayMs  = 3000.0
	PlayCeilingMs    = 15000.0
	ManGetOffDelayMs = 500.0
	ArcHeight        = 30.0

	// InterceptionProgress is the flight fraction after which a defender can pick the ball off.
	InterceptionProgress = 0.7
)

// Defensive formation.
const (
	LineCount      = 4
	SecondaryCount = 7
	LineSpacing    = 200.0 / 3
	// DefensiveLineY sits two yards off the default line of scrimmage.
	DefensiveLineY = DefaultLineOfScrimmage - 2*PxPerYard
	MinSpawnX      = 30.0
	MaxSpawnX      = FieldWidth - 30

	MinTrail = 5.0
	MaxTrail = 15.0
)

// Zone geometry.
const (
	ZoneDeepY         = TopEndzoneLine + 10
	ZoneIntermediateY = DefensiveLineY - 140
	DeepPatrol        = 80.0
	UnderneathPatrol  = 40.0
	ZoneMinX          = 20.0
	ZoneMaxX          = FieldWidth - 20
)

// Openness heuristic.
const (
	OpenScore          = 1000.0
	CrowdedSeparation  = 15.0
	CrowdedPenalty     = 50.0
	EndzoneSeparation  = 30.0
	EndzonePenalty     = 50.0
	MinSeparationScale = 3.0
)

// secondaryDepths are the y offsets in front of the defensive line, cycled by defender index.
var secondaryDepths = [3]float64{35, 70, 140}

// priorityBonus favours primary reads in the throw decision.
var priorityBonus = map[string]float64{
	"WR1": 200,
	"WR2": 150,
	"WR3": 100,
	"TE":  50,
	"RB":  0,
}
