package core

// Phase names the ball state variant.
type Phase string

const (
	PhasePreThrow  Phase = "pre_throw"
	PhaseInFlight  Phase = "in_flight"
	PhasePossessed Phase = "possessed"
	PhaseTerminal  Phase = "terminal"
)

// BallState is one of PreThrow, InFlight, Possessed or Terminal.
type BallState interface {
	Phase() Phase
	ballState()
}

// PreThrow is the quarterback decision phase.
type PreThrow struct{}

// InFlight is a thrown pass heading to a frozen target point.
type InFlight struct {
	Target      string
	Origin      FieldPoint
	TargetPoint FieldPoint
	ThrowTime   float64
	Deflected   bool
	// Interceptor is the first defender to reach the ball late in flight.
	Interceptor string
}

// Possessed is run-after-catch by an offensive receiver or an intercepting defender.
type Possessed struct {
	Carrier        string
	IsInterception bool
	CatchTime      float64
}

// Terminal is a finished play.
type Terminal struct {
	Outcome Outcome
}

func (PreThrow) Phase() Phase  { return PhasePreThrow }
func (InFlight) Phase() Phase  { return PhaseInFlight }
func (Possessed) Phase() Phase { return PhasePossessed }
func (Terminal) Phase() Phase  { return PhaseTerminal }

func (PreThrow) ballState()  {}
func (InFlight) ballState()  {}
func (Possessed) ballState() {}
func (Terminal) ballState()  {}

// OutcomeKind is the way a play ended.
type OutcomeKind string

const (
	OutcomeSack               OutcomeKind = "sack"
	OutcomeIncompleteNoTarget OutcomeKind = "incomplete_no_target"
	OutcomeIncomplete         OutcomeKind = "incomplete"
	OutcomeTouchdown          OutcomeKind = "touchdown"
	OutcomeTackled            OutcomeKind = "tackled"
	OutcomeOutOfBounds        OutcomeKind = "out_of_bounds"
)

// Outcome is a terminal result. Interception qualifies which side held the ball.
type Outcome struct {
	Kind         OutcomeKind `json:"kind"`
	Interception bool        `json:"interception,omitempty"`
}

// Status renders the scoreboard text for the outcome.
func (o Outcome) Status() string {
	switch o.Kind {
	case OutcomeSack:
		return "SACK"
	case OutcomeIncompleteNoTarget:
		return "INCOMPLETE - NO TARGET"
	case OutcomeIncomplete:
		return "INCOMPLETE"
	case OutcomeTouchdown:
		if o.Interception {
			return "INTERCEPTION - TOUCHDOWN"
		}
		return "TOUCHDOWN"
	case OutcomeTackled:
		if o.Interception {
			return "INTERCEPTION - TACKLED"
		}
		return "COMPLETE - TACKLED"
	case OutcomeOutOfBounds:
		if o.Interception {
			return "INTERCEPTION - OUT OF BOUNDS"
		}
		return "COMPLETE - OUT OF BOUNDS"
	default:
		return "UNKNOWN"
	}
}

// StatusOf renders scoreboard text for any ball state.
func StatusOf(b BallState) string {
	switch s := b.(type) {
	case InFlight:
		return "THROWN"
	case Possessed:
		if s.IsInterception {
			return "INTERCEPTION"
		}
		return "COMPLETE"
	case Terminal:
		return s.Outcome.Status()
	default:
		return "PENDING"
	}
}
