package engine

import (
	"math/rand"

	"github.com/routethat/playsim/internal/geo"
	"github.com/routethat/playsim/pkg/core"
)

// Director owns the clock, the compiled roster and the ball for one play
// instance. It is not safe for concurrent use; callers publish the returned
// snapshots instead.
type Director struct {
	offense    []core.Player
	defense    []core.Player
	assignment core.DefensiveAssignment
	los        float64

	ball   core.BallState
	carry  *core.Possessed
	target string
	snap   core.Snapshot
}

// PlayOption customises NewPlay.
type PlayOption func(*playOptions)

type playOptions struct {
	scheme core.CoverageScheme
}

// WithScheme forces a coverage scheme instead of drawing one.
func WithScheme(s core.CoverageScheme) PlayOption {
	return func(o *playOptions) { o.scheme = s }
}

// NewPlay compiles the offense, generates and compiles a fresh defense, and
// returns a director positioned at t=0.
func NewPlay(spec core.RouteSpec, rng *rand.Rand, opts ...PlayOption) *Director {
	var o playOptions
	for _, opt := range opts {
		opt(&o)
	}

	var defense []core.Player
	var a core.DefensiveAssignment
	if o.scheme != "" {
		defense, a = ArrangeDefense(spec, o.scheme, rng)
	} else {
		defense, a = GenerateDefense(spec, rng)
	}

	return NewDirector(
		CompileOffense(spec),
		CompileDefense(defense, a, spec, rng),
		a,
		LineOfScrimmage(spec),
	)
}

// NewDirector wraps an already compiled roster.
func NewDirector(offense, defense []core.Player, a core.DefensiveAssignment, los float64) *Director {
	d := &Director{
		offense:    offense,
		defense:    defense,
		assignment: a,
		los:        los,
	}
	d.Reset()
	return d
}

// Reset rewinds the play to t=0 keeping roster and assignment, for replays.
func (d *Director) Reset() {
	d.ball = core.PreThrow{}
	d.carry = nil
	d.target = ""
	d.snap = d.snapshot(0, 0, core.Snapshot{})
}

// Offense returns the compiled offensive roster.
func (d *Director) Offense() []core.Player { return d.offense }

// Defense returns the compiled defensive roster.
func (d *Director) Defense() []core.Player { return d.defense }

// Assignment returns the defensive assignment for this play.
func (d *Director) Assignment() core.DefensiveAssignment { return d.assignment }

// LineOfScrimmage returns the reference depth for yardage.
func (d *Director) LineOfScrimmage() float64 { return d.los }

// Ball returns the current ball state.
func (d *Director) Ball() core.BallState { return d.ball }

// Snapshot returns the most recent snapshot.
func (d *Director) Snapshot() core.Snapshot { return d.snap }

// Target returns the receiver the quarterback threw to, if any.
func (d *Director) Target() (string, bool) {
	return d.target, d.target != ""
}

// Done reports whether the play reached a terminal outcome.
func (d *Director) Done() bool {
	_, ok := d.ball.(core.Terminal)
	return ok
}

// Step advances the clock by dt simulated milliseconds and returns the new
// snapshot. A finished play is frozen and Step returns the last snapshot.
func (d *Director) Step(dt float64) core.Snapshot {
	if d.Done() {
		return d.snap
	}

	t := d.snap.ElapsedMs + dt
	next := d.Transition(d.ball, t)
	switch n := next.(type) {
	case core.InFlight:
		d.target = n.Target
	case core.Possessed:
		d.carry = &n
	}
	d.ball = next
	d.snap = d.snapshot(t, d.snap.Tick+1, d.snap)
	return d.snap
}

// Transition computes the ball state at time t from b. It never moves
// backwards and leaves Terminal untouched. References to players missing from
// the roster leave b unchanged.
func (d *Director) Transition(b core.BallState, t float64) core.BallState {
	switch s := b.(type) {
	case core.PreThrow:
		return d.preThrow(s, t)
	case core.InFlight:
		return d.inFlight(s, t)
	case core.Possessed:
		return d.possessed(s, t)
	}
	return b
}

func (d *Director) preThrow(s core.PreThrow, t float64) core.BallState {
	if t >= SackThresholdMs {
		return core.Terminal{Outcome: core.Outcome{Kind: core.OutcomeSack}}
	}
	if t < DecisionDelayMs {
		return s
	}

	target, ok := ChooseTarget(d.offense, d.defense, t)
	if !ok {
		return core.Terminal{Outcome: core.Outcome{Kind: core.OutcomeIncompleteNoTarget}}
	}
	qb, ok := findPlayer(d.offense, "QB")
	if !ok {
		return s
	}

	return core.InFlight{
		Target:      target.Name,
		Origin:      qb.Start,
		TargetPoint: Resolve(target, t+FlightTimeMs, 0, nil),
		ThrowTime:   t,
	}
}

func (d *Director) inFlight(s core.InFlight, t float64) core.BallState {
	receiver, ok := findPlayer(d.offense, s.Target)
	if !ok {
		return s
	}

	progress := FlightProgress(s, t)
	ball := BallPosition(s, t)

	for _, def := range d.defense {
		if def.Role.Line() {
			continue
		}
		at := Resolve(def, t, 0, nil)
		dist := geo.Distance(at, ball)
		if progress >= InterceptionProgress && dist <= InterceptionRadius && s.Interceptor == "" {
			s.Interceptor = def.Name
		}
		if dist <= CatchRadius && geo.DistanceToSegment(at, s.Origin, s.TargetPoint) <= DeflectionRadius {
			s.Deflected = true
		}
	}

	if progress < 1 {
		return s
	}
	if s.Interceptor != "" {
		return core.Possessed{Carrier: s.Interceptor, IsInterception: true, CatchTime: s.ThrowTime + FlightTimeMs}
	}
	if s.Deflected || geo.Distance(Resolve(receiver, t, 0, nil), s.TargetPoint) > CatchRadius {
		return core.Terminal{Outcome: core.Outcome{Kind: core.OutcomeIncomplete}}
	}
	return core.Possessed{Carrier: receiver.Name, CatchTime: t}
}

func (d *Director) possessed(s core.Possessed, t float64) core.BallState {
	carrier, ok := d.player(s.Carrier)
	if !ok {
		return s
	}

	pos := Possession{Start: s.CatchTime, Side: carrier.Side}
	at := ResolveAt(carrier, t, pos)
	pos.Target = &at

	for _, p := range d.side(carrier.Side.Opponent()) {
		if carrier.Side == core.SideDefense && p.Role.Line() {
			continue
		}
		if geo.Distance(ResolveAt(p, t, pos), at) <= TackleRadius {
			return terminal(core.OutcomeTackled, s)
		}
	}
	if !inPlay(at) {
		return terminal(core.OutcomeOutOfBounds, s)
	}
	if scored(carrier.Side, at) {
		return terminal(core.OutcomeTouchdown, s)
	}
	return s
}

func terminal(kind core.OutcomeKind, s core.Possessed) core.Terminal {
	return core.Terminal{Outcome: core.Outcome{Kind: kind, Interception: s.IsInterception}}
}

func (d *Director) player(name string) (core.Player, bool) {
	if p, ok := findPlayer(d.offense, name); ok {
		return p, true
	}
	return findPlayer(d.defense, name)
}

func (d *Director) side(s core.Side) []core.Player {
	if s == core.SideDefense {
		return d.defense
	}
	return d.offense
}

// snapshot renders the roster and ball at t. prev supplies the ball position
// a terminal play keeps when nobody carries the ball.
func (d *Director) snapshot(t float64, tick int, prev core.Snapshot) core.Snapshot {
	snap := core.Snapshot{
		Tick:        tick,
		ElapsedMs:   t,
		Players:     make([]core.PlayerPosition, 0, len(d.offense)+len(d.defense)),
		YardsGained: prev.YardsGained,
		Status:      core.StatusOf(d.ball),
		Ball:        core.BallView{Phase: d.ball.Phase(), Position: prev.Ball.Position},
	}

	pos := Possession{}
	var carrierAt *core.FieldPoint
	if d.carry != nil {
		if c, ok := d.player(d.carry.Carrier); ok {
			pos = Possession{Start: d.carry.CatchTime, Side: c.Side}
			at := ResolveAt(c, t, pos)
			pos.Target = &at
			carrierAt = &at
		}
	}

	for _, group := range [][]core.Player{d.offense, d.defense} {
		for _, p := range group {
			snap.Players = append(snap.Players, core.PlayerPosition{
				Name:     p.Name,
				Side:     p.Side,
				Role:     p.Role,
				Position: ResolveAt(p, t, pos),
			})
		}
	}

	switch s := d.ball.(type) {
	case core.PreThrow:
		if qb, ok := findPlayer(d.offense, "QB"); ok {
			snap.Ball.Position = qb.Start
		}
	case core.InFlight:
		progress := FlightProgress(s, t)
		snap.Ball.Position = BallPosition(s, t)
		snap.Ball.FlightProgress = &progress
		snap.Ball.Target = s.Target
	case core.Terminal:
		o := s.Outcome
		snap.Outcome = &o
	}

	if carrierAt != nil {
		snap.Ball.Position = *carrierAt
		snap.Ball.Carrier = d.carry.Carrier
		snap.YardsGained = Yards(d.los, carrierAt.Y)
	}
	return snap
}
