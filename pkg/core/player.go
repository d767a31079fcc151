package core

import "math"

// Side is the team a player belongs to.
type Side string

const (
	SideOffense Side = "offense"
	SideDefense Side = "defense"
)

// Opponent returns the other side.
func (s Side) Opponent() Side {
	if s == SideOffense {
		return SideDefense
	}
	return SideOffense
}

// Role is a player's position type.
type Role string

const (
	RoleOL Role = "ol"
	RoleQB Role = "qb"
	RoleRB Role = "rb"
	RoleTE Role = "te"
	RoleWR Role = "wr"
	RoleDL Role = "dl"
	RoleLB Role = "lb"
	RoleCB Role = "cb"
	RoleS  Role = "s"
)

// Stationary reports whether the role never leaves its start point.
func (r Role) Stationary() bool {
	return r == RoleOL || r == RoleQB || r == RoleDL
}

// Line reports whether the role belongs to either line group.
func (r Role) Line() bool {
	return r == RoleOL || r == RoleDL
}

// Eligible reports whether the role can be targeted by a pass.
func (r Role) Eligible() bool {
	return r == RoleWR || r == RoleTE || r == RoleRB
}

// MotionSegment is one constant-velocity interval of a compiled route.
// End is +Inf for the final, unbounded segment. Origin is the position at
// Start and Dest the position at End.
type MotionSegment struct {
	Start    float64
	End      float64
	Velocity FieldPoint // units per ms
	Origin   FieldPoint
	Dest     FieldPoint
}

// Unbounded reports whether the segment extends forever.
func (s MotionSegment) Unbounded() bool {
	return math.IsInf(s.End, 1)
}

// Contains reports whether t falls inside the segment's closed interval.
func (s MotionSegment) Contains(t float64) bool {
	return t >= s.Start && (s.Unbounded() || t <= s.End)
}

// Player is a compiled participant in a play.
type Player struct {
	Name     string          `json:"name"`
	Side     Side            `json:"side"`
	Role     Role            `json:"role"`
	Start    FieldPoint      `json:"start"`
	Segments []MotionSegment `json:"-"`
}
