package core

// CoverageScheme is the defensive strategy chosen for a play.
type CoverageScheme string

const (
	CoverageMan    CoverageScheme = "man"
	CoverageCover2 CoverageScheme = "cover2"
	CoverageCover3 CoverageScheme = "cover3"
)

// DefenderRole is a defender's job within the scheme.
type DefenderRole string

const (
	DefenderDeep       DefenderRole = "deep"
	DefenderUnderneath DefenderRole = "underneath"
	DefenderLine       DefenderRole = "line"
)

// DefensiveAssignment is generated once per play and never mutated afterwards.
type DefensiveAssignment struct {
	Scheme     CoverageScheme          `json:"scheme"`
	Roles      map[string]DefenderRole `json:"roles"`
	ManTargets map[string]string       `json:"manTargets,omitempty"`
	Lanes      map[string]int          `json:"lanes,omitempty"` // lateral slot per underneath zone defender
	// TrailOffsets is each man defender's fixed separation from its receiver.
	TrailOffsets map[string]FieldPoint `json:"trailOffsets,omitempty"`
}

// ManTarget returns the receiver a defender is assigned to in man coverage.
func (a DefensiveAssignment) ManTarget(defender string) (string, bool) {
	if a.Scheme != CoverageMan {
		return "", false
	}
	name, ok := a.ManTargets[defender]
	return name, ok && name != ""
}
