// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// Orientation is one of the four fixed epistemic stances used to classify
// keywords and overall research posture.
type Orientation string

const (
	OrientationExploratory    Orientation = "exploratory"
	OrientationCritical       Orientation = "critical"
	OrientationProblemSolving Orientation = "problem_solving"
	OrientationConstructive   Orientation = "constructive"
)

// Orientations returns all four orientation labels in canonical order.
// Iteration over maps keyed by Orientation must use this order so that
// profile computation and scoring stay deterministic.
func Orientations() []Orientation {
	return []Orientation{
		OrientationExploratory,
		OrientationCritical,
		OrientationProblemSolving,
		OrientationConstructive,
	}
}

// TieBreakOrder returns the fixed priority order used to resolve exact
// scoring ties when selecting the dominant orientation: earlier entries win.
func TieBreakOrder() []Orientation {
	return []Orientation{
		OrientationProblemSolving,
		OrientationExploratory,
		OrientationConstructive,
		OrientationCritical,
	}
}

// Valid reports whether o is one of the four fixed orientation labels.
func (o Orientation) Valid() bool {
	switch o {
	case OrientationExploratory, OrientationCritical,
		OrientationProblemSolving, OrientationConstructive:
		return true
	}
	return false
}

// NormalizeOrientation converts a free-form role label (e.g. "Problem
// Solving") to its canonical orientation. The second return value is false
// when the label does not name a known orientation.
func NormalizeOrientation(raw string) (Orientation, bool) {
	o := Orientation(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), " ", "_"))
	return o, o.Valid()
}

// DefaultWeight is the observation weight applied by loaders when the source
// record carries no explicit weight.
const DefaultWeight = 1.0

// KeywordObservation is a single raw keyword record produced by an upstream
// extraction collaborator (paper profiler, chat extraction, Notion keyword
// database). Immutable once created.
type KeywordObservation struct {
	// Term is the keyword text. Must be non-empty after trimming.
	Term string `json:"term" yaml:"term"`

	// Orientation is the epistemic stance the term was observed under.
	Orientation Orientation `json:"orientation" yaml:"orientation"`

	// Weight is the importance weight in [0,1]. Loaders default it to 1.0.
	Weight float64 `json:"weight" yaml:"weight"`
}

// KeywordMap groups unique terms by orientation. All four orientation keys
// are always present, even when empty; original casing and order of first
// appearance are preserved. Rebuilt from scratch on every aggregation call.
type KeywordMap map[Orientation][]string

// EmptyKeywordMap returns a KeywordMap with all four orientation keys
// present and no terms.
func EmptyKeywordMap() KeywordMap {
	m := make(KeywordMap, 4)
	for _, o := range Orientations() {
		m[o] = []string{}
	}
	return m
}

// KeywordRoleIndex maps each unique term to the orientation of its
// highest-weight observation; exact weight ties keep the first-seen
// orientation.
type KeywordRoleIndex map[string]Orientation

// EpistemicProfile holds the normalized four-way score distribution over
// orientations. Components are each in [0,1] and sum to 1.0 within ±0.0001
// after rounding to 4 decimals.
type EpistemicProfile struct {
	Exploratory    float64 `json:"exploratory" yaml:"exploratory"`
	Critical       float64 `json:"critical" yaml:"critical"`
	ProblemSolving float64 `json:"problem_solving" yaml:"problem_solving"`
	Constructive   float64 `json:"constructive" yaml:"constructive"`
}

// UniformProfile returns the degenerate-case profile assigned when no
// keywords were observed or all raw scores are zero.
func UniformProfile() EpistemicProfile {
	return EpistemicProfile{
		Exploratory:    0.25,
		Critical:       0.25,
		ProblemSolving: 0.25,
		Constructive:   0.25,
	}
}

// Get returns the score for the given orientation. Unknown orientations
// return 0.
func (p EpistemicProfile) Get(o Orientation) float64 {
	switch o {
	case OrientationExploratory:
		return p.Exploratory
	case OrientationCritical:
		return p.Critical
	case OrientationProblemSolving:
		return p.ProblemSolving
	case OrientationConstructive:
		return p.Constructive
	}
	return 0
}

// Set assigns the score for the given orientation. Unknown orientations are
// ignored.
func (p *EpistemicProfile) Set(o Orientation, v float64) {
	switch o {
	case OrientationExploratory:
		p.Exploratory = v
	case OrientationCritical:
		p.Critical = v
	case OrientationProblemSolving:
		p.ProblemSolving = v
	case OrientationConstructive:
		p.Constructive = v
	}
}

// Sum returns the total of all four components.
func (p EpistemicProfile) Sum() float64 {
	return p.Exploratory + p.Critical + p.ProblemSolving + p.Constructive
}

// RuleEngineOutput holds the structured directives derived from a profile
// and keyword map, handed to downstream generation collaborators as
// constraints. Derived fresh from each input pair; never persisted by the
// rule engine itself.
type RuleEngineOutput struct {
	// DominantOrientation is the single orientation selected as primary via
	// score adjustment and fixed tie-breaking.
	DominantOrientation Orientation `json:"dominant_orientation" yaml:"dominant_orientation"`

	// RQTemplates is an ordered sequence of 2-3 research-question templates,
	// each embedding a literal keyword or an explicit placeholder.
	RQTemplates []string `json:"rq_templates" yaml:"rq_templates"`

	// MethodBias is an ordered sequence of 1-2 concrete method names.
	MethodBias []string `json:"method_bias" yaml:"method_bias"`

	// ContributionBias is an ordered sequence of 1-2 contribution types.
	ContributionBias []string `json:"contribution_bias" yaml:"contribution_bias"`

	// LogicPattern is a chain of 4-6 node labels joined by an arrow
	// separator describing the reasoning arc of the dominant orientation.
	LogicPattern string `json:"logic_pattern" yaml:"logic_pattern"`
}
