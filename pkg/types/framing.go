// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Tension describes the intellectual tension uncovered for a research topic.
type Tension struct {
	// DominantAssumption is what the mainstream takes for granted.
	DominantAssumption string `json:"dominant_assumption" yaml:"dominant_assumption"`

	// BlindSpot is what the mainstream overlooks.
	BlindSpot string `json:"blind_spot" yaml:"blind_spot"`

	// CoreGap is what is not yet understood.
	CoreGap string `json:"core_gap" yaml:"core_gap"`
}

// ResearchQuestion is one candidate question produced by the question
// generation skill.
type ResearchQuestion struct {
	// Question is the question text.
	Question string `json:"question" yaml:"question"`

	// Kind labels the question direction (e.g. "mechanism",
	// "interpretation", "design").
	Kind string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// CoherenceNotes holds the result of a coherence check over a framing.
type CoherenceNotes struct {
	// LogicalGaps lists detected gaps between question, method, and claim.
	LogicalGaps []string `json:"logical_gaps" yaml:"logical_gaps"`

	// ScopeIssues lists scope mismatches (too broad, too narrow).
	ScopeIssues []string `json:"scope_issues" yaml:"scope_issues"`

	// AlignmentAssessment is an overall alignment summary.
	AlignmentAssessment string `json:"alignment_assessment" yaml:"alignment_assessment"`
}

// Framing is the Notion-mapped framing record. Field names track the Notion
// database columns.
type Framing struct {
	ProjectName  string `json:"project_name" yaml:"project_name"`
	Owner        string `json:"owner" yaml:"owner"`
	ResearchType string `json:"research_type" yaml:"research_type"`
	Background   string `json:"background" yaml:"background"`
	Purpose      string `json:"purpose" yaml:"purpose"`
	RQ           string `json:"rq" yaml:"rq"`
	Method       string `json:"method" yaml:"method"`
	Result       string `json:"result" yaml:"result"`
	Contribution string `json:"contribution" yaml:"contribution"`
	Year         string `json:"year" yaml:"year"`
}

// FramingState is the shared state threaded through the full framing
// pipeline. Every field is filled by exactly one pipeline step; the state is
// created fresh per run and serializes cleanly for persistence.
type FramingState struct {
	// RawInput is the user's raw research topic or idea.
	RawInput string `json:"raw_input" yaml:"raw_input"`

	// Mode is the epistemic mode assigned by the classifier skill.
	Mode string `json:"mode" yaml:"mode"`

	Tension Tension `json:"tension" yaml:"tension"`

	EpistemicProfile EpistemicProfile `json:"epistemic_profile" yaml:"epistemic_profile"`

	KeywordMap KeywordMap `json:"keyword_map" yaml:"keyword_map"`

	KeywordRoles KeywordRoleIndex `json:"keyword_roles" yaml:"keyword_roles"`

	RuleEngineOutput RuleEngineOutput `json:"rule_engine_output" yaml:"rule_engine_output"`

	// ResearchPosition is the researcher's articulated stance.
	ResearchPosition string `json:"research_position" yaml:"research_position"`

	ResearchQuestions []ResearchQuestion `json:"research_questions" yaml:"research_questions"`

	// SelectedRQ is the chosen research question (defaults to the first
	// generated one).
	SelectedRQ string `json:"selected_rq" yaml:"selected_rq"`

	Method       string `json:"method" yaml:"method"`
	ResultType   string `json:"result_type" yaml:"result_type"`
	Contribution string `json:"contribution" yaml:"contribution"`

	CoherenceNotes CoherenceNotes `json:"coherence_notes" yaml:"coherence_notes"`

	// AbstractEN and AbstractZH are the bilingual abstracts generated from
	// the completed framing.
	AbstractEN string `json:"abstract_en" yaml:"abstract_en"`
	AbstractZH string `json:"abstract_zh" yaml:"abstract_zh"`
}

// NewFramingState returns an empty state with the four orientation keys of
// the keyword map populated.
func NewFramingState(rawInput string) *FramingState {
	return &FramingState{
		RawInput:     rawInput,
		KeywordMap:   EmptyKeywordMap(),
		KeywordRoles: KeywordRoleIndex{},
	}
}
