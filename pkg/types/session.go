// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Phase identifies a stage of the guided framing conversation.
type Phase string

const (
	PhaseGreeting           Phase = "greeting"
	PhaseTensionDiscovery   Phase = "tension_discovery"
	PhasePositioning        Phase = "positioning"
	PhaseQuestionSharpening Phase = "question_sharpening"
	PhaseMethodContribution Phase = "method_contribution"
	PhaseComplete           Phase = "complete"
)

// PhaseOrder returns the fixed conversation phase sequence.
func PhaseOrder() []Phase {
	return []Phase{
		PhaseGreeting,
		PhaseTensionDiscovery,
		PhasePositioning,
		PhaseQuestionSharpening,
		PhaseMethodContribution,
		PhaseComplete,
	}
}

// Next returns the phase following p in the fixed order. The terminal phase
// returns itself.
func (p Phase) Next() Phase {
	order := PhaseOrder()
	for i, ph := range order {
		if ph == p && i+1 < len(order) {
			return order[i+1]
		}
	}
	return p
}

// ChatMessage is one turn of a conversation session.
type ChatMessage struct {
	// Role is "user" or "assistant".
	Role string `json:"role" yaml:"role"`

	// Content is the message text.
	Content string `json:"content" yaml:"content"`
}

// Session is the full serializable state of one guided conversation. It is
// passed into and returned from each turn-handling call; phase transitions
// are driven by which framing fields have been filled, never by hidden
// mutation elsewhere.
type Session struct {
	// ID is the session identifier.
	ID string `json:"id" yaml:"id"`

	// Owner is the researcher's name, recorded into the framing.
	Owner string `json:"owner" yaml:"owner"`

	// Phase is the current conversation phase.
	Phase Phase `json:"phase" yaml:"phase"`

	// Messages is the full chat history sent with each model call.
	Messages []ChatMessage `json:"messages" yaml:"messages"`

	// Framing accumulates the Notion-mapped framing fields.
	Framing Framing `json:"framing" yaml:"framing"`

	// RawInputParts accumulates the user's topic descriptions.
	RawInputParts []string `json:"raw_input_parts" yaml:"raw_input_parts"`

	// RQCandidates stores the generated research question candidates.
	RQCandidates []ResearchQuestion `json:"rq_candidates" yaml:"rq_candidates"`

	// Tension is the extracted tension, kept for later skill inputs.
	Tension Tension `json:"tension" yaml:"tension"`

	// Profile and KeywordMap hold the session's epistemic state, updated by
	// keyword syncs and profile edits.
	Profile    EpistemicProfile `json:"epistemic_profile" yaml:"epistemic_profile"`
	KeywordMap KeywordMap       `json:"keyword_map" yaml:"keyword_map"`

	// RuleOutput is the latest rule engine derivation for the session.
	RuleOutput RuleEngineOutput `json:"rule_engine_output" yaml:"rule_engine_output"`

	// CreatedAt and UpdatedAt are maintained by the session store.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// RawInput joins the accumulated user descriptions into a single topic text.
func (s *Session) RawInput() string {
	joined := ""
	for i, part := range s.RawInputParts {
		if i > 0 {
			joined += " "
		}
		joined += part
	}
	return joined
}
