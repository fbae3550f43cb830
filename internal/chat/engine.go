// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package chat manages guided framing conversations. A session is an
// explicit serializable struct passed through every turn-handling call;
// phase transitions follow extraction signals embedded in model replies.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/framingbot/internal/keywords"
	"github.com/pdiddy/framingbot/internal/rules"
	"github.com/pdiddy/framingbot/internal/skills"
	"github.com/pdiddy/framingbot/pkg/types"
)

// ErrSessionNotFound reports an unknown session ID.
var ErrSessionNotFound = fmt.Errorf("session not found")

// SessionStore abstracts session persistence so tests can supply an
// in-memory implementation.
type SessionStore interface {
	SaveSession(ctx context.Context, s *types.Session) error
	LoadSession(ctx context.Context, id string) (*types.Session, error)
}

// extractTagPattern matches the JSON extraction signal a phase prompt asks
// the model to embed when the conversation has produced enough material.
var extractTagPattern = regexp.MustCompile(`(?s)<extract>(.*?)</extract>`)

// extractSignal is the parsed signal payload.
type extractSignal struct {
	Phase         string `json:"phase"`
	Ready         bool   `json:"ready"`
	SelectedIndex int    `json:"selected_index"`
}

// TurnResult is returned from each processed message.
type TurnResult struct {
	AgentMessage       string        `json:"agent_message"`
	Phase              types.Phase   `json:"phase"`
	Framing            types.Framing `json:"framing"`
	ExtractionHappened bool          `json:"extraction_happened"`
}

// Engine drives guided conversations against a skill backend and a session
// store.
type Engine struct {
	Backend    skills.Backend
	Store      SessionStore
	MaxRetries int
}

// Start creates a new session in the greeting phase and returns it with the
// opening message already recorded.
func (e *Engine) Start(ctx context.Context, owner string) (*types.Session, error) {
	now := time.Now().UTC()
	session := &types.Session{
		ID:         newSessionID(),
		Owner:      owner,
		Phase:      types.PhaseGreeting,
		KeywordMap: types.EmptyKeywordMap(),
		Framing: types.Framing{
			Owner: owner,
			Year:  fmt.Sprintf("%d", now.Year()),
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	session.Messages = append(session.Messages, types.ChatMessage{
		Role:    "assistant",
		Content: openingMessage,
	})

	if err := e.Store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// Message processes one user turn: converse under the current phase prompt,
// detect extraction signals, run the phase's skills, and advance the phase.
// Skill failures surface to the caller without corrupting the stored
// session.
func (e *Engine) Message(ctx context.Context, sessionID, userMessage string) (*TurnResult, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	session.RawInputParts = append(session.RawInputParts, userMessage)

	// The greeting phase exists only to deliver the opener; the first user
	// message moves straight into tension discovery.
	if session.Phase == types.PhaseGreeting {
		session.Phase = types.PhaseTensionDiscovery
	}

	session.Messages = append(session.Messages, types.ChatMessage{Role: "user", Content: userMessage})

	rawReply, err := e.Backend.Complete(ctx, phasePrompt(session.Phase), session.Messages)
	if err != nil {
		return nil, fmt.Errorf("completing chat turn: %w", err)
	}

	signal := parseExtractSignal(rawReply)
	agentMessage := stripExtractTags(rawReply)
	extracted := false

	if signal != nil && signal.Ready {
		if err := e.runExtraction(ctx, session, signal); err != nil {
			return nil, err
		}
		extracted = true
		session.Phase = session.Phase.Next()
	}

	session.Messages = append(session.Messages, types.ChatMessage{Role: "assistant", Content: agentMessage})
	session.UpdatedAt = time.Now().UTC()

	if err := e.Store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}

	return &TurnResult{
		AgentMessage:       agentMessage,
		Phase:              session.Phase,
		Framing:            session.Framing,
		ExtractionHappened: extracted,
	}, nil
}

// runExtraction runs the skills appropriate to the signalled phase and
// fills the session's framing fields.
func (e *Engine) runExtraction(ctx context.Context, session *types.Session, signal *extractSignal) error {
	rawInput := session.RawInput()

	switch signal.Phase {
	case "tension":
		modeResult, err := skills.ClassifyMode(ctx, e.Backend, rawInput, e.MaxRetries)
		if err != nil {
			return err
		}
		session.Framing.ResearchType = modeResult.Mode

		tension, err := skills.ExtractTension(ctx, e.Backend, rawInput, session.KeywordMap, e.MaxRetries)
		if err != nil {
			return err
		}
		session.Tension = tension
		session.Framing.Background = fmt.Sprintf(
			"Dominant assumption: %s Blind spot: %s Core gap: %s",
			tension.DominantAssumption, tension.BlindSpot, tension.CoreGap)

	case "positioning":
		position, err := skills.BuildPosition(ctx, e.Backend, session.Framing.ResearchType,
			session.Tension, session.KeywordMap, session.RuleOutput.DominantOrientation, e.MaxRetries)
		if err != nil {
			return err
		}
		session.Framing.Purpose = position

	case "question":
		questions, err := skills.GenerateQuestions(ctx, e.Backend, session.Framing.Purpose,
			session.RuleOutput, session.KeywordMap, e.MaxRetries)
		if err != nil {
			return err
		}
		session.RQCandidates = questions
		if idx := signal.SelectedIndex; idx >= 0 && idx < len(questions) {
			session.Framing.RQ = questions[idx].Question
		} else if len(questions) > 0 {
			session.Framing.RQ = questions[0].Question
		}

	case "method_contribution":
		method, err := skills.InferMethod(ctx, e.Backend, skills.MethodInput{
			Mode:       session.Framing.ResearchType,
			SelectedRQ: session.Framing.RQ,
			MethodBias: session.RuleOutput.MethodBias,
			Tension:    session.Tension,
		}, e.MaxRetries)
		if err != nil {
			return err
		}
		session.Framing.Method = method

		result, err := skills.InferResult(ctx, e.Backend, session.Framing.ResearchType,
			session.Framing.RQ, method, e.MaxRetries)
		if err != nil {
			return err
		}
		session.Framing.Result = result

		_, contribution, err := skills.ClaimContribution(ctx, e.Backend, skills.ContributionInput{
			SelectedRQ:       session.Framing.RQ,
			Mode:             session.Framing.ResearchType,
			Tension:          session.Tension,
			ContributionBias: session.RuleOutput.ContributionBias,
		}, e.MaxRetries)
		if err != nil {
			return err
		}
		session.Framing.Contribution = contribution
		session.Framing.ProjectName = projectNameFrom(rawInput)
	}

	return nil
}

// LogicCheck runs the coherence checker over the current framing.
func (e *Engine) LogicCheck(ctx context.Context, sessionID string) (types.CoherenceNotes, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return types.CoherenceNotes{}, err
	}

	return skills.CheckCoherence(ctx, e.Backend, skills.CoherenceInput{
		Mode:         session.Framing.ResearchType,
		SelectedRQ:   session.Framing.RQ,
		Tension:      session.Tension,
		Contribution: session.Framing.Contribution,
		Method:       session.Framing.Method,
		KeywordMap:   session.KeywordMap,
	}, e.MaxRetries)
}

// Abstract generates bilingual abstracts from the current framing.
func (e *Engine) Abstract(ctx context.Context, sessionID string) (en, zh string, err error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return "", "", err
	}

	return skills.GenerateAbstract(ctx, e.Backend, skills.AbstractInput{
		Background:       session.Framing.Background,
		Purpose:          session.Framing.Purpose,
		Method:           session.Framing.Method,
		Result:           session.Framing.Result,
		Contribution:     session.Framing.Contribution,
		EpistemicProfile: session.Profile,
		RuleEngineOutput: session.RuleOutput,
		KeywordMap:       session.KeywordMap,
	}, e.MaxRetries)
}

// ApplyObservations aggregates new keyword observations into the session and
// re-derives the rule engine output, question candidates, and method.
func (e *Engine) ApplyObservations(ctx context.Context, sessionID string, observations []types.KeywordObservation) (*types.Session, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	keywordMap, roles, profile, err := keywords.Aggregate(observations)
	if err != nil {
		return nil, err
	}
	session.KeywordMap = keywordMap
	session.Profile = profile

	if err := e.rerunFromProfile(ctx, session, roles); err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := e.Store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// ApplyProfile installs an edited profile and keyword map directly (the
// frontend's profile editor path) and re-derives downstream fields.
func (e *Engine) ApplyProfile(ctx context.Context, sessionID string, profile types.EpistemicProfile, keywordMap types.KeywordMap) (*types.Session, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if keywordMap == nil {
		keywordMap = types.EmptyKeywordMap()
	}
	for _, o := range types.Orientations() {
		if _, ok := keywordMap[o]; !ok {
			keywordMap[o] = []string{}
		}
	}
	session.Profile = profile
	session.KeywordMap = keywordMap

	// Roles for an edited map carry no weights; each term takes the
	// orientation it is listed under, first listing wins.
	roles := types.KeywordRoleIndex{}
	for _, o := range types.Orientations() {
		for _, term := range keywordMap[o] {
			if _, ok := roles[term]; !ok {
				roles[term] = o
			}
		}
	}

	if err := e.rerunFromProfile(ctx, session, roles); err != nil {
		return nil, err
	}

	session.UpdatedAt = time.Now().UTC()
	if err := e.Store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// rerunFromProfile re-derives rule output and, when a position exists, the
// question candidates and method.
func (e *Engine) rerunFromProfile(ctx context.Context, session *types.Session, roles types.KeywordRoleIndex) error {
	ruleOutput, err := rules.Evaluate(session.Profile, session.KeywordMap, roles)
	if err != nil {
		return err
	}
	session.RuleOutput = ruleOutput

	if session.Framing.Purpose == "" {
		return nil
	}

	questions, err := skills.GenerateQuestions(ctx, e.Backend, session.Framing.Purpose,
		ruleOutput, session.KeywordMap, e.MaxRetries)
	if err != nil {
		return err
	}
	session.RQCandidates = questions
	if len(questions) > 0 {
		session.Framing.RQ = questions[0].Question
	}

	method, err := skills.InferMethod(ctx, e.Backend, skills.MethodInput{
		Mode:                session.Framing.ResearchType,
		SelectedRQ:          session.Framing.RQ,
		MethodBias:          ruleOutput.MethodBias,
		ContributionBias:    ruleOutput.ContributionBias,
		DominantOrientation: ruleOutput.DominantOrientation,
		LogicPattern:        ruleOutput.LogicPattern,
		KeywordMap:          session.KeywordMap,
		Tension:             session.Tension,
	}, e.MaxRetries)
	if err != nil {
		return err
	}
	session.Framing.Method = method
	return nil
}

// SyncFraming replaces the session's framing with one read back from an
// external store (e.g. a Notion page).
func (e *Engine) SyncFraming(ctx context.Context, sessionID string, framing types.Framing) (*types.Session, error) {
	session, err := e.Store.LoadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	session.Framing = framing
	session.UpdatedAt = time.Now().UTC()
	if err := e.Store.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("saving session: %w", err)
	}
	return session, nil
}

// parseExtractSignal returns the parsed signal, or nil when the reply has no
// well-formed tag.
func parseExtractSignal(text string) *extractSignal {
	match := extractTagPattern.FindStringSubmatch(text)
	if match == nil {
		return nil
	}
	var signal extractSignal
	if err := json.Unmarshal([]byte(match[1]), &signal); err != nil {
		return nil
	}
	return &signal
}

// stripExtractTags removes extraction tags from the user-facing reply.
func stripExtractTags(text string) string {
	return strings.TrimSpace(extractTagPattern.ReplaceAllString(text, ""))
}

// projectNameFrom derives a project title from accumulated raw input,
// truncated to 100 runes so multi-byte input stays valid UTF-8.
func projectNameFrom(rawInput string) string {
	name := strings.TrimSpace(rawInput)
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}
	return strings.TrimSpace(strings.TrimRight(name, "?!."))
}

// newSessionID returns a random session identifier.
func newSessionID() string {
	return uuid.NewString()
}
