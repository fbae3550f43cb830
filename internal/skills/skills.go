// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package skills wraps the prompt-defined text-generation skills of the
// framing pipeline. Each skill is a black-box collaborator with a structured
// JSON-in/JSON-out contract; the deterministic keyword and rule packages
// never depend on which backend implementation is wired in.
package skills

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/pdiddy/framingbot/pkg/types"
)

// Backend abstracts the Generative AI API so tests can supply a mock.
type Backend interface {
	// Complete sends a free-form conversation and returns the assistant
	// reply text.
	Complete(ctx context.Context, systemPrompt string, messages []types.ChatMessage) (string, error)

	// CompleteJSON sends a single structured request and returns the raw
	// JSON response text.
	CompleteJSON(ctx context.Context, systemPrompt, userJSON string) (string, error)
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

const defaultMaxRetries = 3

// runSkill marshals input, calls the backend with exponential backoff, and
// unmarshals the JSON reply into output.
func runSkill(ctx context.Context, b Backend, prompt string, input, output any, maxRetries int) error {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("marshaling skill input: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		raw, err := b.CompleteJSON(ctx, prompt, string(payload))
		if err != nil {
			lastErr = err
			continue
		}
		if err := json.Unmarshal([]byte(raw), output); err != nil {
			return fmt.Errorf("parsing skill response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// ModeResult is the classifier's output. Profile and keyword map are
// optional refinements merged additively by the pipeline.
type ModeResult struct {
	Mode             string                  `json:"mode"`
	EpistemicProfile *types.EpistemicProfile `json:"epistemic_profile,omitempty"`
	KeywordMap       types.KeywordMap        `json:"keyword_map,omitempty"`
}

// ClassifyMode assigns an epistemic mode to a raw research idea.
func ClassifyMode(ctx context.Context, b Backend, rawInput string, maxRetries int) (ModeResult, error) {
	input := struct {
		RawInput string `json:"raw_input"`
	}{RawInput: rawInput}

	var out ModeResult
	if err := runSkill(ctx, b, modeClassifierPrompt, input, &out, maxRetries); err != nil {
		return ModeResult{}, fmt.Errorf("classifying mode: %w", err)
	}
	return out, nil
}

// ExtractTension identifies the dominant assumption, blind spot, and core
// gap for a research topic.
func ExtractTension(ctx context.Context, b Backend, rawInput string, keywordMap types.KeywordMap, maxRetries int) (types.Tension, error) {
	input := struct {
		RawInput   string           `json:"raw_input"`
		KeywordMap types.KeywordMap `json:"keyword_map,omitempty"`
	}{RawInput: rawInput, KeywordMap: keywordMap}

	var out types.Tension
	if err := runSkill(ctx, b, tensionExtractorPrompt, input, &out, maxRetries); err != nil {
		return types.Tension{}, fmt.Errorf("extracting tension: %w", err)
	}
	return out, nil
}

// BuildPosition articulates the researcher's stance from mode and tension.
func BuildPosition(ctx context.Context, b Backend, mode string, tension types.Tension, keywordMap types.KeywordMap, dominant types.Orientation, maxRetries int) (string, error) {
	input := struct {
		Mode                string            `json:"mode"`
		Tension             types.Tension     `json:"tension"`
		KeywordMap          types.KeywordMap  `json:"keyword_map,omitempty"`
		DominantOrientation types.Orientation `json:"dominant_orientation,omitempty"`
	}{Mode: mode, Tension: tension, KeywordMap: keywordMap, DominantOrientation: dominant}

	var out struct {
		ResearchPosition string `json:"research_position"`
	}
	if err := runSkill(ctx, b, positionBuilderPrompt, input, &out, maxRetries); err != nil {
		return "", fmt.Errorf("building position: %w", err)
	}
	return out.ResearchPosition, nil
}

// GenerateQuestions produces research question candidates constrained by the
// rule engine output.
func GenerateQuestions(ctx context.Context, b Backend, position string, ruleOutput types.RuleEngineOutput, keywordMap types.KeywordMap, maxRetries int) ([]types.ResearchQuestion, error) {
	input := struct {
		ResearchPosition    string            `json:"research_position"`
		RQTemplates         []string          `json:"rq_templates,omitempty"`
		LogicPattern        string            `json:"logic_pattern,omitempty"`
		DominantOrientation types.Orientation `json:"dominant_orientation,omitempty"`
		KeywordMap          types.KeywordMap  `json:"keyword_map,omitempty"`
	}{
		ResearchPosition:    position,
		RQTemplates:         ruleOutput.RQTemplates,
		LogicPattern:        ruleOutput.LogicPattern,
		DominantOrientation: ruleOutput.DominantOrientation,
		KeywordMap:          keywordMap,
	}

	var out struct {
		ResearchQuestions []types.ResearchQuestion `json:"research_questions"`
	}
	if err := runSkill(ctx, b, questionGeneratorPrompt, input, &out, maxRetries); err != nil {
		return nil, fmt.Errorf("generating questions: %w", err)
	}
	return out.ResearchQuestions, nil
}

// MethodInput carries the structured constraints for method alignment.
type MethodInput struct {
	Mode                string            `json:"mode,omitempty"`
	SelectedRQ          string            `json:"selected_rq"`
	MethodBias          []string          `json:"method_bias,omitempty"`
	ContributionBias    []string          `json:"contribution_bias,omitempty"`
	DominantOrientation types.Orientation `json:"dominant_orientation,omitempty"`
	LogicPattern        string            `json:"logic_pattern,omitempty"`
	KeywordMap          types.KeywordMap  `json:"keyword_map,omitempty"`
	Tension             types.Tension     `json:"tension,omitempty"`
}

// InferMethod proposes a concrete method aligned with the selected question.
func InferMethod(ctx context.Context, b Backend, input MethodInput, maxRetries int) (string, error) {
	var out struct {
		Method string `json:"method"`
	}
	if err := runSkill(ctx, b, methodInferrerPrompt, input, &out, maxRetries); err != nil {
		return "", fmt.Errorf("inferring method: %w", err)
	}
	return out.Method, nil
}

// InferResult describes the expected result shape for a question and method.
func InferResult(ctx context.Context, b Backend, mode, selectedRQ, method string, maxRetries int) (string, error) {
	input := struct {
		Mode       string `json:"mode"`
		SelectedRQ string `json:"selected_rq"`
		Method     string `json:"method"`
	}{Mode: mode, SelectedRQ: selectedRQ, Method: method}

	var out struct {
		Result string `json:"result"`
	}
	if err := runSkill(ctx, b, resultInferrerPrompt, input, &out, maxRetries); err != nil {
		return "", fmt.Errorf("inferring result: %w", err)
	}
	return out.Result, nil
}

// ContributionInput carries the structured constraints for the contribution
// claim.
type ContributionInput struct {
	SelectedRQ       string           `json:"selected_rq"`
	Mode             string           `json:"mode,omitempty"`
	Tension          types.Tension    `json:"tension,omitempty"`
	KeywordMap       types.KeywordMap `json:"keyword_map,omitempty"`
	ContributionBias []string         `json:"contribution_bias,omitempty"`
}

// ClaimContribution states the result type and contribution claim.
func ClaimContribution(ctx context.Context, b Backend, input ContributionInput, maxRetries int) (resultType, contribution string, err error) {
	var out struct {
		ResultType   string `json:"result_type"`
		Contribution string `json:"contribution"`
	}
	if err := runSkill(ctx, b, contributionClaimerPrompt, input, &out, maxRetries); err != nil {
		return "", "", fmt.Errorf("claiming contribution: %w", err)
	}
	return out.ResultType, out.Contribution, nil
}

// CoherenceInput carries the completed framing for coherence checking.
type CoherenceInput struct {
	Mode         string           `json:"mode"`
	SelectedRQ   string           `json:"selected_rq"`
	Tension      types.Tension    `json:"tension"`
	Contribution string           `json:"contribution"`
	Method       string           `json:"method,omitempty"`
	KeywordMap   types.KeywordMap `json:"keyword_map,omitempty"`
}

// CheckCoherence audits the framing for logical gaps and scope issues.
func CheckCoherence(ctx context.Context, b Backend, input CoherenceInput, maxRetries int) (types.CoherenceNotes, error) {
	var out types.CoherenceNotes
	if err := runSkill(ctx, b, coherenceCheckerPrompt, input, &out, maxRetries); err != nil {
		return types.CoherenceNotes{}, fmt.Errorf("checking coherence: %w", err)
	}
	return out, nil
}

// AbstractInput carries the framing fields an abstract is composed from.
type AbstractInput struct {
	Background       string                 `json:"background"`
	Purpose          string                 `json:"purpose"`
	Method           string                 `json:"method"`
	Result           string                 `json:"result"`
	Contribution     string                 `json:"contribution"`
	EpistemicProfile types.EpistemicProfile `json:"epistemic_profile,omitempty"`
	RuleEngineOutput types.RuleEngineOutput `json:"rule_engine_output,omitempty"`
	KeywordMap       types.KeywordMap       `json:"keyword_map,omitempty"`
}

// GenerateAbstract produces English and Chinese abstracts from a framing.
func GenerateAbstract(ctx context.Context, b Backend, input AbstractInput, maxRetries int) (en, zh string, err error) {
	var out struct {
		AbstractEN string `json:"abstract_en"`
		AbstractZH string `json:"abstract_zh"`
	}
	if err := runSkill(ctx, b, abstractGeneratorPrompt, input, &out, maxRetries); err != nil {
		return "", "", fmt.Errorf("generating abstract: %w", err)
	}
	return out.AbstractEN, out.AbstractZH, nil
}

// ProfilePaper extracts keyword observations from paper text so the
// aggregator can compute an epistemic profile for it.
func ProfilePaper(ctx context.Context, b Backend, paperText string, maxRetries int) ([]types.KeywordObservation, error) {
	input := struct {
		PaperText string `json:"paper_text"`
	}{PaperText: paperText}

	// Weight decodes through a pointer so an absent field defaults to 1.0
	// while an explicit zero survives.
	var out struct {
		Keywords []struct {
			Term        string   `json:"term"`
			Orientation string   `json:"orientation"`
			Weight      *float64 `json:"weight"`
		} `json:"keywords"`
	}
	if err := runSkill(ctx, b, paperProfilerPrompt, input, &out, maxRetries); err != nil {
		return nil, fmt.Errorf("profiling paper: %w", err)
	}

	observations := make([]types.KeywordObservation, len(out.Keywords))
	for i, kw := range out.Keywords {
		weight := float64(types.DefaultWeight)
		if kw.Weight != nil {
			weight = *kw.Weight
		}
		observations[i] = types.KeywordObservation{
			Term:        kw.Term,
			Orientation: types.Orientation(kw.Orientation),
			Weight:      weight,
		}
	}
	return observations, nil
}
