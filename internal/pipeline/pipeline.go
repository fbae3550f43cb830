// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline orchestrates the framing pipeline: deterministic keyword
// aggregation and rule derivation interleaved with the generation skills.
package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/pdiddy/framingbot/internal/keywords"
	"github.com/pdiddy/framingbot/internal/rules"
	"github.com/pdiddy/framingbot/internal/skills"
	"github.com/pdiddy/framingbot/pkg/types"
)

// Runner executes framing pipelines against a skill backend.
type Runner struct {
	Backend    skills.Backend
	MaxRetries int
}

// Run executes the full ten-step framing pipeline over a raw research idea
// and optional keyword observations, writing progress lines to w.
func (r *Runner) Run(ctx context.Context, rawInput string, observations []types.KeywordObservation, w io.Writer) (*types.FramingState, error) {
	state := types.NewFramingState(rawInput)

	// Step 1: keyword aggregation.
	fmt.Fprintln(w, "[1/10] aggregating keywords")
	keywordMap, roles, profile, err := keywords.Aggregate(observations)
	if err != nil {
		return nil, fmt.Errorf("aggregating keywords: %w", err)
	}
	state.KeywordMap = keywordMap
	state.KeywordRoles = roles
	state.EpistemicProfile = profile

	// Step 2: mode classification, merged additively into the profile and map.
	fmt.Fprintln(w, "[2/10] classifying epistemic mode")
	modeResult, err := skills.ClassifyMode(ctx, r.Backend, rawInput, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.Mode = modeResult.Mode
	mergeProfile(&state.EpistemicProfile, modeResult.EpistemicProfile)
	mergeKeywordMap(state.KeywordMap, modeResult.KeywordMap)

	// Step 3: rule engine.
	fmt.Fprintln(w, "[3/10] deriving rule engine output")
	ruleOutput, err := rules.Evaluate(state.EpistemicProfile, state.KeywordMap, state.KeywordRoles)
	if err != nil {
		return nil, fmt.Errorf("evaluating rules: %w", err)
	}
	state.RuleEngineOutput = ruleOutput
	fmt.Fprintf(w, "        dominant: %s\n", ruleOutput.DominantOrientation)

	// Step 4: tension extraction.
	fmt.Fprintln(w, "[4/10] extracting tension")
	tension, err := skills.ExtractTension(ctx, r.Backend, rawInput, state.KeywordMap, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.Tension = tension

	// Step 5: research position.
	fmt.Fprintln(w, "[5/10] building research position")
	position, err := skills.BuildPosition(ctx, r.Backend, state.Mode, tension, state.KeywordMap,
		ruleOutput.DominantOrientation, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.ResearchPosition = position

	// Step 6: research questions, auto-selecting the first.
	fmt.Fprintln(w, "[6/10] generating research questions")
	questions, err := skills.GenerateQuestions(ctx, r.Backend, position, ruleOutput, state.KeywordMap, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.ResearchQuestions = questions
	if len(questions) > 0 {
		state.SelectedRQ = questions[0].Question
	}

	// Step 7: method alignment.
	fmt.Fprintln(w, "[7/10] aligning method")
	method, err := skills.InferMethod(ctx, r.Backend, skills.MethodInput{
		Mode:                state.Mode,
		SelectedRQ:          state.SelectedRQ,
		MethodBias:          ruleOutput.MethodBias,
		ContributionBias:    ruleOutput.ContributionBias,
		DominantOrientation: ruleOutput.DominantOrientation,
		LogicPattern:        ruleOutput.LogicPattern,
		KeywordMap:          state.KeywordMap,
		Tension:             tension,
	}, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.Method = method

	// Step 8: contribution claim.
	fmt.Fprintln(w, "[8/10] claiming contribution")
	resultType, contribution, err := skills.ClaimContribution(ctx, r.Backend, skills.ContributionInput{
		SelectedRQ:       state.SelectedRQ,
		Mode:             state.Mode,
		Tension:          tension,
		KeywordMap:       state.KeywordMap,
		ContributionBias: ruleOutput.ContributionBias,
	}, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.ResultType = resultType
	state.Contribution = contribution

	// Step 9: coherence check.
	fmt.Fprintln(w, "[9/10] checking coherence")
	notes, err := skills.CheckCoherence(ctx, r.Backend, skills.CoherenceInput{
		Mode:         state.Mode,
		SelectedRQ:   state.SelectedRQ,
		Tension:      tension,
		Contribution: contribution,
		Method:       method,
		KeywordMap:   state.KeywordMap,
	}, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.CoherenceNotes = notes

	// Step 10: bilingual abstract.
	fmt.Fprintln(w, "[10/10] generating abstract")
	en, zh, err := skills.GenerateAbstract(ctx, r.Backend, skills.AbstractInput{
		Background: fmt.Sprintf("%s %s %s",
			tension.DominantAssumption, tension.BlindSpot, tension.CoreGap),
		Purpose:          position,
		Method:           method,
		Result:           resultType,
		Contribution:     contribution,
		EpistemicProfile: state.EpistemicProfile,
		RuleEngineOutput: ruleOutput,
		KeywordMap:       state.KeywordMap,
	}, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	state.AbstractEN = en
	state.AbstractZH = zh

	fmt.Fprintln(w, "pipeline complete")
	return state, nil
}

// UpdateKeywords re-runs aggregation and the rule engine over new
// observations, updating only the keyword-derived fields of state. Used by
// the apply-keywords action; the generation-driven fields stay untouched.
func (r *Runner) UpdateKeywords(_ context.Context, state *types.FramingState, observations []types.KeywordObservation) error {
	keywordMap, roles, profile, err := keywords.Aggregate(observations)
	if err != nil {
		return fmt.Errorf("aggregating keywords: %w", err)
	}

	ruleOutput, err := rules.Evaluate(profile, keywordMap, roles)
	if err != nil {
		return fmt.Errorf("evaluating rules: %w", err)
	}

	state.KeywordMap = keywordMap
	state.KeywordRoles = roles
	state.EpistemicProfile = profile
	state.RuleEngineOutput = ruleOutput
	return nil
}

// mergeProfile folds a classifier-provided profile into dst by per-field
// maximum.
func mergeProfile(dst *types.EpistemicProfile, src *types.EpistemicProfile) {
	if src == nil {
		return
	}
	for _, o := range types.Orientations() {
		if v := src.Get(o); v > dst.Get(o) {
			dst.Set(o, v)
		}
	}
}

// mergeKeywordMap unions classifier-provided terms into dst, preserving
// first-appearance order and exact-match dedup.
func mergeKeywordMap(dst, src types.KeywordMap) {
	if src == nil {
		return
	}
	for _, o := range types.Orientations() {
		seen := make(map[string]bool, len(dst[o]))
		for _, term := range dst[o] {
			seen[term] = true
		}
		for _, term := range src[o] {
			if term == "" || seen[term] {
				continue
			}
			seen[term] = true
			dst[o] = append(dst[o], term)
		}
	}
}
