// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/framingbot/internal/skills"
	"github.com/pdiddy/framingbot/pkg/types"
)

// maxProjectNameLen bounds the project name derived from raw input.
const maxProjectNameLen = 100

// RunNotion executes the eight-step Notion-mapped pipeline, producing a
// Framing record keyed to the Notion database schema.
func (r *Runner) RunNotion(ctx context.Context, rawInput, owner string, w io.Writer) (*types.Framing, error) {
	fmt.Fprintln(w, "[1/8] classifying epistemic mode")
	modeResult, err := skills.ClassifyMode(ctx, r.Backend, rawInput, r.MaxRetries)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w, "[2/8] extracting tension")
	tension, err := skills.ExtractTension(ctx, r.Backend, rawInput, nil, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	background := fmt.Sprintf("Dominant assumption: %s Blind spot: %s Core gap: %s",
		tension.DominantAssumption, tension.BlindSpot, tension.CoreGap)

	fmt.Fprintln(w, "[3/8] building research position")
	purpose, err := skills.BuildPosition(ctx, r.Backend, modeResult.Mode, tension, nil, "", r.MaxRetries)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w, "[4/8] generating research questions")
	questions, err := skills.GenerateQuestions(ctx, r.Backend, purpose, types.RuleEngineOutput{}, nil, r.MaxRetries)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("question generator returned no questions")
	}

	fmt.Fprintln(w, "[5/8] auto-selecting first question")
	selectedRQ := questions[0].Question

	fmt.Fprintln(w, "[6/8] inferring method")
	method, err := skills.InferMethod(ctx, r.Backend, skills.MethodInput{
		Mode:       modeResult.Mode,
		SelectedRQ: selectedRQ,
	}, r.MaxRetries)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w, "[7/8] inferring result")
	result, err := skills.InferResult(ctx, r.Backend, modeResult.Mode, selectedRQ, method, r.MaxRetries)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(w, "[8/8] claiming contribution")
	_, contribution, err := skills.ClaimContribution(ctx, r.Backend, skills.ContributionInput{
		SelectedRQ: selectedRQ,
		Mode:       modeResult.Mode,
		Tension:    tension,
	}, r.MaxRetries)
	if err != nil {
		return nil, err
	}

	return &types.Framing{
		ProjectName:  ProjectName(rawInput),
		Owner:        owner,
		ResearchType: modeResult.Mode,
		Background:   background,
		Purpose:      purpose,
		RQ:           selectedRQ,
		Method:       method,
		Result:       result,
		Contribution: contribution,
		Year:         fmt.Sprintf("%d", time.Now().Year()),
	}, nil
}

// ProjectName derives a record title from raw input: trailing terminal
// punctuation stripped, truncated to 100 runes with an ellipsis.
func ProjectName(rawInput string) string {
	name := strings.TrimSpace(rawInput)
	name = strings.TrimSpace(strings.TrimRight(name, "?!."))
	runes := []rune(name)
	if len(runes) > maxProjectNameLen {
		name = string(runes[:maxProjectNameLen-3]) + "..."
	}
	return name
}
