// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rules derives structured framing directives from an epistemic
// profile and an orientation-grouped keyword map: the dominant orientation,
// research-question templates, method and contribution biases, and a logic
// pattern. Everything here is a pure function; outputs are derived fresh per
// call and grounded in the actual supplied keywords, never fabricated ones.
package rules

import (
	"fmt"

	"github.com/pdiddy/framingbot/pkg/types"
)

const (
	// densityBonusPerTerm is the per-keyword score adjustment applied before
	// selecting the dominant orientation.
	densityBonusPerTerm = 0.05

	// densityBonusCap limits the total keyword density bonus.
	densityBonusCap = 0.2

	// secondaryThreshold is the minimum original (non-bonused) profile score
	// an orientation needs for its vocabulary to become eligible for
	// research-question templates.
	secondaryThreshold = 0.2

	// Placeholder marks a template slot with no fitting keyword. Templates
	// use it instead of inventing terms absent from the input.
	Placeholder = "[...]"

	// arrow joins logic pattern nodes.
	arrow = " → "
)

// InvalidOrientationError reports a dominant-orientation value outside the
// fixed four-label set. All downstream derivations are keyed on the label,
// so this is fatal.
type InvalidOrientationError struct {
	Orientation types.Orientation
}

func (e *InvalidOrientationError) Error() string {
	return fmt.Sprintf("invalid orientation %q", e.Orientation)
}

// SelectDominant picks the dominant orientation for a profile and keyword
// map. Each orientation's score is adjusted by a keyword density bonus of
// 0.05 per distinct term, capped at 0.2, so an orientation with a weaker raw
// score can still win on evidence density. Exact ties after adjustment
// resolve by the fixed priority order problem_solving > exploratory >
// constructive > critical.
func SelectDominant(profile types.EpistemicProfile, keywordMap types.KeywordMap) types.Orientation {
	best := types.TieBreakOrder()[0]
	bestScore := adjustedScore(profile, keywordMap, best)

	for _, o := range types.TieBreakOrder()[1:] {
		if score := adjustedScore(profile, keywordMap, o); score > bestScore {
			best = o
			bestScore = score
		}
	}
	return best
}

func adjustedScore(profile types.EpistemicProfile, keywordMap types.KeywordMap, o types.Orientation) float64 {
	bonus := densityBonusPerTerm * float64(len(keywordMap[o]))
	if bonus > densityBonusCap {
		bonus = densityBonusCap
	}
	return profile.Get(o) + bonus
}

// Evaluate runs the full derivation: dominant orientation, research-question
// templates, method bias, contribution bias, and logic pattern.
func Evaluate(profile types.EpistemicProfile, keywordMap types.KeywordMap, roles types.KeywordRoleIndex) (types.RuleEngineOutput, error) {
	dominant := SelectDominant(profile, keywordMap)

	templates, err := GenerateRQTemplates(dominant, profile, keywordMap)
	if err != nil {
		return types.RuleEngineOutput{}, err
	}
	methods, err := InferMethodBias(dominant, keywordMap, roles)
	if err != nil {
		return types.RuleEngineOutput{}, err
	}
	contributions, err := InferContributionBias(dominant, keywordMap)
	if err != nil {
		return types.RuleEngineOutput{}, err
	}
	pattern, err := ComputeLogicPattern(dominant, keywordMap)
	if err != nil {
		return types.RuleEngineOutput{}, err
	}

	return types.RuleEngineOutput{
		DominantOrientation: dominant,
		RQTemplates:         templates,
		MethodBias:          methods,
		ContributionBias:    contributions,
		LogicPattern:        pattern,
	}, nil
}
