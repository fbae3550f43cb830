// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"

	"github.com/pdiddy/framingbot/pkg/types"
)

// GenerateRQTemplates derives 2-3 research-question templates from the
// dominant orientation's keyword set. Vocabulary from another orientation is
// eligible when that orientation's original (non-bonused) profile score is
// at least 0.2. Every template embeds a literal keyword from the eligible
// set or the explicit placeholder token; templates are never character
// identical.
func GenerateRQTemplates(dominant types.Orientation, profile types.EpistemicProfile, keywordMap types.KeywordMap) ([]string, error) {
	if !dominant.Valid() {
		return nil, &InvalidOrientationError{Orientation: dominant}
	}

	eligible := eligibleTerms(dominant, profile, keywordMap)
	k := func(i int) string {
		if i < len(eligible) {
			return eligible[i]
		}
		return Placeholder
	}

	var templates []string
	switch dominant {
	case types.OrientationProblemSolving:
		templates = []string{
			fmt.Sprintf("How does %s affect %s?", k(0), k(1)),
			fmt.Sprintf("What intervention targeting %s most effectively improves %s?", k(0), k(1)),
			fmt.Sprintf("Under what conditions does %s lead to measurable change in %s?", k(2), k(0)),
		}
	case types.OrientationExploratory:
		templates = []string{
			fmt.Sprintf("How do people experience and make sense of %s?", k(0)),
			fmt.Sprintf("What is the nature of %s as it unfolds in relation to %s?", k(0), k(1)),
			fmt.Sprintf("What patterns emerge when %s is observed in its own terms?", k(2)),
		}
	case types.OrientationConstructive:
		templates = []string{
			fmt.Sprintf("How might %s be designed to support %s?", k(0), k(1)),
			fmt.Sprintf("What principles should guide the construction of %s?", k(0)),
			fmt.Sprintf("What does building %s reveal about the design space of %s?", k(2), k(0)),
		}
	case types.OrientationCritical:
		templates = []string{
			fmt.Sprintf("What assumptions underlying %s are taken for granted, and by whom?", k(0)),
			fmt.Sprintf("Whose interests does the prevailing framing of %s serve at the expense of %s?", k(0), k(1)),
			fmt.Sprintf("How does the dominant discourse around %s obscure %s?", k(2), k(0)),
		}
	}

	// With fewer than two distinct keywords the third template adds no new
	// vocabulary; drop it and return the minimum of two.
	if len(eligible) < 2 {
		templates = templates[:2]
	}

	return dedupeStrings(templates), nil
}

// eligibleTerms returns the dominant orientation's terms followed by terms
// from every other orientation whose original profile score passes the
// secondary threshold, preserving map order and skipping duplicates.
func eligibleTerms(dominant types.Orientation, profile types.EpistemicProfile, keywordMap types.KeywordMap) []string {
	seen := make(map[string]bool)
	var terms []string

	add := func(o types.Orientation) {
		for _, term := range keywordMap[o] {
			if seen[term] {
				continue
			}
			seen[term] = true
			terms = append(terms, term)
		}
	}

	add(dominant)
	for _, o := range types.Orientations() {
		if o == dominant {
			continue
		}
		if profile.Get(o) >= secondaryThreshold {
			add(o)
		}
	}
	return terms
}

// dedupeStrings drops later exact duplicates, preserving order.
func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
