// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"
	"strings"

	"github.com/pdiddy/framingbot/pkg/types"
)

// methodFamily is a semantic grouping of keywords that implies a concrete
// method and contribution vocabulary.
type methodFamily string

const (
	familyQualitative  methodFamily = "qualitative"
	familyQuantitative methodFamily = "quantitative"
	familyDesign       methodFamily = "design"
	familyCritical     methodFamily = "critical"
)

// familyCues maps each family to substring cues matched against lowercased
// keywords. A keyword matching no cue falls back to the family of the
// orientation it was observed under.
var familyCues = map[methodFamily][]string{
	familyQualitative: {
		"experience", "meaning", "percept", "interpret", "narrative",
		"identity", "culture", "lived", "sense", "emotion", "belief",
	},
	familyQuantitative: {
		"effect", "measure", "outcome", "metric", "rate", "accuracy",
		"performance", "impact", "latency", "efficien", "scale", "evaluat",
	},
	familyDesign: {
		"design", "prototype", "build", "artefact", "artifact", "system",
		"tool", "interface", "architecture", "fabricat",
	},
	familyCritical: {
		"power", "discourse", "ideolog", "hegemon", "assumption", "norm",
		"bias", "inequal", "colonial", "expose", "challenge",
	},
}

// familyMethods maps each family to a concrete method name. Generic category
// labels ("qualitative methods") are never returned.
var familyMethods = map[methodFamily]string{
	familyQualitative:  "semi-structured interviews with thematic analysis",
	familyQuantitative: "controlled experiment with quantitative outcome measures",
	familyDesign:       "design-based research through iterative prototyping",
	familyCritical:     "critical discourse analysis",
}

// familyContributions maps each family to an outcome vocabulary.
var familyContributions = map[methodFamily]string{
	familyQualitative:  "a conceptual framework",
	familyQuantitative: "empirical evidence",
	familyDesign:       "a validated design artefact",
	familyCritical:     "a critical lens",
}

// mixedShareThreshold is the minimum share of role-indexed terms a secondary
// orientation needs before the method bias pulls toward mixed methods.
const mixedShareThreshold = 0.25

// orientationFamily returns the default family for keywords observed under
// an orientation.
func orientationFamily(o types.Orientation) methodFamily {
	switch o {
	case types.OrientationExploratory:
		return familyQualitative
	case types.OrientationProblemSolving:
		return familyQuantitative
	case types.OrientationConstructive:
		return familyDesign
	default:
		return familyCritical
	}
}

// classifyTerm assigns a keyword to a family by cue matching, falling back
// to the family of the orientation it belongs to. Families are checked in a
// fixed order so overlapping cues resolve deterministically.
func classifyTerm(term string, fallback methodFamily) methodFamily {
	lower := strings.ToLower(term)
	for _, fam := range []methodFamily{familyQualitative, familyQuantitative, familyDesign, familyCritical} {
		for _, cue := range familyCues[fam] {
			if strings.Contains(lower, cue) {
				return fam
			}
		}
	}
	return fallback
}

// rankFamilies counts the dominant orientation's keywords per family and
// returns families ordered by count, most frequent first. A keyword-less
// dominant orientation yields only its default family.
func rankFamilies(dominant types.Orientation, keywordMap types.KeywordMap) []methodFamily {
	fallback := orientationFamily(dominant)
	counts := make(map[methodFamily]int)
	for _, term := range keywordMap[dominant] {
		counts[classifyTerm(term, fallback)]++
	}
	if len(counts) == 0 {
		return []methodFamily{fallback}
	}

	// Stable order: by count, then the fixed family order.
	order := []methodFamily{familyQualitative, familyQuantitative, familyDesign, familyCritical}
	var ranked []methodFamily
	for _, fam := range order {
		if counts[fam] > 0 {
			ranked = append(ranked, fam)
		}
	}
	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if counts[ranked[j]] > counts[ranked[i]] {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	return ranked
}

// InferMethodBias classifies the dominant orientation's keywords by semantic
// family and returns 1-2 concrete method names. When keywords from a
// secondary orientation hold a non-trivial share of the role index, the
// second entry reflects a mixed-methods pull toward that secondary family
// instead of doubling down on the dominant family alone.
func InferMethodBias(dominant types.Orientation, keywordMap types.KeywordMap, roles types.KeywordRoleIndex) ([]string, error) {
	if !dominant.Valid() {
		return nil, &InvalidOrientationError{Orientation: dominant}
	}

	ranked := rankFamilies(dominant, keywordMap)
	primary := ranked[0]
	bias := []string{familyMethods[primary]}

	if secondary, ok := secondaryOrientation(dominant, roles); ok {
		secondaryFam := orientationFamily(secondary)
		if secondaryFam != primary {
			bias = append(bias, fmt.Sprintf("mixed methods combining %s with %s",
				familyMethods[primary], familyMethods[secondaryFam]))
		}
	} else if len(ranked) > 1 {
		bias = append(bias, familyMethods[ranked[1]])
	}

	return bias, nil
}

// InferContributionBias maps the dominant orientation's keyword families to
// contribution types, grounded in an actual keyword where one exists.
func InferContributionBias(dominant types.Orientation, keywordMap types.KeywordMap) ([]string, error) {
	if !dominant.Valid() {
		return nil, &InvalidOrientationError{Orientation: dominant}
	}

	ranked := rankFamilies(dominant, keywordMap)
	anchor := Placeholder
	if terms := keywordMap[dominant]; len(terms) > 0 {
		anchor = terms[0]
	}

	bias := []string{fmt.Sprintf("%s addressing %s", familyContributions[ranked[0]], anchor)}
	if len(ranked) > 1 {
		bias = append(bias, familyContributions[ranked[1]])
	}
	return bias, nil
}

// secondaryOrientation finds the most common non-dominant orientation in the
// role index, provided it holds at least mixedShareThreshold of all indexed
// terms. Count ties resolve by the fixed tie-break order.
func secondaryOrientation(dominant types.Orientation, roles types.KeywordRoleIndex) (types.Orientation, bool) {
	if len(roles) == 0 {
		return "", false
	}

	counts := make(map[types.Orientation]int)
	for _, o := range roles {
		if o != dominant {
			counts[o]++
		}
	}

	var best types.Orientation
	bestCount := 0
	for _, o := range types.TieBreakOrder() {
		if counts[o] > bestCount {
			best = o
			bestCount = counts[o]
		}
	}

	if bestCount == 0 || float64(bestCount)/float64(len(roles)) < mixedShareThreshold {
		return "", false
	}
	return best, true
}
