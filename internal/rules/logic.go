// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rules

import (
	"fmt"
	"strings"

	"github.com/pdiddy/framingbot/pkg/types"
)

// logicArcs holds the generic five-node reasoning arc per orientation.
var logicArcs = map[types.Orientation][]string{
	types.OrientationProblemSolving: {
		"problem identification", "hypothesis", "method", "evidence", "solution",
	},
	types.OrientationExploratory: {
		"phenomenon", "inquiry", "immersion", "themes", "interpretation",
	},
	types.OrientationConstructive: {
		"need", "principles", "design", "artefact", "evaluation",
	},
	types.OrientationCritical: {
		"assumption", "deconstruction", "power analysis", "re-reading", "alternative",
	},
}

// logicSubstitutions names, per orientation, the two arc positions replaced
// with keyword-bearing phrases and the phrase formats. Node count stays at
// five after substitution, within the required 4-6.
var logicSubstitutions = map[types.Orientation][2]struct {
	index  int
	format string
}{
	types.OrientationProblemSolving: {
		{index: 0, format: "problem identification around %s"},
		{index: 3, format: "evidence on %s"},
	},
	types.OrientationExploratory: {
		{index: 0, format: "the phenomenon of %s"},
		{index: 3, format: "themes around %s"},
	},
	types.OrientationConstructive: {
		{index: 2, format: "design of %s"},
		{index: 4, format: "evaluation of %s"},
	},
	types.OrientationCritical: {
		{index: 0, format: "the assumption behind %s"},
		{index: 2, format: "power analysis of %s"},
	},
}

// ComputeLogicPattern builds the reasoning-arc string for the dominant
// orientation, substituting two generic node labels with phrases referencing
// real keywords from the dominant orientation's set. A missing keyword falls
// back to the placeholder token rather than failing.
func ComputeLogicPattern(dominant types.Orientation, keywordMap types.KeywordMap) (string, error) {
	if !dominant.Valid() {
		return "", &InvalidOrientationError{Orientation: dominant}
	}

	nodes := append([]string(nil), logicArcs[dominant]...)
	terms := keywordMap[dominant]

	kw := func(i int) string {
		if len(terms) == 0 {
			return Placeholder
		}
		// Reuse the first term when only one keyword exists.
		if i >= len(terms) {
			return terms[0]
		}
		return terms[i]
	}

	for i, sub := range logicSubstitutions[dominant] {
		nodes[sub.index] = fmt.Sprintf(sub.format, kw(i))
	}

	return strings.Join(nodes, arrow), nil
}
