// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package keywords aggregates raw keyword observations into the
// orientation-grouped keyword map, the term role index, and the normalized
// epistemic profile consumed by the rule engine.
//
// All functions are pure: they rebuild their outputs from scratch on every
// call and never retain state between invocations.
package keywords

import (
	"fmt"
	"math"
	"strings"

	"github.com/pdiddy/framingbot/pkg/types"
)

// InvalidObservationError reports a malformed observation that reached the
// aggregator without prior validation: an unknown orientation label or a
// weight outside [0,1]. The aggregator fails fast rather than coercing.
type InvalidObservationError struct {
	// Index is the observation's position in the input sequence.
	Index int

	// Reason describes what was malformed.
	Reason string
}

func (e *InvalidObservationError) Error() string {
	return fmt.Sprintf("invalid observation at index %d: %s", e.Index, e.Reason)
}

// Validate checks every observation's orientation label and weight range.
// Empty terms are not an error here: they are silently discarded during
// aggregation.
func Validate(observations []types.KeywordObservation) error {
	for i, obs := range observations {
		if !obs.Orientation.Valid() {
			return &InvalidObservationError{
				Index:  i,
				Reason: fmt.Sprintf("unknown orientation %q", obs.Orientation),
			}
		}
		if obs.Weight < 0 || obs.Weight > 1 {
			return &InvalidObservationError{
				Index:  i,
				Reason: fmt.Sprintf("weight %g out of range [0,1]", obs.Weight),
			}
		}
	}
	return nil
}

// BuildKeywordMap groups observations by orientation, deduplicating terms by
// case-sensitive exact match. The first occurrence's casing is kept; later
// identical-case duplicates are ignored. Terms that are empty after trimming
// are discarded. All four orientation keys are always present.
func BuildKeywordMap(observations []types.KeywordObservation) (types.KeywordMap, error) {
	if err := Validate(observations); err != nil {
		return nil, err
	}

	m := types.EmptyKeywordMap()
	seen := make(map[types.Orientation]map[string]bool, 4)
	for _, o := range types.Orientations() {
		seen[o] = make(map[string]bool)
	}

	for _, obs := range observations {
		term := strings.TrimSpace(obs.Term)
		if term == "" {
			continue
		}
		if seen[obs.Orientation][term] {
			continue
		}
		seen[obs.Orientation][term] = true
		m[obs.Orientation] = append(m[obs.Orientation], term)
	}

	return m, nil
}

// BuildRoleIndex maps each unique term (case-sensitive) to the orientation
// of its maximum-weight observation. On an exact weight tie the orientation
// of the first observation encountered in input order wins.
func BuildRoleIndex(observations []types.KeywordObservation) (types.KeywordRoleIndex, error) {
	if err := Validate(observations); err != nil {
		return nil, err
	}

	index := types.KeywordRoleIndex{}
	best := make(map[string]float64)

	for _, obs := range observations {
		term := strings.TrimSpace(obs.Term)
		if term == "" {
			continue
		}
		if w, ok := best[term]; ok && obs.Weight <= w {
			continue
		}
		best[term] = obs.Weight
		index[term] = obs.Orientation
	}

	return index, nil
}

// ComputeProfile sums observation weights per orientation and normalizes the
// totals into an EpistemicProfile. Each component is rounded to 4 decimal
// places; the rounding residual is assigned to the orientation with the
// largest raw score (ties broken by the fixed tie-break order) so the
// components still sum to 1.0 within ±0.0001.
//
// When the observation list is empty or every weight is zero, the uniform
// profile {0.25, 0.25, 0.25, 0.25} is returned.
func ComputeProfile(observations []types.KeywordObservation) (types.EpistemicProfile, error) {
	if err := Validate(observations); err != nil {
		return types.EpistemicProfile{}, err
	}

	raw := make(map[types.Orientation]float64, 4)
	total := 0.0
	for _, obs := range observations {
		if strings.TrimSpace(obs.Term) == "" {
			continue
		}
		raw[obs.Orientation] += obs.Weight
		total += obs.Weight
	}

	if total == 0 {
		return types.UniformProfile(), nil
	}

	var profile types.EpistemicProfile
	sum := 0.0
	for _, o := range types.Orientations() {
		v := round4(raw[o] / total)
		profile.Set(o, v)
		sum += v
	}

	// Fold the rounding residual into the largest-raw-score orientation.
	if residual := round4(1.0 - sum); residual != 0 {
		target := largestRaw(raw)
		profile.Set(target, round4(profile.Get(target)+residual))
	}

	return profile, nil
}

// Aggregate runs all three builders over one observation sequence.
func Aggregate(observations []types.KeywordObservation) (types.KeywordMap, types.KeywordRoleIndex, types.EpistemicProfile, error) {
	m, err := BuildKeywordMap(observations)
	if err != nil {
		return nil, nil, types.EpistemicProfile{}, err
	}
	index, err := BuildRoleIndex(observations)
	if err != nil {
		return nil, nil, types.EpistemicProfile{}, err
	}
	profile, err := ComputeProfile(observations)
	if err != nil {
		return nil, nil, types.EpistemicProfile{}, err
	}
	return m, index, profile, nil
}

// largestRaw returns the orientation with the largest raw score, resolving
// ties by the fixed tie-break order.
func largestRaw(raw map[types.Orientation]float64) types.Orientation {
	best := types.TieBreakOrder()[0]
	bestScore := math.Inf(-1)
	for _, o := range types.TieBreakOrder() {
		if raw[o] > bestScore {
			best = o
			bestScore = raw[o]
		}
	}
	return best
}

// round4 rounds to 4 decimal places, half away from zero.
func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
