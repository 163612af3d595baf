// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/planward/planward/services/scheduler/datatypes"
)

// proximityWindowDays is the maximum due date gap for the temporal
// proximity heuristic.
const proximityWindowDays = 30.0

// keywordConfidence is the fixed confidence for a keyword sequence match.
const keywordConfidence = 0.8

// phaseVocabulary is the ordered project phase vocabulary for the keyword
// sequence heuristic. Each entry lists synonyms for one phase.
var phaseVocabulary = [][]string{
	{"plan"},
	{"design"},
	{"develop", "implement"},
	{"test"},
	{"review"},
	{"deploy"},
}

// Suggestion is one heuristic dependency candidate. Suggestions are pure
// analysis output; a human approves them before any edge is created.
type Suggestion struct {
	FromID     string
	ToID       string
	Reason     string
	Confidence float64
}

// SuggestDependencies proposes likely dependencies between milestones.
//
// # Description
//
// Two heuristics run over every ordered pair (i, j) with i due strictly
// before j:
//
//   - Temporal proximity: a due date gap of at most 30 days yields
//     confidence max(0.3, 1 - gap/30).
//   - Keyword sequence: if i's name contains a phase word and j's name
//     contains a word of the immediately following phase
//     (plan, design, develop/implement, test, review, deploy),
//     confidence is a fixed 0.8.
//
// A pair matched by both heuristics is returned twice; deduplication is
// deliberately left to the consumer. Results are sorted by confidence
// descending, then by from/to IDs for determinism.
func SuggestDependencies(milestones []datatypes.Milestone) []Suggestion {
	var suggestions []Suggestion

	for i := range milestones {
		for j := range milestones {
			a, b := &milestones[i], &milestones[j]
			if i == j || !a.DueDate.Before(b.DueDate) {
				continue
			}

			gapDays := b.DueDate.Sub(a.DueDate).Hours() / 24
			if gapDays <= proximityWindowDays {
				confidence := 1 - gapDays/proximityWindowDays
				if confidence < 0.3 {
					confidence = 0.3
				}
				suggestions = append(suggestions, Suggestion{
					FromID:     a.ID,
					ToID:       b.ID,
					Reason:     fmt.Sprintf("due dates %.0f days apart", gapDays),
					Confidence: confidence,
				})
			}

			if phase, ok := keywordSequenceMatch(a.Name, b.Name); ok {
				suggestions = append(suggestions, Suggestion{
					FromID:     a.ID,
					ToID:       b.ID,
					Reason:     fmt.Sprintf("%q typically precedes %q", phase[0], phase[1]),
					Confidence: keywordConfidence,
				})
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if a.FromID != b.FromID {
			return a.FromID < b.FromID
		}
		return a.ToID < b.ToID
	})

	return suggestions
}

// keywordSequenceMatch reports whether fromName contains a phase word whose
// immediate successor phase appears in toName. On a match it returns the
// matched word pair.
func keywordSequenceMatch(fromName, toName string) ([2]string, bool) {
	from := strings.ToLower(fromName)
	to := strings.ToLower(toName)

	for k := 0; k < len(phaseVocabulary)-1; k++ {
		fromWord, ok := containsAny(from, phaseVocabulary[k])
		if !ok {
			continue
		}
		if toWord, ok := containsAny(to, phaseVocabulary[k+1]); ok {
			return [2]string{fromWord, toWord}, true
		}
	}
	return [2]string{}, false
}

func containsAny(s string, words []string) (string, bool) {
	for _, w := range words {
		if strings.Contains(s, w) {
			return w, true
		}
	}
	return "", false
}
