// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/planward/planward/services/scheduler/datatypes"
)

func named(id, name string, start, due int) datatypes.Milestone {
	m := ms(id, start, due, nil, nil)
	m.Name = name
	return m
}

func TestSuggestDependencies_TemporalProximity(t *testing.T) {
	tests := []struct {
		name           string
		gapDays        int
		wantSuggested  bool
		wantConfidence float64
	}{
		{"same-week gap", 6, true, 0.8},
		{"half window", 15, true, 0.5},
		{"floor at 0.3", 29, true, 0.3},
		{"window edge", 30, true, 0.3},
		{"outside window", 31, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SuggestDependencies([]datatypes.Milestone{
				named("a", "alpha", 0, 10),
				named("b", "beta", 0, 10+tt.gapDays),
			})
			if !tt.wantSuggested {
				assert.Empty(t, got)
				return
			}
			assert.Len(t, got, 1)
			assert.Equal(t, "a", got[0].FromID)
			assert.Equal(t, "b", got[0].ToID)
			assert.InDelta(t, tt.wantConfidence, got[0].Confidence, 1e-9)
		})
	}
}

func TestSuggestDependencies_KeywordSequence(t *testing.T) {
	got := SuggestDependencies([]datatypes.Milestone{
		// 60-day gap keeps the proximity heuristic quiet.
		named("d", "Design the schema", 0, 10),
		named("i", "Implement the schema", 0, 70),
	})

	assert.Len(t, got, 1)
	assert.Equal(t, "d", got[0].FromID)
	assert.Equal(t, "i", got[0].ToID)
	assert.InDelta(t, 0.8, got[0].Confidence, 1e-9)
	assert.Contains(t, got[0].Reason, "design")
}

func TestSuggestDependencies_SynonymAndCaseInsensitive(t *testing.T) {
	got := SuggestDependencies([]datatypes.Milestone{
		named("x", "DEVELOP billing", 0, 10),
		named("y", "Test billing", 0, 80),
	})
	assert.Len(t, got, 1, "develop counts as the implement phase")

	got = SuggestDependencies([]datatypes.Milestone{
		named("x", "Deploy to prod", 0, 10),
		named("y", "Plan next quarter", 0, 80),
	})
	assert.Empty(t, got, "deploy has no successor phase")
}

func TestSuggestDependencies_DuplicatesPreserved(t *testing.T) {
	// Pair matches both heuristics: proximity (5 days) and keyword
	// (test -> review). Two suggestions come back, not one.
	got := SuggestDependencies([]datatypes.Milestone{
		named("t", "Test payment flow", 0, 10),
		named("r", "Review payment flow", 0, 15),
	})

	assert.Len(t, got, 2)
	for _, s := range got {
		assert.Equal(t, "t", s.FromID)
		assert.Equal(t, "r", s.ToID)
	}
}

func TestSuggestDependencies_SortedByConfidence(t *testing.T) {
	got := SuggestDependencies([]datatypes.Milestone{
		named("a", "alpha", 0, 10),
		named("b", "beta", 0, 12),  // gap 2 from a -> 0.933
		named("c", "gamma", 0, 35), // gap 25 from a -> 0.3 floor; gap 23 from b
	})

	for i := 1; i < len(got); i++ {
		assert.GreaterOrEqual(t, got[i-1].Confidence, got[i].Confidence)
	}
	assert.Equal(t, "a", got[0].FromID)
	assert.Equal(t, "b", got[0].ToID)
}

func TestSuggestDependencies_RequiresStrictDueOrder(t *testing.T) {
	got := SuggestDependencies([]datatypes.Milestone{
		named("a", "plan work", 0, 10),
		named("b", "design work", 0, 10),
	})
	assert.Empty(t, got, "equal due dates order neither pair")
}
