package nests_test

import (
	"errors"
	"testing"
	"time"

	"rookery/internal/nests"
)

func surveyDays(n int) nests.SurveyDates {
	base := time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)
	out := make(nests.SurveyDates, n)
	for i := range out {
		// Survey flights are irregular; spacing must not matter.
		out[i] = base.AddDate(0, 0, i*i+3*i)
	}
	return out
}

func pick(survey nests.SurveyDates, ranks ...int) []time.Time {
	out := make([]time.Time, len(ranks))
	for i, r := range ranks {
		out[i] = survey[r]
	}
	return out
}

func TestMaxConsecutiveRun(t *testing.T) {
	survey := surveyDays(8)
	tests := []struct {
		name  string
		ranks []int
		want  int
	}{
		{name: "no dates", ranks: nil, want: 0},
		{name: "single date", ranks: []int{3}, want: 0},
		{name: "adjacent pair", ranks: []int{1, 2}, want: 2},
		{name: "never adjacent", ranks: []int{0, 2, 4}, want: 0},
		{name: "longest run wins", ranks: []int{0, 1, 2, 5, 6}, want: 3},
		{name: "run open at end", ranks: []int{0, 3, 4, 5, 6}, want: 4},
		{name: "unsorted input", ranks: []int{6, 5, 0, 2, 1}, want: 3},
		{name: "repeated date splits run", ranks: []int{1, 2, 2, 3}, want: 2},
		{name: "whole calendar", ranks: []int{0, 1, 2, 3, 4, 5, 6, 7}, want: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nests.MaxConsecutiveRun(pick(survey, tt.ranks...), survey)
			if err != nil {
				t.Fatalf("MaxConsecutiveRun returned error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("MaxConsecutiveRun(%v) = %d, want %d", tt.ranks, got, tt.want)
			}
		})
	}
}

func TestMaxConsecutiveRunUnknownDate(t *testing.T) {
	survey := surveyDays(3)
	dates := []time.Time{survey[0], time.Date(1999, time.January, 1, 0, 0, 0, 0, time.UTC)}
	_, err := nests.MaxConsecutiveRun(dates, survey)
	if !errors.Is(err, nests.ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
}

func TestMaxConsecutiveRunIgnoresTimeOfDay(t *testing.T) {
	survey := surveyDays(3)
	dates := []time.Time{survey[0].Add(9 * time.Hour), survey[1].Add(14 * time.Hour)}
	got, err := nests.MaxConsecutiveRun(dates, survey)
	if err != nil {
		t.Fatalf("MaxConsecutiveRun returned error: %v", err)
	}
	if got != 2 {
		t.Fatalf("expected run of 2, got %d", got)
	}
}
