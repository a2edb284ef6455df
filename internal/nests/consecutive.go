package nests

import (
	"fmt"
	"sort"
	"time"
)

type runState int

const (
	outsideRun runState = iota
	insideRun
)

// MaxConsecutiveRun returns the length, in survey dates, of the longest run of
// the target's dates that sit at back-to-back positions of the survey
// calendar. A run needs at least two dates, so fewer than two dates, or dates
// that are never adjacent, yield 0. Repeated dates break a run.
func MaxConsecutiveRun(dates []time.Time, survey SurveyDates) (int, error) {
	if len(dates) < 2 {
		return 0, nil
	}

	rank := survey.Rank()
	ranks := make([]int, 0, len(dates))
	for _, d := range dates {
		r, ok := rank[dateKey(d)]
		if !ok {
			return 0, fmt.Errorf("%w: date %s is not in the survey calendar", ErrInvariant, dateKey(d))
		}
		ranks = append(ranks, r)
	}
	sort.Ints(ranks)

	state := outsideRun
	run, longest := 0, 0
	for i := 1; i < len(ranks); i++ {
		adjacent := ranks[i]-ranks[i-1] == 1
		switch {
		case state == outsideRun && adjacent:
			state = insideRun
			run = 2
		case state == insideRun && adjacent:
			run++
		case state == insideRun && !adjacent:
			longest = max(longest, run)
			state = outsideRun
			run = 0
		case state == outsideRun && !adjacent:
		default:
			return 0, fmt.Errorf("%w: run walk in unknown state %d", ErrInvariant, state)
		}
	}
	if state == insideRun {
		longest = max(longest, run)
	}
	return longest, nil
}
