package nests

import "errors"

var (
	// ErrContract marks malformed input grouping: a survey calendar with more
	// than one date-set for a Site/Year, a missing calendar, or a target that
	// spans several Site/Year pairs. Callers must regroup the input.
	ErrContract = errors.New("input contract violation")
	// ErrInvariant marks a state the run walk should never reach on sorted
	// input drawn from the calendar.
	ErrInvariant = errors.New("internal invariant violated")
)
