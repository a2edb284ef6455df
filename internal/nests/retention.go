package nests

import (
	"errors"
	"fmt"
)

// Default retention thresholds.
const (
	DefaultMinScore       = 0.3
	DefaultMinDetections  = 3
	DefaultMinConsecutive = 1
)

// Thresholds decide which detections count and which targets become nests.
type Thresholds struct {
	MinScore       float64
	MinDetections  int
	MinConsecutive int
}

// DefaultThresholds returns the stock thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinScore:       DefaultMinScore,
		MinDetections:  DefaultMinDetections,
		MinConsecutive: DefaultMinConsecutive,
	}
}

// Keep reports whether a detection's score clears the threshold.
func (t Thresholds) Keep(score float64) bool {
	return score >= t.MinScore
}

// Retain applies the OR rule: enough kept detections in total, or a long
// enough consecutive run. Either alone suffices.
func (t Thresholds) Retain(kept, run int) bool {
	return kept >= t.MinDetections || run >= t.MinConsecutive
}

// Validate rejects thresholds outside their domains.
func (t Thresholds) Validate() error {
	if t.MinScore < 0 || t.MinScore > 1 {
		return fmt.Errorf("min_score must be between 0 and 1, got %v", t.MinScore)
	}
	if t.MinDetections < 0 {
		return errors.New("min_detections must be non-negative")
	}
	if t.MinConsecutive < 0 {
		return errors.New("min_consec_detects must be non-negative")
	}
	return nil
}
