package nests

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/golang/geo/r2"

	"rookery/internal/logging"
)

// Options configures Process.
type Options struct {
	Thresholds Thresholds
	// LabelFunc rewrites labels before they are grouped. Nil keeps labels as-is.
	LabelFunc func(string) string
	Logger    *slog.Logger
}

// TargetSummary describes how one target fared against the retention rule.
type TargetSummary struct {
	ID       int64
	Key      SiteYear
	Total    int
	Kept     int
	Run      int
	Retained bool
}

// Result is the outcome of Process.
type Result struct {
	Nests   []Nest
	Targets []TargetSummary
}

// Retained counts targets that became nests.
func (r *Result) Retained() int {
	if r == nil {
		return 0
	}
	return len(r.Nests)
}

// Dropped counts targets that failed the retention rule.
func (r *Result) Dropped() int {
	if r == nil {
		return 0
	}
	dropped := 0
	for _, t := range r.Targets {
		if !t.Retained {
			dropped++
		}
	}
	return dropped
}

type target struct {
	id         int64
	key        SiteYear
	detections []Detection
}

// Process filters, scores and aggregates detections into nests. Targets are
// visited in first-appearance order and the calendar is built from every
// detection in the slice.
func Process(detections []Detection, opts Options) (*Result, error) {
	if err := opts.Thresholds.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	cal := BuildCalendar(detections)
	targets, err := groupTargets(detections)
	if err != nil {
		return nil, err
	}

	result := &Result{Targets: make([]TargetSummary, 0, len(targets))}
	for _, tgt := range targets {
		kept := make([]Detection, 0, len(tgt.detections))
		for _, det := range tgt.detections {
			if opts.Thresholds.Keep(det.Score) {
				kept = append(kept, det)
			}
		}

		survey, err := cal.Dates(tgt.key)
		if err != nil {
			return nil, err
		}
		run, err := MaxConsecutiveRun(detectionDates(kept), survey)
		if err != nil {
			return nil, fmt.Errorf("target %d: %w", tgt.id, err)
		}

		summary := TargetSummary{
			ID:    tgt.id,
			Key:   tgt.key,
			Total: len(tgt.detections),
			Kept:  len(kept),
			Run:   run,
		}
		attrs := []any{
			logging.Int64(logging.FieldTarget, tgt.id),
			logging.String(logging.FieldSite, tgt.key.Site),
			logging.String(logging.FieldYear, tgt.key.Year),
			logging.Int("kept", len(kept)),
			logging.Int("run", run),
		}

		if !opts.Thresholds.Retain(len(kept), run) {
			logger.Debug("target dropped", attrs...)
			result.Targets = append(result.Targets, summary)
			continue
		}
		if len(kept) == 0 {
			// Only reachable with min_detections or min_consec_detects at 0.
			logger.Debug("target retained without qualifying detections; skipped", attrs...)
			result.Targets = append(result.Targets, summary)
			continue
		}

		summary.Retained = true
		result.Targets = append(result.Targets, summary)
		result.Nests = append(result.Nests, aggregate(tgt.id, tgt.key, kept, opts.LabelFunc))
		logger.Debug("target retained", attrs...)
	}
	return result, nil
}

// Summarize reports kept counts and run lengths for every target without
// building nests.
func Summarize(detections []Detection, th Thresholds) ([]TargetSummary, error) {
	res, err := Process(detections, Options{Thresholds: th})
	if err != nil {
		return nil, err
	}
	return res.Targets, nil
}

func groupTargets(detections []Detection) ([]*target, error) {
	index := make(map[int64]*target)
	var ordered []*target
	for _, det := range detections {
		tgt, ok := index[det.TargetID]
		if !ok {
			tgt = &target{id: det.TargetID, key: det.Key()}
			index[det.TargetID] = tgt
			ordered = append(ordered, tgt)
		} else if tgt.key != det.Key() {
			return nil, fmt.Errorf("%w: target %d spans %s and %s", ErrContract, det.TargetID, tgt.key, det.Key())
		}
		tgt.detections = append(tgt.detections, det)
	}
	return ordered, nil
}

func detectionDates(detections []Detection) []time.Time {
	dates := make([]time.Time, len(detections))
	for i, det := range detections {
		dates[i] = det.Date
	}
	return dates
}

type labelScore struct {
	label string
	sum   float64
	count int
}

func aggregate(id int64, key SiteYear, kept []Detection, labelFunc func(string) string) Nest {
	var (
		centers  r2.Point
		first    = kept[0].Date
		last     = kept[0].Date
		birdIDs  = make([]string, 0, len(kept))
		byLabel  = make(map[string]*labelScore)
		ordering []*labelScore
	)
	for _, det := range kept {
		centers = centers.Add(det.Box.Center())
		if det.Date.Before(first) {
			first = det.Date
		}
		if det.Date.After(last) {
			last = det.Date
		}
		birdIDs = append(birdIDs, det.BirdID)

		label := det.Label
		if labelFunc != nil {
			label = labelFunc(label)
		}
		ls, ok := byLabel[label]
		if !ok {
			ls = &labelScore{label: label}
			byLabel[label] = ls
			ordering = append(ordering, ls)
		}
		ls.sum += det.Score
		ls.count++
	}

	top := topLabel(ordering)
	n := float64(len(kept))
	mean := r2.Point{X: centers.X / n, Y: centers.Y / n}
	return Nest{
		ID:        id,
		Site:      key.Site,
		Year:      key.Year,
		XMean:     mean.X,
		YMean:     mean.Y,
		FirstObs:  first,
		LastObs:   last,
		NumObs:    len(kept),
		Species:   top.label,
		SumTop1:   top.sum,
		NumTop1:   top.count,
		BirdMatch: strings.Join(birdIDs, ","),
	}
}

// topLabel picks the highest summed score; equal sums go to the
// lexicographically smallest label.
func topLabel(scores []*labelScore) *labelScore {
	sorted := make([]*labelScore, len(scores))
	copy(sorted, scores)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].sum != sorted[j].sum {
			return sorted[i].sum > sorted[j].sum
		}
		return sorted[i].label < sorted[j].label
	})
	return sorted[0]
}
