package nests_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"rookery/internal/nests"
)

func det(target int64, date string, score float64, label, bird string, box nests.Box) nests.Detection {
	return nests.Detection{
		Site:     "Joule",
		Year:     "2020",
		Date:     day(date),
		TargetID: target,
		Score:    score,
		Label:    label,
		BirdID:   bird,
		Box:      box,
	}
}

var unitBox = nests.Box{XMin: 0, YMin: 0, XMax: 2, YMax: 2}

func TestRetainRule(t *testing.T) {
	tests := []struct {
		name string
		th   nests.Thresholds
		kept int
		run  int
		want bool
	}{
		{name: "run alone satisfies defaults", th: nests.DefaultThresholds(), kept: 2, run: 2, want: true},
		{name: "shortest run meets pair-equivalent threshold", th: nests.Thresholds{MinDetections: 5, MinConsecutive: 2}, kept: 2, run: 2, want: true},
		{name: "count alone satisfies", th: nests.Thresholds{MinDetections: 3, MinConsecutive: 5}, kept: 3, run: 0, want: true},
		{name: "neither condition", th: nests.Thresholds{MinDetections: 3, MinConsecutive: 2}, kept: 2, run: 0, want: false},
		{name: "single detection under defaults", th: nests.DefaultThresholds(), kept: 1, run: 0, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.th.Retain(tt.kept, tt.run); got != tt.want {
				t.Fatalf("Retain(%d, %d) = %v, want %v", tt.kept, tt.run, got, tt.want)
			}
		})
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := nests.DefaultThresholds().Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	for _, th := range []nests.Thresholds{
		{MinScore: -0.1},
		{MinScore: 1.5},
		{MinScore: 0.3, MinDetections: -1},
		{MinScore: 0.3, MinConsecutive: -2},
	} {
		if err := th.Validate(); err == nil {
			t.Fatalf("expected %+v to fail validation", th)
		}
	}
}

func TestProcessAggregatesRetainedTarget(t *testing.T) {
	dets := []nests.Detection{
		det(7, "2020-03-01", 0.9, "Great Egret", "b3", nests.Box{XMin: 0, YMin: 0, XMax: 10, YMax: 10}),
		det(7, "2020-03-08", 0.8, "White Ibis", "b1", nests.Box{XMin: 4, YMin: 4, XMax: 14, YMax: 14}),
		det(7, "2020-03-15", 0.2, "White Ibis", "b9", nests.Box{XMin: 100, YMin: 100, XMax: 120, YMax: 120}),
		det(7, "2020-03-22", 0.7, "Great Egret", "b2", nests.Box{XMin: 2, YMin: 8, XMax: 6, YMax: 12}),
	}

	res, err := nests.Process(dets, nests.Options{Thresholds: nests.DefaultThresholds()})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(res.Nests) != 1 {
		t.Fatalf("expected 1 nest, got %d", len(res.Nests))
	}
	nest := res.Nests[0]
	if nest.ID != 7 || nest.Site != "Joule" || nest.Year != "2020" {
		t.Fatalf("unexpected identity: %+v", nest)
	}
	// Midpoints (5,5), (9,9), (4,10); the 0.2 detection is filtered out.
	if nest.XMean != 6 || nest.YMean != 8 {
		t.Fatalf("unexpected centroid: (%v, %v)", nest.XMean, nest.YMean)
	}
	if nest.FirstObs.Format(nests.DateLayout) != "2020-03-01" || nest.LastObs.Format(nests.DateLayout) != "2020-03-22" {
		t.Fatalf("unexpected span: %s..%s", nest.FirstObs, nest.LastObs)
	}
	if nest.NumObs != 3 {
		t.Fatalf("expected 3 observations, got %d", nest.NumObs)
	}
	if nest.Species != "Great Egret" || nest.NumTop1 != 2 {
		t.Fatalf("unexpected top label: %s x%d", nest.Species, nest.NumTop1)
	}
	if diff := nest.SumTop1 - 1.6; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("unexpected sum_top1: %v", nest.SumTop1)
	}
	if nest.BirdMatch != "b3,b1,b2" {
		t.Fatalf("expected bird ids in input order, got %q", nest.BirdMatch)
	}
}

func TestProcessCentroidIsMeanOfMidpoints(t *testing.T) {
	dets := []nests.Detection{
		det(1, "2020-03-01", 0.9, "Bird", "a", nests.Box{XMin: 0, YMin: 0, XMax: 10, YMax: 10}),
		det(1, "2020-03-08", 0.9, "Bird", "b", nests.Box{XMin: 4, YMin: 4, XMax: 14, YMax: 14}),
	}
	res, err := nests.Process(dets, nests.Options{Thresholds: nests.DefaultThresholds()})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(res.Nests) != 1 {
		t.Fatalf("expected 1 nest, got %d", len(res.Nests))
	}
	if res.Nests[0].XMean != 7 || res.Nests[0].YMean != 7 {
		t.Fatalf("expected centroid (7, 7), got (%v, %v)", res.Nests[0].XMean, res.Nests[0].YMean)
	}
}

func TestProcessDropsTargetsFailingBothConditions(t *testing.T) {
	// Target 2 appears on non-adjacent survey dates; target 1 fills the calendar.
	dets := []nests.Detection{
		det(1, "2020-03-01", 0.9, "Bird", "a", unitBox),
		det(1, "2020-03-08", 0.9, "Bird", "b", unitBox),
		det(1, "2020-03-15", 0.9, "Bird", "c", unitBox),
		det(2, "2020-03-01", 0.9, "Bird", "d", unitBox),
		det(2, "2020-03-15", 0.9, "Bird", "e", unitBox),
	}
	th := nests.Thresholds{MinScore: 0.3, MinDetections: 3, MinConsecutive: 2}
	res, err := nests.Process(dets, nests.Options{Thresholds: th})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(res.Nests) != 1 || res.Nests[0].ID != 1 {
		t.Fatalf("expected only target 1 retained, got %+v", res.Nests)
	}
	if res.Dropped() != 1 {
		t.Fatalf("expected 1 dropped target, got %d", res.Dropped())
	}
	if len(res.Targets) != 2 || res.Targets[1].Run != 0 || res.Targets[1].Kept != 2 {
		t.Fatalf("unexpected target summaries: %+v", res.Targets)
	}
}

func TestProcessLowScoreDatesStillShapeCalendar(t *testing.T) {
	// 03-08 is only seen at low score, but it sits between 03-01 and 03-15,
	// so target 2's detections are not adjacent.
	dets := []nests.Detection{
		det(1, "2020-03-08", 0.1, "Bird", "a", unitBox),
		det(2, "2020-03-01", 0.9, "Bird", "b", unitBox),
		det(2, "2020-03-15", 0.9, "Bird", "c", unitBox),
	}
	summaries, err := nests.Summarize(dets, nests.DefaultThresholds())
	if err != nil {
		t.Fatalf("Summarize returned error: %v", err)
	}
	if summaries[1].Run != 0 || summaries[1].Retained {
		t.Fatalf("expected target 2 without a run, got %+v", summaries[1])
	}
}

func TestProcessEmptyWhenNothingRetained(t *testing.T) {
	dets := []nests.Detection{
		det(1, "2020-03-01", 0.1, "Bird", "a", unitBox),
		det(2, "2020-03-08", 0.9, "Bird", "b", unitBox),
	}
	res, err := nests.Process(dets, nests.Options{Thresholds: nests.DefaultThresholds()})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(res.Nests) != 0 {
		t.Fatalf("expected no nests, got %+v", res.Nests)
	}
	if res.Retained() != 0 || res.Dropped() != 2 {
		t.Fatalf("unexpected counts: retained=%d dropped=%d", res.Retained(), res.Dropped())
	}
}

func TestProcessSkipsRetainedTargetWithoutDetections(t *testing.T) {
	dets := []nests.Detection{det(1, "2020-03-01", 0.1, "Bird", "a", unitBox)}
	th := nests.Thresholds{MinScore: 0.3, MinDetections: 3, MinConsecutive: 0}
	res, err := nests.Process(dets, nests.Options{Thresholds: th})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if len(res.Nests) != 0 {
		t.Fatalf("expected no nest for a target without kept detections, got %+v", res.Nests)
	}
}

func TestProcessTieBreakIsLexicographic(t *testing.T) {
	dets := []nests.Detection{
		det(1, "2020-03-01", 0.5, "Wood Stork", "a", unitBox),
		det(1, "2020-03-08", 0.5, "Great Egret", "b", unitBox),
		det(1, "2020-03-15", 0.5, "Roseate Spoonbill", "c", unitBox),
	}
	res, err := nests.Process(dets, nests.Options{Thresholds: nests.DefaultThresholds()})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := res.Nests[0].Species; got != "Great Egret" {
		t.Fatalf("expected Great Egret on tie, got %q", got)
	}
}

func TestProcessLabelFunc(t *testing.T) {
	dets := []nests.Detection{
		det(1, "2020-03-01", 0.4, "great egret", "a", unitBox),
		det(1, "2020-03-08", 0.4, "Great Egret", "b", unitBox),
		det(1, "2020-03-15", 0.7, "White Ibis", "c", unitBox),
	}
	opts := nests.Options{
		Thresholds: nests.DefaultThresholds(),
		LabelFunc:  strings.ToLower,
	}
	res, err := nests.Process(dets, opts)
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if got := res.Nests[0]; got.Species != "great egret" || got.NumTop1 != 2 {
		t.Fatalf("expected merged label, got %s x%d", got.Species, got.NumTop1)
	}
}

func TestProcessRejectsTargetSpanningSeasons(t *testing.T) {
	a := det(1, "2020-03-01", 0.9, "Bird", "a", unitBox)
	b := det(1, "2020-03-08", 0.9, "Bird", "b", unitBox)
	b.Year = "2021"
	_, err := nests.Process([]nests.Detection{a, b}, nests.Options{Thresholds: nests.DefaultThresholds()})
	if !errors.Is(err, nests.ErrContract) {
		t.Fatalf("expected ErrContract, got %v", err)
	}
}

func TestProcessRejectsInvalidThresholds(t *testing.T) {
	_, err := nests.Process(nil, nests.Options{Thresholds: nests.Thresholds{MinScore: 2}})
	if err == nil {
		t.Fatal("expected threshold validation error")
	}
}

func TestProcessIsDeterministic(t *testing.T) {
	var dets []nests.Detection
	dates := []string{"2020-03-01", "2020-03-08", "2020-03-15", "2020-03-22"}
	labels := []string{"Great Egret", "White Ibis", "Wood Stork"}
	for target := int64(1); target <= 20; target++ {
		for i, d := range dates {
			if (int(target)+i)%3 == 0 {
				continue
			}
			box := nests.Box{XMin: float64(target), YMin: float64(i), XMax: float64(target) + 3, YMax: float64(i) + 5}
			dets = append(dets, det(target, d, 0.25+float64(i)*0.2, labels[(int(target)+i)%3], "bird", box))
		}
	}
	first, err := nests.Process(dets, nests.Options{Thresholds: nests.DefaultThresholds()})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	second, err := nests.Process(dets, nests.Options{Thresholds: nests.DefaultThresholds()})
	if err != nil {
		t.Fatalf("Process returned error: %v", err)
	}
	if !reflect.DeepEqual(first.Nests, second.Nests) {
		t.Fatal("expected identical nests across runs")
	}
	for i := 1; i < len(first.Nests); i++ {
		if first.Nests[i].ID <= first.Nests[i-1].ID {
			t.Fatalf("expected first-appearance order, got %d after %d", first.Nests[i].ID, first.Nests[i-1].ID)
		}
	}
}

func TestMinConsecutiveCountsDates(t *testing.T) {
	// Two adjacent survey dates form the shortest possible run: length 2.
	dets := []nests.Detection{
		det(1, "2020-03-01", 0.9, "Bird", "a", unitBox),
		det(1, "2020-03-08", 0.9, "Bird", "b", unitBox),
		det(2, "2020-03-22", 0.9, "Bird", "c", unitBox),
	}
	for _, tt := range []struct {
		minConsec int
		retained  bool
	}{
		{minConsec: 1, retained: true},
		{minConsec: 2, retained: true},
		{minConsec: 3, retained: false},
	} {
		th := nests.Thresholds{MinScore: 0.3, MinDetections: 10, MinConsecutive: tt.minConsec}
		res, err := nests.Process(dets, nests.Options{Thresholds: th})
		if err != nil {
			t.Fatalf("Process returned error: %v", err)
		}
		if res.Targets[0].Run != 2 {
			t.Fatalf("expected run of 2 dates, got %d", res.Targets[0].Run)
		}
		if got := res.Targets[0].Retained; got != tt.retained {
			t.Fatalf("min_consec_detects=%d: retained=%v, want %v", tt.minConsec, got, tt.retained)
		}
	}
}
