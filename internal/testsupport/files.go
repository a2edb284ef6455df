package testsupport

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"rookery/internal/nests"
)

var detectionHeader = []string{
	"Site", "Year", "Date", "target_ind", "score", "label", "bird_id",
	"match_xmin", "match_ymin", "match_xmax", "match_ymax",
}

// Detection builds a detection with a 2x2 box centred on (x, y).
func Detection(t testing.TB, site, year, date string, target int64, score float64, label, birdID string, x, y float64) nests.Detection {
	t.Helper()

	d, err := nests.ParseDate(date)
	if err != nil {
		t.Fatalf("parse date %q: %v", date, err)
	}
	return nests.Detection{
		Site:     site,
		Year:     year,
		Date:     d,
		TargetID: target,
		Score:    score,
		Label:    label,
		BirdID:   birdID,
		Box:      nests.Box{XMin: x - 1, YMin: y - 1, XMax: x + 1, YMax: y + 1},
	}
}

// WriteDetectionsCSV writes detections as a CSV detection table, creating
// parent directories as needed.
func WriteDetectionsCSV(t testing.TB, path string, detections []nests.Detection) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(detectionHeader); err != nil {
		t.Fatalf("write header: %v", err)
	}
	float := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	for _, d := range detections {
		record := []string{
			d.Site,
			d.Year,
			d.Date.Format(time.DateOnly),
			strconv.FormatInt(d.TargetID, 10),
			float(d.Score),
			d.Label,
			d.BirdID,
			float(d.Box.XMin),
			float(d.Box.YMin),
			float(d.Box.XMax),
			float(d.Box.YMax),
		}
		if err := w.Write(record); err != nil {
			t.Fatalf("write record: %v", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		t.Fatalf("flush %s: %v", path, err)
	}
}
