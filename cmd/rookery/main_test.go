package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rookery/internal/vectorio"
)

func TestProcessShowHistory(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeSurvey(t, env.baseDir)

	out, _, err := runCLI(t, []string{"process", input, "--format", "geojson", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var report processReportJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode process output: %v\n%s", err, out)
	}
	if report.Succeeded != 1 || report.Failed != 0 || len(report.Results) != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	res := report.Results[0]
	wantOutput := filepath.Join(env.cfg.Paths.SaveDir, "Joule_2020_processed_nests.geojson")
	if res.Output != wantOutput {
		t.Fatalf("output = %q, want %q", res.Output, wantOutput)
	}
	if res.Site != "Joule" || res.Year != "2020" {
		t.Fatalf("site/year = %s/%s", res.Site, res.Year)
	}
	if res.Targets != 3 || res.Nests != 1 || res.Dropped != 2 {
		t.Fatalf("counts = targets %d nests %d dropped %d", res.Targets, res.Nests, res.Dropped)
	}
	if _, err := os.Stat(wantOutput); err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	out, _, err = runCLI(t, []string{"show", wantOutput, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var shown nestTableJSON
	if err := json.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("decode show output: %v", err)
	}
	if len(shown.Nests) != 1 {
		t.Fatalf("expected 1 nest, got %d", len(shown.Nests))
	}
	nest := shown.Nests[0]
	if nest.NestID != 1 || nest.Species != "Great Egret" || nest.NumObs != 3 {
		t.Fatalf("unexpected nest: %+v", nest)
	}
	if nest.FirstObs != "2020-03-01" || nest.LastObs != "2020-03-15" || nest.BirdMatch != "11,12,13" {
		t.Fatalf("unexpected nest span: %+v", nest)
	}
	if nest.XMean != 102 || nest.YMean != 202 {
		t.Fatalf("unexpected centroid (%v, %v)", nest.XMean, nest.YMean)
	}

	out, _, err = runCLI(t, []string{"show", wantOutput}, env.configPath)
	if err != nil {
		t.Fatalf("show table: %v", err)
	}
	requireContains(t, out, "bird_match")
	requireContains(t, out, "11,12,13")
	requireContains(t, out, "1 nests")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var runs []runJSON
	if err := json.Unmarshal([]byte(out), &runs); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	if runs[0].Status != "succeeded" || runs[0].Nests != 1 || runs[0].Output != wantOutput {
		t.Fatalf("unexpected run: %+v", runs[0])
	}
	if runs[0].ID != res.RunID {
		t.Fatalf("run id mismatch: %s vs %s", runs[0].ID, res.RunID)
	}
}

func TestProcessTableOutput(t *testing.T) {
	env := setupCLITestEnv(t)
	writeSurvey(t, env.baseDir)

	out, _, err := runCLI(t, []string{"process", filepath.Join(env.baseDir, "surveys")}, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	requireContains(t, out, "1 written, 0 failed")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.SaveDir, "Joule_2020_processed_nests.gpkg")); err != nil {
		t.Fatalf("expected gpkg output: %v", err)
	}
}

func TestProcessStrictThresholdsWritesEmptyTable(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeSurvey(t, env.baseDir)

	args := []string{"process", input, "--format", "csv", "--min-detections", "10", "--min-consec", "10", "--json"}
	out, _, err := runCLI(t, args, env.configPath)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	var report processReportJSON
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Results[0].Nests != 0 {
		t.Fatalf("expected no nests, got %d", report.Results[0].Nests)
	}
	tbl, err := vectorio.ReadNests(testContext(t), report.Results[0].Output)
	if err != nil {
		t.Fatalf("read empty output: %v", err)
	}
	if len(tbl.Nests) != 0 {
		t.Fatalf("expected empty table, got %d rows", len(tbl.Nests))
	}
}

func TestProcessRejectsUnsupportedFile(t *testing.T) {
	env := setupCLITestEnv(t)
	path := filepath.Join(env.baseDir, "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, _, err := runCLI(t, []string{"process", path}, env.configPath)
	if !errors.Is(err, vectorio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestProcessRejectsInvalidFlag(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeSurvey(t, env.baseDir)
	if _, _, err := runCLI(t, []string{"process", input, "--min-score", "1.5"}, env.configPath); err == nil {
		t.Fatal("expected validation error for --min-score 1.5")
	}
}

func TestCalendarCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	input := writeSurvey(t, env.baseDir)

	out, _, err := runCLI(t, []string{"calendar", input, "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("calendar: %v", err)
	}
	var cal calendarJSON
	if err := json.Unmarshal([]byte(out), &cal); err != nil {
		t.Fatalf("decode calendar: %v", err)
	}
	if len(cal.Surveys) != 1 || len(cal.Surveys[0].Dates) != 3 {
		t.Fatalf("unexpected surveys: %+v", cal.Surveys)
	}
	byID := make(map[int64]targetSummaryJSON)
	for _, s := range cal.Targets {
		byID[s.Target] = s
	}
	if got := byID[1]; !got.Retained || got.Run != 3 || got.Kept != 3 {
		t.Fatalf("target 1: %+v", got)
	}
	if got := byID[2]; got.Retained || got.Run != 0 {
		t.Fatalf("target 2: %+v", got)
	}
	if got := byID[3]; got.Retained || got.Kept != 0 || got.Total != 3 {
		t.Fatalf("target 3: %+v", got)
	}

	out, _, err = runCLI(t, []string{"calendar", input, "--min-score", "0.05"}, env.configPath)
	if err != nil {
		t.Fatalf("calendar table: %v", err)
	}
	requireContains(t, out, "2020-03-01 2020-03-08 2020-03-15")
	requireContains(t, out, "min_score=0.05")
}

func TestHistoryEmptyAndClear(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	input := writeSurvey(t, env.baseDir)
	if _, _, err := runCLI(t, []string{"process", input}, env.configPath); err != nil {
		t.Fatalf("process: %v", err)
	}
	out, _, err = runCLI(t, []string{"history", "--site", "Joule"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "succeeded")

	out, _, err = runCLI(t, []string{"history", "--clear"}, env.configPath)
	if err != nil {
		t.Fatalf("history --clear: %v", err)
	}
	requireContains(t, out, "Removed 1 runs")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	if err != nil {
		t.Fatalf("check: %v\n%s", err, out)
	}
	requireContains(t, out, "Output directory:")
	requireContains(t, out, "[OK]")
	requireContains(t, out, "Run ledger:")
	requireContains(t, out, "(0 runs)")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, env.configPath)

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, env.configPath)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, env.configPath); err == nil {
		t.Fatal("expected error when config already exists")
	}
}

func TestLogsCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := filepath.Join(env.baseDir, "logs")
	env.cfg.Paths.LogDir = logDir
	writeTestConfig(t, env.configPath, env.cfg)
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "a site=Joule\nb site=Vacation\nc site=Joule\n"
	if err := os.WriteFile(filepath.Join(logDir, "rookery.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "-n", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if out != "c site=Joule\n" {
		t.Fatalf("unexpected output %q", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--site", "Joule"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --site: %v", err)
	}
	if out != "a site=Joule\nc site=Joule\n" {
		t.Fatalf("unexpected filtered output %q", out)
	}
}

func TestLogsRequiresLogDir(t *testing.T) {
	env := setupCLITestEnv(t)
	if _, _, err := runCLI(t, []string{"logs"}, env.configPath); err == nil {
		t.Fatal("expected error when log_dir is empty")
	}
}

// testContext stands in for testing.T.Context (Go 1.24+).
func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
