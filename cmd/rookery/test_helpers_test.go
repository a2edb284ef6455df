package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rookery/internal/config"
	"rookery/internal/nests"
	"rookery/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := testsupport.BaseDir(cfg)
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("ROOKERY_SAVEDIR", "")
	t.Setenv("ROOKERY_LOG_LEVEL", "error")

	configPath := filepath.Join(homeDir, ".config", "rookery", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(
		"[paths]\nsavedir = %q\nlog_dir = %q\nstate_dir = %q\n\n[nests]\nmin_score = %v\nmin_detections = %d\nmin_consec_detects = %d\noutput_format = %q\n\n[batch]\nworkers = %d\n",
		cfg.Paths.SaveDir,
		cfg.Paths.LogDir,
		cfg.Paths.StateDir,
		cfg.Nests.MinScore,
		cfg.Nests.MinDetections,
		cfg.Nests.MinConsecDetects,
		cfg.Nests.OutputFormat,
		cfg.Batch.Workers,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

// writeSurvey lays out a detection file at <base>/surveys/2020/Joule/ with
// one retained target (1) and two dropped ones: 2 is seen once, 3 scores
// below the default threshold.
func writeSurvey(t *testing.T, base string) string {
	t.Helper()
	path := filepath.Join(base, "surveys", "2020", "Joule", "detections.csv")
	det := func(date string, target int64, score float64, label, bird string, x, y float64) nests.Detection {
		return testsupport.Detection(t, "Joule", "2020", date, target, score, label, bird, x, y)
	}
	testsupport.WriteDetectionsCSV(t, path, []nests.Detection{
		det("2020-03-01", 1, 0.9, "Great Egret", "11", 100, 200),
		det("2020-03-01", 3, 0.1, "Great Egret", "31", 500, 500),
		det("2020-03-08", 1, 0.8, "Great Egret", "12", 102, 202),
		det("2020-03-08", 2, 0.9, "White Ibis", "21", 300, 300),
		det("2020-03-08", 3, 0.2, "Great Egret", "32", 500, 500),
		det("2020-03-15", 1, 0.7, "Snowy Egret", "13", 104, 204),
		det("2020-03-15", 3, 0.1, "Great Egret", "33", 500, 500),
	})
	return path
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
