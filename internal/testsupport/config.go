package testsupport

import (
	"path/filepath"
	"testing"

	"rookery/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.SaveDir = filepath.Join(base, "processed_nests")
	cfgVal.Paths.LogDir = ""
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Batch.Workers = 2

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithOutputFormat overrides nests.output_format.
func WithOutputFormat(format string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Nests.OutputFormat = format
	}
}

// WithThresholds overrides the retention thresholds.
func WithThresholds(minScore float64, minDetections, minConsec int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Nests.MinScore = minScore
		b.cfg.Nests.MinDetections = minDetections
		b.cfg.Nests.MinConsecDetects = minConsec
	}
}

// WithLogDir enables the log file under the temp base directory.
func WithLogDir() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.LogDir = filepath.Join(b.baseDir, "logs")
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}
