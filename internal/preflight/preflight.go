package preflight

import (
	"context"
	"fmt"
	"strings"

	"rookery/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes every preflight check for the given config. Directories
// that do not exist yet pass when they can be created.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckCreatableDirectory("Output directory", cfg.Paths.SaveDir))
	results = append(results, CheckCreatableDirectory("State directory", cfg.Paths.StateDir))

	// Log directory (when file logging is enabled)
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckCreatableDirectory("Log directory", cfg.Paths.LogDir))
	}

	results = append(results, CheckOutputFormat(cfg.Nests.OutputFormat))
	return results
}

// Failed returns an error naming every failed result, or nil.
func Failed(results []Result) error {
	var failed []string
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, fmt.Sprintf("%s: %s", r.Name, r.Detail))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
}
