package batch

import (
	"context"
	"log/slog"

	"rookery/internal/config"
	"rookery/internal/ledger"
	"rookery/internal/nests"
	"rookery/internal/textutil"
	"rookery/internal/vectorio"
)

// Recorder persists run outcomes. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, run *ledger.Run) error
}

// Options controls a batch run.
type Options struct {
	Thresholds nests.Thresholds
	LabelFunc  func(string) string
	SaveDir    string
	Format     vectorio.Format
	DefaultCRS string
	Workers    int
	// Site and Year override path inference for every input.
	Site   string
	Year   string
	Ledger Recorder
	Logger *slog.Logger
}

// ThresholdsFromConfig converts the [nests] section into retention thresholds.
func ThresholdsFromConfig(cfg *config.Config) nests.Thresholds {
	return nests.Thresholds{
		MinScore:       cfg.Nests.MinScore,
		MinDetections:  cfg.Nests.MinDetections,
		MinConsecutive: cfg.Nests.MinConsecDetects,
	}
}

// OptionsFromConfig builds Options from the loaded configuration. Ledger and
// Logger are left for the caller.
func OptionsFromConfig(cfg *config.Config) (Options, error) {
	format, err := vectorio.ParseFormat(cfg.Nests.OutputFormat)
	if err != nil {
		return Options{}, err
	}
	opts := Options{
		Thresholds: ThresholdsFromConfig(cfg),
		SaveDir:    cfg.Paths.SaveDir,
		Format:     format,
		DefaultCRS: cfg.Nests.DefaultCRS,
		Workers:    cfg.Batch.Workers,
	}
	if cfg.Nests.NormalizeLabels {
		opts.LabelFunc = textutil.NormalizeLabel
	}
	return opts, nil
}
