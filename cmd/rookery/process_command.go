package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rookery/internal/batch"
	"rookery/internal/config"
	"rookery/internal/ledger"
	"rookery/internal/preflight"
	"rookery/internal/vectorio"
)

type processFlags struct {
	site          string
	year          string
	savedir       string
	format        string
	minScore      float64
	minDetections int
	minConsec     int
	workers       int
	jsonOutput    bool
}

type processResultJSON struct {
	RunID      string `json:"run_id"`
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	Site       string `json:"site,omitempty"`
	Year       string `json:"year,omitempty"`
	CRS        string `json:"crs,omitempty"`
	Detections int    `json:"detections"`
	Targets    int    `json:"targets"`
	Nests      int    `json:"nests"`
	Dropped    int    `json:"dropped"`
	Error      string `json:"error,omitempty"`
}

type processReportJSON struct {
	BatchID   string              `json:"batch_id"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
	Results   []processResultJSON `json:"results"`
}

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var flags processFlags

	cmd := &cobra.Command{
		Use:   "process PATH...",
		Short: "Aggregate detection files into nest tables",
		Long: `Process reads each detection table (files or directories of .gpkg,
.geojson and .csv files), keeps targets that pass the retention thresholds,
and writes {savedir}/{site}_{year}_processed_nests.{ext}.

Site and year come from a .../<year>/<site>/<file> layout unless --site and
--year are given.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := applyProcessFlags(cmd, cfg, flags); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if err := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}

			inputs, err := batch.Discover(args)
			if err != nil {
				return err
			}
			if len(inputs) == 0 {
				return errors.New("no detection files found")
			}

			opts, err := batch.OptionsFromConfig(cfg)
			if err != nil {
				return err
			}
			opts.Site = strings.TrimSpace(flags.site)
			opts.Year = strings.TrimSpace(flags.year)
			opts.Logger = logger

			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()
			opts.Ledger = store

			report, runErr := batch.Run(cmd.Context(), inputs, opts)
			if report != nil {
				if flags.jsonOutput {
					if err := writeJSON(cmd, processReportToJSON(report)); err != nil {
						return err
					}
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), renderProcessReport(report))
				}
			}
			return runErr
		},
	}

	cmd.Flags().StringVar(&flags.site, "site", "", "Site name used for output naming")
	cmd.Flags().StringVar(&flags.year, "year", "", "Survey year used for output naming")
	cmd.Flags().StringVar(&flags.savedir, "savedir", "", "Output directory (overrides paths.savedir)")
	cmd.Flags().StringVar(&flags.format, "format", "", "Output format: gpkg, geojson or csv")
	cmd.Flags().Float64Var(&flags.minScore, "min-score", 0, "Minimum detection score kept")
	cmd.Flags().IntVar(&flags.minDetections, "min-detections", 0, "Kept detections that retain a target")
	cmd.Flags().IntVar(&flags.minConsec, "min-consec", 0, "Run length, in survey dates, that retains a target (any run spans at least 2 dates)")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Files processed concurrently")
	cmd.Flags().BoolVar(&flags.jsonOutput, "json", false, "Output results as JSON")
	return cmd
}

// applyProcessFlags layers explicitly set flags over the loaded config.
func applyProcessFlags(cmd *cobra.Command, cfg *config.Config, flags processFlags) error {
	changed := cmd.Flags().Changed
	if changed("savedir") {
		dir, err := config.ExpandPath(strings.TrimSpace(flags.savedir))
		if err != nil {
			return fmt.Errorf("--savedir: %w", err)
		}
		cfg.Paths.SaveDir = dir
	}
	if changed("format") {
		format, err := vectorio.ParseFormat(flags.format)
		if err != nil {
			return fmt.Errorf("--format: %w", err)
		}
		cfg.Nests.OutputFormat = string(format)
	}
	if changed("min-score") {
		cfg.Nests.MinScore = flags.minScore
	}
	if changed("min-detections") {
		cfg.Nests.MinDetections = flags.minDetections
	}
	if changed("min-consec") {
		cfg.Nests.MinConsecDetects = flags.minConsec
	}
	if changed("workers") {
		cfg.Batch.Workers = flags.workers
	}
	return cfg.Validate()
}

func renderProcessReport(report *batch.Report) string {
	headers := []string{"Input", "Site", "Year", "Targets", "Nests", "Dropped", "Result"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		if res.Input == "" {
			continue
		}
		result := res.Output
		if res.Err != nil {
			result = "error: " + res.Err.Error()
		}
		rows = append(rows, []string{
			res.Input,
			res.Site,
			res.Year,
			strconv.Itoa(res.Targets),
			strconv.Itoa(res.Nests),
			strconv.Itoa(res.Dropped),
			result,
		})
	}
	caption := fmt.Sprintf("batch %s: %d written, %d failed", report.BatchID, report.Succeeded(), report.Failed())
	return renderTable(headers, rows, aligns, caption)
}

func processReportToJSON(report *batch.Report) processReportJSON {
	out := processReportJSON{
		BatchID:   report.BatchID,
		Succeeded: report.Succeeded(),
		Failed:    report.Failed(),
		Results:   make([]processResultJSON, 0, len(report.Results)),
	}
	for _, res := range report.Results {
		if res.Input == "" {
			continue
		}
		item := processResultJSON{
			RunID:      res.RunID,
			Input:      res.Input,
			Output:     res.Output,
			Site:       res.Site,
			Year:       res.Year,
			CRS:        res.CRS,
			Detections: res.Detections,
			Targets:    res.Targets,
			Nests:      res.Nests,
			Dropped:    res.Dropped,
		}
		if res.Err != nil {
			item.Error = res.Err.Error()
			item.Output = ""
		}
		out.Results = append(out.Results, item)
	}
	return out
}
