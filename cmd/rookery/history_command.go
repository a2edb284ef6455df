package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rookery/internal/ledger"
)

type runJSON struct {
	ID            string  `json:"id"`
	BatchID       string  `json:"batch_id,omitempty"`
	Site          string  `json:"site"`
	Year          string  `json:"year"`
	Input         string  `json:"input"`
	Output        string  `json:"output,omitempty"`
	Format        string  `json:"format,omitempty"`
	CRS           string  `json:"crs,omitempty"`
	MinScore      float64 `json:"min_score"`
	MinDetections int     `json:"min_detections"`
	MinConsec     int     `json:"min_consec_detects"`
	Detections    int     `json:"detections"`
	Targets       int     `json:"targets"`
	Nests         int     `json:"nests"`
	Status        string  `json:"status"`
	Error         string  `json:"error,omitempty"`
	StartedAt     string  `json:"started_at"`
	DurationMS    int64   `json:"duration_ms"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		limit      int
		site       string
		year       string
		batchID    string
		failedOnly bool
		clear      bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded processing runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run ledger: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if clear {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d runs\n", removed)
				return nil
			}

			opts := ledger.ListOptions{
				Site:    strings.TrimSpace(site),
				Year:    strings.TrimSpace(year),
				BatchID: strings.TrimSpace(batchID),
				Limit:   limit,
			}
			if failedOnly {
				opts.Status = ledger.StatusFailed
			}
			runs, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}

			if jsonOutput {
				items := make([]runJSON, 0, len(runs))
				for _, run := range runs {
					items = append(items, runToJSON(run))
				}
				return writeJSON(cmd, items)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			fmt.Fprintln(out, renderRuns(runs))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum runs to show (0 for all)")
	cmd.Flags().StringVar(&site, "site", "", "Only runs for this site")
	cmd.Flags().StringVar(&year, "year", "", "Only runs for this year")
	cmd.Flags().StringVar(&batchID, "batch", "", "Only runs from this batch")
	cmd.Flags().BoolVar(&failedOnly, "failed", false, "Only failed runs")
	cmd.Flags().BoolVar(&clear, "clear", false, "Delete all recorded runs")
	return cmd
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func renderRuns(runs []ledger.Run) string {
	headers := []string{"Run", "Started", "Site", "Year", "Detections", "Targets", "Nests", "Status", "Output"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		status := string(run.Status)
		target := run.OutputPath
		if run.Status == ledger.StatusFailed {
			target = run.Error
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04:05"),
			run.Site,
			run.Year,
			strconv.Itoa(run.Detections),
			strconv.Itoa(run.Targets),
			strconv.Itoa(run.Nests),
			status,
			target,
		})
	}
	return renderTable(headers, rows, aligns, fmt.Sprintf("%d runs", len(runs)))
}

func runToJSON(run ledger.Run) runJSON {
	return runJSON{
		ID:            run.ID,
		BatchID:       run.BatchID,
		Site:          run.Site,
		Year:          run.Year,
		Input:         run.InputPath,
		Output:        run.OutputPath,
		Format:        run.Format,
		CRS:           run.CRS,
		MinScore:      run.MinScore,
		MinDetections: run.MinDetections,
		MinConsec:     run.MinConsec,
		Detections:    run.Detections,
		Targets:       run.Targets,
		Nests:         run.Nests,
		Status:        string(run.Status),
		Error:         run.Error,
		StartedAt:     run.StartedAt.UTC().Format(time.RFC3339),
		DurationMS:    run.Duration().Milliseconds(),
	}
}
