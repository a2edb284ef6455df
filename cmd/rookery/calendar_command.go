package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"rookery/internal/batch"
	"rookery/internal/nests"
	"rookery/internal/vectorio"
)

type calendarJSON struct {
	CRS     string              `json:"crs,omitempty"`
	Surveys []surveyJSON        `json:"surveys"`
	Targets []targetSummaryJSON `json:"targets"`
}

type surveyJSON struct {
	Site  string   `json:"site"`
	Year  string   `json:"year"`
	Dates []string `json:"dates"`
}

type targetSummaryJSON struct {
	Target   int64  `json:"target_ind"`
	Site     string `json:"site"`
	Year     string `json:"year"`
	Total    int    `json:"detections"`
	Kept     int    `json:"kept"`
	Run      int    `json:"max_consecutive"`
	Retained bool   `json:"retained"`
}

func newCalendarCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var minScore float64
	var minDetections, minConsec int

	cmd := &cobra.Command{
		Use:   "calendar FILE",
		Short: "Show survey dates and per-target consecutive runs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			th := batch.ThresholdsFromConfig(cfg)
			if cmd.Flags().Changed("min-score") {
				th.MinScore = minScore
			}
			if cmd.Flags().Changed("min-detections") {
				th.MinDetections = minDetections
			}
			if cmd.Flags().Changed("min-consec") {
				th.MinConsecutive = minConsec
			}

			set, err := vectorio.ReadDetections(cmd.Context(), args[0], cfg.Nests.DefaultCRS)
			if err != nil {
				return err
			}
			cal := nests.BuildCalendar(set.Detections)
			summaries, err := nests.Summarize(set.Detections, th)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd, calendarToJSON(set.CRS, cal, summaries))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderSurveys(cal))
			fmt.Fprintln(out, renderTargets(summaries, th))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "Minimum detection score kept")
	cmd.Flags().IntVar(&minDetections, "min-detections", 0, "Kept detections that retain a target")
	cmd.Flags().IntVar(&minConsec, "min-consec", 0, "Run length, in survey dates, that retains a target (any run spans at least 2 dates)")
	return cmd
}

func surveyDateStrings(dates nests.SurveyDates) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(nests.DateLayout)
	}
	return out
}

func renderSurveys(cal nests.Calendar) string {
	headers := []string{"Site", "Year", "Surveys", "Dates"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}
	var rows [][]string
	for _, key := range cal.Keys() {
		dates, _ := cal.Dates(key)
		rows = append(rows, []string{key.Site, key.Year, strconv.Itoa(len(dates)), strings.Join(surveyDateStrings(dates), " ")})
	}
	return renderTable(headers, rows, aligns, "")
}

func renderTargets(summaries []nests.TargetSummary, th nests.Thresholds) string {
	headers := []string{"Target", "Site", "Year", "Detections", "Kept", "Longest run", "Nest"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			strconv.FormatInt(s.ID, 10),
			s.Key.Site,
			s.Key.Year,
			strconv.Itoa(s.Total),
			strconv.Itoa(s.Kept),
			strconv.Itoa(s.Run),
			yesNo(s.Retained),
		})
	}
	caption := fmt.Sprintf("min_score=%g min_detections=%d min_consec_detects=%d", th.MinScore, th.MinDetections, th.MinConsecutive)
	return renderTable(headers, rows, aligns, caption)
}

func calendarToJSON(crs string, cal nests.Calendar, summaries []nests.TargetSummary) calendarJSON {
	out := calendarJSON{
		CRS:     crs,
		Surveys: []surveyJSON{},
		Targets: make([]targetSummaryJSON, 0, len(summaries)),
	}
	for _, key := range cal.Keys() {
		dates, _ := cal.Dates(key)
		out.Surveys = append(out.Surveys, surveyJSON{Site: key.Site, Year: key.Year, Dates: surveyDateStrings(dates)})
	}
	for _, s := range summaries {
		out.Targets = append(out.Targets, targetSummaryJSON{
			Target:   s.ID,
			Site:     s.Key.Site,
			Year:     s.Key.Year,
			Total:    s.Total,
			Kept:     s.Kept,
			Run:      s.Run,
			Retained: s.Retained,
		})
	}
	return out
}
