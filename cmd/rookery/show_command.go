package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rookery/internal/nests"
	"rookery/internal/vectorio"
)

type nestJSON struct {
	NestID    int64   `json:"nest_id"`
	Site      string  `json:"Site"`
	Year      string  `json:"Year"`
	XMean     float64 `json:"xmean"`
	YMean     float64 `json:"ymean"`
	FirstObs  string  `json:"first_obs"`
	LastObs   string  `json:"last_obs"`
	NumObs    int     `json:"num_obs"`
	Species   string  `json:"species"`
	SumTop1   float64 `json:"sum_top1"`
	NumTop1   int     `json:"num_top1"`
	BirdMatch string  `json:"bird_match"`
}

type nestTableJSON struct {
	Path         string     `json:"path"`
	Format       string     `json:"format"`
	CRS          string     `json:"crs,omitempty"`
	GeometryType string     `json:"geometry_type,omitempty"`
	Nests        []nestJSON `json:"nests"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:         "show FILE",
		Short:       "Display a processed nest table",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := vectorio.ReadNests(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, nestTableToJSON(args[0], tbl))
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderNestTable(tbl))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func renderNestTable(tbl *vectorio.NestTable) string {
	aligns := []columnAlignment{
		alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft,
		alignLeft, alignRight, alignLeft, alignRight, alignRight, alignLeft,
	}
	rows := make([][]string, 0, len(tbl.Nests))
	for _, n := range tbl.Nests {
		rows = append(rows, []string{
			strconv.FormatInt(n.ID, 10),
			n.Site,
			n.Year,
			formatCoord(n.XMean),
			formatCoord(n.YMean),
			n.FirstObs.Format(nests.DateLayout),
			n.LastObs.Format(nests.DateLayout),
			strconv.Itoa(n.NumObs),
			n.Species,
			strconv.FormatFloat(n.SumTop1, 'f', 3, 64),
			strconv.Itoa(n.NumTop1),
			n.BirdMatch,
		})
	}
	caption := fmt.Sprintf("%d nests", len(tbl.Nests))
	if tbl.CRS != "" {
		caption += ", " + tbl.CRS
	}
	if tbl.GeometryType != "" {
		caption += ", " + tbl.GeometryType
	}
	return renderTable(nests.Columns, rows, aligns, caption)
}

func nestTableToJSON(path string, tbl *vectorio.NestTable) nestTableJSON {
	out := nestTableJSON{
		Path:         path,
		Format:       string(tbl.Format),
		CRS:          tbl.CRS,
		GeometryType: tbl.GeometryType,
		Nests:        make([]nestJSON, 0, len(tbl.Nests)),
	}
	for _, n := range tbl.Nests {
		out.Nests = append(out.Nests, nestJSON{
			NestID:    n.ID,
			Site:      n.Site,
			Year:      n.Year,
			XMean:     n.XMean,
			YMean:     n.YMean,
			FirstObs:  n.FirstObs.Format(nests.DateLayout),
			LastObs:   n.LastObs.Format(nests.DateLayout),
			NumObs:    n.NumObs,
			Species:   n.Species,
			SumTop1:   n.SumTop1,
			NumTop1:   n.NumTop1,
			BirdMatch: n.BirdMatch,
		})
	}
	return out
}
