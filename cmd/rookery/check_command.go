package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"rookery/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify directories, output format, and the run ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			results := preflight.RunAll(cmd.Context(), cfg)
			if preflight.Failed(results) == nil {
				results = append(results, preflight.CheckLedger(cmd.Context(), cfg))
			}

			if ctx.configPath != "" {
				fmt.Fprintln(out, renderStatusLine("Config", statusInfo, ctx.configPath, colorize))
			}
			th := fmt.Sprintf("min_score=%s min_detections=%d min_consec_detects=%d",
				strconv.FormatFloat(cfg.Nests.MinScore, 'g', -1, 64), cfg.Nests.MinDetections, cfg.Nests.MinConsecDetects)
			fmt.Fprintln(out, renderStatusLine("Thresholds", statusInfo, th, colorize))

			lines, failed := checkLines(results, colorize)
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			if failed > 0 {
				return errors.New(pluralChecks(failed) + " failed")
			}
			return nil
		},
	}
}

func pluralChecks(n int) string {
	if n == 1 {
		return "1 check"
	}
	return fmt.Sprintf("%d checks", n)
}
