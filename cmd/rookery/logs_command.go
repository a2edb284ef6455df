package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"rookery/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines   int
		follow  bool
		batchID string
		site    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the rookery log file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path := cfg.LogFile()
			if path == "" {
				return errors.New("file logging is disabled (set paths.log_dir)")
			}

			var filters []string
			if batchID != "" {
				filters = append(filters, "run_id="+batchID)
			}
			if site != "" {
				filters = append(filters, "site="+site)
			}
			filter := logs.ContainsAll(filters...)

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines, filter)
			if err != nil {
				return err
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, filter, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new lines")
	cmd.Flags().StringVar(&batchID, "batch", "", "Only lines for this batch id (console format)")
	cmd.Flags().StringVar(&site, "site", "", "Only lines for this site")
	return cmd
}
