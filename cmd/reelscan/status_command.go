package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelscan/internal/preflight"
)

type statusPayload struct {
	Running   bool   `json:"running"`
	PID       int    `json:"pid"`
	IndexPath string `json:"index_path"`
	Total     int    `json:"jobs_total"`
	Pending   int    `json:"jobs_pending"`
	Active    int    `json:"jobs_running"`
	Completed int    `json:"jobs_completed"`
	Failed    int    `json:"jobs_failed"`
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and environment checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			var resp statusPayload
			daemonErr := ctx.getJSON("/api/status", &resp)
			if jsonOutput {
				if daemonErr != nil {
					return daemonErr
				}
				return writeJSON(cmd, resp)
			}

			fmt.Fprintln(out, renderSectionHeader("Daemon", colorize))
			if daemonErr != nil {
				fmt.Fprintln(out, renderStatusLine("Running", statusError, "no ("+daemonErr.Error()+")", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Running", statusOK, fmt.Sprintf("pid %d", resp.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Job index", statusInfo, resp.IndexPath, colorize))
				fmt.Fprintln(out, renderStatusLine("Jobs", statusInfo,
					fmt.Sprintf("%d total, %d pending, %d running, %d completed, %d failed",
						resp.Total, resp.Pending, resp.Active, resp.Completed, resp.Failed), colorize))
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			fmt.Fprintln(out, renderSectionHeader("Environment", colorize))
			for _, check := range preflight.RunAll(cmd.Context(), cfg) {
				kind := statusOK
				if !check.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(check.Name, kind, check.Detail, colorize))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw API response")
	return cmd
}
