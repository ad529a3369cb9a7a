package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Submit a video URL for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				ID string `json:"id"`
			}
			payload := map[string]string{"url": args[0]}
			if err := ctx.postJSON("/api/analyze", payload, &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Job accepted: %s\n", resp.ID)
			fmt.Fprintf(out, "Check progress with `reelscan show %s`\n", resp.ID)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw API response")
	return cmd
}
