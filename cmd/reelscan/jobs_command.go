package main

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelscan/internal/jobs"
)

type jobListEntry struct {
	ID        string      `json:"id"`
	VideoURL  string      `json:"video_url"`
	Status    jobs.Status `json:"status"`
	Stage     string      `json:"stage,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

type jobListPayload struct {
	Jobs []jobListEntry `json:"jobs"`
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var statusFilter string

	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "List analysis jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/jobs"
			if filter := strings.TrimSpace(statusFilter); filter != "" {
				path += "?status=" + url.QueryEscape(filter)
			}
			var resp jobListPayload
			if err := ctx.getJSON(path, &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}
			out := cmd.OutOrStdout()
			if len(resp.Jobs) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(resp.Jobs))
			for _, job := range resp.Jobs {
				detail := job.Stage
				if job.Error != "" {
					detail = job.Error
				}
				rows = append(rows, []string{
					job.ID,
					truncateCell(job.VideoURL, 48),
					string(job.Status),
					truncateCell(detail, 40),
					job.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "URL", "Status", "Detail", "Created"}, rows))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw API response")
	cmd.Flags().StringVar(&statusFilter, "status", "", "Only list jobs in this status (pending, running, completed, failed)")
	return cmd
}

func truncateCell(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}
