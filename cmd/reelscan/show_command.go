package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"reelscan/internal/jobs"
	"reelscan/internal/transcription"
)

type showResponse struct {
	ID       string        `json:"id"`
	VideoURL string        `json:"video_url"`
	Status   jobs.Status   `json:"status"`
	Stage    string        `json:"stage,omitempty"`
	Result   *jobs.Result  `json:"result,omitempty"`
	Failure  *jobs.Failure `json:"failure,omitempty"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Display the analysis result for a job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp showResponse
			if err := ctx.getJSON("/api/results/"+args[0], &resp); err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, resp)
			}
			renderShow(cmd, resp)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw API response")
	return cmd
}

func renderShow(cmd *cobra.Command, resp showResponse) {
	out := cmd.OutOrStdout()
	colorize := shouldColorize(out)

	fmt.Fprintln(out, renderSectionHeader("Job "+resp.ID, colorize))
	fmt.Fprintln(out, renderStatusLine("URL", statusInfo, resp.VideoURL, colorize))

	switch resp.Status {
	case jobs.StatusCompleted:
		fmt.Fprintln(out, renderStatusLine("Status", statusOK, string(resp.Status), colorize))
	case jobs.StatusFailed:
		fmt.Fprintln(out, renderStatusLine("Status", statusError, string(resp.Status), colorize))
	default:
		message := string(resp.Status)
		if resp.Stage != "" {
			message += " (" + resp.Stage + ")"
		}
		fmt.Fprintln(out, renderStatusLine("Status", statusInfo, message, colorize))
	}

	if resp.Failure != nil {
		fmt.Fprintln(out, renderStatusLine("Failed stage", statusError, resp.Failure.Stage, colorize))
		fmt.Fprintln(out, renderStatusLine("Reason", statusError, resp.Failure.Message, colorize))
		return
	}
	if resp.Result == nil {
		return
	}

	result := resp.Result
	fmt.Fprintln(out, renderStatusLine("Completed", statusOK, result.CompletedAt.Format(time.RFC3339), colorize))
	fmt.Fprintln(out, renderStatusLine("AI probability", detectionKind(result.Detection.AverageProbability),
		fmt.Sprintf("%.2f (over %d sentences)", result.Detection.AverageProbability, result.Detection.SentencesScored), colorize))

	if result.Transcript == nil || len(result.Transcript.Sentences) == 0 {
		return
	}
	fmt.Fprintln(out, renderStatusLine("Transcriber", statusInfo, result.Transcript.Provider, colorize))
	if result.Transcript.Note != "" {
		fmt.Fprintln(out, renderStatusLine("Note", statusWarn, result.Transcript.Note, colorize))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderTranscriptTable(result.Transcript.Sentences))
}

func renderTranscriptTable(sentences []transcription.Sentence) string {
	rows := make([][]string, 0, len(sentences))
	for _, sentence := range sentences {
		probability := "-"
		provider := sentence.DetectionProvider
		if sentence.AIProbability != nil {
			probability = fmt.Sprintf("%.2f", *sentence.AIProbability)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", sentence.Index),
			fmt.Sprintf("%.1fs", sentence.Start),
			sentence.Text,
			probability,
			provider,
		})
	}
	return renderTable([]string{"#", "Start", "Sentence", "AI Prob", "Detector"}, rows, 1, 4)
}

func detectionKind(probability float64) statusKind {
	switch {
	case probability >= 0.7:
		return statusError
	case probability >= 0.4:
		return statusWarn
	default:
		return statusOK
	}
}
