package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"reelscribe/internal/docstore"
	"reelscribe/internal/jobs"
	"reelscribe/internal/submit"
	"reelscribe/internal/workqueue"
)

func newStatusCommand(cctx *commandContext) *cobra.Command {
	var workspaceID string

	cmd := &cobra.Command{
		Use:   "status <job-id>",
		Short: "Show the status of a transcription job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			return cctx.withBackends(cmd.Context(), func(store docstore.Store, queue workqueue.Queue) error {
				svc := submit.NewService(store, queue, cfg.Store.ReelsCollection, cfg.Store.JobsCollection, nil)
				job, err := svc.Job(cmd.Context(), workspaceID, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderJobTable(job))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace the job belongs to (required)")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}

func renderJobTable(job jobs.Job) string {
	rows := [][]string{
		{"Job", job.JobID},
		{"Reel", job.ReelID},
		{"URL", job.ReelURL},
		{"Status", string(job.Status)},
		{"Attempts", fmt.Sprintf("%d", job.Attempts)},
	}
	if job.LeaseUntil != nil {
		rows = append(rows, []string{"Lease until", job.LeaseUntil.UTC().Format(time.RFC3339)})
	}
	if strings.TrimSpace(job.Error) != "" {
		rows = append(rows, []string{"Error", job.Error})
	}
	if !job.UpdatedAt.IsZero() {
		rows = append(rows, []string{"Updated", job.UpdatedAt.UTC().Format(time.RFC3339)})
	}
	return renderTable([]string{"Field", "Value"}, rows)
}
