package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelscribe/internal/docstore"
	"reelscribe/internal/submit"
	"reelscribe/internal/workqueue"
)

func newSubmitCommand(cctx *commandContext) *cobra.Command {
	var workspaceID string
	var reelID string
	var source string

	cmd := &cobra.Command{
		Use:   "submit <url>",
		Short: "Queue a video for transcription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cctx.ensureConfig()
			if err != nil {
				return err
			}
			return cctx.withBackends(cmd.Context(), func(store docstore.Store, queue workqueue.Queue) error {
				svc := submit.NewService(store, queue, cfg.Store.ReelsCollection, cfg.Store.JobsCollection, nil)
				resp, err := svc.Submit(cmd.Context(), submit.Request{
					WorkspaceID: workspaceID,
					URL:         args[0],
					ReelID:      reelID,
					Source:      source,
				})
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if resp.AlreadyTranscribed {
					fmt.Fprintf(out, "Reel %s already has a transcript, nothing to do\n", resp.ReelID)
					return nil
				}
				fmt.Fprintf(out, "Queued job %s for reel %s\n", resp.JobID, resp.ReelID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&workspaceID, "workspace", "w", "", "Workspace the reel belongs to (required)")
	cmd.Flags().StringVar(&reelID, "reel-id", "", "Reel document id (derived from the URL when omitted)")
	cmd.Flags().StringVar(&source, "source", "", "Source platform label")
	_ = cmd.MarkFlagRequired("workspace")
	return cmd
}
