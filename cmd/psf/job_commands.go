package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"psfd/internal/api"
)

func newJobCommand(ctx *commandContext) *cobra.Command {
	jobCmd := &cobra.Command{
		Use:   "job",
		Short: "Inspect generation jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	jobCmd.AddCommand(&cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job's status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := c.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printJob(cmd, view)
			return nil
		},
	})

	var waitTimeout time.Duration
	waitCmd := &cobra.Command{
		Use:   "wait <job-id>",
		Short: "Poll a job until it reaches a terminal state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			deadline := time.Now().Add(waitTimeout)
			for {
				view, err := c.GetJob(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if view.Status == "completed" || view.Status == "failed" {
					printJob(cmd, view)
					if view.Status == "failed" {
						return fmt.Errorf("job %s failed: %s", view.ID, view.Error)
					}
					return nil
				}
				if time.Now().After(deadline) {
					return fmt.Errorf("job %s still %s after %s", view.ID, view.Status, waitTimeout)
				}
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(250 * time.Millisecond):
				}
			}
		},
	}
	waitCmd.Flags().DurationVar(&waitTimeout, "timeout", 2*time.Minute, "How long to wait for a terminal state")
	jobCmd.AddCommand(waitCmd)

	return jobCmd
}

func printJob(cmd *cobra.Command, view *api.JobView) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job %s\ntype %s\nstatus %s\n", view.ID, view.Type, view.Status)
	if view.Error != "" {
		fmt.Fprintf(out, "error %s\n", view.Error)
	}
	if view.Result != nil {
		fmt.Fprintf(out, "result %s\n", view.Result)
	}
	if view.StartedAt != "" {
		fmt.Fprintf(out, "started %s\n", view.StartedAt)
	}
	if view.CompletedAt != "" {
		fmt.Fprintf(out, "completed %s\n", view.CompletedAt)
	}
}
