package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "Manage discovery sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "Create a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			created, err := c.CreateSession(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s\nexport token %s\n", created.SessionID, created.ExportToken)
			return nil
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session's stage and artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			view, err := c.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "session %s\nstage %s\n", view.ID, view.CurrentState)
			if len(view.NextStates) > 0 {
				fmt.Fprintf(out, "next %v\n", view.NextStates)
			}
			if view.ExpiresAt != "" {
				fmt.Fprintf(out, "expires %s\n", view.ExpiresAt)
			}

			jobs, err := c.SessionJobs(cmd.Context(), view.ID)
			if err != nil {
				return err
			}
			if len(jobs) > 0 {
				rows := make([][]string, 0, len(jobs))
				for _, job := range jobs {
					detail := job.Error
					if detail == "" && job.Result != nil {
						detail = string(job.Result)
					}
					rows = append(rows, []string{job.ID, job.Type, job.Status, detail})
				}
				fmt.Fprintln(out, renderTable([]string{"JOB", "TYPE", "STATUS", "DETAIL"}, rows))
			}
			return nil
		},
	})

	sessionCmd.AddCommand(&cobra.Command{
		Use:   "advance <session-id> <target-stage>",
		Short: "Apply a stage transition",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			result, err := c.Transition(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s -> %s\n", result.ID, result.PreviousState, result.CurrentState)
			if result.JobID != "" {
				fmt.Fprintf(out, "enqueued job %s\n", result.JobID)
			}
			return nil
		},
	})

	return sessionCmd
}
