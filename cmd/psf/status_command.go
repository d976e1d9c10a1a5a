package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := ctx.client()
			if err != nil {
				return err
			}
			status, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "daemon pid %d\ndatabase %s\nworkers %d\n", status.PID, status.DatabasePath, status.Workers)
			rows := [][]string{
				{"sessions", strconv.Itoa(status.Sessions)},
				{"queued", strconv.Itoa(status.Jobs["queued"])},
				{"running", strconv.Itoa(status.Jobs["running"])},
				{"completed", strconv.Itoa(status.Jobs["completed"])},
				{"failed", strconv.Itoa(status.Jobs["failed"])},
			}
			fmt.Fprintln(out, renderTable([]string{"METRIC", "COUNT"}, rows))
			return nil
		},
	}
}
