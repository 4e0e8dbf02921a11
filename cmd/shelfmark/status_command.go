package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and catalog status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			status, err := client.Status(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			running := "stopped"
			if status.Running {
				running = fmt.Sprintf("running (pid %d)", status.PID)
			}
			fmt.Fprintf(out, "Daemon:    %s\n", running)
			fmt.Fprintf(out, "Database:  %s\n", status.DatabasePath)
			fmt.Fprintf(out, "Lock file: %s\n", status.LockFilePath)
			fmt.Fprintf(out, "Books:     %d total (%d synthetic)\n",
				status.Health.TotalBooks, status.Health.SyntheticBooks)
			fmt.Fprintf(out, "Wishlist:  %d requested, %d downloaded, %d outstanding\n",
				status.Wishlist.Total, status.Wishlist.Downloaded, status.Wishlist.Outstanding)
			if !status.Health.IntegrityCheck {
				fmt.Fprintln(out, "WARNING: database integrity check failed")
			}
			return nil
		},
	}
}
