package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPromoteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "promote <book-id>",
		Short: "Match a synthetic record against the metadata provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			book, promoted, err := client.Promote(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if promoted {
				fmt.Fprintf(out, "Promoted to %s: %s\n", book.ID, book.Title)
			} else {
				fmt.Fprintf(out, "No authoritative match; %s remains synthetic\n", book.ID)
			}
			return nil
		},
	}
}
