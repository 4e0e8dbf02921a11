package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shelfmark/internal/catalog"
)

func newRequestsCommand(ctx *commandContext) *cobra.Command {
	requestsCmd := &cobra.Command{
		Use:   "requests",
		Short: "Manage book requests",
	}

	requestsCmd.AddCommand(newRequestsListCommand(ctx))
	requestsCmd.AddCommand(newRequestsAddCommand(ctx))
	requestsCmd.AddCommand(newRequestsRemoveCommand(ctx))

	return requestsCmd
}

func newRequestsListCommand(ctx *commandContext) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requested books",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			payload, err := client.Requests(cmd.Context(), username)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(payload.Entries) == 0 {
				fmt.Fprintln(out, "No requests")
				return nil
			}
			fmt.Fprintln(out, renderWishlist(payload.Entries))
			fmt.Fprintf(out, "%d requested, %d downloaded, %d outstanding\n",
				payload.Counts.Total, payload.Counts.Downloaded, payload.Counts.Outstanding)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Filter by requester")
	return cmd
}

func newRequestsAddCommand(ctx *commandContext) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Request a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(username) == "" {
				return fmt.Errorf("--username is required")
			}
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.AddRequest(cmd.Context(), args[0], username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requested %s for %s\n", args[0], username)
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Requester name")
	return cmd
}

func newRequestsRemoveCommand(ctx *commandContext) *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "remove <book-id>",
		Short: "Withdraw a request (all requesters when --username is omitted)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			if err := client.RemoveRequest(cmd.Context(), args[0], username); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed request for %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Requester name")
	return cmd
}

func renderWishlist(entries []catalog.WishlistEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		state := "wanted"
		if entry.Book.Downloaded {
			state = "downloaded"
		}
		kind := "canonical"
		if entry.Book.Synthetic {
			kind = "synthetic"
		}
		rows = append(rows, []string{
			entry.Book.ID,
			entry.Book.Title,
			strings.Join(entry.Book.Authors, ", "),
			strings.Join(entry.Requesters, ", "),
			kind,
			state,
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Authors", "Requesters", "Identity", "State"},
		rows,
		nil,
	)
}
