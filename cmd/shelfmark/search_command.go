package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shelfmark/internal/search"
)

func newSearchCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Resolve a query against the indexer and catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			query := strings.Join(args, " ")
			results, err := client.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintln(out, "No results")
				return nil
			}
			fmt.Fprintln(out, renderSearchResults(results))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 = all)")
	return cmd
}

func renderSearchResults(results []search.Result) string {
	rows := make([][]string, 0, len(results))
	for _, result := range results {
		authors := strings.Join(result.Book.Authors, ", ")
		rows = append(rows, []string{
			result.Book.ID,
			result.Book.Title,
			authors,
			string(result.Source),
			fmt.Sprintf("%.1f", result.Scores.Combined),
		})
	}
	return renderTable(
		[]string{"ID", "Title", "Authors", "Source", "Score"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}
