package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"shelfmark/internal/memocache"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage resolution caches",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheFlushCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache hit rates",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			report, err := client.Caches(cmd.Context())
			if err != nil {
				return err
			}

			rows := [][]string{
				metricsRow("scores", report.Scores),
				metricsRow("outcomes", report.Outcomes),
				metricsRow("releases", report.Releases),
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Cache", "Hits", "Misses", "Evictions", "Size", "Hit Rate"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight},
			))
			return nil
		},
	}
}

func newCacheFlushCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "flush",
		Short: "Flush in-memory and persisted caches",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.apiClient()
			if err != nil {
				return err
			}
			purged, err := client.FlushCaches(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Caches flushed (%d persisted entries removed)\n", purged)
			return nil
		},
	}
}

func metricsRow(name string, m memocache.Metrics) []string {
	return []string{
		name,
		fmt.Sprintf("%d", m.Hits),
		fmt.Sprintf("%d", m.Misses),
		fmt.Sprintf("%d", m.Evictions),
		fmt.Sprintf("%d", m.Size),
		fmt.Sprintf("%.1f%%", m.HitRate()*100),
	}
}
