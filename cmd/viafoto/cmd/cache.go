package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// cacheCmd groups the result cache maintenance subcommands.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the result cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show result cache statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := newStore(ctx, GetConfig())
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer func() { _ = closer.Close() }()
		}

		stats, err := store.Stats(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Entries: %d\n", stats.Count)
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Approx size: %d bytes\n", stats.ApproxSize)
		return nil
	},
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all cached classification results",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		store, err := newStore(ctx, GetConfig())
		if err != nil {
			return err
		}
		if closer, ok := store.(io.Closer); ok {
			defer func() { _ = closer.Close() }()
		}

		if err := store.Clear(ctx); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
	cacheCmd.AddCommand(cacheClearCmd)
}
