package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nickandperla.net/bfasm"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		stats  bool
		source string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "list past compilations from the history database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			persist := openHistory()
			if persist == nil {
				return fmt.Errorf("History is disabled. Set history.path in the config or pass --history-dir")
			}

			if stats {
				metrics, err := persist.QueryMetrics()
				if err != nil {
					return err
				}
				bfasm.RenderMetrics(os.Stdout, metrics)
				return nil
			}

			if source != "" {
				src, err := os.ReadFile(source)
				if err != nil {
					return fmt.Errorf("Unable to read source [%s]: %w", source, err)
				}
				entry, err := persist.FindBySource(string(src))
				if err != nil {
					return err
				}
				if entry == nil {
					fmt.Printf("No history for [%s]\n", source)
					return nil
				}
				bfasm.RenderHistory(os.Stdout, []*bfasm.Compilation{entry})
				return nil
			}

			if limit <= 0 {
				return fmt.Errorf("Invalid history count [%d]", limit)
			}
			entries, err := persist.Recent(limit)
			if err != nil {
				return err
			}
			bfasm.RenderHistory(os.Stdout, entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "count", "n", 20, "number of entries to list")
	cmd.Flags().BoolVar(&stats, "stats", false, "print counts by status and error kind")
	cmd.Flags().StringVar(&source, "source", "", "show the newest entry for the contents of this file")
	return cmd
}
