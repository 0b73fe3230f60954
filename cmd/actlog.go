package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/msalah0e/causa/internal/activity"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
)

func logCmd() *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:     "log",
		Aliases: []string{"activity"},
		Short:   "Show the history of node updates made from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui.Banner("activity log")

			entries, err := activity.Read(count)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("  No activity recorded yet.")
				fmt.Println("  Activity is logged by `causa tree edit`, `link`, `add` and `rm`")
				return nil
			}
			printEntries(entries)
			fmt.Printf("\n  Showing %d most recent entries\n", len(entries))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 20, "Number of entries to show (0 for all)")

	cmd.AddCommand(
		logSearchCmd(),
		logClearCmd(),
		logExportCmd(),
	)
	return cmd
}

func printEntries(entries []activity.Entry) {
	var rows [][]string
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.Format("Jan 02 15:04"),
			e.Action,
			e.Analysis,
			ui.Truncate(e.Node, 12),
			ui.Truncate(e.Details, 40),
			e.Target,
		})
	}
	ui.Table([]string{"Time", "Action", "Analysis", "Node", "Details", "Target"}, rows)
}

func logSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Search activity log entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := activity.Search(args[0], 50)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Printf("  No entries matching %q\n", args[0])
				return nil
			}
			ui.Banner("search results")
			printEntries(results)
			fmt.Printf("\n  %d results\n", len(results))
			return nil
		},
	}
}

func logClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the activity log",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := activity.Clear(); err != nil {
				return fmt.Errorf("failed to clear: %w", err)
			}
			ui.Good.Printf("  %s Activity log cleared\n", ui.StatusIcon(true))
			return nil
		},
	}
}

func logExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the activity log as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := activity.Read(0)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(entries, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		},
	}
}
