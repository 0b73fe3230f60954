package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/parallel"
	"github.com/msalah0e/causa/internal/store"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
)

var errCheckFailed = errors.New("check failed")

// checkFile validates one analysis file. Isolated nodes are reported in the
// output but do not fail the check.
func checkFile(path string) (string, error) {
	a, err := store.Load(path)
	if err != nil {
		return "", err
	}
	if err := a.Validate(); err != nil {
		return "", err
	}
	if cyclic, at := causal.HasCycle(a.Nodes); cyclic {
		return "", fmt.Errorf("cycle through node %s", at)
	}

	out := fmt.Sprintf("%d nodes", len(a.Nodes))
	if iso := a.Isolated(); len(iso) > 0 {
		labels := make([]string, len(iso))
		for i, n := range iso {
			labels[i] = n.Label()
		}
		out += fmt.Sprintf(", %d isolated: %s", len(iso), strings.Join(labels, "; "))
	}
	return out, nil
}

func treeCheckCmd() *cobra.Command {
	var jobs int

	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Validate analysis files: one final event, known parents, no cycles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tasks := make([]parallel.Task, len(args))
			for i, path := range args {
				tasks[i] = parallel.Task{
					Name: path,
					Fn: func(ctx context.Context) (string, error) {
						return checkFile(path)
					},
				}
			}

			ui.Banner("check")
			results := parallel.Run(cmd.Context(), tasks, jobs, nil)

			failed := 0
			for _, r := range results {
				if !r.OK {
					failed++
					fmt.Printf("  %s %s\n", ui.StatusIcon(false), r.Name)
					for _, line := range strings.Split(r.Err.Error(), "\n") {
						fmt.Printf("      %s\n", ui.Bad.Sprint(line))
					}
					continue
				}
				icon := ui.StatusIcon(true)
				if strings.Contains(r.Output, "isolated") {
					icon = ui.WarnIcon()
				}
				fmt.Printf("  %s %s %s\n", icon, r.Name, ui.Subtle.Sprint(r.Output))
			}

			fmt.Println()
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d files", errCheckFailed, failed, len(results))
			}
			ui.Good.Printf("  %d file(s) ok\n", len(results))
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 4, "Files to check concurrently")
	return cmd
}
