package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/msalah0e/causa/internal/config"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "doctor",
		Aliases: []string{"dr"},
		Short:   "Health check — verify config, activity log and backend",
		Run: func(cmd *cobra.Command, args []string) {
			ui.Banner("health check")
			warnings := 0

			if _, err := os.Stat(config.Path()); err != nil {
				fmt.Printf("  %s config: defaults (run `causa config init`)\n", ui.Subtle.Sprint("-"))
			} else if _, err := config.Load(); err != nil {
				fmt.Printf("  %s config: %v\n", ui.WarnIcon(), err)
				warnings++
			} else {
				fmt.Printf("  %s config: %s\n", ui.StatusIcon(true), config.Path())
			}

			if !cfg.LinkType().Valid() {
				fmt.Printf("  %s editor.default_link_type %q is not a link type\n", ui.WarnIcon(), cfg.Editor.DefaultLinkType)
				warnings++
			}

			if cfg.Log.Activity {
				if err := checkWritable(config.ConfigDir()); err != nil {
					fmt.Printf("  %s activity log: %v\n", ui.WarnIcon(), err)
					warnings++
				} else {
					fmt.Printf("  %s activity log: enabled\n", ui.StatusIcon(true))
				}
			} else {
				fmt.Printf("  %s activity log: disabled\n", ui.Subtle.Sprint("-"))
			}

			if offlineMode {
				fmt.Printf("  %s backend: skipped (--offline)\n", ui.Subtle.Sprint("-"))
			} else {
				warnings += checkBackend(cmd.Context())
			}

			fmt.Println()
			if warnings > 0 {
				ui.Warn.Printf("  %d warning(s)\n", warnings)
			} else {
				ui.Good.Println("  All checks passed")
			}
		},
	}
}

func checkBackend(ctx context.Context) int {
	client, err := newClient()
	if err != nil {
		fmt.Printf("  %s backend: %v\n", ui.StatusIcon(false), err)
		return 1
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	elapsed, err := client.Ping(ctx)
	if err != nil {
		fmt.Printf("  %s backend %s: unreachable (%v)\n", ui.StatusIcon(false), cfg.API.BaseURL, err)
		return 1
	}
	fmt.Printf("  %s backend %s: %s\n", ui.StatusIcon(true), cfg.API.BaseURL, elapsed.Round(time.Millisecond))
	return 0
}

func checkWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".doctor-*")
	if err != nil {
		return err
	}
	name := f.Name()
	f.Close()
	return os.Remove(filepath.Clean(name))
}
