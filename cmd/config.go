package cmd

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/msalah0e/causa/internal/config"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize causa configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return configShow(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return configShow(cmd)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a default config file if none exists",
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := config.EnsureExists(); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				ui.Good.Printf("  %s Config at %s\n", ui.StatusIcon(true), config.Path())
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), config.Path())
			},
		},
	)
	return cmd
}

func configShow(cmd *cobra.Command) error {
	ui.Banner("config")
	ui.Subtle.Printf("  # %s\n\n", config.Path())
	return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
}
