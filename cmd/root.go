package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/msalah0e/causa/internal/config"
	"github.com/msalah0e/causa/internal/ui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var version = "0.3.0"

var (
	cfg         *config.Config
	logger      *zap.Logger
	apiURL      string
	verbose     bool
	offlineMode bool
)

var rootCmd = &cobra.Command{
	Use:   "causa",
	Short: "causa — causal-tree analysis for safety incidents",
	Long: ui.Brand.Sprint(ui.Mark+" causa") + " — build and review causal trees for workplace incidents\n" +
		ui.Subtle.Sprint("Edit node causes against the incident backend or a local analysis file"),
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			fmt.Fprintln(os.Stderr, ui.Warn.Sprintf("  %s %v (using defaults)", ui.WarnIcon(), err))
		}
		if apiURL != "" {
			cfg.API.BaseURL = apiURL
		}
		ui.SetColor(cfg.UI.Color && os.Getenv("NO_COLOR") == "")

		logger, err = newLogger(cfg.Log.Level, verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func newLogger(level string, verbose bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	zcfg.Encoding = "console"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zcfg.DisableStacktrace = true

	lvl := zapcore.WarnLevel
	if level != "" {
		if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
			return nil, fmt.Errorf("invalid log level %q", level)
		}
	}
	if verbose {
		lvl = zapcore.DebugLevel
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func init() {
	rootCmd.SetVersionTemplate("causa {{ .Version }}\n")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "Backend API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&offlineMode, "offline", false, "Never contact the backend; require --file")

	rootCmd.AddCommand(
		treeCmd(),
		configCmd(),
		logCmd(),
		doctorCmd(),
		completionCmd(),
	)
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Sprintf("  %s %v", ui.StatusIcon(false), err))
	}
	return err
}
