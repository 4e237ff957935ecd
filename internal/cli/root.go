// Package cli wires the migration pipeline into the slackcord command tree.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slackcord/slackcord/internal/config"
	"github.com/slackcord/slackcord/internal/logger"
	"github.com/slackcord/slackcord/internal/migrate"
)

var rootCmd = &cobra.Command{
	Use:   "slackcord",
	Short: "Migrate a Slack export into a Discord guild",
	Long: `slackcord replays an exported Slack workspace into a Discord guild in
three stages: migrate parses the export into a correlation store, deploy
creates the Discord-side channels and messages, and destroy tears the
deployed entities down again. Every stage is safe to re-run.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	defaultConfig := strings.TrimSpace(os.Getenv("CONFIG_PATH"))
	if defaultConfig == "" {
		defaultConfig = config.DefaultConfigPath
	}
	rootCmd.PersistentFlags().String("config", defaultConfig, "Path to config.toml")
}

// loadConfig reads the configured TOML file and initializes logging.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path := cmd.Flag("config").Value.String()
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	return cfg, nil
}

// finishReport prints the stage outcome and turns recorded failures into a
// non-zero exit.
func finishReport(report *migrate.Report) error {
	fmt.Println(report.Summary())
	if report.Ok() {
		return nil
	}
	for _, f := range report.Failures() {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", f.Unit, f.Err)
	}
	return fmt.Errorf("%d units failed", len(report.Failures()))
}
