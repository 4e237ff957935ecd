package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slackcord/slackcord/internal/config"
	"github.com/slackcord/slackcord/internal/db"
	"github.com/slackcord/slackcord/internal/logger"
	"github.com/slackcord/slackcord/internal/migrate"
	"github.com/slackcord/slackcord/internal/resolver"
	"github.com/slackcord/slackcord/internal/slackapi"
	"github.com/slackcord/slackcord/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Parse export files into the correlation store",
}

var migrateChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Migrate the channel list and categories",
	Args:  cobra.NoArgs,
	RunE:  runMigrateChannels,
}

var migrateUsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Migrate the user and bot directory",
	Args:  cobra.NoArgs,
	RunE:  runMigrateUsers,
}

var migrateMessagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Migrate per-day message files of every migrated channel",
	Args:  cobra.NoArgs,
	RunE:  runMigrateMessages,
}

var (
	migrateExportDir string
	migrateDryRun    bool
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateChannelsCmd, migrateUsersCmd, migrateMessagesCmd)
	migrateCmd.PersistentFlags().StringVar(&migrateExportDir, "export-dir", "", "Export directory (overrides config)")
	migrateCmd.PersistentFlags().BoolVar(&migrateDryRun, "dry-run", false, "Validate the export against an in-memory store without persisting")
}

// openStore returns the correlation store and a close func. With --dry-run
// the store lives in memory and everything written is discarded on exit.
func openStore(cmd *cobra.Command, cfg config.Config) (store.Store, func(), error) {
	if migrateDryRun {
		return store.NewMemory(), func() {}, nil
	}
	pool, err := db.Open(cmd.Context(), cfg.Postgres)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return store.NewPostgres(logger.L, pool), pool.Close, nil
}

func exportDir(cfg config.Config) string {
	if migrateExportDir != "" {
		return migrateExportDir
	}
	return cfg.Export.Dir
}

func runMigrateChannels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := migrate.NewChannels(logger.L, st).Run(cmd.Context(), exportDir(cfg))
	if err != nil {
		return err
	}
	return finishReport(report)
}

func runMigrateUsers(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, closeStore, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	report, err := migrate.NewUsers(logger.L, st).Run(cmd.Context(), exportDir(cfg))
	if err != nil {
		return err
	}
	return finishReport(report)
}

func runMigrateMessages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Slack.Token == "" {
		return fmt.Errorf("slack token is required (config slack.token or SLACK_TOKEN)")
	}
	st, closeStore, err := openStore(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	directory := slackapi.NewClient(logger.L, cfg.Slack.Token)
	authors := resolver.NewService(logger.L, st, directory)
	report, err := migrate.NewMessages(logger.L, st, authors).Run(cmd.Context(), exportDir(cfg))
	if err != nil {
		return err
	}
	return finishReport(report)
}
