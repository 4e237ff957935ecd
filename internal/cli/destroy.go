package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slackcord/slackcord/internal/db"
	"github.com/slackcord/slackcord/internal/destroy"
	"github.com/slackcord/slackcord/internal/logger"
	"github.com/slackcord/slackcord/internal/store"
)

var destroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete deployed entities from the Discord guild",
	Long: `Destroy reverses deploy: it deletes the Discord-side messages, channels,
and categories and clears the recorded ids, leaving the migrated records
ready for a clean re-deploy. Targets that are already gone count as
destroyed.`,
}

var destroyChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Delete deployed channels and categories",
	Args:  cobra.NoArgs,
	RunE:  runDestroyChannels,
}

var destroyMessagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Delete deployed messages",
	Args:  cobra.NoArgs,
	RunE:  runDestroyMessages,
}

var (
	destroyGuildID string
	destroyToken   string
)

func init() {
	rootCmd.AddCommand(destroyCmd)
	destroyCmd.AddCommand(destroyChannelsCmd, destroyMessagesCmd)
	destroyCmd.PersistentFlags().StringVar(&destroyGuildID, "guild", "", "Discord guild id (overrides config)")
	destroyCmd.PersistentFlags().StringVar(&destroyToken, "token", "", "Discord bot token (overrides config)")
}

func runDestroyChannels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := openDiscord(cfg, destroyGuildID, destroyToken)
	if err != nil {
		return err
	}
	pool, err := db.Open(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	st := store.NewPostgres(logger.L, pool)

	report, err := destroy.NewChannels(logger.L, st, dest).Run(cmd.Context())
	if err != nil {
		return err
	}
	return finishReport(report)
}

func runDestroyMessages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := openDiscord(cfg, destroyGuildID, destroyToken)
	if err != nil {
		return err
	}
	pool, err := db.Open(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	st := store.NewPostgres(logger.L, pool)

	report, err := destroy.NewMessages(logger.L, st, dest).Run(cmd.Context())
	if err != nil {
		return err
	}
	return finishReport(report)
}
