package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slackcord/slackcord/internal/config"
	"github.com/slackcord/slackcord/internal/db"
	"github.com/slackcord/slackcord/internal/deploy"
	"github.com/slackcord/slackcord/internal/discord"
	"github.com/slackcord/slackcord/internal/logger"
	"github.com/slackcord/slackcord/internal/store"
)

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Create migrated entities in the Discord guild",
}

var deployChannelsCmd = &cobra.Command{
	Use:   "channels",
	Short: "Create categories and channels",
	Args:  cobra.NoArgs,
	RunE:  runDeployChannels,
}

var deployMessagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Send migrated messages into their deployed channels",
	Args:  cobra.NoArgs,
	RunE:  runDeployMessages,
}

var (
	deployGuildID         string
	deployToken           string
	deployIncludeArchived bool
	deploySeparator       bool
)

func init() {
	rootCmd.AddCommand(deployCmd)
	deployCmd.AddCommand(deployChannelsCmd, deployMessagesCmd)
	deployCmd.PersistentFlags().StringVar(&deployGuildID, "guild", "", "Discord guild id (overrides config)")
	deployCmd.PersistentFlags().StringVar(&deployToken, "token", "", "Discord bot token (overrides config)")
	deployChannelsCmd.Flags().BoolVar(&deployIncludeArchived, "include-archived", false, "Also deploy archived channels")
	deployMessagesCmd.Flags().BoolVar(&deploySeparator, "separator", false, "Prefix each message with a horizontal rule")
}

// openDiscord builds the retrying Discord client from flags and config.
func openDiscord(cfg config.Config, guildFlag, tokenFlag string) (*discord.Client, error) {
	token := cfg.Discord.Token
	if tokenFlag != "" {
		token = tokenFlag
	}
	guildID := cfg.Discord.GuildID
	if guildFlag != "" {
		guildID = guildFlag
	}
	if token == "" {
		return nil, fmt.Errorf("discord token is required (config discord.token or DISCORD_TOKEN)")
	}
	if guildID == "" {
		return nil, fmt.Errorf("discord guild id is required (config discord.guild_id or DISCORD_GUILD_ID)")
	}
	return discord.NewClient(logger.L, token, guildID)
}

func runDeployChannels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := openDiscord(cfg, deployGuildID, deployToken)
	if err != nil {
		return err
	}
	pool, err := db.Open(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	st := store.NewPostgres(logger.L, pool)

	report, err := deploy.NewChannels(logger.L, st, dest, deployIncludeArchived).Run(cmd.Context())
	if err != nil {
		return err
	}
	return finishReport(report)
}

func runDeployMessages(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	dest, err := openDiscord(cfg, deployGuildID, deployToken)
	if err != nil {
		return err
	}
	pool, err := db.Open(cmd.Context(), cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	st := store.NewPostgres(logger.L, pool)

	report, err := deploy.NewMessages(logger.L, st, dest, deploySeparator).Run(cmd.Context())
	if err != nil {
		return err
	}
	return finishReport(report)
}
