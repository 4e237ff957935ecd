// Package config loads and exposes application configuration (TOML).
package config

import (
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Default configuration values used when a field is missing in TOML.
const (
	DefaultConfigPath = "config.toml"
	DefaultExportDir  = "export"
	DefaultPGHost     = "127.0.0.1"
	DefaultPGPort     = 5432
	DefaultPGUser     = "postgres"
	DefaultPGDatabase = "slackcord"
	DefaultPGSSLMode  = "disable"
)

// Config is the root application configuration loaded from TOML.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Export   ExportConfig   `toml:"export"`
	Slack    SlackConfig    `toml:"slack"`
	Discord  DiscordConfig  `toml:"discord"`
	Postgres PostgresConfig `toml:"postgres"`
}

// LogConfig holds logging level and format (e.g. level=info, format=text).
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ExportConfig holds the Slack export archive location.
type ExportConfig struct {
	Dir string `toml:"dir"`
}

// SlackConfig holds the Slack API token used for directory lookups.
// The token falls back to the SLACK_TOKEN environment variable.
type SlackConfig struct {
	Token string `toml:"token"`
}

// DiscordConfig holds the Discord bot token and target guild.
// The token falls back to the DISCORD_TOKEN environment variable and the
// guild to DISCORD_GUILD_ID.
type DiscordConfig struct {
	Token   string `toml:"token"`
	GuildID string `toml:"guild_id"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Database string `toml:"database"`
	SSLMode  string `toml:"sslmode"`
}

// Load reads and parses the TOML config file at path, applies default values
// for missing fields, and fills secrets from the environment when the file
// leaves them empty. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Config{
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Export: ExportConfig{
			Dir: DefaultExportDir,
		},
		Postgres: PostgresConfig{
			Host:     DefaultPGHost,
			Port:     DefaultPGPort,
			User:     DefaultPGUser,
			Database: DefaultPGDatabase,
			SSLMode:  DefaultPGSSLMode,
		},
	}

	if path == "" {
		path = DefaultConfigPath
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, err
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if strings.TrimSpace(cfg.Slack.Token) == "" {
		cfg.Slack.Token = strings.TrimSpace(os.Getenv("SLACK_TOKEN"))
	}
	if strings.TrimSpace(cfg.Discord.Token) == "" {
		cfg.Discord.Token = strings.TrimSpace(os.Getenv("DISCORD_TOKEN"))
	}
	if strings.TrimSpace(cfg.Discord.GuildID) == "" {
		cfg.Discord.GuildID = strings.TrimSpace(os.Getenv("DISCORD_GUILD_ID"))
	}
}
