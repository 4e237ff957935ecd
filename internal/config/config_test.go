package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Postgres.Host != DefaultPGHost {
		t.Errorf("host = %q, want %q", cfg.Postgres.Host, DefaultPGHost)
	}
	if cfg.Postgres.Port != DefaultPGPort {
		t.Errorf("port = %d, want %d", cfg.Postgres.Port, DefaultPGPort)
	}
	if cfg.Export.Dir != DefaultExportDir {
		t.Errorf("export dir = %q, want %q", cfg.Export.Dir, DefaultExportDir)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log defaults = %q/%q", cfg.Log.Level, cfg.Log.Format)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[log]
level = "debug"

[export]
dir = "/srv/export"

[discord]
guild_id = "9000"

[postgres]
host = "db.example.com"
port = 5433
database = "corr"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("level = %q", cfg.Log.Level)
	}
	if cfg.Export.Dir != "/srv/export" {
		t.Errorf("export dir = %q", cfg.Export.Dir)
	}
	if cfg.Discord.GuildID != "9000" {
		t.Errorf("guild = %q", cfg.Discord.GuildID)
	}
	if cfg.Postgres.Host != "db.example.com" || cfg.Postgres.Port != 5433 {
		t.Errorf("postgres = %+v", cfg.Postgres)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Postgres.SSLMode != DefaultPGSSLMode {
		t.Errorf("sslmode = %q", cfg.Postgres.SSLMode)
	}
}

func TestLoadTokensFromEnv(t *testing.T) {
	t.Setenv("SLACK_TOKEN", "xoxb-test")
	t.Setenv("DISCORD_TOKEN", "bot-test")
	t.Setenv("DISCORD_GUILD_ID", "42")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Slack.Token != "xoxb-test" {
		t.Errorf("slack token = %q", cfg.Slack.Token)
	}
	if cfg.Discord.Token != "bot-test" || cfg.Discord.GuildID != "42" {
		t.Errorf("discord = %+v", cfg.Discord)
	}
}
