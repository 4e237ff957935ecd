package cli

import (
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	migrations "github.com/slackcord/slackcord/db"
	"github.com/slackcord/slackcord/internal/db"
	"github.com/slackcord/slackcord/internal/logger"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the correlation store schema",
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate <up|down|version|force N>",
	Short: "Apply or roll back schema migrations",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runDBMigrate,
}

func init() {
	rootCmd.AddCommand(dbCmd)
	dbCmd.AddCommand(dbMigrateCmd)
}

func runDBMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	sub, err := fs.Sub(migrations.MigrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	return db.RunMigrate(logger.L, cfg.Postgres, sub, args[0], args[1:])
}
