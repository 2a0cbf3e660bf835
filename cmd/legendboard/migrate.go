package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tendant/legendboard/pkg/account"
	"github.com/tendant/legendboard/pkg/config"
)

var migrateCommands = []string{"up", "down", "status"}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Run database migrations",
		Long:      `Apply, roll back or list the accounts schema migrations. Defaults to "up".`,
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: migrateCommands,
		RunE:      runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, args []string) error {
	command := "up"
	if len(args) == 1 {
		command = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return migrate(cmd, cfg.Database, command)
}

func migrate(cmd *cobra.Command, dbCfg config.DatabaseConfig, command string) error {
	db, err := account.OpenMigrationDB(dbCfg.ToDatabaseURL())
	if err != nil {
		return err
	}
	defer db.Close()

	cmd.Printf("Running migrate %s on %s:%d/%s\n", command, dbCfg.Host, dbCfg.Port, dbCfg.Database)
	if err := account.Migrate(cmd.Context(), db, command); err != nil {
		return fmt.Errorf("migrate %s: %w", command, err)
	}
	return nil
}
