package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wfunc/gombiful/logger"
	"github.com/wfunc/gombiful/persistence"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the PostgreSQL tables and notify trigger",
	RunE:  runMigrate,
}

func runMigrate(cmd *cobra.Command, args []string) error {
	db, err := persistence.Open(cfg.PostgresOptions())
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := persistence.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	logger.Log.Info("Migration complete.")
	return nil
}
