package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DigitumDei/WellnessWingman-sub001/cmd/config"
	migration "github.com/DigitumDei/WellnessWingman-sub001/cmd/database/migrate"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := config.ConnectDB(cfg.Database)
		if err != nil {
			return err
		}
		if sqlDB, err := db.DB(); err == nil {
			defer sqlDB.Close()
		}
		if err := migration.Migrate(db); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Database migration complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
