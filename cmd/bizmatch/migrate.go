package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bizmatch/internal/db"
	"bizmatch/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		log, cfg, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := cfg.ValidateDatabase(); err != nil {
			return fmt.Errorf("config: %w", err)
		}

		pool, err := db.NewPostgresPool(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()

		if err := store.NewPostgres(pool).Migrate(cmd.Context()); err != nil {
			return err
		}
		log.Info("schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
