package cmd

import (
	"github.com/spf13/cobra"

	"meetscribe/internal/database"
)

var migrationsPath string

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup("migrate")
		if err != nil {
			return err
		}

		db, err := database.Open(cfg.Database, cfg.Server.Env)
		if err != nil {
			return err
		}

		sqlDB, err := db.DB()
		if err != nil {
			return err
		}

		if err := database.RunMigrations(sqlDB, migrationsPath); err != nil {
			return err
		}

		log.Info().Str("path", migrationsPath).Msg("migrations applied")
		return nil
	},
}

func init() {
	migrateCmd.Flags().StringVar(&migrationsPath, "path", "migrations", "path to migration files")
	rootCmd.AddCommand(migrateCmd)
}
