package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/gwarden/gwarden/internal/config"
	"github.com/gwarden/gwarden/internal/database"
	"github.com/gwarden/gwarden/pkg/log"
)

func migrateCmd() *cobra.Command {
	var downAll bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, errConfig := config.Read(true)
			if errConfig != nil {
				return errConfig
			}

			closeLogger := log.MustCreateLogger(cmd.Context(), conf.Log.File, conf.Log.Level, false, BuildVersion)
			defer closeLogger()

			action := database.MigrationAction(database.MigrateUp)
			if downAll {
				action = database.MigrateDn
			}

			db := database.New(conf.Database.DSN, false, conf.Database.LogQueries)
			if errMigrate := db.Migrate(action); errMigrate != nil {
				return errMigrate
			}

			slog.Info("Migration completed successfully")

			return nil
		},
	}

	cmd.Flags().BoolVarP(&downAll, "down", "d", false, "Fully reverts all migrations")

	return cmd
}
