package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/school-backend/internal/app"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		defer log.Sync()
		app.LoadDotenv(log)
		svc, err := app.OpenDB(log)
		if err != nil {
			return err
		}
		log.Info("Schema up to date", "driver", svc.Driver())
		return svc.Close()
	},
}
