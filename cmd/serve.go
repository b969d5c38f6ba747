package main

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/school-backend/internal/app"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, job worker and sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := app.NewLogger()
		if err != nil {
			return err
		}
		a, err := app.New(cmd.Context(), log)
		if err != nil {
			log.Error("Startup failed", "error", err)
			log.Sync()
			return err
		}
		defer a.Close()
		if err := a.Run(cmd.Context()); err != nil {
			log.Error("Server stopped", "error", err)
			return err
		}
		log.Info("Shut down cleanly")
		return nil
	},
}
