package cmd

import (
	"github.com/newhorizons/case-service/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE:  runMigrate("up"),
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back the latest migration",
	RunE:  runMigrate("down"),
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print applied and pending migrations",
	RunE:  runMigrate("status"),
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateStatusCmd)
}

func runMigrate(direction string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		m := database.NewMigrator(cfg.DatabaseURL(), log)
		switch direction {
		case "up":
			err = m.Up(cmd.Context())
		case "down":
			err = m.Down(cmd.Context())
		default:
			err = m.Status(cmd.Context())
		}
		if err != nil {
			return err
		}
		log.Info("migrate: ok", zap.String("direction", direction))
		return nil
	}
}
