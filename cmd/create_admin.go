package cmd

import (
	"errors"
	"fmt"

	"github.com/newhorizons/case-service/internal/database"
	"github.com/newhorizons/case-service/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an ADMIN user. Does nothing if the email is already registered.",
	RunE:  runCreateAdmin,
}

func init() {
	createAdminCmd.Flags().String("email", "", "admin e-mail (required)")
	createAdminCmd.Flags().String("password", "", "admin password, at least 6 characters (required)")
	createAdminCmd.Flags().String("name", "Administrator", "display name")
	_ = createAdminCmd.MarkFlagRequired("email")
	_ = createAdminCmd.MarkFlagRequired("password")
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	name, _ := cmd.Flags().GetString("name")
	if email == "" || password == "" {
		return errors.New("--email and --password are required")
	}

	if err := database.NewMigrator(cfg.DatabaseURL(), log).Up(cmd.Context()); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	db, err := database.Open(cfg.DSN())
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}

	u, created, err := service.NewUserService(db).EnsureAdmin(cmd.Context(), email, password, name)
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	if !created {
		log.Info("create-admin: user already exists", zap.String("email", u.Email), zap.String("role", string(u.Role)))
		return nil
	}
	log.Info("create-admin: created", zap.String("id", u.ID), zap.String("email", u.Email))
	return nil
}
