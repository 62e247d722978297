// Command kalamctl runs operational tasks against the Kalam database:
// migrations, seeding the first superadmin, legacy role migration and
// payment reconciliation.
package main

import (
	"fmt"
	"os"

	"kalam-backend/internal/config"
	"kalam-backend/internal/repositories"
	"kalam-backend/pkg/database"
	"kalam-backend/pkg/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:           "kalamctl",
		Short:         "Operational tasks for the Kalam backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(seedAdminCmd())
	rootCmd.AddCommand(migrateRolesCmd())
	rootCmd.AddCommand(reconcileCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// connect loads configuration and opens the database. Every subcommand
// starts here.
func connect() (*config.Config, *repositories.Repository, error) {
	_ = godotenv.Load()

	cfg, err := config.NewConfigFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("config: %w", err)
	}
	logger.Init(cfg.LogLevel, cfg.Env)

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, repositories.NewRepository(db), nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := connect()
			if err != nil {
				return err
			}
			if err := repositories.AutoMigrate(repo.DB); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}
