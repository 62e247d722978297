package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/utils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func seedAdminCmd() *cobra.Command {
	var name, email string

	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create the first superadmin if it does not exist",
		Long: `Create a superadmin account.

The password is read from KALAM_ADMIN_PASSWORD so it never shows up in
shell history. Running the command again for an existing email is a no-op.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			password := os.Getenv("KALAM_ADMIN_PASSWORD")
			if len(password) < 8 {
				return errors.New("KALAM_ADMIN_PASSWORD must be set to at least 8 characters")
			}

			cfg, repo, err := connect()
			if err != nil {
				return err
			}

			created, err := seedAdmin(cmd.Context(), repo, cfg, name, email, password)
			if err != nil {
				return err
			}
			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "superadmin %s created\n", email)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "admin %s already exists\n", email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "Superadmin", "display name")
	cmd.Flags().StringVar(&email, "email", "", "login email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func seedAdmin(ctx context.Context, repo *repositories.Repository, cfg *config.Config, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := repo.AdminRepo.GetAdminByEmail(ctx, email); err == nil {
		return false, nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return false, err
	}

	hashed, err := utils.HashPassword(password, cfg.BcryptCost)
	if err != nil {
		return false, err
	}

	admin := &models.Admin{
		Name:     name,
		Email:    email,
		Password: hashed,
		Role:     models.AdminRoleSuperadmin,
	}
	if err := repo.AdminRepo.CreateAdmin(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}

	logrus.WithFields(logrus.Fields{"admin_id": admin.ID, "email": email}).Info("superadmin seeded")
	return true, nil
}

func migrateRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate-roles",
		Short: "Rewrite legacy admin role names to the current ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, repo, err := connect()
			if err != nil {
				return err
			}

			changed, err := repo.AdminRepo.RenameRoles(cmd.Context(), permissions.LegacyRoles)
			if err != nil {
				return fmt.Errorf("migrate roles: %w", err)
			}

			legacy := make([]string, 0, len(permissions.LegacyRoles))
			for from := range permissions.LegacyRoles {
				legacy = append(legacy, from)
			}
			sort.Strings(legacy)
			fmt.Fprintf(cmd.OutOrStdout(), "%d admin(s) migrated from [%s]\n", changed, strings.Join(legacy, ", "))
			return nil
		},
	}
}
