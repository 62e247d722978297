package main

import (
	"context"
	"testing"

	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories/repotest"
	"kalam-backend/internal/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedAdmin(t *testing.T) {
	ctx := context.Background()
	repo, _ := repotest.New()
	cfg := &config.Config{BcryptCost: 4}

	created, err := seedAdmin(ctx, repo, cfg, "Root", " Root@Kalam.test ", "pw12345678")
	require.NoError(t, err)
	assert.True(t, created)

	admin, err := repo.AdminRepo.GetAdminByEmail(ctx, "root@kalam.test")
	require.NoError(t, err)
	assert.Equal(t, models.AdminRoleSuperadmin, admin.Role)
	assert.NoError(t, utils.CheckPassword("pw12345678", admin.Password))

	created, err = seedAdmin(ctx, repo, cfg, "Root", "root@kalam.test", "other-password")
	require.NoError(t, err)
	assert.False(t, created)
}

func TestLegacyRoleMigration(t *testing.T) {
	ctx := context.Background()
	repo, _ := repotest.New()

	legacy := &models.Admin{Name: "Old", Email: "old@kalam.test", Password: "x", Role: "dept_admin"}
	current := &models.Admin{Name: "New", Email: "new@kalam.test", Password: "x", Role: models.AdminRoleSuperadmin}
	require.NoError(t, repo.AdminRepo.CreateAdmin(ctx, legacy))
	require.NoError(t, repo.AdminRepo.CreateAdmin(ctx, current))

	changed, err := repo.AdminRepo.RenameRoles(ctx, permissions.LegacyRoles)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	got, err := repo.AdminRepo.GetAdminByID(ctx, legacy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AdminRoleDepartmentManager, got.Role)
	assert.Equal(t, 1, got.TokenVersion)
}
