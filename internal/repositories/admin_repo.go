package repositories

import (
	"context"
	"errors"
	"strings"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var adminSortable = map[string]string{
	"name":      "name",
	"email":     "email",
	"role":      "role",
	"createdAt": "created_at",
}

type adminRepo struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepo{db: db}
}

func (r *adminRepo) CreateAdmin(ctx context.Context, admin *models.Admin) error {
	if admin == nil {
		return errors.New("admin cannot be nil")
	}
	admin.Email = strings.ToLower(admin.Email)
	return translate(r.db.WithContext(ctx).Create(admin).Error, "create admin")
}

func (r *adminRepo) GetAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).
		Preload("Department").
		Preload("AssignedEvents").
		Where("id = ?", id).
		First(&admin).Error; err != nil {
		return nil, translate(err, "get admin")
	}
	return &admin, nil
}

func (r *adminRepo) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).
		Preload("AssignedEvents").
		Where("email = ?", strings.ToLower(email)).
		First(&admin).Error; err != nil {
		return nil, translate(err, "get admin by email")
	}
	return &admin, nil
}

// UpdateAdmin saves the admin row and replaces its event assignments.
func (r *adminRepo) UpdateAdmin(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("AssignedEvents", "Department").Save(admin).Error; err != nil {
			return translate(err, "update admin")
		}
		if err := tx.Model(admin).Association("AssignedEvents").Replace(admin.AssignedEvents); err != nil {
			return translate(err, "replace admin events")
		}
		return nil
	})
}

func (r *adminRepo) DeleteAdmin(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		admin := models.Admin{ID: id}
		if err := tx.Model(&admin).Association("AssignedEvents").Clear(); err != nil {
			return translate(err, "clear admin events")
		}
		result := tx.Where("id = ?", id).Delete(&models.Admin{})
		if result.Error != nil {
			return translate(result.Error, "delete admin")
		}
		if result.RowsAffected == 0 {
			return translate(gorm.ErrRecordNotFound, "delete admin")
		}
		return nil
	})
}

func (r *adminRepo) ListAdmins(ctx context.Context, params ListParams) ([]models.Admin, int64, error) {
	var admins []models.Admin
	var total int64

	query := search(r.db.WithContext(ctx).Model(&models.Admin{}), params.Search, "name", "email")
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count admins")
	}
	if err := page(query, params, adminSortable, "created_at DESC").
		Preload("Department").
		Preload("AssignedEvents").
		Find(&admins).Error; err != nil {
		return nil, 0, translate(err, "list admins")
	}
	return admins, total, nil
}

func (r *adminRepo) IncrementTokenVersion(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Model(&models.Admin{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error, "bump admin token version")
}

// RenameRoles rewrites legacy role names in place. Renamed admins have their
// token version bumped so old sessions carrying the legacy role stop working.
func (r *adminRepo) RenameRoles(ctx context.Context, mapping map[string]string) (int64, error) {
	var changed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for from, to := range mapping {
			result := tx.Model(&models.Admin{}).
				Where("role = ?", from).
				Updates(map[string]any{
					"role":          to,
					"token_version": gorm.Expr("token_version + 1"),
				})
			if result.Error != nil {
				return translate(result.Error, "rename role "+from)
			}
			changed += result.RowsAffected
		}
		return nil
	})
	return changed, err
}
