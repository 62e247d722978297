package repositories

import (
	"context"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var catalogSortable = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
}

type departmentRepo struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) DepartmentRepository {
	return &departmentRepo{db: db}
}

func (r *departmentRepo) CreateDepartment(ctx context.Context, dept *models.Department) error {
	return translate(r.db.WithContext(ctx).Create(dept).Error, "create department")
}

func (r *departmentRepo) GetDepartmentByID(ctx context.Context, id uuid.UUID) (*models.Department, error) {
	var dept models.Department
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dept).Error; err != nil {
		return nil, translate(err, "get department")
	}
	return &dept, nil
}

func (r *departmentRepo) UpdateDepartment(ctx context.Context, dept *models.Department) error {
	return translate(r.db.WithContext(ctx).Save(dept).Error, "update department")
}

func (r *departmentRepo) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Department{})
	if result.Error != nil {
		return translate(result.Error, "delete department")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete department")
	}
	return nil
}

func (r *departmentRepo) ListDepartments(ctx context.Context, params ListParams) ([]models.Department, int64, error) {
	var depts []models.Department
	var total int64

	query := search(r.db.WithContext(ctx).Model(&models.Department{}), params.Search, "name", "code")
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count departments")
	}
	if err := page(query, params, catalogSortable, "name ASC").Find(&depts).Error; err != nil {
		return nil, 0, translate(err, "list departments")
	}
	return depts, total, nil
}

type categoryRepo struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

func (r *categoryRepo) CreateCategory(ctx context.Context, category *models.EventCategory) error {
	return translate(r.db.WithContext(ctx).Create(category).Error, "create category")
}

func (r *categoryRepo) GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.EventCategory, error) {
	var category models.EventCategory
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&category).Error; err != nil {
		return nil, translate(err, "get category")
	}
	return &category, nil
}

func (r *categoryRepo) UpdateCategory(ctx context.Context, category *models.EventCategory) error {
	return translate(r.db.WithContext(ctx).Save(category).Error, "update category")
}

func (r *categoryRepo) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.EventCategory{})
	if result.Error != nil {
		return translate(result.Error, "delete category")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete category")
	}
	return nil
}

func (r *categoryRepo) ListCategories(ctx context.Context, params ListParams) ([]models.EventCategory, int64, error) {
	var categories []models.EventCategory
	var total int64

	query := search(r.db.WithContext(ctx).Model(&models.EventCategory{}), params.Search, "name", "slug")
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count categories")
	}
	if err := page(query, params, catalogSortable, "name ASC").Find(&categories).Error; err != nil {
		return nil, 0, translate(err, "list categories")
	}
	return categories, total, nil
}
