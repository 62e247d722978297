package repositories

import (
	"context"
	"errors"
	"strings"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var userSortable = map[string]string{
	"name":      "name",
	"email":     "email",
	"createdAt": "created_at",
}

type userRepo struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("user cannot be nil")
	}
	user.Email = strings.ToLower(user.Email)
	return translate(r.db.WithContext(ctx).Create(user).Error, "create user")
}

func (r *userRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translate(err, "get user")
	}
	return &user, nil
}

func (r *userRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, translate(err, "get user by email")
	}
	return &user, nil
}

func (r *userRepo) UpdateUser(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error, "update user")
}

func (r *userRepo) DeleteUser(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.User{})
	if result.Error != nil {
		return translate(result.Error, "delete user")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete user")
	}
	return nil
}

func (r *userRepo) ListUsers(ctx context.Context, params ListParams) ([]models.User, int64, error) {
	var users []models.User
	var total int64

	query := search(r.db.WithContext(ctx).Model(&models.User{}), params.Search, "name", "email", "college")
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count users")
	}
	if err := page(query, params, userSortable, "created_at DESC").Find(&users).Error; err != nil {
		return nil, 0, translate(err, "list users")
	}
	return users, total, nil
}

func (r *userRepo) IncrementTokenVersion(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		UpdateColumn("token_version", gorm.Expr("token_version + 1")).Error, "bump user token version")
}

func (r *userRepo) MarkEntryFeePaid(ctx context.Context, id uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("entry_fee_paid", true).Error, "mark entry fee paid")
}
