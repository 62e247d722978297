package repositories

import (
	"context"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var registrationSortable = map[string]string{
	"status":    "registrations.status",
	"createdAt": "registrations.created_at",
}

type registrationRepo struct {
	db *gorm.DB
}

func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepo{db: db}
}

func (r *registrationRepo) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	return translate(r.db.WithContext(ctx).Omit("Event", "User").Create(reg).Error, "create registration")
}

func (r *registrationRepo) GetRegistrationByID(ctx context.Context, id uuid.UUID) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).
		Preload("Event").
		Preload("User").
		Where("id = ?", id).
		First(&reg).Error; err != nil {
		return nil, translate(err, "get registration")
	}
	return &reg, nil
}

func (r *registrationRepo) GetRegistration(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error) {
	var reg models.Registration
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND event_id = ?", userID, eventID).
		First(&reg).Error; err != nil {
		return nil, translate(err, "get registration by user and event")
	}
	return &reg, nil
}

func (r *registrationRepo) UpdateRegistration(ctx context.Context, reg *models.Registration) error {
	return translate(r.db.WithContext(ctx).Omit("Event", "User").Save(reg).Error, "update registration")
}

func (r *registrationRepo) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Registration{})
	if result.Error != nil {
		return translate(result.Error, "delete registration")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete registration")
	}
	return nil
}

func (r *registrationRepo) ListRegistrations(ctx context.Context, filters RegistrationFilters, params ListParams) ([]models.Registration, int64, error) {
	var regs []models.Registration
	var total int64

	query := scoped(r.db.WithContext(ctx).Model(&models.Registration{}), filters.Scope, "registrations.event_id")
	if filters.EventID != nil {
		query = query.Where("registrations.event_id = ?", *filters.EventID)
	}
	if filters.UserID != nil {
		query = query.Where("registrations.user_id = ?", *filters.UserID)
	}
	if filters.Status != "" {
		query = query.Where("registrations.status = ?", filters.Status)
	}
	if params.Search != "" {
		query = query.Joins("JOIN users ON users.id = registrations.user_id")
		query = search(query, params.Search, "users.name", "users.email", "registrations.team_name")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count registrations")
	}
	if err := page(query, params, registrationSortable, "registrations.created_at DESC").
		Preload("Event").
		Preload("User").
		Find(&regs).Error; err != nil {
		return nil, 0, translate(err, "list registrations")
	}
	return regs, total, nil
}

func (r *registrationRepo) CancelByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Registration{}).
		Where("payment_id = ? AND status <> ?", paymentID, models.RegistrationCancelled).
		Update("status", models.RegistrationCancelled)
	if result.Error != nil {
		return 0, translate(result.Error, "cancel registrations")
	}
	return result.RowsAffected, nil
}
