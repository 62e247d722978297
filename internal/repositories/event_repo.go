package repositories

import (
	"context"
	"errors"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var eventSortable = map[string]string{
	"name":      "name",
	"fee":       "fee",
	"startsAt":  "starts_at",
	"createdAt": "created_at",
}

type eventRepo struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepo{db: db}
}

// CreateEvent creates a new event
func (r *eventRepo) CreateEvent(ctx context.Context, event *models.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	return translate(r.db.WithContext(ctx).Omit("Category", "Department").Create(event).Error, "create event")
}

// GetEventByID retrieves an event with its category and department
func (r *eventRepo) GetEventByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Department").
		Where("id = ?", id).
		First(&event).Error; err != nil {
		return nil, translate(err, "get event")
	}
	return &event, nil
}

// GetEventBySlug retrieves an event by its slug
func (r *eventRepo) GetEventBySlug(ctx context.Context, slug string) (*models.Event, error) {
	if slug == "" {
		return nil, errors.New("event slug cannot be empty")
	}

	var event models.Event
	if err := r.db.WithContext(ctx).
		Preload("Category").
		Preload("Department").
		Where("slug = ?", slug).
		First(&event).Error; err != nil {
		return nil, translate(err, "get event by slug")
	}
	return &event, nil
}

// UpdateEvent updates an existing event
func (r *eventRepo) UpdateEvent(ctx context.Context, event *models.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}
	return translate(r.db.WithContext(ctx).Omit("Category", "Department").Save(event).Error, "update event")
}

// SoftDeleteEvent soft deletes an event by setting is_active to false
func (r *eventRepo) SoftDeleteEvent(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Model(&models.Event{}).
		Where("id = ?", id).
		Update("is_active", false)

	if result.Error != nil {
		return translate(result.Error, "soft delete event")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "soft delete event")
	}
	return nil
}

// ListEvents retrieves a paginated list of events with optional filters
func (r *eventRepo) ListEvents(ctx context.Context, filters EventFilters, params ListParams) ([]models.Event, int64, error) {
	var events []models.Event
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Event{})

	if filters.IsActive != nil {
		query = query.Where("is_active = ?", *filters.IsActive)
	}
	if filters.CategoryID != nil {
		query = query.Where("category_id = ?", *filters.CategoryID)
	}
	if filters.DepartmentID != nil {
		query = query.Where("department_id = ?", *filters.DepartmentID)
	}
	if filters.Scope != nil {
		query = scoped(query, *filters.Scope, "id")
	}
	query = search(query, params.Search, "name", "description")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count events")
	}

	if err := page(query, params, eventSortable, "starts_at ASC").
		Preload("Category").
		Preload("Department").
		Find(&events).Error; err != nil {
		return nil, 0, translate(err, "list events")
	}

	return events, total, nil
}
