package repositories

import (
	"context"
	"time"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var announcementSortable = map[string]string{
	"title":     "title",
	"createdAt": "created_at",
}

type announcementRepo struct {
	db *gorm.DB
}

func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepo{db: db}
}

func (r *announcementRepo) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	return translate(r.db.WithContext(ctx).Create(a).Error, "create announcement")
}

func (r *announcementRepo) GetAnnouncementByID(ctx context.Context, id uuid.UUID) (*models.Announcement, error) {
	var a models.Announcement
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, translate(err, "get announcement")
	}
	return &a, nil
}

func (r *announcementRepo) UpdateAnnouncement(ctx context.Context, a *models.Announcement) error {
	return translate(r.db.WithContext(ctx).Save(a).Error, "update announcement")
}

func (r *announcementRepo) DeleteAnnouncement(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Announcement{})
	if result.Error != nil {
		return translate(result.Error, "delete announcement")
	}
	if result.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "delete announcement")
	}
	return nil
}

func (r *announcementRepo) ListAnnouncements(ctx context.Context, filters AnnouncementFilters, params ListParams) ([]models.Announcement, int64, error) {
	var items []models.Announcement
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Announcement{})
	if filters.PublishedOnly {
		query = query.Where("is_published = ?", true)
	}
	if filters.EventID != nil {
		query = query.Where("event_id = ?", *filters.EventID)
	}
	query = search(query, params.Search, "title", "body")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count announcements")
	}
	if err := page(query, params, announcementSortable, "created_at DESC").Find(&items).Error; err != nil {
		return nil, 0, translate(err, "list announcements")
	}
	return items, total, nil
}

type passwordResetRepo struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepo{db: db}
}

func (r *passwordResetRepo) CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	return translate(r.db.WithContext(ctx).Create(reset).Error, "create password reset")
}

func (r *passwordResetRepo) GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	if err := r.db.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&reset).Error; err != nil {
		return nil, translate(err, "get password reset")
	}
	return &reset, nil
}

// MarkPasswordResetUsed consumes the token once; a second call reports false.
func (r *passwordResetRepo) MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", usedAt)
	if result.Error != nil {
		return false, translate(result.Error, "mark password reset used")
	}
	return result.RowsAffected == 1, nil
}
