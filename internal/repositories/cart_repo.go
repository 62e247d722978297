package repositories

import (
	"context"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type cartRepo struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepo{db: db}
}

func (r *cartRepo) GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		return nil, translate(err, "get cart")
	}
	return &cart, nil
}

// SaveCart upserts the single cart row of cart.UserID.
func (r *cartRepo) SaveCart(ctx context.Context, cart *models.Cart) error {
	cart.Recalculate()
	if cart.Items == nil {
		cart.Items = []models.CartItem{}
	}
	return translate(r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"items", "total", "updated_at"}),
	}).Create(cart).Error, "save cart")
}

func (r *cartRepo) ClearCart(ctx context.Context, userID uuid.UUID) error {
	return translate(r.db.WithContext(ctx).Model(&models.Cart{}).
		Where("user_id = ?", userID).
		Updates(map[string]any{
			"items": datatypes.JSONSlice[models.CartItem]{},
			"total": 0,
		}).Error, "clear cart")
}
