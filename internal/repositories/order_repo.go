package repositories

import (
	"context"
	"encoding/json"
	"errors"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var orderSortable = map[string]string{
	"totalAmount": "total_amount",
	"status":      "status",
	"createdAt":   "created_at",
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepo{db: db}
}

func (r *orderRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order cannot be nil")
	}
	return translate(r.db.WithContext(ctx).Create(order).Error, "create order")
}

func (r *orderRepo) GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error; err != nil {
		return nil, translate(err, "get order")
	}
	return &order, nil
}

func (r *orderRepo) FindOpenOrderForEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.Order, error) {
	contains, err := json.Marshal([]map[string]string{{"eventId": eventID.String()}})
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND items @> ?::jsonb", userID, models.OrderCreated, string(contains)).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		return nil, translate(err, "find open order")
	}
	return &order, nil
}

func (r *orderRepo) ListOrders(ctx context.Context, filters OrderFilters, params ListParams) ([]models.Order, int64, error) {
	var orders []models.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Order{})
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count orders")
	}
	if err := page(query, params, orderSortable, "created_at DESC").Find(&orders).Error; err != nil {
		return nil, 0, translate(err, "list orders")
	}
	return orders, total, nil
}

func (r *orderRepo) TransitionOrder(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, paymentID *uuid.UUID) (bool, error) {
	updates := map[string]any{"status": to}
	if paymentID != nil {
		updates["payment_id"] = *paymentID
	}

	result := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if result.Error != nil {
		return false, translate(result.Error, "transition order")
	}
	return result.RowsAffected == 1, nil
}
