package repositories

import (
	"context"
	"errors"
	"time"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var paymentSortable = map[string]string{
	"amount":      "amount",
	"status":      "status",
	"initiatedAt": "initiated_at",
	"createdAt":   "created_at",
}

type paymentRepo struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepo{db: db}
}

func (r *paymentRepo) CreatePayment(ctx context.Context, payment *models.Payment) error {
	if payment == nil {
		return errors.New("payment cannot be nil")
	}
	return translate(r.db.WithContext(ctx).Create(payment).Error, "create payment")
}

func (r *paymentRepo) GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "get payment", "id = ?", id)
}

func (r *paymentRepo) GetPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	return r.first(ctx, "get payment by order", "order_id = ?", orderID)
}

func (r *paymentRepo) GetPaymentByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Payment, error) {
	return r.first(ctx, "get payment by txnid", "provider_order_id = ?", providerOrderID)
}

func (r *paymentRepo) first(ctx context.Context, what, cond string, arg any) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&payment).Error; err != nil {
		return nil, translate(err, what)
	}
	return &payment, nil
}

func (r *paymentRepo) CompletePayment(ctx context.Context, id uuid.UUID, completion PaymentCompletion) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentCreated).
		Updates(map[string]any{
			"status":              completion.Status,
			"provider_payment_id": completion.ProviderPaymentID,
			"raw_payload":         completion.RawPayload,
			"completed_at":        completion.CompletedAt,
		})
	if result.Error != nil {
		return false, translate(result.Error, "complete payment")
	}
	return result.RowsAffected == 1, nil
}

func (r *paymentRepo) RefundPayment(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, models.PaymentSuccess).
		Update("status", models.PaymentRefunded)
	if result.Error != nil {
		return false, translate(result.Error, "refund payment")
	}
	return result.RowsAffected == 1, nil
}

func (r *paymentRepo) ListPayments(ctx context.Context, filters PaymentFilters, params ListParams) ([]models.Payment, int64, error) {
	var payments []models.Payment
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Payment{})
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}
	query = search(query, params.Search, "provider_order_id", "provider_payment_id")

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err, "count payments")
	}
	if err := page(query, params, paymentSortable, "created_at DESC").Find(&payments).Error; err != nil {
		return nil, 0, translate(err, "list payments")
	}
	return payments, total, nil
}

// ListStalePayments returns CREATED payments initiated before the cutoff,
// oldest first.
func (r *paymentRepo) ListStalePayments(ctx context.Context, before time.Time, limit int) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).
		Where("status = ? AND initiated_at < ?", models.PaymentCreated, before).
		Order("initiated_at ASC").
		Limit(limit).
		Find(&payments).Error; err != nil {
		return nil, translate(err, "list stale payments")
	}
	return payments, nil
}
