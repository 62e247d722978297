package repositories

import (
	"context"
	"time"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// StatsTotals holds dashboard counters. Order, payment and revenue figures
// are only filled for an unrestricted scope.
type StatsTotals struct {
	Users         int64         `json:"users"`
	Events        int64         `json:"events"`
	ActiveEvents  int64         `json:"activeEvents"`
	Registrations []StatusCount `json:"registrations"`
	Orders        []StatusCount `json:"orders,omitempty"`
	Payments      []StatusCount `json:"payments,omitempty"`
	Revenue       int64         `json:"revenue"`
}

type EventRegistrationCount struct {
	EventID   uuid.UUID `json:"eventId"`
	EventName string    `json:"eventName"`
	Confirmed int64     `json:"confirmed"`
	Pending   int64     `json:"pending"`
	Cancelled int64     `json:"cancelled"`
}

type DailyRevenue struct {
	Day      time.Time `json:"day"`
	Amount   int64     `json:"amount"`
	Payments int64     `json:"payments"`
}

type statsRepo struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) StatsRepository {
	return &statsRepo{db: db}
}

func (r *statsRepo) Totals(ctx context.Context, scope EventScope) (*StatsTotals, error) {
	db := r.db.WithContext(ctx)
	totals := &StatsTotals{}

	if err := scoped(db.Model(&models.Event{}), scope, "id").Count(&totals.Events).Error; err != nil {
		return nil, translate(err, "count events")
	}
	if err := scoped(db.Model(&models.Event{}), scope, "id").
		Where("is_active = ?", true).
		Count(&totals.ActiveEvents).Error; err != nil {
		return nil, translate(err, "count active events")
	}
	if err := scoped(db.Model(&models.Registration{}), scope, "event_id").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&totals.Registrations).Error; err != nil {
		return nil, translate(err, "count registrations")
	}

	if !scope.All {
		return totals, nil
	}

	if err := db.Model(&models.User{}).Count(&totals.Users).Error; err != nil {
		return nil, translate(err, "count users")
	}
	if err := db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&totals.Orders).Error; err != nil {
		return nil, translate(err, "count orders")
	}
	if err := db.Model(&models.Payment{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&totals.Payments).Error; err != nil {
		return nil, translate(err, "count payments")
	}
	if err := db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentSuccess).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&totals.Revenue).Error; err != nil {
		return nil, translate(err, "sum revenue")
	}

	return totals, nil
}

func (r *statsRepo) RegistrationsPerEvent(ctx context.Context, scope EventScope) ([]EventRegistrationCount, error) {
	var rows []EventRegistrationCount
	query := r.db.WithContext(ctx).Table("events").
		Select(`events.id AS event_id, events.name AS event_name,
			COUNT(*) FILTER (WHERE registrations.status = ?) AS confirmed,
			COUNT(*) FILTER (WHERE registrations.status = ?) AS pending,
			COUNT(*) FILTER (WHERE registrations.status = ?) AS cancelled`,
			models.RegistrationConfirmed, models.RegistrationPending, models.RegistrationCancelled).
		Joins("LEFT JOIN registrations ON registrations.event_id = events.id")

	if err := scoped(query, scope, "events.id").
		Group("events.id, events.name").
		Order("events.name ASC").
		Scan(&rows).Error; err != nil {
		return nil, translate(err, "registrations per event")
	}
	return rows, nil
}

func (r *statsRepo) DailyRevenue(ctx context.Context, since time.Time) ([]DailyRevenue, error) {
	var rows []DailyRevenue
	if err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Select("date_trunc('day', completed_at) AS day, SUM(amount) AS amount, COUNT(*) AS payments").
		Where("status = ? AND completed_at >= ?", models.PaymentSuccess, since).
		Group("day").
		Order("day ASC").
		Scan(&rows).Error; err != nil {
		return nil, translate(err, "daily revenue")
	}
	return rows, nil
}
