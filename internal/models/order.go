package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type OrderStatus string

const (
	OrderCreated   OrderStatus = "CREATED"
	OrderPaid      OrderStatus = "PAID"
	OrderFailed    OrderStatus = "FAILED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// CanTransition reports whether an order may move from s to next. Only
// CREATED orders move; every other status is terminal.
func (s OrderStatus) CanTransition(next OrderStatus) bool {
	if s != OrderCreated {
		return false
	}
	switch next {
	case OrderPaid, OrderFailed, OrderCancelled:
		return true
	}
	return false
}

func IsValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderCreated, OrderPaid, OrderFailed, OrderCancelled:
		return true
	}
	return false
}

type OrderItem struct {
	EventID   uuid.UUID  `json:"eventId"`
	EventName string     `json:"eventName"`
	Price     int64      `json:"price"`
	TeamID    *uuid.UUID `json:"teamId,omitempty"`
}

type Order struct {
	ID          uuid.UUID                      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID                      `gorm:"type:uuid;index;not null" json:"userId"`
	Items       datatypes.JSONSlice[OrderItem] `gorm:"type:jsonb;not null" json:"items"`
	EntryFee    int64                          `gorm:"not null;default:0" json:"entryFee"`
	TotalAmount int64                          `gorm:"not null" json:"totalAmount"`
	Status      OrderStatus                    `gorm:"type:varchar(16);not null;default:'CREATED';index" json:"status"`
	PaymentID   *uuid.UUID                     `gorm:"type:uuid" json:"paymentId,omitempty"`
	CreatedAt   time.Time                      `json:"createdAt"`
	UpdatedAt   time.Time                      `json:"updatedAt"`
}

type PaymentStatus string

const (
	PaymentCreated  PaymentStatus = "CREATED"
	PaymentSuccess  PaymentStatus = "SUCCESS"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

func (s PaymentStatus) IsFinal() bool {
	return s != PaymentCreated
}

type Payment struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OrderID           uuid.UUID      `gorm:"type:uuid;uniqueIndex;not null" json:"orderId"`
	UserID            uuid.UUID      `gorm:"type:uuid;index;not null" json:"userId"`
	Gateway           string         `gorm:"type:varchar(32);not null" json:"gateway"`
	ProviderOrderID   string         `gorm:"uniqueIndex;not null" json:"providerOrderId"`
	ProviderPaymentID string         `json:"providerPaymentId,omitempty"`
	Amount            int64          `gorm:"not null" json:"amount"`
	Status            PaymentStatus  `gorm:"type:varchar(16);not null;default:'CREATED';index" json:"status"`
	RawPayload        datatypes.JSON `gorm:"type:jsonb" json:"rawPayload,omitempty"`
	InitiatedAt       time.Time      `gorm:"not null" json:"initiatedAt"`
	CompletedAt       *time.Time     `json:"completedAt,omitempty"`
	CreatedAt         time.Time      `json:"createdAt"`
	UpdatedAt         time.Time      `json:"updatedAt"`
}

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

func IsValidRegistrationStatus(s string) bool {
	switch RegistrationStatus(s) {
	case RegistrationPending, RegistrationConfirmed, RegistrationCancelled:
		return true
	}
	return false
}

type Registration struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_registrations_user_event" json:"userId"`
	EventID   uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex:idx_registrations_user_event;index" json:"eventId"`
	Status    RegistrationStatus `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	TeamID    *uuid.UUID         `gorm:"type:uuid" json:"teamId,omitempty"`
	TeamName  string             `json:"teamName,omitempty"`
	OrderID   *uuid.UUID         `gorm:"type:uuid;index" json:"orderId,omitempty"`
	PaymentID *uuid.UUID         `gorm:"type:uuid;index" json:"paymentId,omitempty"`
	QRPath    string             `json:"qrPath,omitempty"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`

	Event *Event `gorm:"foreignKey:EventID" json:"event,omitempty"`
	User  *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
