package repositories

import (
	"context"
	"errors"
	"time"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

type Repository struct {
	DB               *gorm.DB
	UserRepo         UserRepository
	AdminRepo        AdminRepository
	DepartmentRepo   DepartmentRepository
	CategoryRepo     CategoryRepository
	EventRepo        EventRepository
	CartRepo         CartRepository
	OrderRepo        OrderRepository
	PaymentRepo      PaymentRepository
	RegistrationRepo RegistrationRepository
	TeamRepo         TeamRepository
	AnnouncementRepo AnnouncementRepository
	PasswordRepo     PasswordResetRepository
	StatsRepo        StatsRepository
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:               db,
		UserRepo:         NewUserRepository(db),
		AdminRepo:        NewAdminRepository(db),
		DepartmentRepo:   NewDepartmentRepository(db),
		CategoryRepo:     NewCategoryRepository(db),
		EventRepo:        NewEventRepository(db),
		CartRepo:         NewCartRepository(db),
		OrderRepo:        NewOrderRepository(db),
		PaymentRepo:      NewPaymentRepository(db),
		RegistrationRepo: NewRegistrationRepository(db),
		TeamRepo:         NewTeamRepository(db),
		AnnouncementRepo: NewAnnouncementRepository(db),
		PasswordRepo:     NewPasswordResetRepository(db),
		StatsRepo:        NewStatsRepository(db),
	}
}

// Transaction runs fn against a Repository bound to a single database
// transaction. A Repository without a DB (in-memory test wiring) runs fn
// against itself.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	if r.DB == nil {
		return fn(r)
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx))
	})
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return err
	}

	return db.AutoMigrate(
		&models.User{},
		&models.Department{},
		&models.EventCategory{},
		&models.Event{},
		&models.Admin{},
		&models.Cart{},
		&models.Team{},
		&models.Order{},
		&models.Payment{},
		&models.Registration{},
		&models.Announcement{},
		&models.PasswordReset{},
	)
}

// ListParams carries pagination, sorting and free-text search for list
// endpoints. Sort names an API field; each repository maps it through its own
// whitelist.
type ListParams struct {
	Page   int
	Limit  int
	Sort   string
	Desc   bool
	Search string
}

func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// EventScope restricts event-linked queries to what an admin may see.
// All=true means no restriction; otherwise rows must belong to DepartmentID
// or to one of EventIDs, and an empty scope matches nothing.
type EventScope struct {
	All          bool
	DepartmentID *uuid.UUID
	EventIDs     []uuid.UUID
}

// Contains reports whether event falls inside the scope.
func (s EventScope) Contains(event *models.Event) bool {
	if s.All {
		return true
	}
	if s.DepartmentID != nil && event.DepartmentID != nil && *event.DepartmentID == *s.DepartmentID {
		return true
	}
	for _, id := range s.EventIDs {
		if id == event.ID {
			return true
		}
	}
	return false
}

type EventFilters struct {
	IsActive     *bool
	CategoryID   *uuid.UUID
	DepartmentID *uuid.UUID
	Scope        *EventScope
}

type OrderFilters struct {
	UserID *uuid.UUID
	Status string
}

type PaymentFilters struct {
	Status string
	UserID *uuid.UUID
}

type RegistrationFilters struct {
	Scope   EventScope
	EventID *uuid.UUID
	UserID  *uuid.UUID
	Status  string
}

type TeamFilters struct {
	Scope   EventScope
	EventID *uuid.UUID
}

type AnnouncementFilters struct {
	PublishedOnly bool
	EventID       *uuid.UUID
}

// PaymentCompletion is the outcome written by a verified gateway callback.
type PaymentCompletion struct {
	Status            models.PaymentStatus
	ProviderPaymentID string
	RawPayload        datatypes.JSON
	CompletedAt       time.Time
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, id uuid.UUID) error
	ListUsers(ctx context.Context, params ListParams) ([]models.User, int64, error)
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) error
	MarkEntryFeePaid(ctx context.Context, id uuid.UUID) error
}

type AdminRepository interface {
	CreateAdmin(ctx context.Context, admin *models.Admin) error
	GetAdminByID(ctx context.Context, id uuid.UUID) (*models.Admin, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error)
	UpdateAdmin(ctx context.Context, admin *models.Admin) error
	DeleteAdmin(ctx context.Context, id uuid.UUID) error
	ListAdmins(ctx context.Context, params ListParams) ([]models.Admin, int64, error)
	IncrementTokenVersion(ctx context.Context, id uuid.UUID) error
	RenameRoles(ctx context.Context, mapping map[string]string) (int64, error)
}

type DepartmentRepository interface {
	CreateDepartment(ctx context.Context, dept *models.Department) error
	GetDepartmentByID(ctx context.Context, id uuid.UUID) (*models.Department, error)
	UpdateDepartment(ctx context.Context, dept *models.Department) error
	DeleteDepartment(ctx context.Context, id uuid.UUID) error
	ListDepartments(ctx context.Context, params ListParams) ([]models.Department, int64, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *models.EventCategory) error
	GetCategoryByID(ctx context.Context, id uuid.UUID) (*models.EventCategory, error)
	UpdateCategory(ctx context.Context, category *models.EventCategory) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	ListCategories(ctx context.Context, params ListParams) ([]models.EventCategory, int64, error)
}

type EventRepository interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetEventBySlug(ctx context.Context, slug string) (*models.Event, error)
	UpdateEvent(ctx context.Context, event *models.Event) error
	SoftDeleteEvent(ctx context.Context, id uuid.UUID) error
	ListEvents(ctx context.Context, filters EventFilters, params ListParams) ([]models.Event, int64, error)
}

type CartRepository interface {
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	SaveCart(ctx context.Context, cart *models.Cart) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filters OrderFilters, params ListParams) ([]models.Order, int64, error)
	// TransitionOrder moves the order from one status to another only if it
	// is still in from. It reports whether a row changed.
	TransitionOrder(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, paymentID *uuid.UUID) (bool, error)
	// FindOpenOrderForEvent returns the user's CREATED order containing
	// eventID, or ErrNotFound.
	FindOpenOrderForEvent(ctx context.Context, userID, eventID uuid.UUID) (*models.Order, error)
}

type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment *models.Payment) error
	GetPaymentByID(ctx context.Context, id uuid.UUID) (*models.Payment, error)
	GetPaymentByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	GetPaymentByProviderOrderID(ctx context.Context, providerOrderID string) (*models.Payment, error)
	// CompletePayment applies a gateway outcome only while the payment is
	// CREATED and reports whether it did.
	CompletePayment(ctx context.Context, id uuid.UUID, completion PaymentCompletion) (bool, error)
	RefundPayment(ctx context.Context, id uuid.UUID) (bool, error)
	ListPayments(ctx context.Context, filters PaymentFilters, params ListParams) ([]models.Payment, int64, error)
	ListStalePayments(ctx context.Context, before time.Time, limit int) ([]models.Payment, error)
}

type RegistrationRepository interface {
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	GetRegistrationByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	GetRegistration(ctx context.Context, userID, eventID uuid.UUID) (*models.Registration, error)
	UpdateRegistration(ctx context.Context, reg *models.Registration) error
	DeleteRegistration(ctx context.Context, id uuid.UUID) error
	ListRegistrations(ctx context.Context, filters RegistrationFilters, params ListParams) ([]models.Registration, int64, error)
	CancelByPayment(ctx context.Context, paymentID uuid.UUID) (int64, error)
}

type TeamRepository interface {
	CreateTeam(ctx context.Context, team *models.Team) error
	GetTeamByID(ctx context.Context, id uuid.UUID) (*models.Team, error)
	ListTeamsByLeader(ctx context.Context, leaderID uuid.UUID) ([]models.Team, error)
	ListTeams(ctx context.Context, filters TeamFilters, params ListParams) ([]models.Team, int64, error)
}

type AnnouncementRepository interface {
	CreateAnnouncement(ctx context.Context, a *models.Announcement) error
	GetAnnouncementByID(ctx context.Context, id uuid.UUID) (*models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a *models.Announcement) error
	DeleteAnnouncement(ctx context.Context, id uuid.UUID) error
	ListAnnouncements(ctx context.Context, filters AnnouncementFilters, params ListParams) ([]models.Announcement, int64, error)
}

type PasswordResetRepository interface {
	CreatePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	GetPasswordResetByTokenHash(ctx context.Context, tokenHash string) (*models.PasswordReset, error)
	MarkPasswordResetUsed(ctx context.Context, id uuid.UUID, usedAt time.Time) (bool, error)
}

type StatsRepository interface {
	Totals(ctx context.Context, scope EventScope) (*StatsTotals, error)
	RegistrationsPerEvent(ctx context.Context, scope EventScope) ([]EventRegistrationCount, error)
	DailyRevenue(ctx context.Context, since time.Time) ([]DailyRevenue, error)
}
