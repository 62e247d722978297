// Package repotest provides in-memory implementations of the repository
// interfaces for service and handler tests.
package repotest

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
)

// Store holds every table in memory. Tests may seed or inspect it directly
// between calls; repository methods lock mu.
type Store struct {
	mu sync.Mutex

	Users         map[uuid.UUID]models.User
	Admins        map[uuid.UUID]models.Admin
	Departments   map[uuid.UUID]models.Department
	Categories    map[uuid.UUID]models.EventCategory
	Events        map[uuid.UUID]models.Event
	Carts         map[uuid.UUID]models.Cart // by user id
	Orders        map[uuid.UUID]models.Order
	Payments      map[uuid.UUID]models.Payment
	Registrations map[uuid.UUID]models.Registration
	Teams         map[uuid.UUID]models.Team
	Announcements map[uuid.UUID]models.Announcement
	Resets        map[uuid.UUID]models.PasswordReset

	// Now stamps CreatedAt/UpdatedAt. Defaults to time.Now.
	Now func() time.Time
}

func NewStore() *Store {
	return &Store{
		Users:         map[uuid.UUID]models.User{},
		Admins:        map[uuid.UUID]models.Admin{},
		Departments:   map[uuid.UUID]models.Department{},
		Categories:    map[uuid.UUID]models.EventCategory{},
		Events:        map[uuid.UUID]models.Event{},
		Carts:         map[uuid.UUID]models.Cart{},
		Orders:        map[uuid.UUID]models.Order{},
		Payments:      map[uuid.UUID]models.Payment{},
		Registrations: map[uuid.UUID]models.Registration{},
		Teams:         map[uuid.UUID]models.Team{},
		Announcements: map[uuid.UUID]models.Announcement{},
		Resets:        map[uuid.UUID]models.PasswordReset{},
		Now:           time.Now,
	}
}

// New returns a Repository backed by a fresh Store.
func New() (*repositories.Repository, *Store) {
	s := NewStore()
	return s.Repository(), s
}

func (s *Store) Repository() *repositories.Repository {
	return &repositories.Repository{
		UserRepo:         &userRepo{s},
		AdminRepo:        &adminRepo{s},
		DepartmentRepo:   &departmentRepo{s},
		CategoryRepo:     &categoryRepo{s},
		EventRepo:        &eventRepo{s},
		CartRepo:         &cartRepo{s},
		OrderRepo:        &orderRepo{s},
		PaymentRepo:      &paymentRepo{s},
		RegistrationRepo: &registrationRepo{s},
		TeamRepo:         &teamRepo{s},
		AnnouncementRepo: &announcementRepo{s},
		PasswordRepo:     &passwordResetRepo{s},
		StatsRepo:        &statsRepo{s},
	}
}

func (s *Store) stamp(id *uuid.UUID, created, updated *time.Time) {
	now := s.Now()
	if *id == uuid.Nil {
		*id = uuid.New()
	}
	if created != nil && created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func notFound(what string) error {
	return fmt.Errorf("%s: %w", what, repositories.ErrNotFound)
}

func duplicate(what string) error {
	return fmt.Errorf("%s: %w", what, repositories.ErrDuplicate)
}

func contains(term string, fields ...string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}

// paginate orders items newest first by created and slices out one page.
func paginate[T any](items []T, params repositories.ListParams, created func(T) time.Time) ([]T, int64) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
	total := int64(len(items))

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	start := params.Offset()
	if start >= len(items) {
		return []T{}, total
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], total
}
