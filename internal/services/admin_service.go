package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"kalam-backend/internal/audit"
	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AdminService backs the admin API. Every method takes the caller's
// resolved permission context and checks it before touching the store.
type AdminService struct {
	repo     *repositories.Repository
	cfg      *config.Config
	events   *EventService
	orders   *OrderService
	payments *PaymentService
	audit    audit.Recorder
	now      func() time.Time
}

func NewAdminService(
	repo *repositories.Repository,
	cfg *config.Config,
	events *EventService,
	orders *OrderService,
	payments *PaymentService,
	recorder audit.Recorder,
) *AdminService {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &AdminService{
		repo:     repo,
		cfg:      cfg,
		events:   events,
		orders:   orders,
		payments: payments,
		audit:    recorder,
		now:      time.Now,
	}
}

func forbidden() error {
	return newError(CodeForbidden, "You do not have permission to perform this action")
}

func require(pc *permissions.Context, resource permissions.Resource, action permissions.Action) error {
	if pc == nil || pc.Require(resource, action) != nil {
		return forbidden()
	}
	return nil
}

func requireEvent(pc *permissions.Context, resource permissions.Resource, action permissions.Action, event *models.Event) error {
	if pc == nil || pc.RequireEvent(resource, action, event) != nil {
		return forbidden()
	}
	return nil
}

// Users

type UserInput struct {
	Name     string
	Email    string
	Phone    string
	College  string
	Password string
	Role     string
}

type UserPatch struct {
	Name         *string
	Phone        *string
	College      *string
	Role         *string
	EntryFeePaid *bool
	Password     *string
}

func (s *AdminService) ListUsers(ctx context.Context, pc *permissions.Context, params repositories.ListParams) ([]models.User, int64, error) {
	if err := require(pc, permissions.Users, permissions.Read); err != nil {
		return nil, 0, err
	}
	users, total, err := s.repo.UserRepo.ListUsers(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return users, total, nil
}

func (s *AdminService) GetUser(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.User, error) {
	if err := require(pc, permissions.Users, permissions.Read); err != nil {
		return nil, err
	}
	user, err := s.repo.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "User")
	}
	return user, nil
}

func (s *AdminService) CreateUser(ctx context.Context, pc *permissions.Context, in UserInput) (*models.User, error) {
	if err := require(pc, permissions.Users, permissions.Create); err != nil {
		return nil, err
	}

	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, validationError("role", "role must be one of: user admin")
	}

	hashed, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, internalError(err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    normalizeEmail(in.Email),
		Phone:    optionalString(in.Phone),
		College:  strings.TrimSpace(in.College),
		Password: hashed,
		Role:     role,
	}
	if err := s.repo.UserRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeConflict, "A user with this email or phone already exists")
		}
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "user_id": user.ID}).Info("user created by admin")
	return user, nil
}

func (s *AdminService) UpdateUser(ctx context.Context, pc *permissions.Context, id uuid.UUID, patch UserPatch) (*models.User, error) {
	if err := require(pc, permissions.Users, permissions.Update); err != nil {
		return nil, err
	}
	user, err := s.repo.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "User")
	}

	if patch.Name != nil {
		user.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Phone != nil {
		user.Phone = optionalString(*patch.Phone)
	}
	if patch.College != nil {
		user.College = strings.TrimSpace(*patch.College)
	}
	if patch.Role != nil {
		if *patch.Role != models.RoleUser && *patch.Role != models.RoleAdmin {
			return nil, validationError("role", "role must be one of: user admin")
		}
		user.Role = *patch.Role
	}
	if patch.EntryFeePaid != nil {
		user.EntryFeePaid = *patch.EntryFeePaid
	}
	if patch.Password != nil {
		if user.Password, err = utils.HashPassword(*patch.Password, s.cfg.BcryptCost); err != nil {
			return nil, internalError(err)
		}
		user.TokenVersion++
	}

	if err := s.repo.UserRepo.UpdateUser(ctx, user); err != nil {
		return nil, fromRepo(err, "User")
	}
	return user, nil
}

func (s *AdminService) DeleteUser(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	if err := require(pc, permissions.Users, permissions.Delete); err != nil {
		return err
	}
	if err := s.repo.UserRepo.DeleteUser(ctx, id); err != nil {
		return fromRepo(err, "User")
	}
	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "user_id": id}).Info("user deleted")
	return nil
}

// Admins

type AdminInput struct {
	Name         string
	Email        string
	Password     string
	Role         string
	DepartmentID *uuid.UUID
	EventIDs     []uuid.UUID
}

type AdminPatch struct {
	Name         *string
	Password     *string
	Role         *string
	DepartmentID *uuid.UUID
	EventIDs     *[]uuid.UUID
}

func (s *AdminService) ListAdmins(ctx context.Context, pc *permissions.Context, params repositories.ListParams) ([]models.Admin, int64, error) {
	if err := require(pc, permissions.Admins, permissions.Read); err != nil {
		return nil, 0, err
	}
	admins, total, err := s.repo.AdminRepo.ListAdmins(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return admins, total, nil
}

func (s *AdminService) GetAdmin(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Admin, error) {
	if err := require(pc, permissions.Admins, permissions.Read); err != nil {
		return nil, err
	}
	admin, err := s.repo.AdminRepo.GetAdminByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Admin")
	}
	return admin, nil
}

func (s *AdminService) CreateAdmin(ctx context.Context, pc *permissions.Context, in AdminInput) (*models.Admin, error) {
	if err := require(pc, permissions.Admins, permissions.Create); err != nil {
		return nil, err
	}

	hashed, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, internalError(err)
	}

	admin := &models.Admin{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		Password:     hashed,
		Role:         in.Role,
		DepartmentID: in.DepartmentID,
	}
	if err := s.applyAdminScope(ctx, admin, in.EventIDs); err != nil {
		return nil, err
	}

	if err := s.repo.AdminRepo.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeConflict, "An admin with this email, or this role for the department, already exists")
		}
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "created_admin_id": admin.ID, "role": admin.Role}).Info("admin created")
	return admin, nil
}

func (s *AdminService) UpdateAdmin(ctx context.Context, pc *permissions.Context, id uuid.UUID, patch AdminPatch) (*models.Admin, error) {
	if err := require(pc, permissions.Admins, permissions.Update); err != nil {
		return nil, err
	}
	admin, err := s.repo.AdminRepo.GetAdminByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Admin")
	}

	if patch.Name != nil {
		admin.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Role != nil {
		admin.Role = *patch.Role
	}
	if patch.DepartmentID != nil {
		admin.DepartmentID = patch.DepartmentID
	}
	eventIDs := admin.AssignedEventIDs()
	if patch.EventIDs != nil {
		eventIDs = *patch.EventIDs
	}
	if patch.Password != nil {
		if admin.Password, err = utils.HashPassword(*patch.Password, s.cfg.BcryptCost); err != nil {
			return nil, internalError(err)
		}
		admin.TokenVersion++
	}

	admin.Department = nil
	if err := s.applyAdminScope(ctx, admin, eventIDs); err != nil {
		return nil, err
	}

	if err := s.repo.AdminRepo.UpdateAdmin(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeConflict, "An admin with this role already exists for the department")
		}
		return nil, fromRepo(err, "Admin")
	}
	return admin, nil
}

// applyAdminScope enforces the role invariants: superadmins carry no
// department or events, every other role needs an existing department.
func (s *AdminService) applyAdminScope(ctx context.Context, admin *models.Admin, eventIDs []uuid.UUID) error {
	if !models.IsValidAdminRole(admin.Role) {
		return validationError("role", "role must be one of: superadmin event_manager department_manager")
	}

	if admin.Role == models.AdminRoleSuperadmin {
		admin.DepartmentID = nil
		admin.AssignedEvents = []models.Event{}
		return nil
	}

	if admin.DepartmentID == nil {
		return validationError("departmentId", "departmentId is required for "+admin.Role)
	}
	if _, err := s.repo.DepartmentRepo.GetDepartmentByID(ctx, *admin.DepartmentID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validationError("departmentId", "department does not exist")
		}
		return internalError(err)
	}

	events := make([]models.Event, 0, len(eventIDs))
	for _, eventID := range eventIDs {
		event, err := s.repo.EventRepo.GetEventByID(ctx, eventID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return validationError("eventIds", "event "+eventID.String()+" does not exist")
			}
			return internalError(err)
		}
		event.Category = nil
		event.Department = nil
		events = append(events, *event)
	}
	admin.AssignedEvents = events
	return nil
}

func (s *AdminService) DeleteAdmin(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	if err := require(pc, permissions.Admins, permissions.Delete); err != nil {
		return err
	}
	if id == pc.AdminID {
		return validationError("id", "you cannot delete your own account")
	}
	if err := s.repo.AdminRepo.DeleteAdmin(ctx, id); err != nil {
		return fromRepo(err, "Admin")
	}
	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "deleted_admin_id": id}).Info("admin deleted")
	return nil
}

// Departments

type DepartmentInput struct {
	Name        string
	Code        string
	Description string
}

func (s *AdminService) ListDepartments(ctx context.Context, pc *permissions.Context, params repositories.ListParams) ([]models.Department, int64, error) {
	if err := require(pc, permissions.Departments, permissions.Read); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.DepartmentRepo.ListDepartments(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return items, total, nil
}

func (s *AdminService) GetDepartment(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Department, error) {
	if err := require(pc, permissions.Departments, permissions.Read); err != nil {
		return nil, err
	}
	dept, err := s.repo.DepartmentRepo.GetDepartmentByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Department")
	}
	return dept, nil
}

func (s *AdminService) CreateDepartment(ctx context.Context, pc *permissions.Context, in DepartmentInput) (*models.Department, error) {
	if err := require(pc, permissions.Departments, permissions.Create); err != nil {
		return nil, err
	}
	dept := &models.Department{
		Name:        strings.TrimSpace(in.Name),
		Code:        strings.ToUpper(strings.TrimSpace(in.Code)),
		Description: in.Description,
	}
	if err := s.repo.DepartmentRepo.CreateDepartment(ctx, dept); err != nil {
		return nil, fromRepo(err, "Department")
	}
	return dept, nil
}

func (s *AdminService) UpdateDepartment(ctx context.Context, pc *permissions.Context, id uuid.UUID, in DepartmentInput) (*models.Department, error) {
	if err := require(pc, permissions.Departments, permissions.Update); err != nil {
		return nil, err
	}
	dept, err := s.repo.DepartmentRepo.GetDepartmentByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Department")
	}
	if in.Name != "" {
		dept.Name = strings.TrimSpace(in.Name)
	}
	if in.Code != "" {
		dept.Code = strings.ToUpper(strings.TrimSpace(in.Code))
	}
	if in.Description != "" {
		dept.Description = in.Description
	}
	if err := s.repo.DepartmentRepo.UpdateDepartment(ctx, dept); err != nil {
		return nil, fromRepo(err, "Department")
	}
	s.events.Invalidate()
	return dept, nil
}

func (s *AdminService) DeleteDepartment(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	if err := require(pc, permissions.Departments, permissions.Delete); err != nil {
		return err
	}
	if err := s.repo.DepartmentRepo.DeleteDepartment(ctx, id); err != nil {
		return fromRepo(err, "Department")
	}
	s.events.Invalidate()
	return nil
}

// Categories

type CategoryInput struct {
	Name        string
	Slug        string
	Description string
}

func (s *AdminService) ListCategories(ctx context.Context, pc *permissions.Context, params repositories.ListParams) ([]models.EventCategory, int64, error) {
	if err := require(pc, permissions.Categories, permissions.Read); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.CategoryRepo.ListCategories(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return items, total, nil
}

func (s *AdminService) GetCategory(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.EventCategory, error) {
	if err := require(pc, permissions.Categories, permissions.Read); err != nil {
		return nil, err
	}
	category, err := s.repo.CategoryRepo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Category")
	}
	return category, nil
}

func (s *AdminService) CreateCategory(ctx context.Context, pc *permissions.Context, in CategoryInput) (*models.EventCategory, error) {
	if err := require(pc, permissions.Categories, permissions.Create); err != nil {
		return nil, err
	}
	category := &models.EventCategory{
		Name:        strings.TrimSpace(in.Name),
		Slug:        strings.ToLower(strings.TrimSpace(in.Slug)),
		Description: in.Description,
	}
	if err := s.repo.CategoryRepo.CreateCategory(ctx, category); err != nil {
		return nil, fromRepo(err, "Category")
	}
	return category, nil
}

func (s *AdminService) UpdateCategory(ctx context.Context, pc *permissions.Context, id uuid.UUID, in CategoryInput) (*models.EventCategory, error) {
	if err := require(pc, permissions.Categories, permissions.Update); err != nil {
		return nil, err
	}
	category, err := s.repo.CategoryRepo.GetCategoryByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Category")
	}
	if in.Name != "" {
		category.Name = strings.TrimSpace(in.Name)
	}
	if in.Slug != "" {
		category.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	}
	if in.Description != "" {
		category.Description = in.Description
	}
	if err := s.repo.CategoryRepo.UpdateCategory(ctx, category); err != nil {
		return nil, fromRepo(err, "Category")
	}
	s.events.Invalidate()
	return category, nil
}

func (s *AdminService) DeleteCategory(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	if err := require(pc, permissions.Categories, permissions.Delete); err != nil {
		return err
	}
	if err := s.repo.CategoryRepo.DeleteCategory(ctx, id); err != nil {
		return fromRepo(err, "Category")
	}
	s.events.Invalidate()
	return nil
}
