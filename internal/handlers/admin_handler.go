package handlers

import (
	"kalam-backend/internal/middleware"
	"kalam-backend/internal/services"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type AdminUserRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=10,max=15"`
	College  string `json:"college" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type AdminUserPatchRequest struct {
	Name         *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone        *string `json:"phone" validate:"omitempty,min=10,max=15"`
	College      *string `json:"college" validate:"omitempty,max=200"`
	Role         *string `json:"role" validate:"omitempty,oneof=user admin"`
	EntryFeePaid *bool   `json:"entryFeePaid"`
	Password     *string `json:"password" validate:"omitempty,min=8,max=72"`
}

type AdminAccountRequest struct {
	Name         string   `json:"name" validate:"required,min=2,max=100"`
	Email        string   `json:"email" validate:"required,email"`
	Password     string   `json:"password" validate:"required,min=8,max=72"`
	Role         string   `json:"role" validate:"required"`
	DepartmentID string   `json:"departmentId" validate:"omitempty,uuid"`
	EventIDs     []string `json:"eventIds" validate:"dive,uuid"`
}

type AdminAccountPatchRequest struct {
	Name         *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Password     *string   `json:"password" validate:"omitempty,min=8,max=72"`
	Role         *string   `json:"role"`
	DepartmentID *string   `json:"departmentId" validate:"omitempty,uuid"`
	EventIDs     *[]string `json:"eventIds" validate:"omitempty,dive,uuid"`
}

type DepartmentRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Code        string `json:"code" validate:"required,min=2,max=20"`
	Description string `json:"description"`
}

type CategoryRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Slug        string `json:"slug" validate:"required,min=2,max=100"`
	Description string `json:"description"`
}

func uuidList(raw []string) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		ids = append(ids, uuid.MustParse(s))
	}
	return ids
}

// Users

func (h *Handler) AdminListUsers(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	users, total, err := h.adminSvc.ListUsers(c.UserContext(), pc, params)
	if err != nil {
		return err
	}
	return paged(c, users, total, params, "Users retrieved")
}

func (h *Handler) AdminGetUser(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	user, err := h.adminSvc.GetUser(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, user, "User retrieved")
}

func (h *Handler) AdminCreateUser(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req AdminUserRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	user, err := h.adminSvc.CreateUser(c.UserContext(), pc, services.UserInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		College:  req.College,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, user, "User created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateUser(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req AdminUserPatchRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	user, err := h.adminSvc.UpdateUser(c.UserContext(), pc, id, services.UserPatch{
		Name:         req.Name,
		Phone:        req.Phone,
		College:      req.College,
		Role:         req.Role,
		EntryFeePaid: req.EntryFeePaid,
		Password:     req.Password,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, user, "User updated")
}

func (h *Handler) AdminDeleteUser(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteUser(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "User deleted")
}

// Admin accounts

func (h *Handler) AdminListAdmins(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	admins, total, err := h.adminSvc.ListAdmins(c.UserContext(), pc, params)
	if err != nil {
		return err
	}
	return paged(c, admins, total, params, "Admins retrieved")
}

func (h *Handler) AdminGetAdmin(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	admin, err := h.adminSvc.GetAdmin(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, admin, "Admin retrieved")
}

func (h *Handler) AdminCreateAdmin(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req AdminAccountRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	admin, err := h.adminSvc.CreateAdmin(c.UserContext(), pc, services.AdminInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Role:         req.Role,
		DepartmentID: optionalUUID(req.DepartmentID),
		EventIDs:     uuidList(req.EventIDs),
	})
	if err != nil {
		return err
	}
	return utils.Success(c, admin, "Admin created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateAdmin(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req AdminAccountPatchRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	patch := services.AdminPatch{
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	}
	if req.DepartmentID != nil {
		patch.DepartmentID = optionalUUID(*req.DepartmentID)
	}
	if req.EventIDs != nil {
		ids := uuidList(*req.EventIDs)
		patch.EventIDs = &ids
	}

	admin, err := h.adminSvc.UpdateAdmin(c.UserContext(), pc, id, patch)
	if err != nil {
		return err
	}
	return utils.Success(c, admin, "Admin updated")
}

func (h *Handler) AdminDeleteAdmin(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteAdmin(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "Admin deleted")
}

// Departments

func (h *Handler) AdminListDepartments(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	items, total, err := h.adminSvc.ListDepartments(c.UserContext(), pc, params)
	if err != nil {
		return err
	}
	return paged(c, items, total, params, "Departments retrieved")
}

func (h *Handler) AdminGetDepartment(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	dept, err := h.adminSvc.GetDepartment(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, dept, "Department retrieved")
}

func (h *Handler) AdminCreateDepartment(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req DepartmentRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	dept, err := h.adminSvc.CreateDepartment(c.UserContext(), pc, services.DepartmentInput(req))
	if err != nil {
		return err
	}
	return utils.Success(c, dept, "Department created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateDepartment(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req DepartmentRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	dept, err := h.adminSvc.UpdateDepartment(c.UserContext(), pc, id, services.DepartmentInput(req))
	if err != nil {
		return err
	}
	return utils.Success(c, dept, "Department updated")
}

func (h *Handler) AdminDeleteDepartment(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteDepartment(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "Department deleted")
}

// Categories

func (h *Handler) AdminListCategories(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	items, total, err := h.adminSvc.ListCategories(c.UserContext(), pc, params)
	if err != nil {
		return err
	}
	return paged(c, items, total, params, "Categories retrieved")
}

func (h *Handler) AdminGetCategory(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	cat, err := h.adminSvc.GetCategory(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, cat, "Category retrieved")
}

func (h *Handler) AdminCreateCategory(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req CategoryRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	cat, err := h.adminSvc.CreateCategory(c.UserContext(), pc, services.CategoryInput(req))
	if err != nil {
		return err
	}
	return utils.Success(c, cat, "Category created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateCategory(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req CategoryRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	cat, err := h.adminSvc.UpdateCategory(c.UserContext(), pc, id, services.CategoryInput(req))
	if err != nil {
		return err
	}
	return utils.Success(c, cat, "Category updated")
}

func (h *Handler) AdminDeleteCategory(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteCategory(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "Category deleted")
}

// @Summary Dashboard statistics
// @Tags Admin
// @Router /admin/stats [get]
func (h *Handler) AdminStats(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	stats, err := h.adminSvc.Stats(c.UserContext(), pc)
	if err != nil {
		return err
	}
	return utils.Success(c, stats, "Stats retrieved")
}
