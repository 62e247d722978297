package handlers

import (
	"path/filepath"

	"kalam-backend/internal/middleware"
	"kalam-backend/internal/models"
	"kalam-backend/internal/services"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type CreateTeamRequest struct {
	EventID string              `json:"eventId" validate:"required,uuid"`
	Name    string              `json:"name" validate:"required,min=2,max=100"`
	Members []TeamMemberRequest `json:"members" validate:"dive"`
}

type TeamMemberRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,min=10,max=15"`
}

// ListEvents lists active events
// @Summary List events
// @Tags Events
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param q query string false "Fuzzy search on the event name"
// @Param categoryId query string false "Category filter"
// @Param departmentId query string false "Department filter"
// @Success 200 {object} utils.Response
// @Router /events [get]
func (h *Handler) ListEvents(c *fiber.Ctx) error {
	categoryID, err := queryUUID(c, "categoryId")
	if err != nil {
		return err
	}
	departmentID, err := queryUUID(c, "departmentId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	events, total, err := h.eventSvc.ListEvents(c.UserContext(), services.EventQuery{
		CategoryID:   categoryID,
		DepartmentID: departmentID,
		Q:            c.Query("q"),
	}, params)
	if err != nil {
		return err
	}

	return paged(c, events, total, params, "Events retrieved")
}

// GetEvent accepts either the slug or the id.
// @Summary Get event
// @Tags Events
// @Param slug path string true "Event slug or ID"
// @Router /events/{slug} [get]
func (h *Handler) GetEvent(c *fiber.Ctx) error {
	event, err := h.eventSvc.GetEvent(c.UserContext(), c.Params("slug"))
	if err != nil {
		return err
	}

	return utils.Success(c, event, "Event retrieved")
}

// @Summary List categories
// @Tags Events
// @Router /categories [get]
func (h *Handler) ListCategories(c *fiber.Ctx) error {
	params := utils.ListQuery(c)
	items, total, err := h.eventSvc.ListCategories(c.UserContext(), params)
	if err != nil {
		return err
	}
	return paged(c, items, total, params, "Categories retrieved")
}

// @Summary List departments
// @Tags Events
// @Router /departments [get]
func (h *Handler) ListDepartments(c *fiber.Ctx) error {
	params := utils.ListQuery(c)
	items, total, err := h.eventSvc.ListDepartments(c.UserContext(), params)
	if err != nil {
		return err
	}
	return paged(c, items, total, params, "Departments retrieved")
}

// @Summary List published announcements
// @Tags Events
// @Param eventId query string false "Event filter"
// @Router /announcements [get]
func (h *Handler) ListAnnouncements(c *fiber.Ctx) error {
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	items, total, err := h.eventSvc.ListAnnouncements(c.UserContext(), eventID, params)
	if err != nil {
		return err
	}
	return paged(c, items, total, params, "Announcements retrieved")
}

// @Summary Create team
// @Tags Teams
// @Security BearerAuth
// @Router /teams [post]
func (h *Handler) CreateTeam(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req CreateTeamRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	members := make([]models.TeamMember, 0, len(req.Members))
	for _, m := range req.Members {
		members = append(members, models.TeamMember{Name: m.Name, Email: m.Email, Phone: m.Phone})
	}

	team, err := h.teamSvc.CreateTeam(c.UserContext(), userID, services.CreateTeamInput{
		EventID: uuid.MustParse(req.EventID),
		Name:    req.Name,
		Members: members,
	})
	if err != nil {
		return err
	}

	return utils.Success(c, team, "Team created", fiber.StatusCreated)
}

// @Summary List my teams
// @Tags Teams
// @Security BearerAuth
// @Router /teams [get]
func (h *Handler) ListMyTeams(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	teams, err := h.teamSvc.ListMyTeams(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return utils.Success(c, teams, "Teams retrieved")
}

// @Summary List my registrations
// @Tags Registrations
// @Security BearerAuth
// @Router /registrations [get]
func (h *Handler) ListMyRegistrations(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	regs, total, err := h.regSvc.ListMyRegistrations(c.UserContext(), userID, params)
	if err != nil {
		return err
	}
	return paged(c, regs, total, params, "Registrations retrieved")
}

// GetTicket streams the QR ticket image of a confirmed registration.
// @Summary Download ticket
// @Tags Registrations
// @Produce png
// @Security BearerAuth
// @Router /registrations/{id}/ticket [get]
func (h *Handler) GetTicket(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	reg, err := h.regSvc.GetTicket(c.UserContext(), userID, id)
	if err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.SendFile(filepath.Join(h.cfg.QRDir, filepath.Base(reg.QRPath)))
}
