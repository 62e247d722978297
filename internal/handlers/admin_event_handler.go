package handlers

import (
	"os"
	"path"
	"path/filepath"
	"time"

	"kalam-backend/internal/middleware"
	"kalam-backend/internal/services"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PosterRoute is the public path prefix poster images are served under.
const PosterRoute = "/posters"

type AdminEventRequest struct {
	Name         string    `json:"name" validate:"required,min=2,max=150"`
	Slug         string    `json:"slug" validate:"required,min=2,max=150"`
	Description  string    `json:"description"`
	CategoryID   string    `json:"categoryId" validate:"required,uuid"`
	DepartmentID string    `json:"departmentId" validate:"omitempty,uuid"`
	StartsAt     time.Time `json:"startsAt" validate:"required"`
	EndsAt       time.Time `json:"endsAt" validate:"required,gtfield=StartsAt"`
	Venue        string    `json:"venue" validate:"max=200"`
	Fee          int64     `json:"fee" validate:"gte=0"`
	RequiresTeam bool      `json:"requiresTeam"`
	MinTeamSize  *int      `json:"minTeamSize" validate:"omitempty,gte=1"`
	MaxTeamSize  *int      `json:"maxTeamSize" validate:"omitempty,gte=1"`
	IsActive     *bool     `json:"isActive"`
}

type AdminEventPatchRequest struct {
	Name         *string    `json:"name" validate:"omitempty,min=2,max=150"`
	Description  *string    `json:"description"`
	CategoryID   *string    `json:"categoryId" validate:"omitempty,uuid"`
	DepartmentID *string    `json:"departmentId" validate:"omitempty,uuid"`
	StartsAt     *time.Time `json:"startsAt"`
	EndsAt       *time.Time `json:"endsAt"`
	Venue        *string    `json:"venue" validate:"omitempty,max=200"`
	Fee          *int64     `json:"fee" validate:"omitempty,gte=0"`
	RequiresTeam *bool      `json:"requiresTeam"`
	MinTeamSize  *int       `json:"minTeamSize" validate:"omitempty,gte=1"`
	MaxTeamSize  *int       `json:"maxTeamSize" validate:"omitempty,gte=1"`
	IsActive     *bool      `json:"isActive"`
}

type AnnouncementRequest struct {
	Title       string `json:"title" validate:"required,min=2,max=200"`
	Body        string `json:"body" validate:"required"`
	EventID     string `json:"eventId" validate:"omitempty,uuid"`
	IsPublished bool   `json:"isPublished"`
}

type AnnouncementPatchRequest struct {
	Title       *string `json:"title" validate:"omitempty,min=2,max=200"`
	Body        *string `json:"body"`
	EventID     *string `json:"eventId" validate:"omitempty,uuid"`
	IsPublished *bool   `json:"isPublished"`
}

func patchUUID(raw *string) *uuid.UUID {
	if raw == nil {
		return nil
	}
	return optionalUUID(*raw)
}

// @Summary List events (admin)
// @Tags Admin Events
// @Param isActive query bool false "Active filter"
// @Param categoryId query string false "Category filter"
// @Param departmentId query string false "Department filter"
// @Router /admin/events [get]
func (h *Handler) AdminListEvents(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	categoryID, err := queryUUID(c, "categoryId")
	if err != nil {
		return err
	}
	departmentID, err := queryUUID(c, "departmentId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	events, total, err := h.adminSvc.ListEvents(c.UserContext(), pc, services.AdminEventQuery{
		IsActive:     queryBool(c, "isActive"),
		CategoryID:   categoryID,
		DepartmentID: departmentID,
	}, params)
	if err != nil {
		return err
	}
	return paged(c, events, total, params, "Events retrieved")
}

func (h *Handler) AdminGetEvent(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	event, err := h.adminSvc.GetEvent(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, event, "Event retrieved")
}

func (h *Handler) AdminCreateEvent(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req AdminEventRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	event, err := h.adminSvc.CreateEvent(c.UserContext(), pc, services.EventInput{
		Name:         req.Name,
		Slug:         req.Slug,
		Description:  req.Description,
		CategoryID:   uuid.MustParse(req.CategoryID),
		DepartmentID: optionalUUID(req.DepartmentID),
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Venue:        req.Venue,
		Fee:          req.Fee,
		RequiresTeam: req.RequiresTeam,
		MinTeamSize:  req.MinTeamSize,
		MaxTeamSize:  req.MaxTeamSize,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, event, "Event created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateEvent(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req AdminEventPatchRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	event, err := h.adminSvc.UpdateEvent(c.UserContext(), pc, id, services.EventPatch{
		Name:         req.Name,
		Description:  req.Description,
		CategoryID:   patchUUID(req.CategoryID),
		DepartmentID: patchUUID(req.DepartmentID),
		StartsAt:     req.StartsAt,
		EndsAt:       req.EndsAt,
		Venue:        req.Venue,
		Fee:          req.Fee,
		RequiresTeam: req.RequiresTeam,
		MinTeamSize:  req.MinTeamSize,
		MaxTeamSize:  req.MaxTeamSize,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, event, "Event updated")
}

func (h *Handler) AdminDeleteEvent(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteEvent(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "Event deleted")
}

// AdminUploadPoster stores a poster image for the event and replaces the
// previous one.
// @Summary Upload event poster
// @Tags Admin Events
// @Accept multipart/form-data
// @Param poster formData file true "Poster image (jpeg, png or webp, max 2MB)"
// @Router /admin/events/{id}/poster [post]
func (h *Handler) AdminUploadPoster(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	event, err := h.adminSvc.GetEvent(c.UserContext(), pc, id)
	if err != nil {
		return err
	}

	file, err := c.FormFile("poster")
	if err != nil {
		return &services.Error{Code: services.CodeValidation, Message: "Poster file is required", Fields: map[string]string{"poster": "poster is required"}}
	}
	if err := utils.ValidateImageFile(file); err != nil {
		return &services.Error{Code: services.CodeValidation, Message: err.Error(), Fields: map[string]string{"poster": err.Error()}}
	}

	filename := utils.PosterFilename(event.Slug, file.Filename)
	if err := utils.SaveUploadedFile(file, h.cfg.PosterDir, filename); err != nil {
		return err
	}

	previous := event.PosterPath
	updated, err := h.adminSvc.SetEventPoster(c.UserContext(), pc, id, path.Join(PosterRoute, filename))
	if err != nil {
		_ = os.Remove(filepath.Join(h.cfg.PosterDir, filename))
		return err
	}

	if previous != "" {
		if err := os.Remove(filepath.Join(h.cfg.PosterDir, filepath.Base(previous))); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("poster", previous).Warn("failed to remove old poster")
		}
	}

	return utils.Success(c, updated, "Poster uploaded")
}

// Announcements

func (h *Handler) AdminListAnnouncements(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	eventID, err := queryUUID(c, "eventId")
	if err != nil {
		return err
	}

	params := utils.ListQuery(c)
	items, total, err := h.adminSvc.ListAnnouncements(c.UserContext(), pc, eventID, params)
	if err != nil {
		return err
	}
	return paged(c, items, total, params, "Announcements retrieved")
}

func (h *Handler) AdminGetAnnouncement(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	item, err := h.adminSvc.GetAnnouncement(c.UserContext(), pc, id)
	if err != nil {
		return err
	}
	return utils.Success(c, item, "Announcement retrieved")
}

func (h *Handler) AdminCreateAnnouncement(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}

	var req AnnouncementRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	item, err := h.adminSvc.CreateAnnouncement(c.UserContext(), pc, services.AnnouncementInput{
		Title:       req.Title,
		Body:        req.Body,
		EventID:     optionalUUID(req.EventID),
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, item, "Announcement created", fiber.StatusCreated)
}

func (h *Handler) AdminUpdateAnnouncement(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	var req AnnouncementPatchRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	item, err := h.adminSvc.UpdateAnnouncement(c.UserContext(), pc, id, services.AnnouncementPatch{
		Title:       req.Title,
		Body:        req.Body,
		EventID:     patchUUID(req.EventID),
		IsPublished: req.IsPublished,
	})
	if err != nil {
		return err
	}
	return utils.Success(c, item, "Announcement updated")
}

func (h *Handler) AdminDeleteAnnouncement(c *fiber.Ctx) error {
	pc, err := middleware.Permissions(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.adminSvc.DeleteAnnouncement(c.UserContext(), pc, id); err != nil {
		return err
	}
	return utils.Success(c, nil, "Announcement deleted")
}
