package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type EventInput struct {
	Name         string
	Slug         string
	Description  string
	CategoryID   uuid.UUID
	DepartmentID *uuid.UUID
	StartsAt     time.Time
	EndsAt       time.Time
	Venue        string
	Fee          int64
	RequiresTeam bool
	MinTeamSize  *int
	MaxTeamSize  *int
	IsActive     *bool
}

type EventPatch struct {
	Name         *string
	Description  *string
	CategoryID   *uuid.UUID
	DepartmentID *uuid.UUID
	StartsAt     *time.Time
	EndsAt       *time.Time
	Venue        *string
	Fee          *int64
	RequiresTeam *bool
	MinTeamSize  *int
	MaxTeamSize  *int
	IsActive     *bool
}

type AdminEventQuery struct {
	IsActive     *bool
	CategoryID   *uuid.UUID
	DepartmentID *uuid.UUID
}

func (s *AdminService) ListEvents(ctx context.Context, pc *permissions.Context, q AdminEventQuery, params repositories.ListParams) ([]models.Event, int64, error) {
	if err := require(pc, permissions.Events, permissions.Read); err != nil {
		return nil, 0, err
	}
	scope := pc.Scope()
	events, total, err := s.repo.EventRepo.ListEvents(ctx, repositories.EventFilters{
		IsActive:     q.IsActive,
		CategoryID:   q.CategoryID,
		DepartmentID: q.DepartmentID,
		Scope:        &scope,
	}, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return events, total, nil
}

func (s *AdminService) GetEvent(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Event, error) {
	event, err := s.repo.EventRepo.GetEventByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Events, permissions.Read, event); err != nil {
		return nil, err
	}
	return event, nil
}

// CreateEvent adds an event. Department managers can only create events in
// their own department.
func (s *AdminService) CreateEvent(ctx context.Context, pc *permissions.Context, in EventInput) (*models.Event, error) {
	if err := require(pc, permissions.Events, permissions.Create); err != nil {
		return nil, err
	}

	event := &models.Event{
		Name:         strings.TrimSpace(in.Name),
		Slug:         strings.ToLower(strings.TrimSpace(in.Slug)),
		Description:  in.Description,
		CategoryID:   in.CategoryID,
		DepartmentID: in.DepartmentID,
		StartsAt:     in.StartsAt,
		EndsAt:       in.EndsAt,
		Venue:        in.Venue,
		Fee:          in.Fee,
		RequiresTeam: in.RequiresTeam,
		MinTeamSize:  in.MinTeamSize,
		MaxTeamSize:  in.MaxTeamSize,
		IsActive:     true,
	}
	if in.IsActive != nil {
		event.IsActive = *in.IsActive
	}
	if !pc.IsSuperadmin() {
		event.DepartmentID = pc.DepartmentID
	}

	if err := s.checkEvent(ctx, pc, event); err != nil {
		return nil, err
	}

	if err := s.repo.EventRepo.CreateEvent(ctx, event); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeConflict, "An event with this slug already exists")
		}
		return nil, internalError(err)
	}
	s.events.Invalidate()

	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "event_id": event.ID, "slug": event.Slug}).Info("event created")
	return event, nil
}

func (s *AdminService) UpdateEvent(ctx context.Context, pc *permissions.Context, id uuid.UUID, patch EventPatch) (*models.Event, error) {
	event, err := s.repo.EventRepo.GetEventByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Events, permissions.Update, event); err != nil {
		return nil, err
	}

	if patch.Name != nil {
		event.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.Description != nil {
		event.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		event.CategoryID = *patch.CategoryID
	}
	if patch.DepartmentID != nil {
		if !pc.IsSuperadmin() {
			return nil, forbidden()
		}
		event.DepartmentID = patch.DepartmentID
	}
	if patch.StartsAt != nil {
		event.StartsAt = *patch.StartsAt
	}
	if patch.EndsAt != nil {
		event.EndsAt = *patch.EndsAt
	}
	if patch.Venue != nil {
		event.Venue = *patch.Venue
	}
	if patch.Fee != nil {
		event.Fee = *patch.Fee
	}
	if patch.RequiresTeam != nil {
		event.RequiresTeam = *patch.RequiresTeam
	}
	if patch.MinTeamSize != nil {
		event.MinTeamSize = patch.MinTeamSize
	}
	if patch.MaxTeamSize != nil {
		event.MaxTeamSize = patch.MaxTeamSize
	}
	if patch.IsActive != nil {
		event.IsActive = *patch.IsActive
	}

	if err := s.checkEvent(ctx, pc, event); err != nil {
		return nil, err
	}

	event.Category = nil
	event.Department = nil
	if err := s.repo.EventRepo.UpdateEvent(ctx, event); err != nil {
		return nil, fromRepo(err, "Event")
	}
	s.events.Invalidate()
	return event, nil
}

func (s *AdminService) checkEvent(ctx context.Context, pc *permissions.Context, event *models.Event) error {
	if !event.EndsAt.After(event.StartsAt) {
		return validationError("endsAt", "endsAt must be after startsAt")
	}
	if event.Fee < 0 {
		return validationError("fee", "fee cannot be negative")
	}
	if !event.TeamBoundsValid() {
		return validationError("minTeamSize", "team events need 1 <= minTeamSize <= maxTeamSize")
	}
	if !event.RequiresTeam {
		event.MinTeamSize = nil
		event.MaxTeamSize = nil
	}

	if _, err := s.repo.CategoryRepo.GetCategoryByID(ctx, event.CategoryID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validationError("categoryId", "category does not exist")
		}
		return internalError(err)
	}
	if event.DepartmentID != nil {
		if _, err := s.repo.DepartmentRepo.GetDepartmentByID(ctx, *event.DepartmentID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return validationError("departmentId", "department does not exist")
			}
			return internalError(err)
		}
	} else if !pc.IsSuperadmin() {
		return forbidden()
	}
	return nil
}

// DeleteEvent deactivates the event; registrations keep pointing at it.
func (s *AdminService) DeleteEvent(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	event, err := s.repo.EventRepo.GetEventByID(ctx, id)
	if err != nil {
		return fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Events, permissions.Delete, event); err != nil {
		return err
	}
	if err := s.repo.EventRepo.SoftDeleteEvent(ctx, id); err != nil {
		return fromRepo(err, "Event")
	}
	s.events.Invalidate()

	logrus.WithFields(logrus.Fields{"admin_id": pc.AdminID, "event_id": id}).Info("event deactivated")
	return nil
}

// SetEventPoster records an uploaded poster path on the event.
func (s *AdminService) SetEventPoster(ctx context.Context, pc *permissions.Context, id uuid.UUID, posterPath string) (*models.Event, error) {
	event, err := s.repo.EventRepo.GetEventByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if err := requireEvent(pc, permissions.Events, permissions.Update, event); err != nil {
		return nil, err
	}

	event.PosterPath = posterPath
	event.Category = nil
	event.Department = nil
	if err := s.repo.EventRepo.UpdateEvent(ctx, event); err != nil {
		return nil, fromRepo(err, "Event")
	}
	s.events.Invalidate()
	return event, nil
}

// Announcements

type AnnouncementInput struct {
	Title       string
	Body        string
	EventID     *uuid.UUID
	IsPublished bool
}

type AnnouncementPatch struct {
	Title       *string
	Body        *string
	EventID     *uuid.UUID
	IsPublished *bool
}

func (s *AdminService) ListAnnouncements(ctx context.Context, pc *permissions.Context, eventID *uuid.UUID, params repositories.ListParams) ([]models.Announcement, int64, error) {
	if err := require(pc, permissions.Announcements, permissions.Read); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.AnnouncementRepo.ListAnnouncements(ctx, repositories.AnnouncementFilters{EventID: eventID}, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return items, total, nil
}

func (s *AdminService) GetAnnouncement(ctx context.Context, pc *permissions.Context, id uuid.UUID) (*models.Announcement, error) {
	if err := require(pc, permissions.Announcements, permissions.Read); err != nil {
		return nil, err
	}
	a, err := s.repo.AnnouncementRepo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Announcement")
	}
	return a, nil
}

func (s *AdminService) CreateAnnouncement(ctx context.Context, pc *permissions.Context, in AnnouncementInput) (*models.Announcement, error) {
	if err := require(pc, permissions.Announcements, permissions.Create); err != nil {
		return nil, err
	}
	if err := s.checkAnnouncementTarget(ctx, pc, permissions.Create, in.EventID); err != nil {
		return nil, err
	}

	a := &models.Announcement{
		Title:       strings.TrimSpace(in.Title),
		Body:        in.Body,
		EventID:     in.EventID,
		IsPublished: in.IsPublished,
		AuthorID:    pc.AdminID,
	}
	if err := s.repo.AnnouncementRepo.CreateAnnouncement(ctx, a); err != nil {
		return nil, internalError(err)
	}
	return a, nil
}

func (s *AdminService) UpdateAnnouncement(ctx context.Context, pc *permissions.Context, id uuid.UUID, patch AnnouncementPatch) (*models.Announcement, error) {
	if err := require(pc, permissions.Announcements, permissions.Update); err != nil {
		return nil, err
	}
	a, err := s.repo.AnnouncementRepo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, "Announcement")
	}
	if err := s.checkAnnouncementTarget(ctx, pc, permissions.Update, a.EventID); err != nil {
		return nil, err
	}

	if patch.Title != nil {
		a.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Body != nil {
		a.Body = *patch.Body
	}
	if patch.EventID != nil {
		if err := s.checkAnnouncementTarget(ctx, pc, permissions.Update, patch.EventID); err != nil {
			return nil, err
		}
		a.EventID = patch.EventID
	}
	if patch.IsPublished != nil {
		a.IsPublished = *patch.IsPublished
	}

	if err := s.repo.AnnouncementRepo.UpdateAnnouncement(ctx, a); err != nil {
		return nil, fromRepo(err, "Announcement")
	}
	return a, nil
}

func (s *AdminService) DeleteAnnouncement(ctx context.Context, pc *permissions.Context, id uuid.UUID) error {
	if err := require(pc, permissions.Announcements, permissions.Delete); err != nil {
		return err
	}
	a, err := s.repo.AnnouncementRepo.GetAnnouncementByID(ctx, id)
	if err != nil {
		return fromRepo(err, "Announcement")
	}
	if err := s.checkAnnouncementTarget(ctx, pc, permissions.Delete, a.EventID); err != nil {
		return err
	}
	if err := s.repo.AnnouncementRepo.DeleteAnnouncement(ctx, id); err != nil {
		return fromRepo(err, "Announcement")
	}
	return nil
}

// checkAnnouncementTarget limits non-superadmins to announcements about
// events inside their scope; site-wide announcements are superadmin only.
func (s *AdminService) checkAnnouncementTarget(ctx context.Context, pc *permissions.Context, action permissions.Action, eventID *uuid.UUID) error {
	if eventID == nil {
		if pc.IsSuperadmin() {
			return nil
		}
		return forbidden()
	}
	event, err := s.repo.EventRepo.GetEventByID(ctx, *eventID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return validationError("eventId", "event does not exist")
		}
		return internalError(err)
	}
	return requireEvent(pc, permissions.Announcements, action, event)
}
