package services

import (
	"context"
	"sort"
	"strings"

	"kalam-backend/internal/config"
	"kalam-backend/internal/metrics"
	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

const catalogCacheSize = 512

const activeKey = "active"

// EventService serves the public catalog. Single events and the full active
// list are held in expiring LRU caches that admin writes purge.
type EventService struct {
	repo   *repositories.Repository
	cfg    *config.Config
	events *expirable.LRU[string, *models.Event]
	active *expirable.LRU[string, []models.Event]
}

func NewEventService(repo *repositories.Repository, cfg *config.Config) *EventService {
	return &EventService{
		repo:   repo,
		cfg:    cfg,
		events: expirable.NewLRU[string, *models.Event](catalogCacheSize, nil, cfg.CatalogCacheTTL),
		active: expirable.NewLRU[string, []models.Event](1, nil, cfg.CatalogCacheTTL),
	}
}

type EventQuery struct {
	CategoryID   *uuid.UUID
	DepartmentID *uuid.UUID
	Q            string
}

// ListEvents lists active events. With a search term the whole active
// catalog is ranked by fuzzy distance on the name and paged in memory.
func (s *EventService) ListEvents(ctx context.Context, q EventQuery, params repositories.ListParams) ([]models.Event, int64, error) {
	term := strings.TrimSpace(q.Q)
	if term == "" {
		active := true
		events, total, err := s.repo.EventRepo.ListEvents(ctx, repositories.EventFilters{
			IsActive:     &active,
			CategoryID:   q.CategoryID,
			DepartmentID: q.DepartmentID,
		}, params)
		if err != nil {
			return nil, 0, internalError(err)
		}
		return events, total, nil
	}

	all, err := s.activeEvents(ctx)
	if err != nil {
		return nil, 0, err
	}

	candidates := make([]models.Event, 0, len(all))
	names := make([]string, 0, len(all))
	for _, e := range all {
		if q.CategoryID != nil && e.CategoryID != *q.CategoryID {
			continue
		}
		if q.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *q.DepartmentID) {
			continue
		}
		candidates = append(candidates, e)
		names = append(names, e.Name)
	}

	ranks := fuzzy.RankFindNormalizedFold(term, names)
	sort.Stable(ranks)

	matched := make([]models.Event, 0, len(ranks))
	for _, r := range ranks {
		matched = append(matched, candidates[r.OriginalIndex])
	}

	total := int64(len(matched))
	start := params.Offset()
	if start >= len(matched) {
		return []models.Event{}, total, nil
	}
	end := start + params.Limit
	if params.Limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (s *EventService) activeEvents(ctx context.Context) ([]models.Event, error) {
	if cached, ok := s.active.Get(activeKey); ok {
		metrics.CatalogCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CatalogCache.WithLabelValues("miss").Inc()

	active := true
	var all []models.Event
	for pageNo := 1; ; pageNo++ {
		batch, total, err := s.repo.EventRepo.ListEvents(ctx, repositories.EventFilters{IsActive: &active},
			repositories.ListParams{Page: pageNo, Limit: 100, Sort: "startsAt"})
		if err != nil {
			return nil, internalError(err)
		}
		all = append(all, batch...)
		if len(batch) == 0 || int64(len(all)) >= total {
			break
		}
	}

	s.active.Add(activeKey, all)
	return all, nil
}

// GetEvent resolves an active event by slug or id.
func (s *EventService) GetEvent(ctx context.Context, slugOrID string) (*models.Event, error) {
	if cached, ok := s.events.Get(slugOrID); ok {
		metrics.CatalogCache.WithLabelValues("hit").Inc()
		return cached, nil
	}
	metrics.CatalogCache.WithLabelValues("miss").Inc()

	var (
		event *models.Event
		err   error
	)
	if id, parseErr := uuid.Parse(slugOrID); parseErr == nil {
		event, err = s.repo.EventRepo.GetEventByID(ctx, id)
	} else {
		event, err = s.repo.EventRepo.GetEventBySlug(ctx, slugOrID)
	}
	if err != nil {
		return nil, fromRepo(err, "Event")
	}
	if !event.IsActive {
		return nil, newError(CodeNotFound, "Event not found")
	}

	s.events.Add(event.Slug, event)
	s.events.Add(event.ID.String(), event)
	return event, nil
}

func (s *EventService) ListCategories(ctx context.Context, params repositories.ListParams) ([]models.EventCategory, int64, error) {
	categories, total, err := s.repo.CategoryRepo.ListCategories(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return categories, total, nil
}

func (s *EventService) ListDepartments(ctx context.Context, params repositories.ListParams) ([]models.Department, int64, error) {
	departments, total, err := s.repo.DepartmentRepo.ListDepartments(ctx, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return departments, total, nil
}

// ListAnnouncements returns published announcements, optionally for one
// event.
func (s *EventService) ListAnnouncements(ctx context.Context, eventID *uuid.UUID, params repositories.ListParams) ([]models.Announcement, int64, error) {
	items, total, err := s.repo.AnnouncementRepo.ListAnnouncements(ctx, repositories.AnnouncementFilters{
		PublishedOnly: true,
		EventID:       eventID,
	}, params)
	if err != nil {
		return nil, 0, internalError(err)
	}
	return items, total, nil
}

// Invalidate drops every cached catalog entry.
func (s *EventService) Invalidate() {
	s.events.Purge()
	s.active.Purge()
}
