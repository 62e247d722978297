package repotest

import (
	"context"
	"time"

	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
)

type departmentRepo struct{ s *Store }

func (r *departmentRepo) CreateDepartment(_ context.Context, dept *models.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, d := range r.s.Departments {
		if d.Name == dept.Name || d.Code == dept.Code {
			return duplicate("departments.name")
		}
	}
	r.s.stamp(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)
	r.s.Departments[dept.ID] = *dept
	return nil
}

func (r *departmentRepo) GetDepartmentByID(_ context.Context, id uuid.UUID) (*models.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.Departments[id]
	if !ok {
		return nil, notFound("get department")
	}
	return &d, nil
}

func (r *departmentRepo) UpdateDepartment(_ context.Context, dept *models.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Departments[dept.ID]; !ok {
		return notFound("update department")
	}
	r.s.stamp(&dept.ID, nil, &dept.UpdatedAt)
	r.s.Departments[dept.ID] = *dept
	return nil
}

func (r *departmentRepo) DeleteDepartment(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Departments[id]; !ok {
		return notFound("delete department")
	}
	delete(r.s.Departments, id)
	return nil
}

func (r *departmentRepo) ListDepartments(_ context.Context, params repositories.ListParams) ([]models.Department, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Department
	for _, d := range r.s.Departments {
		if contains(params.Search, d.Name, d.Code) {
			out = append(out, d)
		}
	}
	page, total := paginate(out, params, func(d models.Department) time.Time { return d.CreatedAt })
	return page, total, nil
}

type categoryRepo struct{ s *Store }

func (r *categoryRepo) CreateCategory(_ context.Context, category *models.EventCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.Categories {
		if c.Name == category.Name || c.Slug == category.Slug {
			return duplicate("event_categories.slug")
		}
	}
	r.s.stamp(&category.ID, &category.CreatedAt, &category.UpdatedAt)
	r.s.Categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) GetCategoryByID(_ context.Context, id uuid.UUID) (*models.EventCategory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.Categories[id]
	if !ok {
		return nil, notFound("get category")
	}
	return &c, nil
}

func (r *categoryRepo) UpdateCategory(_ context.Context, category *models.EventCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Categories[category.ID]; !ok {
		return notFound("update category")
	}
	r.s.stamp(&category.ID, nil, &category.UpdatedAt)
	r.s.Categories[category.ID] = *category
	return nil
}

func (r *categoryRepo) DeleteCategory(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Categories[id]; !ok {
		return notFound("delete category")
	}
	delete(r.s.Categories, id)
	return nil
}

func (r *categoryRepo) ListCategories(_ context.Context, params repositories.ListParams) ([]models.EventCategory, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.EventCategory
	for _, c := range r.s.Categories {
		if contains(params.Search, c.Name, c.Slug) {
			out = append(out, c)
		}
	}
	page, total := paginate(out, params, func(c models.EventCategory) time.Time { return c.CreatedAt })
	return page, total, nil
}

type eventRepo struct{ s *Store }

func (r *eventRepo) hydrate(e models.Event) models.Event {
	if c, ok := r.s.Categories[e.CategoryID]; ok {
		e.Category = &c
	}
	if e.DepartmentID != nil {
		if d, ok := r.s.Departments[*e.DepartmentID]; ok {
			e.Department = &d
		}
	}
	return e
}

func (r *eventRepo) CreateEvent(_ context.Context, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.Events {
		if e.Slug == event.Slug {
			return duplicate("events.slug")
		}
	}
	r.s.stamp(&event.ID, &event.CreatedAt, &event.UpdatedAt)
	stored := *event
	stored.Category, stored.Department = nil, nil
	r.s.Events[event.ID] = stored
	return nil
}

func (r *eventRepo) GetEventByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.Events[id]
	if !ok {
		return nil, notFound("get event")
	}
	e = r.hydrate(e)
	return &e, nil
}

func (r *eventRepo) GetEventBySlug(_ context.Context, slug string) (*models.Event, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.Events {
		if e.Slug == slug {
			e = r.hydrate(e)
			return &e, nil
		}
	}
	return nil, notFound("get event by slug")
}

func (r *eventRepo) UpdateEvent(_ context.Context, event *models.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Events[event.ID]; !ok {
		return notFound("update event")
	}
	for _, e := range r.s.Events {
		if e.ID != event.ID && e.Slug == event.Slug {
			return duplicate("events.slug")
		}
	}
	r.s.stamp(&event.ID, nil, &event.UpdatedAt)
	stored := *event
	stored.Category, stored.Department = nil, nil
	r.s.Events[event.ID] = stored
	return nil
}

func (r *eventRepo) SoftDeleteEvent(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.Events[id]
	if !ok {
		return notFound("soft delete event")
	}
	e.IsActive = false
	r.s.Events[id] = e
	return nil
}

func (r *eventRepo) ListEvents(_ context.Context, filters repositories.EventFilters, params repositories.ListParams) ([]models.Event, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Event
	for _, e := range r.s.Events {
		if filters.IsActive != nil && e.IsActive != *filters.IsActive {
			continue
		}
		if filters.CategoryID != nil && e.CategoryID != *filters.CategoryID {
			continue
		}
		if filters.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *filters.DepartmentID) {
			continue
		}
		if filters.Scope != nil && !filters.Scope.Contains(&e) {
			continue
		}
		if !contains(params.Search, e.Name, e.Description) {
			continue
		}
		out = append(out, r.hydrate(e))
	}
	page, total := paginate(out, params, func(e models.Event) time.Time { return e.CreatedAt })
	return page, total, nil
}

type announcementRepo struct{ s *Store }

func (r *announcementRepo) CreateAnnouncement(_ context.Context, a *models.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stamp(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	r.s.Announcements[a.ID] = *a
	return nil
}

func (r *announcementRepo) GetAnnouncementByID(_ context.Context, id uuid.UUID) (*models.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.Announcements[id]
	if !ok {
		return nil, notFound("get announcement")
	}
	return &a, nil
}

func (r *announcementRepo) UpdateAnnouncement(_ context.Context, a *models.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Announcements[a.ID]; !ok {
		return notFound("update announcement")
	}
	r.s.stamp(&a.ID, nil, &a.UpdatedAt)
	r.s.Announcements[a.ID] = *a
	return nil
}

func (r *announcementRepo) DeleteAnnouncement(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Announcements[id]; !ok {
		return notFound("delete announcement")
	}
	delete(r.s.Announcements, id)
	return nil
}

func (r *announcementRepo) ListAnnouncements(_ context.Context, filters repositories.AnnouncementFilters, params repositories.ListParams) ([]models.Announcement, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Announcement
	for _, a := range r.s.Announcements {
		if filters.PublishedOnly && !a.IsPublished {
			continue
		}
		if filters.EventID != nil && (a.EventID == nil || *a.EventID != *filters.EventID) {
			continue
		}
		if !contains(params.Search, a.Title, a.Body) {
			continue
		}
		out = append(out, a)
	}
	page, total := paginate(out, params, func(a models.Announcement) time.Time { return a.CreatedAt })
	return page, total, nil
}
