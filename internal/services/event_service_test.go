package services

import (
	"context"
	"testing"

	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	mustreq "github.com/stretchr/testify/require"
)

func TestEventService_ListEventsFuzzy(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.event(t, "Hackathon", 300)
	f.event(t, "Hack Night", 100)
	f.event(t, "Quiz", 50)
	f.event(t, "Hidden Hack", 50, func(e *models.Event) { e.IsActive = false })

	events, total, err := f.events.ListEvents(ctx, EventQuery{Q: "hck"}, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, e := range events {
		assert.Contains(t, e.Name, "Hack")
	}

	_, total, err = f.events.ListEvents(ctx, EventQuery{}, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 3, total)

	page, total, err := f.events.ListEvents(ctx, EventQuery{Q: "hack"}, repositories.ListParams{Page: 2, Limit: 1})
	mustreq.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, page, 1)
}

func TestEventService_ListEventsFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cse := f.department(t, "CSE")
	f.event(t, "Hackathon", 300, inDepartment(cse.ID))
	f.event(t, "Hack Night", 100)

	events, total, err := f.events.ListEvents(ctx, EventQuery{Q: "hack", DepartmentID: &cse.ID}, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Hackathon", events[0].Name)
}

func TestEventService_GetEventCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.event(t, "Quiz", 50)

	bySlug, err := f.events.GetEvent(ctx, e.Slug)
	mustreq.NoError(t, err)
	assert.Equal(t, e.ID, bySlug.ID)

	// Served from cache until invalidated.
	delete(f.store.Events, e.ID)
	byID, err := f.events.GetEvent(ctx, e.ID.String())
	mustreq.NoError(t, err)
	assert.Equal(t, "Quiz", byID.Name)

	f.events.Invalidate()
	_, err = f.events.GetEvent(ctx, e.Slug)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestEventService_InactiveEventIsHidden(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, "Closed", 50, func(e *models.Event) { e.IsActive = false })

	_, err := f.events.GetEvent(context.Background(), e.Slug)
	assert.Equal(t, CodeNotFound, ErrorCode(err))
}

func TestEventService_PublishedAnnouncementsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	root := f.superadmin(t)

	mustreq.NoError(t, f.repo.AnnouncementRepo.CreateAnnouncement(ctx, &models.Announcement{Title: "Live", Body: "b", IsPublished: true, AuthorID: root.ID}))
	mustreq.NoError(t, f.repo.AnnouncementRepo.CreateAnnouncement(ctx, &models.Announcement{Title: "Draft", Body: "b", AuthorID: root.ID}))

	items, total, err := f.events.ListAnnouncements(ctx, nil, repoPage())
	mustreq.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Live", items[0].Title)
}
