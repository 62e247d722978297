// Package permissions resolves what an admin may do. Capabilities are a
// static table over (resource, action) per role; event-linked resources are
// further narrowed by the admin's department or assigned events.
package permissions

import (
	"errors"

	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
)

type Resource string

const (
	Users         Resource = "users"
	Admins        Resource = "admins"
	Departments   Resource = "departments"
	Categories    Resource = "categories"
	Events        Resource = "events"
	Orders        Resource = "orders"
	Payments      Resource = "payments"
	Registrations Resource = "registrations"
	Teams         Resource = "teams"
	Announcements Resource = "announcements"
	Stats         Resource = "stats"
)

type Action string

const (
	Create Action = "create"
	Read   Action = "read"
	Update Action = "update"
	Delete Action = "delete"
)

var ErrForbidden = errors.New("forbidden")

var (
	crud      = []Action{Create, Read, Update, Delete}
	readOnly  = []Action{Read}
	readWrite = []Action{Read, Update}
)

var table = map[string]map[Resource][]Action{
	models.AdminRoleSuperadmin: {
		Users:         crud,
		Admins:        crud,
		Departments:   crud,
		Categories:    crud,
		Events:        crud,
		Orders:        readWrite,
		Payments:      readWrite,
		Registrations: crud,
		Teams:         readOnly,
		Announcements: crud,
		Stats:         readOnly,
	},
	models.AdminRoleDepartmentManager: {
		Users:         readOnly,
		Departments:   readOnly,
		Categories:    readOnly,
		Events:        crud,
		Orders:        readOnly,
		Payments:      readOnly,
		Registrations: readWrite,
		Teams:         readOnly,
		Announcements: crud,
		Stats:         readOnly,
	},
	models.AdminRoleEventManager: {
		Users:         readOnly,
		Departments:   readOnly,
		Categories:    readOnly,
		Events:        readWrite,
		Orders:        readOnly,
		Registrations: readWrite,
		Teams:         readOnly,
		Announcements: readOnly,
		Stats:         readOnly,
	},
}

// LegacyRoles maps role strings written by earlier releases onto the
// current ones.
var LegacyRoles = map[string]string{
	"super_admin":      models.AdminRoleSuperadmin,
	"admin":            models.AdminRoleSuperadmin,
	"department_admin": models.AdminRoleDepartmentManager,
	"dept_admin":       models.AdminRoleDepartmentManager,
	"event_admin":      models.AdminRoleEventManager,
	"coordinator":      models.AdminRoleEventManager,
}

// Allowed reports whether role may perform action on resource.
func Allowed(role string, resource Resource, action Action) bool {
	for _, a := range table[role][resource] {
		if a == action {
			return true
		}
	}
	return false
}

// Context is the resolved caller of an admin request.
type Context struct {
	AdminID      uuid.UUID
	Role         string
	DepartmentID *uuid.UUID
	EventIDs     []uuid.UUID
}

func NewContext(admin *models.Admin) *Context {
	return &Context{
		AdminID:      admin.ID,
		Role:         admin.Role,
		DepartmentID: admin.DepartmentID,
		EventIDs:     admin.AssignedEventIDs(),
	}
}

func (c *Context) IsSuperadmin() bool {
	return c.Role == models.AdminRoleSuperadmin
}

func (c *Context) Can(resource Resource, action Action) bool {
	return Allowed(c.Role, resource, action)
}

func (c *Context) Require(resource Resource, action Action) error {
	if !c.Can(resource, action) {
		return ErrForbidden
	}
	return nil
}

// Scope is the event restriction applied to event-linked listings.
func (c *Context) Scope() repositories.EventScope {
	switch c.Role {
	case models.AdminRoleSuperadmin:
		return repositories.EventScope{All: true}
	case models.AdminRoleDepartmentManager:
		return repositories.EventScope{DepartmentID: c.DepartmentID}
	case models.AdminRoleEventManager:
		return repositories.EventScope{EventIDs: c.EventIDs}
	}
	return repositories.EventScope{}
}

// RequireEvent checks the capability and that event lies inside the scope.
func (c *Context) RequireEvent(resource Resource, action Action, event *models.Event) error {
	if err := c.Require(resource, action); err != nil {
		return err
	}
	if !c.Scope().Contains(event) {
		return ErrForbidden
	}
	return nil
}
