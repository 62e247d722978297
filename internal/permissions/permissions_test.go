package permissions

import (
	"testing"

	"kalam-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		role     string
		resource Resource
		action   Action
		want     bool
	}{
		{models.AdminRoleSuperadmin, Admins, Delete, true},
		{models.AdminRoleSuperadmin, Payments, Update, true},
		{models.AdminRoleSuperadmin, Orders, Delete, false},
		{models.AdminRoleDepartmentManager, Events, Create, true},
		{models.AdminRoleDepartmentManager, Admins, Read, false},
		{models.AdminRoleDepartmentManager, Payments, Update, false},
		{models.AdminRoleDepartmentManager, Registrations, Delete, false},
		{models.AdminRoleEventManager, Events, Update, true},
		{models.AdminRoleEventManager, Events, Create, false},
		{models.AdminRoleEventManager, Payments, Read, false},
		{models.AdminRoleEventManager, Announcements, Create, false},
		{"super_admin", Users, Read, false},
		{"", Stats, Read, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+string(tt.resource)+"/"+string(tt.action), func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.role, tt.resource, tt.action))
		})
	}
}

func TestContext_Scope(t *testing.T) {
	dept := uuid.New()
	other := uuid.New()
	assigned := uuid.New()

	inDept := &models.Event{ID: uuid.New(), DepartmentID: &dept}
	outside := &models.Event{ID: uuid.New(), DepartmentID: &other}
	assignedEvent := &models.Event{ID: assigned, DepartmentID: &other}

	super := NewContext(&models.Admin{Role: models.AdminRoleSuperadmin})
	assert.True(t, super.Scope().All)
	assert.NoError(t, super.RequireEvent(Events, Delete, outside))

	deptMgr := NewContext(&models.Admin{Role: models.AdminRoleDepartmentManager, DepartmentID: &dept})
	assert.NoError(t, deptMgr.RequireEvent(Events, Update, inDept))
	assert.ErrorIs(t, deptMgr.RequireEvent(Events, Update, outside), ErrForbidden)

	eventMgr := NewContext(&models.Admin{
		Role:           models.AdminRoleEventManager,
		DepartmentID:   &dept,
		AssignedEvents: []models.Event{{ID: assigned}},
	})
	assert.NoError(t, eventMgr.RequireEvent(Registrations, Update, assignedEvent))
	assert.ErrorIs(t, eventMgr.RequireEvent(Registrations, Update, inDept), ErrForbidden)
	assert.ErrorIs(t, eventMgr.RequireEvent(Events, Delete, assignedEvent), ErrForbidden)

	nobody := NewContext(&models.Admin{Role: "unknown"})
	assert.False(t, nobody.Scope().Contains(inDept))
}

func TestLegacyRolesMapToValidRoles(t *testing.T) {
	for legacy, current := range LegacyRoles {
		assert.True(t, models.IsValidAdminRole(current), legacy)
		assert.False(t, models.IsValidAdminRole(legacy), legacy)
	}
}
