package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AdminRoleSuperadmin        = "superadmin"
	AdminRoleEventManager      = "event_manager"
	AdminRoleDepartmentManager = "department_manager"
)

// Admin is a back-office account, separate from participant users. The
// (department_id, role) index keeps one manager of each kind per department;
// superadmins have no department so NULLs never collide.
type Admin struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	Password     string     `gorm:"not null" json:"-"`
	Role         string     `gorm:"type:varchar(32);not null;uniqueIndex:idx_admins_department_role" json:"role"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_admins_department_role" json:"departmentId,omitempty"`
	TokenVersion int        `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Department     *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	AssignedEvents []Event     `gorm:"many2many:admin_events;" json:"assignedEvents,omitempty"`
}

func IsValidAdminRole(role string) bool {
	switch role {
	case AdminRoleSuperadmin, AdminRoleEventManager, AdminRoleDepartmentManager:
		return true
	}
	return false
}

// AssignedEventIDs returns the ids of AssignedEvents.
func (a *Admin) AssignedEventIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(a.AssignedEvents))
	for _, e := range a.AssignedEvents {
		ids = append(ids, e.ID)
	}
	return ids
}
