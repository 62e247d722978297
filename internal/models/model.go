package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type User struct {
	ID           uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone        *string   `gorm:"index:idx_users_phone,unique,where:phone IS NOT NULL" json:"phone,omitempty"`
	College      string    `json:"college"`
	Password     string    `gorm:"not null" json:"-"`
	Role         string    `gorm:"type:varchar(20);not null;default:'user'" json:"role"` // user|admin
	EntryFeePaid bool      `gorm:"not null;default:false" json:"entryFeePaid"`
	TokenVersion int       `gorm:"not null;default:0" json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type Department struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Code        string    `gorm:"uniqueIndex;not null" json:"code"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type EventCategory struct {
	ID          uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug        string    `gorm:"uniqueIndex;not null" json:"slug"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type Event struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Name         string     `gorm:"not null" json:"name"`
	Slug         string     `gorm:"uniqueIndex;not null" json:"slug"`
	Description  string     `gorm:"type:text" json:"description"`
	CategoryID   uuid.UUID  `gorm:"type:uuid;index;not null" json:"categoryId"`
	DepartmentID *uuid.UUID `gorm:"type:uuid;index" json:"departmentId,omitempty"`
	StartsAt     time.Time  `json:"startsAt"`
	EndsAt       time.Time  `json:"endsAt"`
	Venue        string     `json:"venue"`
	Fee          int64      `gorm:"not null;default:0" json:"fee"`
	RequiresTeam bool       `gorm:"not null;default:false" json:"requiresTeam"`
	MinTeamSize  *int       `json:"minTeamSize,omitempty"`
	MaxTeamSize  *int       `json:"maxTeamSize,omitempty"`
	IsActive     bool       `gorm:"not null;default:true" json:"isActive"`
	PosterPath   string     `json:"posterPath,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`

	Category   *EventCategory `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Department *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
}

// TeamBoundsValid reports whether the team-size fields satisfy the
// requiresTeam invariant.
func (e *Event) TeamBoundsValid() bool {
	if !e.RequiresTeam {
		return true
	}
	if e.MinTeamSize == nil || e.MaxTeamSize == nil {
		return false
	}
	return *e.MinTeamSize >= 1 && *e.MinTeamSize <= *e.MaxTeamSize
}

type CartItem struct {
	EventID   uuid.UUID  `json:"eventId"`
	EventName string     `json:"eventName"`
	Price     int64      `json:"price"`
	TeamID    *uuid.UUID `json:"teamId,omitempty"`
}

type Cart struct {
	ID        uuid.UUID                     `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID                     `gorm:"type:uuid;uniqueIndex;not null" json:"userId"`
	Items     datatypes.JSONSlice[CartItem] `gorm:"type:jsonb;not null" json:"items"`
	Total     int64                         `gorm:"not null;default:0" json:"total"`
	CreatedAt time.Time                     `json:"createdAt"`
	UpdatedAt time.Time                     `json:"updatedAt"`
}

// HasEvent reports whether the cart already holds eventID.
func (c *Cart) HasEvent(eventID uuid.UUID) bool {
	for _, item := range c.Items {
		if item.EventID == eventID {
			return true
		}
	}
	return false
}

// Recalculate refreshes Total from the item prices.
func (c *Cart) Recalculate() {
	var total int64
	for _, item := range c.Items {
		total += item.Price
	}
	c.Total = total
}

type Team struct {
	ID        uuid.UUID                       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	EventID   uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_teams_event_leader" json:"eventId"`
	LeaderID  uuid.UUID                       `gorm:"type:uuid;not null;uniqueIndex:idx_teams_event_leader" json:"leaderId"`
	Name      string                          `gorm:"not null" json:"name"`
	Members   datatypes.JSONSlice[TeamMember] `gorm:"type:jsonb;not null" json:"members"`
	CreatedAt time.Time                       `json:"createdAt"`
	UpdatedAt time.Time                       `json:"updatedAt"`
}

type TeamMember struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// Size counts the leader together with the listed members.
func (t *Team) Size() int {
	return len(t.Members) + 1
}

type Announcement struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Body        string     `gorm:"type:text;not null" json:"body"`
	EventID     *uuid.UUID `gorm:"type:uuid;index" json:"eventId,omitempty"`
	IsPublished bool       `gorm:"not null;default:false;index" json:"isPublished"`
	AuthorID    uuid.UUID  `gorm:"type:uuid;not null" json:"authorId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type PasswordReset struct {
	ID        uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"userId"`
	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expiresAt"`
	UsedAt    *time.Time `json:"usedAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}
