package repotest

import (
	"context"
	"strings"
	"time"

	"kalam-backend/internal/models"
	"kalam-backend/internal/repositories"

	"github.com/google/uuid"
)

type userRepo struct{ s *Store }

func (r *userRepo) CreateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	if err := r.unique(user); err != nil {
		return err
	}
	r.s.stamp(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	r.s.Users[user.ID] = *user
	return nil
}

func (r *userRepo) unique(user *models.User) error {
	for _, u := range r.s.Users {
		if u.ID == user.ID {
			continue
		}
		if u.Email == user.Email {
			return duplicate("users.email")
		}
		if user.Phone != nil && u.Phone != nil && *u.Phone == *user.Phone {
			return duplicate("users.phone")
		}
	}
	return nil
}

func (r *userRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.Users[id]
	if !ok {
		return nil, notFound("get user")
	}
	return &u, nil
}

func (r *userRepo) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range r.s.Users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, notFound("get user by email")
}

func (r *userRepo) UpdateUser(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Users[user.ID]; !ok {
		return notFound("update user")
	}
	if err := r.unique(user); err != nil {
		return err
	}
	r.s.stamp(&user.ID, nil, &user.UpdatedAt)
	r.s.Users[user.ID] = *user
	return nil
}

func (r *userRepo) DeleteUser(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Users[id]; !ok {
		return notFound("delete user")
	}
	delete(r.s.Users, id)
	return nil
}

func (r *userRepo) ListUsers(_ context.Context, params repositories.ListParams) ([]models.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.User
	for _, u := range r.s.Users {
		if contains(params.Search, u.Name, u.Email, u.College) {
			out = append(out, u)
		}
	}
	page, total := paginate(out, params, func(u models.User) time.Time { return u.CreatedAt })
	return page, total, nil
}

func (r *userRepo) IncrementTokenVersion(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.Users[id]
	if !ok {
		return nil
	}
	u.TokenVersion++
	r.s.Users[id] = u
	return nil
}

func (r *userRepo) MarkEntryFeePaid(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.Users[id]
	if !ok {
		return nil
	}
	u.EntryFeePaid = true
	r.s.Users[id] = u
	return nil
}

type adminRepo struct{ s *Store }

func (r *adminRepo) unique(admin *models.Admin) error {
	for _, a := range r.s.Admins {
		if a.ID == admin.ID {
			continue
		}
		if a.Email == admin.Email {
			return duplicate("admins.email")
		}
		if admin.DepartmentID != nil && a.DepartmentID != nil &&
			*a.DepartmentID == *admin.DepartmentID && a.Role == admin.Role {
			return duplicate("admins.department_role")
		}
	}
	return nil
}

// hydrate resolves the Department and AssignedEvents relations from the store.
func (r *adminRepo) hydrate(a models.Admin) models.Admin {
	if a.DepartmentID != nil {
		if d, ok := r.s.Departments[*a.DepartmentID]; ok {
			a.Department = &d
		}
	}
	events := make([]models.Event, 0, len(a.AssignedEvents))
	for _, e := range a.AssignedEvents {
		if full, ok := r.s.Events[e.ID]; ok {
			events = append(events, full)
			continue
		}
		events = append(events, e)
	}
	a.AssignedEvents = events
	return a
}

func (r *adminRepo) CreateAdmin(_ context.Context, admin *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	admin.Email = strings.ToLower(admin.Email)
	if err := r.unique(admin); err != nil {
		return err
	}
	r.s.stamp(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
	stored := *admin
	stored.Department = nil
	r.s.Admins[admin.ID] = stored
	return nil
}

func (r *adminRepo) GetAdminByID(_ context.Context, id uuid.UUID) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.Admins[id]
	if !ok {
		return nil, notFound("get admin")
	}
	a = r.hydrate(a)
	return &a, nil
}

func (r *adminRepo) GetAdminByEmail(_ context.Context, email string) (*models.Admin, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email = strings.ToLower(email)
	for _, a := range r.s.Admins {
		if a.Email == email {
			a = r.hydrate(a)
			return &a, nil
		}
	}
	return nil, notFound("get admin by email")
}

func (r *adminRepo) UpdateAdmin(_ context.Context, admin *models.Admin) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Admins[admin.ID]; !ok {
		return notFound("update admin")
	}
	if err := r.unique(admin); err != nil {
		return err
	}
	r.s.stamp(&admin.ID, nil, &admin.UpdatedAt)
	stored := *admin
	stored.Department = nil
	r.s.Admins[admin.ID] = stored
	return nil
}

func (r *adminRepo) DeleteAdmin(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.Admins[id]; !ok {
		return notFound("delete admin")
	}
	delete(r.s.Admins, id)
	return nil
}

func (r *adminRepo) ListAdmins(_ context.Context, params repositories.ListParams) ([]models.Admin, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var out []models.Admin
	for _, a := range r.s.Admins {
		if contains(params.Search, a.Name, a.Email) {
			out = append(out, r.hydrate(a))
		}
	}
	page, total := paginate(out, params, func(a models.Admin) time.Time { return a.CreatedAt })
	return page, total, nil
}

func (r *adminRepo) IncrementTokenVersion(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.Admins[id]
	if !ok {
		return nil
	}
	a.TokenVersion++
	r.s.Admins[id] = a
	return nil
}

func (r *adminRepo) RenameRoles(_ context.Context, mapping map[string]string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var changed int64
	for id, a := range r.s.Admins {
		to, ok := mapping[a.Role]
		if !ok {
			continue
		}
		a.Role = to
		a.TokenVersion++
		r.s.Admins[id] = a
		changed++
	}
	return changed, nil
}

type passwordResetRepo struct{ s *Store }

func (r *passwordResetRepo) CreatePasswordReset(_ context.Context, reset *models.PasswordReset) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.Resets {
		if existing.TokenHash == reset.TokenHash {
			return duplicate("password_resets.token_hash")
		}
	}
	r.s.stamp(&reset.ID, &reset.CreatedAt, nil)
	r.s.Resets[reset.ID] = *reset
	return nil
}

func (r *passwordResetRepo) GetPasswordResetByTokenHash(_ context.Context, tokenHash string) (*models.PasswordReset, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, reset := range r.s.Resets {
		if reset.TokenHash == tokenHash {
			return &reset, nil
		}
	}
	return nil, notFound("get password reset")
}

func (r *passwordResetRepo) MarkPasswordResetUsed(_ context.Context, id uuid.UUID, usedAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	reset, ok := r.s.Resets[id]
	if !ok || reset.UsedAt != nil {
		return false, nil
	}
	reset.UsedAt = &usedAt
	r.s.Resets[id] = reset
	return true, nil
}
