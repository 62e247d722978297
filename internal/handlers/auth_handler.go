package handlers

import (
	"kalam-backend/internal/middleware"
	"kalam-backend/internal/models"
	"kalam-backend/internal/services"
	"kalam-backend/internal/session"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,min=10,max=15"`
	College  string `json:"college" validate:"max=200"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type UpdateMeRequest struct {
	Name            *string `json:"name" validate:"omitempty,min=2,max=100"`
	Phone           *string `json:"phone" validate:"omitempty,min=10,max=15"`
	College         *string `json:"college" validate:"omitempty,max=200"`
	CurrentPassword string  `json:"currentPassword"`
	NewPassword     string  `json:"newPassword" validate:"omitempty,min=8,max=72"`
}

// Register creates a participant account
// @Summary Register
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RegisterRequest true "Account details"
// @Success 201 {object} utils.Response
// @Failure 400 {object} utils.Response
// @Failure 409 {object} utils.Response
// @Router /auth/register [post]
func (h *Handler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	user, err := h.authSvc.Register(c.UserContext(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		College:  req.College,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	return utils.Success(c, user, "Registration successful", fiber.StatusCreated)
}

// Login issues a token pair and sets the session cookie
// @Summary Login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} utils.Response
// @Failure 401 {object} utils.Response
// @Router /auth/login [post]
func (h *Handler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	result, err := h.authSvc.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if err := h.sessions.Set(c, session.UserCookie, userSession(result.User)); err != nil {
		return err
	}

	return utils.Success(c, result, "Login successful")
}

// @Summary Refresh tokens
// @Tags Auth
// @Router /auth/refresh [post]
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req RefreshRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	pair, err := h.authSvc.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return err
	}

	return utils.Success(c, pair, "Token refreshed")
}

// Logout revokes every outstanding token of the caller.
// @Summary Logout
// @Tags Auth
// @Security BearerAuth
// @Router /auth/logout [post]
func (h *Handler) Logout(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	if err := h.authSvc.Logout(c.UserContext(), userID); err != nil {
		return err
	}
	h.sessions.Clear(c, session.UserCookie)

	return utils.Success(c, nil, "Logged out")
}

// ForgotPassword always answers 200 so the endpoint cannot be used to probe
// for accounts.
// @Summary Request a password reset link
// @Tags Auth
// @Router /auth/forgot-password [post]
func (h *Handler) ForgotPassword(c *fiber.Ctx) error {
	var req ForgotPasswordRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	if err := h.authSvc.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}

	return utils.Success(c, nil, "If the email is registered, a reset link has been sent")
}

// @Summary Reset password
// @Tags Auth
// @Router /auth/reset-password [post]
func (h *Handler) ResetPassword(c *fiber.Ctx) error {
	var req ResetPasswordRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	if err := h.authSvc.ResetPassword(c.UserContext(), req.Token, req.Password); err != nil {
		return err
	}

	return utils.Success(c, nil, "Password has been reset")
}

// @Summary Current user
// @Tags Users
// @Security BearerAuth
// @Router /users/me [get]
func (h *Handler) GetMe(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	user, err := h.authSvc.Me(c.UserContext(), userID)
	if err != nil {
		return err
	}

	return utils.Success(c, user, "Profile retrieved")
}

// @Summary Update current user
// @Tags Users
// @Security BearerAuth
// @Router /users/me [patch]
func (h *Handler) UpdateMe(c *fiber.Ctx) error {
	userID, err := middleware.UserID(c)
	if err != nil {
		return err
	}

	var req UpdateMeRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	user, err := h.authSvc.UpdateMe(c.UserContext(), userID, services.UpdateProfileInput{
		Name:            req.Name,
		Phone:           req.Phone,
		College:         req.College,
		CurrentPassword: req.CurrentPassword,
		NewPassword:     req.NewPassword,
	})
	if err != nil {
		return err
	}

	// A password change bumps the token version; the cookie must follow.
	if req.NewPassword != "" {
		if err := h.sessions.Set(c, session.UserCookie, userSession(user)); err != nil {
			return err
		}
	}

	return utils.Success(c, user, "Profile updated")
}

// @Summary Admin login
// @Tags Admin Auth
// @Router /admin/auth/login [post]
func (h *Handler) AdminLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := middleware.BindBody(c, &req); err != nil {
		return err
	}

	result, err := h.authSvc.AdminLogin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	if err := h.sessions.Set(c, session.AdminCookie, adminSession(result.Admin)); err != nil {
		return err
	}

	return utils.Success(c, result, "Login successful")
}

// @Summary Admin logout
// @Tags Admin Auth
// @Router /admin/auth/logout [post]
func (h *Handler) AdminLogout(c *fiber.Ctx) error {
	admin := middleware.CurrentAdmin(c)
	if admin == nil {
		return &services.Error{Code: services.CodeUnauthorized, Message: "Admin not authenticated"}
	}

	if err := h.authSvc.AdminLogout(c.UserContext(), admin.ID); err != nil {
		return err
	}
	h.sessions.Clear(c, session.AdminCookie)

	return utils.Success(c, nil, "Logged out")
}

// @Summary Current admin
// @Tags Admin Auth
// @Router /admin/auth/me [get]
func (h *Handler) AdminMe(c *fiber.Ctx) error {
	admin := middleware.CurrentAdmin(c)
	if admin == nil {
		return &services.Error{Code: services.CodeUnauthorized, Message: "Admin not authenticated"}
	}

	me, err := h.authSvc.AdminMe(c.UserContext(), admin.ID)
	if err != nil {
		return err
	}

	return utils.Success(c, me, "Profile retrieved")
}

func userSession(user *models.User) *session.Data {
	return &session.Data{
		UserID:       user.ID.String(),
		Email:        user.Email,
		Name:         user.Name,
		Role:         user.Role,
		TokenVersion: user.TokenVersion,
	}
}

func adminSession(admin *models.Admin) *session.Data {
	return &session.Data{
		UserID:       admin.ID.String(),
		Email:        admin.Email,
		Name:         admin.Name,
		Role:         admin.Role,
		TokenVersion: admin.TokenVersion,
	}
}
