package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"

	"kalam-backend/internal/config"
	"kalam-backend/internal/models"
	"kalam-backend/internal/notify"
	"kalam-backend/internal/repositories"
	"kalam-backend/internal/tokens"
	"kalam-backend/internal/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const passwordResetTTL = time.Hour

type AuthService struct {
	repo     *repositories.Repository
	cfg      *config.Config
	issuer   *tokens.Issuer
	notifier notify.Publisher
	now      func() time.Time
}

func NewAuthService(repo *repositories.Repository, cfg *config.Config, issuer *tokens.Issuer, notifier notify.Publisher) *AuthService {
	return &AuthService{
		repo:     repo,
		cfg:      cfg,
		issuer:   issuer,
		notifier: notifier,
		now:      time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Phone    string
	College  string
	Password string
}

type LoginResult struct {
	User   *models.User `json:"user"`
	Tokens *tokens.Pair `json:"tokens"`
}

type AdminLoginResult struct {
	Admin  *models.Admin `json:"admin"`
	Tokens *tokens.Pair  `json:"tokens"`
}

type UpdateProfileInput struct {
	Name            *string
	Phone           *string
	College         *string
	CurrentPassword string
	NewPassword     string
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)

	if _, err := s.repo.UserRepo.GetUserByEmail(ctx, email); err == nil {
		return nil, newError(CodeDuplicateEmail, "Email is already registered")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, internalError(err)
	}

	hashed, err := utils.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, internalError(err)
	}

	user := &models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Phone:    optionalString(in.Phone),
		College:  strings.TrimSpace(in.College),
		Password: hashed,
		Role:     models.RoleUser,
	}

	if err := s.repo.UserRepo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, s.duplicateAccount(ctx, email)
		}
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "email": user.Email}).Info("user registered")
	return user, nil
}

// duplicateAccount tells an email clash from a phone clash after the insert
// was rejected.
func (s *AuthService) duplicateAccount(ctx context.Context, email string) error {
	if _, err := s.repo.UserRepo.GetUserByEmail(ctx, email); err == nil {
		return newError(CodeDuplicateEmail, "Email is already registered")
	}
	return newError(CodeDuplicatePhone, "Phone number is already registered")
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.repo.UserRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, internalError(err)
		}
		utils.BurnPasswordCheck(password)
		return nil, newError(CodeInvalidCreds, "Invalid email or password")
	}

	if err := utils.CheckPassword(password, user.Password); err != nil {
		return nil, newError(CodeInvalidCreds, "Invalid email or password")
	}

	pair, err := s.issuer.Issue(userIdentity(user))
	if err != nil {
		return nil, internalError(err)
	}

	logrus.WithField("user_id", user.ID).Info("user logged in")
	return &LoginResult{User: user, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. Tokens minted before the
// last logout or password change carry a stale version and are rejected.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*tokens.Pair, error) {
	claims, err := s.issuer.ParseRefresh(refreshToken)
	if err != nil {
		return nil, newError(CodeInvalidToken, "Invalid or expired token")
	}

	switch claims.Subject {
	case tokens.SubjectAdmin:
		admin, err := s.ResolveAdmin(ctx, claims.UserID(), claims.Version)
		if err != nil {
			return nil, err
		}
		pair, err := s.issuer.Issue(adminIdentity(admin))
		if err != nil {
			return nil, internalError(err)
		}
		return pair, nil
	default:
		user, err := s.ResolveUser(ctx, claims.UserID(), claims.Version)
		if err != nil {
			return nil, err
		}
		pair, err := s.issuer.Issue(userIdentity(user))
		if err != nil {
			return nil, internalError(err)
		}
		return pair, nil
	}
}

// ResolveUser loads the user behind a session or token and checks that the
// credential has not been revoked.
func (s *AuthService) ResolveUser(ctx context.Context, id uuid.UUID, version int) (*models.User, error) {
	user, err := s.repo.UserRepo.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeInvalidToken, "Invalid or expired token")
		}
		return nil, internalError(err)
	}
	if user.TokenVersion != version {
		return nil, newError(CodeInvalidToken, "Invalid or expired token")
	}
	return user, nil
}

func (s *AuthService) ResolveAdmin(ctx context.Context, id uuid.UUID, version int) (*models.Admin, error) {
	admin, err := s.repo.AdminRepo.GetAdminByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(CodeInvalidToken, "Invalid or expired token")
		}
		return nil, internalError(err)
	}
	if admin.TokenVersion != version {
		return nil, newError(CodeInvalidToken, "Invalid or expired token")
	}
	return admin, nil
}

func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.repo.UserRepo.IncrementTokenVersion(ctx, userID); err != nil {
		return fromRepo(err, "User")
	}
	logrus.WithField("user_id", userID).Info("user logged out")
	return nil
}

func (s *AuthService) Me(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "User")
	}
	return user, nil
}

func (s *AuthService) UpdateMe(ctx context.Context, userID uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	user, err := s.repo.UserRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fromRepo(err, "User")
	}

	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		user.Phone = optionalString(*in.Phone)
	}
	if in.College != nil {
		user.College = strings.TrimSpace(*in.College)
	}

	passwordChanged := false
	if in.NewPassword != "" {
		if in.CurrentPassword == "" {
			return nil, validationError("currentPassword", "currentPassword is required to change the password")
		}
		if err := utils.CheckPassword(in.CurrentPassword, user.Password); err != nil {
			return nil, newError(CodeInvalidCreds, "Current password is incorrect")
		}
		if user.Password, err = utils.HashPassword(in.NewPassword, s.cfg.BcryptCost); err != nil {
			return nil, internalError(err)
		}
		user.TokenVersion++
		passwordChanged = true
	}

	if err := s.repo.UserRepo.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(CodeDuplicatePhone, "Phone number is already registered")
		}
		return nil, internalError(err)
	}

	if passwordChanged {
		logrus.WithField("user_id", user.ID).Info("password changed")
	}
	return user, nil
}

// ForgotPassword stores a one-time reset token and mails the link. It returns
// nil for unknown emails too so the endpoint cannot be used to probe accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repo.UserRepo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil
		}
		return internalError(err)
	}

	raw, err := randomToken()
	if err != nil {
		return internalError(err)
	}

	reset := &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: hashToken(raw),
		ExpiresAt: s.now().Add(passwordResetTTL),
	}
	if err := s.repo.PasswordRepo.CreatePasswordReset(ctx, reset); err != nil {
		return internalError(err)
	}

	publish(ctx, s.notifier, notify.Message{
		Type: notify.TypePasswordReset,
		To:   user.Email,
		Name: user.Name,
		Data: map[string]string{
			"link":      s.resetLink(raw),
			"expiresIn": passwordResetTTL.String(),
		},
	})
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	reset, err := s.repo.PasswordRepo.GetPasswordResetByTokenHash(ctx, hashToken(token))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return newError(CodeInvalidToken, "Invalid or expired token")
		}
		return internalError(err)
	}

	now := s.now()
	if reset.UsedAt != nil || !now.Before(reset.ExpiresAt) {
		return newError(CodeInvalidToken, "Invalid or expired token")
	}

	user, err := s.repo.UserRepo.GetUserByID(ctx, reset.UserID)
	if err != nil {
		return fromRepo(err, "User")
	}
	hashed, err := utils.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return internalError(err)
	}

	return s.repo.Transaction(ctx, func(tx *repositories.Repository) error {
		claimed, err := tx.PasswordRepo.MarkPasswordResetUsed(ctx, reset.ID, now)
		if err != nil {
			return internalError(err)
		}
		if !claimed {
			return newError(CodeInvalidToken, "Invalid or expired token")
		}

		user.Password = hashed
		user.TokenVersion++
		if err := tx.UserRepo.UpdateUser(ctx, user); err != nil {
			return internalError(err)
		}
		logrus.WithField("user_id", user.ID).Info("password reset")
		return nil
	})
}

func (s *AuthService) AdminLogin(ctx context.Context, email, password string) (*AdminLoginResult, error) {
	admin, err := s.repo.AdminRepo.GetAdminByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, repositories.ErrNotFound) {
			return nil, internalError(err)
		}
		utils.BurnPasswordCheck(password)
		return nil, newError(CodeInvalidCreds, "Invalid email or password")
	}

	if err := utils.CheckPassword(password, admin.Password); err != nil {
		return nil, newError(CodeInvalidCreds, "Invalid email or password")
	}
	if !models.IsValidAdminRole(admin.Role) {
		logrus.WithFields(logrus.Fields{"admin_id": admin.ID, "role": admin.Role}).Warn("admin has an unmigrated role")
		return nil, newError(CodeForbidden, "Account role is not recognised; run the role migration")
	}

	pair, err := s.issuer.Issue(adminIdentity(admin))
	if err != nil {
		return nil, internalError(err)
	}

	logrus.WithFields(logrus.Fields{"admin_id": admin.ID, "role": admin.Role}).Info("admin logged in")
	return &AdminLoginResult{Admin: admin, Tokens: pair}, nil
}

func (s *AuthService) AdminLogout(ctx context.Context, adminID uuid.UUID) error {
	if err := s.repo.AdminRepo.IncrementTokenVersion(ctx, adminID); err != nil {
		return fromRepo(err, "Admin")
	}
	return nil
}

func (s *AuthService) AdminMe(ctx context.Context, adminID uuid.UUID) (*models.Admin, error) {
	admin, err := s.repo.AdminRepo.GetAdminByID(ctx, adminID)
	if err != nil {
		return nil, fromRepo(err, "Admin")
	}
	return admin, nil
}

func (s *AuthService) resetLink(token string) string {
	base := s.cfg.FrontendURL
	if base == "" {
		base = s.cfg.PublicBaseURL
	}
	return strings.TrimRight(base, "/") + "/reset-password?token=" + url.QueryEscape(token)
}

func userIdentity(user *models.User) tokens.Identity {
	return tokens.Identity{
		ID:      user.ID,
		Email:   user.Email,
		Role:    user.Role,
		Subject: tokens.SubjectUser,
		Version: user.TokenVersion,
	}
}

func adminIdentity(admin *models.Admin) tokens.Identity {
	return tokens.Identity{
		ID:      admin.ID,
		Email:   admin.Email,
		Role:    admin.Role,
		Subject: tokens.SubjectAdmin,
		Version: admin.TokenVersion,
	}
}

func normalizeEmail(email string) string {
	return strings.TrimSpace(strings.ToLower(email))
}

func optionalString(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
