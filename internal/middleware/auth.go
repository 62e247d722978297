package middleware

import (
	"context"
	"errors"

	"kalam-backend/internal/models"
	"kalam-backend/internal/permissions"
	"kalam-backend/internal/services"
	"kalam-backend/internal/session"
	"kalam-backend/internal/tokens"
	"kalam-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	jwtware "github.com/gofiber/jwt/v3"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const (
	localToken   = "jwt"
	localUserID  = "user_id"
	localUser    = "user"
	localAdmin   = "admin"
	localPermCtx = "permissions"
)

// AccountResolver loads the account behind a credential and rejects revoked
// token versions.
type AccountResolver interface {
	ResolveUser(ctx context.Context, id uuid.UUID, version int) (*models.User, error)
	ResolveAdmin(ctx context.Context, id uuid.UUID, version int) (*models.Admin, error)
}

// Authenticator accepts either the encrypted session cookie or a bearer
// access token. The cookie is tried first.
type Authenticator struct {
	sessions *session.Manager
	resolver AccountResolver
	bearer   fiber.Handler
}

func NewAuthenticator(issuer *tokens.Issuer, sessions *session.Manager, resolver AccountResolver) *Authenticator {
	a := &Authenticator{sessions: sessions, resolver: resolver}
	a.bearer = jwtware.New(jwtware.Config{
		SigningKey:   issuer.AccessSecret(),
		ContextKey:   localToken,
		Claims:       &tokens.Claims{},
		ErrorHandler: jwtError,
		// Claims are checked by the caller before the chain continues.
		SuccessHandler: func(c *fiber.Ctx) error {
			return nil
		},
	})
	return a
}

func jwtError(c *fiber.Ctx, err error) error {
	if errors.Is(err, jwtware.ErrJWTMissingOrMalformed) {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeUnauthorized, "Authentication required", nil)
	}
	return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeInvalidToken, "Invalid or expired token", nil)
}

// User guards participant routes.
func (a *Authenticator) User() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if data, err := a.sessions.Get(c, session.UserCookie); err == nil && data != nil {
			return a.acceptUser(c, data.UserID, data.TokenVersion)
		}

		return a.withBearer(c, tokens.SubjectUser, func(claims *tokens.Claims) error {
			return a.acceptUser(c, claims.AccountID, claims.Version)
		})
	}
}

// Admin guards /admin routes and attaches the caller's permission context
// built from the current admin row.
func (a *Authenticator) Admin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if data, err := a.sessions.Get(c, session.AdminCookie); err == nil && data != nil {
			return a.acceptAdmin(c, data.UserID, data.TokenVersion)
		}

		return a.withBearer(c, tokens.SubjectAdmin, func(claims *tokens.Claims) error {
			return a.acceptAdmin(c, claims.AccountID, claims.Version)
		})
	}
}

// withBearer runs the jwt middleware and then next with the parsed claims.
// Tokens minted for the other subject are rejected.
func (a *Authenticator) withBearer(c *fiber.Ctx, subject string, next func(*tokens.Claims) error) error {
	var accepted bool
	err := a.bearer(c)
	token, ok := c.Locals(localToken).(*jwt.Token)
	if !ok {
		// jwtware already wrote the 401.
		return err
	}
	claims, ok := token.Claims.(*tokens.Claims)
	if ok && claims.Kind == tokens.KindAccess && claims.Subject == subject {
		accepted = true
	}
	if !accepted {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeInvalidToken, "Invalid or expired token", nil)
	}
	return next(claims)
}

func (a *Authenticator) acceptUser(c *fiber.Ctx, rawID string, version int) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeInvalidToken, "Invalid or expired token", nil)
	}
	user, err := a.resolver.ResolveUser(c.UserContext(), id, version)
	if err != nil {
		return rejectCredential(c, err)
	}

	c.Locals(localUserID, user.ID)
	c.Locals(localUser, user)
	return c.Next()
}

func (a *Authenticator) acceptAdmin(c *fiber.Ctx, rawID string, version int) error {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeInvalidToken, "Invalid or expired token", nil)
	}
	admin, err := a.resolver.ResolveAdmin(c.UserContext(), id, version)
	if err != nil {
		return rejectCredential(c, err)
	}
	if !models.IsValidAdminRole(admin.Role) {
		return utils.ErrorWithCode(c, fiber.StatusForbidden, services.CodeForbidden, "Account role is not recognised", nil)
	}

	c.Locals(localAdmin, admin)
	c.Locals(localPermCtx, permissions.NewContext(admin))
	return c.Next()
}

func rejectCredential(c *fiber.Ctx, err error) error {
	if services.ErrorCode(err) == services.CodeInternal {
		return err
	}
	return utils.ErrorWithCode(c, fiber.StatusUnauthorized, services.CodeInvalidToken, "Invalid or expired token", nil)
}

// UserID returns the authenticated participant id.
func UserID(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := c.Locals(localUserID).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, &services.Error{Code: services.CodeUnauthorized, Message: "User not authenticated"}
	}
	return id, nil
}

func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}

func CurrentAdmin(c *fiber.Ctx) *models.Admin {
	admin, _ := c.Locals(localAdmin).(*models.Admin)
	return admin
}

// Permissions returns the caller's permission context on admin routes.
func Permissions(c *fiber.Ctx) (*permissions.Context, error) {
	pc, ok := c.Locals(localPermCtx).(*permissions.Context)
	if !ok || pc == nil {
		return nil, &services.Error{Code: services.CodeUnauthorized, Message: "Admin not authenticated"}
	}
	return pc, nil
}
