package services

import (
	"context"
	"net/url"
	"testing"

	"kalam-backend/internal/models"
	"kalam-backend/internal/notify"
	"kalam-backend/internal/utils"

	"github.com/stretchr/testify/assert"
	mustreq "github.com/stretchr/testify/require"
)

func TestAuthService_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: " A@X.com ", Phone: "9000000001", Password: "pw12345678"})
	mustreq.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "pw12345678", user.Password)

	res, err := f.auth.Login(ctx, "a@x.com", "pw12345678")
	mustreq.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.Tokens.AccessToken)
	assert.NotEmpty(t, res.Tokens.RefreshToken)

	_, err = f.auth.Login(ctx, "a@x.com", "wrong-password")
	assert.Equal(t, CodeInvalidCreds, ErrorCode(err))

	_, err = f.auth.Login(ctx, "nobody@x.com", "pw12345678")
	assert.Equal(t, CodeInvalidCreds, ErrorCode(err))
}

func TestAuthService_RegisterDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Name: "A", Email: "a@x.com", Phone: "9000000001", Password: "pw12345678"})
	mustreq.NoError(t, err)

	_, err = f.auth.Register(ctx, RegisterInput{Name: "B", Email: "A@x.com", Password: "pw12345678"})
	assert.Equal(t, CodeDuplicateEmail, ErrorCode(err))

	_, err = f.auth.Register(ctx, RegisterInput{Name: "C", Email: "c@x.com", Phone: "9000000001", Password: "pw12345678"})
	assert.Equal(t, CodeDuplicatePhone, ErrorCode(err))
}

func TestAuthService_RefreshAndLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")

	res, err := f.auth.Login(ctx, "a@x.com", "pw12345678")
	mustreq.NoError(t, err)

	pair, err := f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	mustreq.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.auth.Refresh(ctx, res.Tokens.AccessToken)
	assert.Equal(t, CodeInvalidToken, ErrorCode(err), "access token must not refresh")

	mustreq.NoError(t, f.auth.Logout(ctx, user.ID))

	_, err = f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	assert.Equal(t, CodeInvalidToken, ErrorCode(err))

	_, err = f.auth.ResolveUser(ctx, user.ID, 0)
	assert.Equal(t, CodeInvalidToken, ErrorCode(err))
	_, err = f.auth.ResolveUser(ctx, user.ID, 1)
	assert.NoError(t, err)
}

func TestAuthService_UpdateMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, "a@x.com")

	name := "Renamed"
	updated, err := f.auth.UpdateMe(ctx, user.ID, UpdateProfileInput{Name: &name})
	mustreq.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, 0, updated.TokenVersion)

	_, err = f.auth.UpdateMe(ctx, user.ID, UpdateProfileInput{NewPassword: "newpass123"})
	assert.Equal(t, CodeValidation, ErrorCode(err))

	_, err = f.auth.UpdateMe(ctx, user.ID, UpdateProfileInput{CurrentPassword: "nope", NewPassword: "newpass123"})
	assert.Equal(t, CodeInvalidCreds, ErrorCode(err))

	updated, err = f.auth.UpdateMe(ctx, user.ID, UpdateProfileInput{CurrentPassword: "pw12345678", NewPassword: "newpass123"})
	mustreq.NoError(t, err)
	assert.Equal(t, 1, updated.TokenVersion)

	_, err = f.auth.Login(ctx, "a@x.com", "newpass123")
	assert.NoError(t, err)
}

func TestAuthService_PasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "a@x.com")

	mustreq.NoError(t, f.auth.ForgotPassword(ctx, "nobody@x.com"))
	assert.Empty(t, f.outbox.ofType(notify.TypePasswordReset))

	mustreq.NoError(t, f.auth.ForgotPassword(ctx, "a@x.com"))
	mails := f.outbox.ofType(notify.TypePasswordReset)
	mustreq.Len(t, mails, 1)
	assert.Equal(t, "a@x.com", mails[0].To)

	link, err := url.Parse(mails[0].Data["link"])
	mustreq.NoError(t, err)
	assert.Equal(t, "kalam.test", link.Host)
	token := link.Query().Get("token")
	mustreq.NotEmpty(t, token)

	err = f.auth.ResetPassword(ctx, "not-a-token", "brandnew123")
	assert.Equal(t, CodeInvalidToken, ErrorCode(err))

	mustreq.NoError(t, f.auth.ResetPassword(ctx, token, "brandnew123"))

	err = f.auth.ResetPassword(ctx, token, "again12345")
	assert.Equal(t, CodeInvalidToken, ErrorCode(err), "token is single use")

	_, err = f.auth.Login(ctx, "a@x.com", "brandnew123")
	assert.NoError(t, err)
}

func TestAuthService_AdminLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	hashed, err := utils.HashPassword("adminpass1", 4)
	mustreq.NoError(t, err)

	admin := &models.Admin{Name: "Root", Email: "root@kalam.test", Password: hashed, Role: models.AdminRoleSuperadmin}
	mustreq.NoError(t, f.repo.AdminRepo.CreateAdmin(ctx, admin))
	legacy := &models.Admin{Name: "Old", Email: "old@kalam.test", Password: hashed, Role: "super_admin"}
	mustreq.NoError(t, f.repo.AdminRepo.CreateAdmin(ctx, legacy))

	res, err := f.auth.AdminLogin(ctx, "ROOT@kalam.test", "adminpass1")
	mustreq.NoError(t, err)
	assert.Equal(t, admin.ID, res.Admin.ID)

	pair, err := f.auth.Refresh(ctx, res.Tokens.RefreshToken)
	mustreq.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)

	_, err = f.auth.AdminLogin(ctx, "root@kalam.test", "wrong")
	assert.Equal(t, CodeInvalidCreds, ErrorCode(err))

	_, err = f.auth.AdminLogin(ctx, "old@kalam.test", "adminpass1")
	assert.Equal(t, CodeForbidden, ErrorCode(err))

	mustreq.NoError(t, f.auth.AdminLogout(ctx, admin.ID))
	_, err = f.auth.ResolveAdmin(ctx, admin.ID, 0)
	assert.Equal(t, CodeInvalidToken, ErrorCode(err))
}
