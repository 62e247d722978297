package session

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kalam-backend/internal/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(t *testing.T, secret string) *Manager {
	t.Helper()
	m, err := NewManager(&config.Config{SessionSecret: secret, SessionTTL: time.Hour})
	require.NoError(t, err)
	return m
}

func TestEncryptDecrypt(t *testing.T) {
	m := newManager(t, "cookie-secret")
	in := &Data{UserID: "u1", Email: "a@x.com", Name: "A", Role: "user", IsLoggedIn: true,
		ExpiresAt: time.Now().Add(time.Minute).Unix()}

	value, err := m.Encrypt(in)
	require.NoError(t, err)
	assert.NotContains(t, value, "a@x.com")

	out, err := m.Decrypt(value)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestDecrypt_Failures(t *testing.T) {
	m := newManager(t, "cookie-secret")
	other := newManager(t, "other-secret")

	value, err := m.Encrypt(&Data{UserID: "u1", IsLoggedIn: true, ExpiresAt: time.Now().Add(time.Minute).Unix()})
	require.NoError(t, err)

	_, err = other.Decrypt(value)
	assert.Error(t, err, "wrong key")

	_, err = m.Decrypt("%%%")
	assert.Error(t, err, "bad base64")

	_, err = m.Decrypt("abc")
	assert.Error(t, err, "too short")

	expired, err := m.Encrypt(&Data{UserID: "u1", IsLoggedIn: true, ExpiresAt: time.Now().Add(-time.Minute).Unix()})
	require.NoError(t, err)
	_, err = m.Decrypt(expired)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestCookieRoundTrip(t *testing.T) {
	m := newManager(t, "cookie-secret")
	app := fiber.New()
	app.Get("/login", func(c *fiber.Ctx) error {
		return m.Set(c, UserCookie, &Data{UserID: "u1", Role: "user"})
	})
	app.Get("/me", func(c *fiber.Ctx) error {
		data, err := m.Get(c, UserCookie)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		if data == nil {
			return c.SendStatus(fiber.StatusNoContent)
		}
		return c.SendString(data.UserID)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/login", nil))
	require.NoError(t, err)
	setCookie := resp.Header.Get("Set-Cookie")
	require.True(t, strings.HasPrefix(setCookie, UserCookie+"="))
	assert.Contains(t, strings.ToLower(setCookie), "httponly")

	cookie := strings.SplitN(setCookie, ";", 2)[0]
	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", cookie)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/me", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
