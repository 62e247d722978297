package utils

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"kalam-backend/internal/repositories"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMeta(t *testing.T) {
	m := NewMeta(2, 20, 41)
	assert.Equal(t, 3, m.TotalPages)
	assert.Equal(t, 2, m.Page)

	m = NewMeta(0, 0, 0)
	assert.Equal(t, 1, m.Page)
	assert.Equal(t, DefaultLimit, m.Limit)
	assert.Equal(t, 0, m.TotalPages)
}

func TestListQuery(t *testing.T) {
	var got repositories.ListParams
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = ListQuery(c)
		return nil
	})

	_, err := app.Test(httptest.NewRequest("GET", "/?page=3&limit=500&sort=-createdAt&search=%20quiz%20", nil))
	require.NoError(t, err)
	assert.Equal(t, repositories.ListParams{Page: 3, Limit: MaxLimit, Sort: "createdAt", Desc: true, Search: "quiz"}, got)

	_, err = app.Test(httptest.NewRequest("GET", "/?page=x&limit=-4&sort=name", nil))
	require.NoError(t, err)
	assert.Equal(t, repositories.ListParams{Page: 1, Limit: DefaultLimit, Sort: "name"}, got)
}

func TestErrorWithCode(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return ErrorWithCode(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "Validation failed", map[string]string{"email": "email is required"})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	var out Response
	require.NoError(t, json.Unmarshal(body, &out))
	assert.False(t, out.Success)
	require.NotNil(t, out.Error)
	assert.Equal(t, "VALIDATION_ERROR", out.Error.Code)
	assert.Equal(t, "email is required", out.Error.Fields["email"])
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("pw12345678", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "pw12345678", hash)
	assert.NoError(t, CheckPassword("pw12345678", hash))
	assert.Error(t, CheckPassword("wrong-password", hash))
}

func TestTicketQR(t *testing.T) {
	dir := t.TempDir()
	id := uuid.New()

	name, err := GenerateTicketQR(id, TicketContent(id, uuid.New()), dir)
	require.NoError(t, err)
	assert.Equal(t, id.String()+".png", name)

	_, err = os.Stat(filepath.Join(dir, name))
	require.NoError(t, err)

	parsed, err := RegistrationIDFromQRPath("/qrcodes/" + name)
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = RegistrationIDFromQRPath("/qrcodes/not-a-uuid.png")
	assert.Error(t, err)
}

func TestPosterFilename(t *testing.T) {
	name := PosterFilename("hackathon", "Poster.PNG")
	assert.Regexp(t, `^hackathon_[0-9a-f-]{36}\.png$`, name)
}
