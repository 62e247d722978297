package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareAndHandler(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware())
	app.Get("/events/:slug", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/metrics", Handler())

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/events/:slug", "200"))

	resp, err := app.Test(httptest.NewRequest("GET", "/events/hackathon", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/events/:slug", "200"))
	assert.Equal(t, before+1, after)

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "kalam_http_requests_total")
}
