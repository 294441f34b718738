package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func newRateLimitedApp(max int) *fiber.App {
	app := fiber.New(fiber.Config{ProxyHeader: fiber.HeaderXForwardedFor})
	app.Use(RateLimit("auth", max, time.Minute))
	app.Post("/login", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	return app
}

func TestRateLimitBucketsAnonymousClientsByIP(t *testing.T) {
	app := newRateLimitedApp(1)

	first := httptest.NewRequest(http.MethodPost, "/login", nil)
	first.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.10")
	resp, err := app.Test(first)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	exhausted := httptest.NewRequest(http.MethodPost, "/login", nil)
	exhausted.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.10")
	resp, err = app.Test(exhausted)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	other := httptest.NewRequest(http.MethodPost, "/login", nil)
	other.Header.Set(fiber.HeaderXForwardedFor, "203.0.113.20")
	resp, err = app.Test(other)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestRateLimitBucketsAuthenticatedClientsByUser(t *testing.T) {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if value := c.Get("X-Test-User"); value == "7" {
			c.Locals("user_id", uint(7))
		} else if value == "8" {
			c.Locals("user_id", uint(8))
		}
		return c.Next()
	})
	app.Use(RateLimit("auth", 1, time.Minute))
	app.Post("/login", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	for user, want := range map[string]int{"7": fiber.StatusOK, "8": fiber.StatusOK} {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.Header.Set("X-Test-User", user)
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, want, resp.StatusCode)
	}

	repeat := httptest.NewRequest(http.MethodPost, "/login", nil)
	repeat.Header.Set("X-Test-User", "7")
	resp, err := app.Test(repeat)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
}
