package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/viewlens/viewlens/internal/config"
	"github.com/viewlens/viewlens/internal/middleware"
	"github.com/viewlens/viewlens/internal/models"
)

func sessionApp(handler fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/probe", handler, func(c *fiber.Ctx) error {
		return c.SendString(middleware.SessionRole(c))
	})
	return app
}

func probe(t *testing.T, app *fiber.App, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: "viewlens_session", Value: cookie})
	}
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Probe request failed: %v", err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	buf := make([]byte, 64)
	n, _ := resp.Body.Read(buf)
	return string(buf[:n])
}

func TestAuthSessionRejectsMissingAndBadCookies(t *testing.T) {
	cfg := &config.Config{SessionSecret: "middleware-test-secret", SessionCookie: "viewlens_session"}
	app := sessionApp(middleware.AuthSession(cfg))

	// Without a custom error handler fiber renders CustomError as 500;
	// what matters is that the chain never reached the probe.
	if resp := probe(t, app, ""); resp.StatusCode == fiber.StatusOK {
		t.Error("Missing cookie must not pass AuthSession")
	}

	if resp := probe(t, app, "not-a-jwt"); resp.StatusCode == fiber.StatusOK {
		t.Error("Garbage cookie must not pass AuthSession")
	}

	// Token signed with a different secret
	forged, err := middleware.SignSession(models.RoleAdmin, "wrong-secret")
	if err != nil {
		t.Fatalf("SignSession failed: %v", err)
	}
	if resp := probe(t, app, forged); resp.StatusCode == fiber.StatusOK {
		t.Error("Token with a bad signature must not pass AuthSession")
	}
}

func TestAuthSessionStoresRole(t *testing.T) {
	cfg := &config.Config{SessionSecret: "middleware-test-secret", SessionCookie: "viewlens_session"}
	app := sessionApp(middleware.AuthSession(cfg))

	token, err := middleware.SignSession(models.RolePower, cfg.SessionSecret)
	if err != nil {
		t.Fatalf("SignSession failed: %v", err)
	}
	resp := probe(t, app, token)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("Valid session rejected with %d", resp.StatusCode)
	}
	if got := readBody(t, resp); got != models.RolePower {
		t.Errorf("Expected POWER role in context, got %q", got)
	}
}

func TestPublicSessionDefaultsAndUpgrades(t *testing.T) {
	cfg := &config.Config{SessionSecret: "middleware-test-secret", SessionCookie: "viewlens_session"}
	app := sessionApp(middleware.PublicSession(cfg))

	resp := probe(t, app, "")
	if got := readBody(t, resp); got != models.RolePublic {
		t.Errorf("Anonymous caller must run as PUBLIC, got %q", got)
	}

	// A broken cookie is ignored, not fatal
	resp = probe(t, app, "garbage")
	if got := readBody(t, resp); got != models.RolePublic {
		t.Errorf("Broken cookie must fall back to PUBLIC, got %q", got)
	}

	token, err := middleware.SignSession(models.RoleBasic, cfg.SessionSecret)
	if err != nil {
		t.Fatalf("SignSession failed: %v", err)
	}
	resp = probe(t, app, token)
	if got := readBody(t, resp); got != models.RoleBasic {
		t.Errorf("Valid cookie must upgrade the role, got %q", got)
	}

	// An unknown role claim never upgrades
	forged, err := middleware.SignSession("WIZARD", cfg.SessionSecret)
	if err != nil {
		t.Fatalf("SignSession failed: %v", err)
	}
	resp = probe(t, app, forged)
	if got := readBody(t, resp); got != models.RolePublic {
		t.Errorf("Unknown role must fall back to PUBLIC, got %q", got)
	}
}
