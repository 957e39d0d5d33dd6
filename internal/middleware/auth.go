package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/viewlens/viewlens/internal/config"
	"github.com/viewlens/viewlens/internal/models"
	"github.com/viewlens/viewlens/internal/types"
)

// RoleLocal is the fiber context key the session role is stored under.
const RoleLocal = "role"

// AuthSession validates the session cookie and stores the caller role
// in the request context. Requests without a valid session are rejected.
func AuthSession(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := c.Cookies(cfg.SessionCookie)
		if session == "" {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: fmt.Sprintf("Session cookie %q not found", cfg.SessionCookie),
				Type:    "authorization",
			}
		}

		roleID, err := parseSessionRole(session, cfg.SessionSecret)
		if err != nil {
			return &types.CustomError{
				Code:    fiber.StatusForbidden,
				Message: fmt.Sprintf("Invalid session: %v", err),
				Type:    "authorization",
			}
		}

		c.Locals(RoleLocal, roleID)
		return c.Next()
	}
}

// PublicSession resolves the caller role without requiring a session.
// A valid session cookie upgrades the role, anything else runs as PUBLIC.
func PublicSession(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		roleID := models.RolePublic
		if session := c.Cookies(cfg.SessionCookie); session != "" {
			if parsed, err := parseSessionRole(session, cfg.SessionSecret); err == nil {
				roleID = parsed
			}
		}
		c.Locals(RoleLocal, roleID)
		return c.Next()
	}
}

// SessionRole reads the role stored by AuthSession or PublicSession.
func SessionRole(c *fiber.Ctx) string {
	if role, ok := c.Locals(RoleLocal).(string); ok && role != "" {
		return role
	}
	return models.RolePublic
}

// SignSession builds a session token for the given role. Used by tests
// and by deployments that mint their own sessions.
func SignSession(roleID, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"role": roleID,
	})
	return token.SignedString([]byte(secret))
}

func parseSessionRole(session, secret string) (string, error) {
	token, err := jwt.Parse(session, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	roleID, ok := claims["role"].(string)
	if !ok || roleID == "" {
		return "", fmt.Errorf("role claim missing")
	}
	if !models.ValidRole(roleID) {
		return "", fmt.Errorf("unknown role %q", roleID)
	}
	return roleID, nil
}
