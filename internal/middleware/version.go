package middleware

import (
	"github.com/gofiber/fiber/v2"
)

// VersionLocal is the fiber context key the negotiated API version is
// stored under.
const VersionLocal = "apiVersion"

// CurrentVersion is reported when the caller does not request a version.
const CurrentVersion = "2.0.0"

// VersionMiddleware negotiates the X-Api-Version header: the resolved
// version is stored in context and echoed on the response.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", CurrentVersion)

		// Support version aliases
		switch version {
		case "2", "2.0":
			version = CurrentVersion
		}

		c.Locals(VersionLocal, version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}
