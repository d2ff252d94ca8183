package authjwt

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/qolzam/telar/apps/crud/internal/auth/tokens"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	"github.com/qolzam/telar/apps/crud/internal/types"
)

// Config defines the config for the JWT middleware.
type Config struct {
	// HMAC secret the tokens are signed with
	Secret string
	// Expected issuer, empty accepts any
	Issuer string
	// Reject requests without a token. When false anonymous requests pass and permissions decide.
	Required bool
}

// New creates a middleware that stores the bearer token principal under types.UserCtxName
func New(cfg Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := tokens.FromAuthorization(c.Get(types.HeaderAuthorization), cfg.Secret, cfg.Issuer)
		switch {
		case errors.Is(err, tokens.ErrMissingToken) && !cfg.Required:
			return c.Next()
		case err != nil:
			log.WarnWithContext(c.UserContext(), "[authjwt] rejected request: %v", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"code":    "UNAUTHORIZED",
				"message": "Missing or invalid JWT",
			})
		}

		c.Locals(types.UserCtxName, user)
		return c.Next()
	}
}
