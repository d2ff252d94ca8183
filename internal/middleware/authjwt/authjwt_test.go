package authjwt

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/crud/internal/auth/tokens"
	"github.com/qolzam/telar/apps/crud/internal/types"
)

const secret = "test-secret"

func newApp(cfg Config) *fiber.App {
	app := fiber.New()
	app.Use(New(cfg))
	app.Get("/", func(c *fiber.Ctx) error {
		if u, ok := c.Locals(types.UserCtxName).(*types.UserContext); ok {
			return c.SendString(u.UserID.String())
		}
		return c.SendString("anonymous")
	})
	return app
}

func body(t *testing.T, app *fiber.App, header string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", "/", nil)
	if header != "" {
		req.Header.Set(types.HeaderAuthorization, header)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(b)
}

func TestValidToken(t *testing.T) {
	user := types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.UserRole}
	token, err := tokens.CreateToken(secret, "crud", user, time.Minute)
	require.NoError(t, err)

	status, got := body(t, newApp(Config{Secret: secret, Issuer: "crud", Required: true}), types.BearerPrefix+token)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, user.UserID.String(), got)
}

func TestAnonymousAllowedUnlessRequired(t *testing.T) {
	status, got := body(t, newApp(Config{Secret: secret}), "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "anonymous", got)

	status, _ = body(t, newApp(Config{Secret: secret, Required: true}), "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestInvalidTokenRejected(t *testing.T) {
	user := types.UserContext{UserID: uuid.Must(uuid.NewV4())}
	token, err := tokens.CreateToken("other-secret", "", user, time.Minute)
	require.NoError(t, err)

	status, _ := body(t, newApp(Config{Secret: secret}), types.BearerPrefix+token)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}
