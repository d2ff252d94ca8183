package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/crud/events"
	"github.com/qolzam/telar/apps/crud/handlers"
	"github.com/qolzam/telar/apps/crud/internal/auth/tokens"
	"github.com/qolzam/telar/apps/crud/internal/database/sqldb"
	"github.com/qolzam/telar/apps/crud/internal/middleware/authjwt"
	"github.com/qolzam/telar/apps/crud/internal/middleware/requestid"
	"github.com/qolzam/telar/apps/crud/internal/testutil"
	"github.com/qolzam/telar/apps/crud/internal/types"
	"github.com/qolzam/telar/apps/crud/permissions"
	"github.com/qolzam/telar/apps/crud/request"
)

const secret = "handler-secret"

func newApp(t *testing.T, configure ...func(*testutil.ProductConfig)) (*fiber.App, *sqldb.Client) {
	t.Helper()
	client := testutil.NewSQLiteClient(t)
	svc := testutil.NewProductService(t, client, configure...)

	app := fiber.New()
	app.Use(requestid.New())
	app.Use(authjwt.New(authjwt.Config{Secret: secret}))
	handlers.NewHandler(svc, request.Options{Strategy: request.Page}).RegisterRoutes(app.Group("/products"))
	return app, client
}

func bearer(t *testing.T, user types.UserContext) string {
	t.Helper()
	token, err := tokens.CreateToken(secret, "", user, time.Minute)
	require.NoError(t, err)
	return types.BearerPrefix + token
}

func do(t *testing.T, app *fiber.App, method, target string, payload interface{}, auth string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set(types.HeaderAuthorization, auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func TestCreateAndRetrieve(t *testing.T) {
	app, _ := newApp(t)
	owner := types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.UserRole}

	resp, body := do(t, app, "POST", "/products",
		map[string]interface{}{"name": "Apple", "category": "fruit", "price": 2.5, "sku": "APL"}, bearer(t, owner))
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	assert.NotEmpty(t, resp.Header.Get(types.HeaderRequestID))

	var created testutil.ProductOutput
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, owner.UserID, created.OwnerID)

	resp, body = do(t, app, "GET", "/products/"+created.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got testutil.ProductOutput
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, created, got)
}

func TestCreate_ValidationError(t *testing.T) {
	app, client := newApp(t)

	resp, body := do(t, app, "POST", "/products", map[string]interface{}{"name": "A"}, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var payload struct {
		Code    string `json:"code"`
		Details []struct {
			Property string `json:"property"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(body, &payload))
	assert.Equal(t, "VALIDATION_FAILED", payload.Code)
	assert.NotEmpty(t, payload.Details)
	assert.Equal(t, 0, testutil.CountProducts(t, client))
}

func TestRetrieve_NotFoundAndMalformedID(t *testing.T) {
	app, _ := newApp(t)

	resp, _ := do(t, app, "GET", "/products/"+uuid.Must(uuid.NewV4()).String(), nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = do(t, app, "GET", "/products/not-a-uuid", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPermissionDenied(t *testing.T) {
	app, client := newApp(t, func(cfg *testutil.ProductConfig) {
		cfg.Permissions = permissions.Set{EntityPermissions: []permissions.EntityPermission{permissions.IsOwner()}}
	})
	p := testutil.NewProduct("Apple", "fruit", 1)
	p.OwnerID = uuid.Must(uuid.NewV4())
	testutil.SeedProducts(t, client, p)
	stranger := types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.UserRole}

	resp, _ := do(t, app, "DELETE", "/products/"+p.ID.String(), nil, bearer(t, stranger))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, 1, testutil.CountProducts(t, client))

	admin := types.UserContext{UserID: uuid.Must(uuid.NewV4()), SystemRole: types.AdminRole}
	resp, _ = do(t, app, "DELETE", "/products/"+p.ID.String(), nil, bearer(t, admin))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, testutil.CountProducts(t, client))
}

func TestUpdateAndPatch(t *testing.T) {
	app, client := newApp(t)
	p := testutil.NewProduct("Apple", "fruit", 1)
	testutil.SeedProducts(t, client, p)

	resp, body := do(t, app, "PATCH", "/products/"+p.ID.String(), map[string]interface{}{"price": 3}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out testutil.ProductOutput
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "Apple", out.Name)
	assert.Equal(t, 3.0, out.Price)

	resp, _ = do(t, app, "PUT", "/products/"+p.ID.String(), map[string]interface{}{"name": "Pear"}, "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestList(t *testing.T) {
	app, client := newApp(t)
	testutil.Fruit(t, client)

	resp, body := do(t, app, "GET", "/products?category__eq=fruit&ordering=-price&limit=1", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page struct {
		Count    int64                   `json:"count"`
		Next     *string                 `json:"next"`
		Previous *string                 `json:"previous"`
		Results  []testutil.ProductOutput `json:"results"`
	}
	require.NoError(t, json.Unmarshal(body, &page))
	assert.Equal(t, int64(2), page.Count)
	require.NotNil(t, page.Next)
	assert.Contains(t, *page.Next, "page=2")
	assert.Nil(t, page.Previous)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "Apple", page.Results[0].Name)
}

func TestCommittedEventsFailureKeepsSuccessStatus(t *testing.T) {
	bus := events.NewBus()
	bus.RegisterHandler(events.HandlerFunc("mailer", []string{"product.created"}, func(context.Context, events.Event) error {
		return errors.New("smtp down")
	}))
	app, client := newApp(t, func(cfg *testutil.ProductConfig) { cfg.Bus = bus })

	resp, _ := do(t, app, "POST", "/products",
		map[string]interface{}{"name": "Apple", "category": "fruit", "sku": "APL"}, "")
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(handlers.HeaderEventsFailed), "mailer")
	assert.Equal(t, 1, testutil.CountProducts(t, client))
}

func TestPreEventFailureIsServerError(t *testing.T) {
	bus := events.NewBus()
	bus.RegisterHandler(events.HandlerFunc("quota", []string{"product.creating"}, func(context.Context, events.Event) error {
		return errors.New("quota exceeded")
	}))
	app, client := newApp(t, func(cfg *testutil.ProductConfig) { cfg.Bus = bus })

	resp, _ := do(t, app, "POST", "/products",
		map[string]interface{}{"name": "Apple", "category": "fruit", "sku": "APL"}, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, 0, testutil.CountProducts(t, client))
}
