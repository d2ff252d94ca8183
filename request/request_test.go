package request

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qolzam/telar/apps/crud/filters"
	"github.com/qolzam/telar/apps/crud/internal/types"
)

func TestParseList_Page(t *testing.T) {
	values, err := url.ParseQuery("price__between=50,100&name__in=Apple,Cherry&name__in=Banana&ordering=-price,name&ordering=sku&search=app&page=2&limit=20&unrelated=1")
	require.NoError(t, err)

	req, err := ParseList(values, "/products?page=2", Options{Strategy: Page})
	require.NoError(t, err)

	assert.Equal(t, filters.WhereQuery{
		{Key: "name__in", Value: "Apple,Cherry"},
		{Key: "name__in", Value: "Banana"},
		{Key: "price__between", Value: "50,100"},
	}, req.Where)
	assert.Equal(t, filters.OrderingQuery{"-price", "name", "sku"}, req.Ordering)
	assert.Equal(t, "app", req.Search)
	require.NotNil(t, req.Page)
	assert.Equal(t, 2, req.Page.Page)
	assert.Equal(t, 20, req.Page.Limit)
	assert.Equal(t, "/products?page=2", req.Page.Path)
	assert.Nil(t, req.LimitOffset)
}

func TestParseList_LimitOffset(t *testing.T) {
	values := url.Values{"limit": {"5"}, "offset": {"15"}}

	req, err := ParseList(values, "/products", Options{Strategy: LimitOffset})
	require.NoError(t, err)
	require.NotNil(t, req.LimitOffset)
	assert.Equal(t, 5, req.LimitOffset.Limit)
	assert.Equal(t, 15, req.LimitOffset.Offset)
	assert.Nil(t, req.Page)
}

func TestParseList_MalformedNumbersFallBack(t *testing.T) {
	values := url.Values{"page": {"first"}, "limit": {"10"}}

	req, err := ParseList(values, "/products", Options{Strategy: Page})
	require.NoError(t, err)
	assert.Equal(t, 0, req.Page.Page)
	assert.Equal(t, 10, req.Page.Limit)
}

func TestParseList_NoPagination(t *testing.T) {
	req, err := ParseList(url.Values{"page": {"3"}}, "/products", Options{})
	require.NoError(t, err)
	assert.Nil(t, req.Page)
	assert.Nil(t, req.LimitOffset)
	assert.Empty(t, req.Where)
}

func TestParseList_UnknownStrategy(t *testing.T) {
	_, err := ParseList(url.Values{}, "/products", Options{Strategy: "cursor"})
	assert.Error(t, err)
}

func TestFromFiber(t *testing.T) {
	userID := uuid.Must(uuid.NewV4())
	app := fiber.New()
	app.Get("/products", func(c *fiber.Ctx) error {
		c.Locals(types.UserCtxName, &types.UserContext{UserID: userID})
		req, err := FromFiber(c, Options{Strategy: Page})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"user":  req.User.UserID.String(),
			"where": len(req.Where),
			"page":  req.Page.Page,
			"path":  req.Page.Path,
		})
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/products?category__eq=fruit&page=3", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, userID.String(), got["user"])
	assert.Equal(t, float64(1), got["where"])
	assert.Equal(t, float64(3), got["page"])
	assert.Equal(t, "/products?category__eq=fruit&page=3", got["path"])
}

func TestUser_Anonymous(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		assert.Nil(t, User(c))
		return c.SendStatus(fiber.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}
