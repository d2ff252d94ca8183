// Package request turns list query strings into typed crud.ListRequest values at the transport boundary.
//
//	GET /products?name__in=Apple,Cherry&price__between=50,100&ordering=-price,name&search=app&page=2&limit=20
package request

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/schema"

	"github.com/qolzam/telar/apps/crud/crud"
	"github.com/qolzam/telar/apps/crud/filters"
	"github.com/qolzam/telar/apps/crud/internal/pkg/log"
	"github.com/qolzam/telar/apps/crud/internal/types"
	"github.com/qolzam/telar/apps/crud/pagination"
)

// Strategy selects how a list endpoint paginates
type Strategy string

const (
	NoPagination Strategy = ""
	Page         Strategy = "page"
	LimitOffset  Strategy = "limit_offset"
)

// Options configures ParseList
type Options struct {
	Strategy Strategy
}

type listParams struct {
	Page     int      `schema:"page"`
	Limit    int      `schema:"limit"`
	Offset   int      `schema:"offset"`
	Ordering []string `schema:"ordering"`
	Search   string   `schema:"search"`
}

var decoder = newDecoder()

func newDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// ParseList decodes values into a list request. path is the full request URL the pagination
// links are rewritten from. Malformed numbers are dropped and fall back to the defaults.
func ParseList(values url.Values, path string, opts Options) (*crud.ListRequest, error) {
	var params listParams
	if err := decoder.Decode(&params, values); err != nil {
		if err := conversionOnly(err); err != nil {
			return nil, fmt.Errorf("failed to decode list query: %w", err)
		}
	}

	req := &crud.ListRequest{
		Where:    whereQuery(values),
		Ordering: orderingQuery(params.Ordering),
		Search:   params.Search,
	}

	switch opts.Strategy {
	case NoPagination:
	case Page:
		req.Page = &pagination.PageRequest{Page: params.Page, Limit: params.Limit, Path: path}
	case LimitOffset:
		req.LimitOffset = &pagination.LimitOffsetRequest{Limit: params.Limit, Offset: params.Offset, Path: path}
	default:
		return nil, fmt.Errorf("unknown pagination strategy %q", opts.Strategy)
	}
	return req, nil
}

// conversionOnly swallows value conversion errors and returns anything else
func conversionOnly(err error) error {
	var multi schema.MultiError
	if !errors.As(err, &multi) {
		return err
	}
	for key, e := range multi {
		var conv schema.ConversionError
		if !errors.As(e, &conv) {
			return err
		}
		log.Debug("request: dropped malformed %s: %v", key, e)
	}
	return nil
}

// whereQuery collects every field__operator key, one condition per value, keys sorted
func whereQuery(values url.Values) filters.WhereQuery {
	keys := make([]string, 0, len(values))
	for key := range values {
		if strings.Contains(key, "__") {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var where filters.WhereQuery
	for _, key := range keys {
		for _, v := range values[key] {
			where = append(where, filters.Condition{Key: key, Value: v})
		}
	}
	return where
}

// orderingQuery flattens repeated and comma separated ordering values
func orderingQuery(raw []string) filters.OrderingQuery {
	var ordering filters.OrderingQuery
	for _, r := range raw {
		for _, token := range strings.Split(r, ",") {
			if token = strings.TrimSpace(token); token != "" {
				ordering = append(ordering, token)
			}
		}
	}
	return ordering
}

// FromFiber parses the query string of c and attaches the principal stored by the auth middleware
func FromFiber(c *fiber.Ctx, opts Options) (*crud.ListRequest, error) {
	values := url.Values{}
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		values.Add(string(key), string(value))
	})

	req, err := ParseList(values, c.OriginalURL(), opts)
	if err != nil {
		return nil, err
	}
	req.User = User(c)
	return req, nil
}

// User returns the principal stored under types.UserCtxName, or nil for anonymous requests
func User(c *fiber.Ctx) *types.UserContext {
	u, _ := c.Locals(types.UserCtxName).(*types.UserContext)
	return u
}
