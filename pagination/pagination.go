// Package pagination bounds a query.Builder and computes the navigation links of a page.
package pagination

import (
	"net/url"
	"strconv"

	"github.com/qolzam/telar/apps/crud/query"
)

// Strategy bounds a builder and derives next/previous links from the unpaginated row count
type Strategy interface {
	Apply() *query.Builder
	Links(count int64) (next, previous *string)
	Limit() int
}

// Factory constructs a Strategy over qb after every filter has been applied
type Factory func(qb *query.Builder) (Strategy, error)

// Options bounds the page size. Requests asking for more than MaxLimit get MaxLimit.
type Options struct {
	DefaultLimit int
	MaxLimit     int
}

// DefaultOptions returns a page size of 10 capped at 100
func DefaultOptions() Options {
	return Options{DefaultLimit: 10, MaxLimit: 100}
}

func (o Options) limit(requested int) int {
	def := o.DefaultLimit
	if def < 1 {
		def = DefaultOptions().DefaultLimit
	}
	if requested < 1 {
		requested = def
	}
	if o.MaxLimit > 0 && requested > o.MaxLimit {
		requested = o.MaxLimit
	}
	return requested
}

// Container is one page of results
type Container[T any] struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// NewContainer builds the container for results given the total count before pagination
func NewContainer[T any](s Strategy, count int64, results []T) *Container[T] {
	if results == nil {
		results = []T{}
	}
	next, previous := s.Links(count)
	return &Container[T]{Count: count, Next: next, Previous: previous, Results: results}
}

// MapContainer converts every result with fn, keeping count and links
func MapContainer[T, R any](c *Container[T], fn func(T) (R, error)) (*Container[R], error) {
	results := make([]R, 0, len(c.Results))
	for _, item := range c.Results {
		r, err := fn(item)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return &Container[R]{Count: c.Count, Next: c.Next, Previous: c.Previous, Results: results}, nil
}

// withParam returns path with key set to value. An unparseable path yields nil.
func withParam(path, key string, value int) *string {
	u, err := url.Parse(path)
	if err != nil {
		return nil
	}
	q := u.Query()
	q.Set(key, strconv.Itoa(value))
	u.RawQuery = q.Encode()
	link := u.String()
	return &link
}
