package pagination

import (
	"math"

	"github.com/qolzam/telar/apps/crud/query"
)

// PageRequest asks for a 1-based page of Limit rows. Path is the request URL links are built from.
type PageRequest struct {
	Page  int
	Limit int
	Path  string
}

// Page paginates by page number
type Page struct {
	qb    *query.Builder
	page  int
	limit int
	path  string
}

// NewPage normalises req: pages below 1 become 1, the limit is clamped by opts and the page is
// capped so the end offset of the page still fits in an int
func NewPage(qb *query.Builder, req PageRequest, opts Options) *Page {
	limit := opts.limit(req.Limit)
	page := req.Page
	if page < 1 {
		page = 1
	}
	if last := math.MaxInt / limit; page > last {
		page = last
	}
	return &Page{qb: qb, page: page, limit: limit, path: req.Path}
}

// PageFactory defers NewPage until a builder is available
func PageFactory(req PageRequest, opts Options) Factory {
	return func(qb *query.Builder) (Strategy, error) {
		return NewPage(qb, req, opts), nil
	}
}

func (p *Page) offset() int {
	return (p.page - 1) * p.limit
}

// Limit returns the effective page size
func (p *Page) Limit() int {
	return p.limit
}

// Apply adds LIMIT and OFFSET for the requested page
func (p *Page) Apply() *query.Builder {
	return p.qb.Limit(uint64(p.limit)).Offset(uint64(p.offset()))
}

// Links rewrites the page parameter of the request path
func (p *Page) Links(count int64) (next, previous *string) {
	if int64(p.offset()+p.limit) < count {
		next = withParam(p.path, "page", p.page+1)
	}
	if p.page > 1 {
		previous = withParam(p.path, "page", p.page-1)
	}
	return next, previous
}
