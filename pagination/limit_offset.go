package pagination

import (
	"math"

	"github.com/qolzam/telar/apps/crud/query"
)

// LimitOffsetRequest asks for Limit rows after skipping Offset
type LimitOffsetRequest struct {
	Limit  int
	Offset int
	Path   string
}

// LimitOffset paginates by row offset
type LimitOffset struct {
	qb     *query.Builder
	limit  int
	offset int
	path   string
}

// NewLimitOffset normalises req: negative offsets become 0, the limit is clamped by opts and the
// offset is capped so offset+limit still fits in an int
func NewLimitOffset(qb *query.Builder, req LimitOffsetRequest, opts Options) *LimitOffset {
	limit := opts.limit(req.Limit)
	offset := req.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > math.MaxInt-limit {
		offset = math.MaxInt - limit
	}
	return &LimitOffset{qb: qb, limit: limit, offset: offset, path: req.Path}
}

// LimitOffsetFactory defers NewLimitOffset until a builder is available
func LimitOffsetFactory(req LimitOffsetRequest, opts Options) Factory {
	return func(qb *query.Builder) (Strategy, error) {
		return NewLimitOffset(qb, req, opts), nil
	}
}

// Limit returns the effective page size
func (l *LimitOffset) Limit() int {
	return l.limit
}

// Apply adds LIMIT and OFFSET as requested
func (l *LimitOffset) Apply() *query.Builder {
	return l.qb.Limit(uint64(l.limit)).Offset(uint64(l.offset))
}

// Links rewrites the offset parameter of the request path
func (l *LimitOffset) Links(count int64) (next, previous *string) {
	if int64(l.offset+l.limit) < count {
		next = withParam(l.path, "offset", l.offset+l.limit)
	}
	if l.offset > 0 {
		prev := l.offset - l.limit
		if prev < 0 {
			prev = 0
		}
		previous = withParam(l.path, "offset", prev)
	}
	return next, previous
}
