package pagination

import (
	"context"
	"fmt"
)

const (
	// DefaultPageSize applies when a caller passes a non-positive page size.
	DefaultPageSize = 50
	// MaxPageSize caps any requested page size.
	MaxPageSize = 1000
)

// Page represents a single page of results with an optional cursor for
// fetching the next page.
//
// Items is never nil; NewPage normalizes nil input to an empty slice so the
// page always serializes as a JSON array. NextCursor is set iff HasMore.
type Page[T any] struct {
	Items      []T    `json:"items"`
	HasMore    bool   `json:"hasMore"`
	NextCursor string `json:"nextCursor,omitempty"`
	TotalCount *int   `json:"totalCount,omitempty"`
}

// PageOption configures a Page constructed via NewPage.
type PageOption[T any] func(*Page[T])

// WithNextCursor marks the page as having more results, continuing at offset.
func WithNextCursor[T any](offset int) PageOption[T] {
	return func(p *Page[T]) {
		p.HasMore = true
		p.NextCursor = EncodeCursor(offset)
	}
}

// WithTotalCount records the size of the whole collection.
func WithTotalCount[T any](n int) PageOption[T] {
	return func(p *Page[T]) {
		p.TotalCount = &n
	}
}

// NewPage constructs a Page with the provided items and options.
func NewPage[T any](items []T, opts ...PageOption[T]) Page[T] {
	if items == nil {
		items = make([]T, 0)
	}
	p := Page[T]{Items: items}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Paginate returns the window [offset, offset+pageSize) of items, where the
// offset comes from cursor. An offset at or past the end yields an empty
// page with HasMore false. TotalCount is always populated.
func Paginate[T any](items []T, pageSize int, cursor string) (Page[T], error) {
	start, err := DecodeCursor(cursor)
	if err != nil {
		return NewPage[T](nil), err
	}
	pageSize = normalizeSize(pageSize)
	total := WithTotalCount[T](len(items))
	if start >= len(items) {
		return NewPage(nil, total), nil
	}
	end := min(start+pageSize, len(items))
	window := make([]T, end-start)
	copy(window, items[start:end])
	if end < len(items) {
		return NewPage(window, WithNextCursor[T](end), total), nil
	}
	return NewPage(window, total), nil
}

// FetchFunc retrieves at most top items after skipping skip items.
type FetchFunc[T any] func(ctx context.Context, skip, top int) ([]T, error)

// StreamOption configures PaginateStream.
type StreamOption func(*streamConfig)

type streamConfig struct {
	lookahead bool
}

// WithLookahead asks the backend for one item more than the page size so
// that HasMore is exact instead of inferred. The extra item is not returned.
func WithLookahead() StreamOption {
	return func(c *streamConfig) { c.lookahead = true }
}

// PaginateStream fetches exactly one page from a backend that supports
// skip/top paging.
//
// Without WithLookahead, HasMore is a heuristic: a page that comes back
// exactly full is reported as having more. A backend whose last page happens
// to be full therefore costs the caller one extra, empty fetch to detect the
// end. TotalCount is never set because the backend count is not known.
func PaginateStream[T any](ctx context.Context, fetch FetchFunc[T], pageSize int, cursor string, opts ...StreamOption) (Page[T], error) {
	var cfg streamConfig
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	skip, err := DecodeCursor(cursor)
	if err != nil {
		return NewPage[T](nil), err
	}
	pageSize = normalizeSize(pageSize)

	top := pageSize
	if cfg.lookahead {
		top++
	}
	items, err := fetch(ctx, skip, top)
	if err != nil {
		return NewPage[T](nil), fmt.Errorf("pagination: fetch skip=%d top=%d: %w", skip, top, err)
	}

	var more bool
	if cfg.lookahead {
		more = len(items) > pageSize
	} else {
		more = len(items) >= pageSize
	}
	if len(items) > pageSize {
		items = items[:pageSize]
	}
	if more {
		return NewPage(items, WithNextCursor[T](skip+len(items))), nil
	}
	return NewPage(items), nil
}

func normalizeSize(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	if n > MaxPageSize {
		return MaxPageSize
	}
	return n
}
