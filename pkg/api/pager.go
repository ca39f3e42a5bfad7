package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

// page is the envelope of every cursor paginated resource.
// A missing cursor marks the last page.
type page struct {
	Data   *[]json.RawMessage `json:"data"`
	Cursor *string            `json:"cursor"`
}

// Pager lazily walks a cursor paginated resource, one page per request.
//
// Iteration stops when the server omits the cursor, when maxDepth pages have
// been fetched, or on the first error. A Pager is single-use: once Next has
// returned false it never fetches again.
//
//	p := api.Paginate[api.Activity](c, path, "", 3)
//	for p.Next(ctx) {
//		use(p.Record())
//	}
//	if err := p.Err(); err != nil { ... }
type Pager[T any] struct {
	client   *HTTPClient
	path     string
	cursor   string
	maxDepth int

	depth     int
	buf       []json.RawMessage
	record    T
	exhausted bool
	err       error
}

// Paginate returns a Pager over path starting at cursor. maxDepth bounds the
// number of pages fetched; zero or negative means no bound.
func Paginate[T any](c *HTTPClient, path, cursor string, maxDepth int) *Pager[T] {
	return &Pager[T]{
		client:   c,
		path:     path,
		cursor:   cursor,
		maxDepth: maxDepth,
	}
}

// Next advances to the next record, fetching the next page when the current
// one is consumed.
func (p *Pager[T]) Next(ctx context.Context) bool {
	for len(p.buf) == 0 {
		if p.err != nil || p.exhausted {
			return false
		}
		p.fetch(ctx)
	}

	raw := p.buf[0]
	p.buf = p.buf[1:]

	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		p.fail(fmt.Errorf("decode record on page %d of %s: %w: %v", p.depth, p.path, ErrMalformedResponse, err))
		return false
	}
	p.record = rec
	return true
}

// Record returns the record Next advanced to.
func (p *Pager[T]) Record() T {
	return p.record
}

// Err returns the error that stopped iteration, if any.
func (p *Pager[T]) Err() error {
	return p.err
}

// Pages returns how many pages have been fetched so far.
func (p *Pager[T]) Pages() int {
	return p.depth
}

func (p *Pager[T]) fetch(ctx context.Context) {
	if p.maxDepth > 0 && p.depth >= p.maxDepth {
		p.exhausted = true
		return
	}
	p.depth++

	var query url.Values
	if p.cursor != "" {
		query = url.Values{"cursor": {p.cursor}}
	}

	var pg page
	if err := p.client.getJSON(ctx, p.path, query, &pg); err != nil {
		p.fail(fmt.Errorf("fetch page %d: %w", p.depth, err))
		return
	}
	if pg.Data == nil {
		p.fail(fmt.Errorf("page %d of %s has no data array: %w", p.depth, p.path, ErrMalformedResponse))
		return
	}

	p.buf = *pg.Data
	if pg.Cursor == nil || *pg.Cursor == "" {
		p.exhausted = true
		return
	}
	p.cursor = *pg.Cursor
}

func (p *Pager[T]) fail(err error) {
	p.err = err
	p.buf = nil
	p.exhausted = true
}

// Collect drains p into a slice.
func Collect[T any](ctx context.Context, p *Pager[T]) ([]T, error) {
	var out []T
	for p.Next(ctx) {
		out = append(out, p.Record())
	}
	return out, p.Err()
}
