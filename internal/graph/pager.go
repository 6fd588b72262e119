package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// Page is one server page: items in server order and the follow-up URL,
// empty on the last page.
type Page[T any] struct {
	Items    []T
	NextLink string
}

// collectionResponse is the Graph collection envelope.
type collectionResponse[T any] struct {
	Value    []T    `json:"value"`
	NextLink string `json:"@odata.nextLink"`
}

// Pager walks a skip-token paginated collection one page at a time. The
// skip token lives inside the next link the server returns, so the pager
// only tracks that URL. Pages are fetched strictly in sequence.
type Pager[T any] struct {
	client  *Client
	method  string
	path    string
	headers http.Header

	next      string
	started   bool
	exhausted bool
	pages     int
}

// NewPager prepares a pager; nothing is fetched until NextPage.
func NewPager[T any](c *Client, method, path string, headers http.Header) *Pager[T] {
	return &Pager[T]{client: c, method: method, path: path, headers: headers}
}

// IsExhausted reports whether the last page has been fetched.
func (p *Pager[T]) IsExhausted() bool {
	return p.exhausted
}

// Pages returns how many pages have been fetched.
func (p *Pager[T]) Pages() int {
	return p.pages
}

// NextPage fetches the next page. The first call issues the initial request
// with the pager's method; follow-ups GET the server's next link. Calling it
// on an exhausted pager returns an empty page.
func (p *Pager[T]) NextPage(ctx context.Context) (Page[T], error) {
	if p.exhausted {
		return Page[T]{}, nil
	}

	var (
		page Page[T]
		err  error
	)

	if !p.started {
		page, err = fetchPage[T](ctx, p.client, p.method, p.client.baseURL+p.path, p.headers)
	} else {
		page, err = fetchPage[T](ctx, p.client, http.MethodGet, p.next, p.headers)
	}

	if err != nil {
		return Page[T]{}, err
	}

	p.started = true
	p.pages++
	p.next = page.NextLink
	p.exhausted = page.NextLink == ""

	p.client.logger.Debug("fetched page",
		slog.String("path", p.path),
		slog.Int("page", p.pages),
		slog.Int("count", len(page.Items)),
		slog.Bool("more", !p.exhausted),
	)

	return page, nil
}

// fetchPage issues one request and decodes a collection envelope.
func fetchPage[T any](ctx context.Context, c *Client, method, url string, headers http.Header) (Page[T], error) {
	resp, err := c.DoURL(ctx, method, url, nil, headers)
	if err != nil {
		return Page[T]{}, err
	}
	defer resp.Body.Close()

	var cr collectionResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return Page[T]{}, transportError(method, resp.Request.URL.Path, fmt.Errorf("decoding page: %w", err))
	}

	return Page[T]{Items: cr.Value, NextLink: cr.NextLink}, nil
}
