package graph

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/tonimelisma/msservices/internal/apierr"
)

// Drain fetches every page of a skip-token collection and returns the items
// in server order. Any page failure discards what was collected and
// returns an upstream error wrapping the failure; not-found stays
// matchable through the chain.
func Drain[T any](ctx context.Context, c *Client, method, path string, headers http.Header) ([]T, error) {
	return DrainPager(ctx, NewPager[T](c, method, path, headers))
}

// DrainPager fetches every remaining page of p with Drain's semantics. After
// a failure, p.Pages() tells how many pages had succeeded, so callers can
// tell a missing collection (first page failed) from a broken walk.
func DrainPager[T any](ctx context.Context, p *Pager[T]) ([]T, error) {
	var items []T

	for !p.IsExhausted() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, drainError(p.client, p.path, p.Pages()+1, err)
		}

		items = append(items, page.Items...)
	}

	return items, nil
}

// DrainNextLink fetches a collection by following @odata.nextLink
// recursively: each page's items are followed by the drained tail. The
// recursion ends at the first page without a next link.
func DrainNextLink[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	return drainFrom[T](ctx, c, c.baseURL+path, 1)
}

func drainFrom[T any](ctx context.Context, c *Client, url string, pageNum int) ([]T, error) {
	page, err := fetchPage[T](ctx, c, http.MethodGet, url, nil)
	if err != nil {
		return nil, drainError(c, url, pageNum, err)
	}

	if page.NextLink == "" {
		return page.Items, nil
	}

	tail, err := drainFrom[T](ctx, c, page.NextLink, pageNum+1)
	if err != nil {
		return nil, err
	}

	return append(page.Items, tail...), nil
}

func drainError(c *Client, target string, pageNum int, err error) error {
	c.logger.Warn("collection drain aborted",
		slog.Int("page", pageNum),
		slog.String("error", err.Error()),
	)

	return fmt.Errorf("graph: draining %s: %w",
		target, apierr.New(apierr.ErrUpstream, apierr.StatusCode(err), fmt.Sprintf("page %d failed", pageNum), err))
}
