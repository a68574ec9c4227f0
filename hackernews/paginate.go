package hackernews

import (
	"context"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 30
)

// PageIDs returns the 1-indexed page of ids when split into chunks of
// pageSize. Chunk N covers ids[(N-1)*pageSize : N*pageSize]; the last chunk
// may be short. Pages outside the range, and non-positive arguments, yield an
// empty slice.
func PageIDs(ids []int, page, pageSize int) []int {
	if page < 1 || pageSize < 1 {
		return []int{}
	}
	start := (page - 1) * pageSize
	// Guard the multiplication against overflow on absurd page numbers.
	if start < 0 || start/pageSize != page-1 || start >= len(ids) {
		return []int{}
	}
	end := start + pageSize
	if end > len(ids) || end < start {
		end = len(ids)
	}
	out := make([]int, end-start)
	copy(out, ids[start:end])
	return out
}

// ItemList fetches the list named by listType and resolves one page of it.
// Zero page and pageSize fall back to DefaultPage and DefaultPageSize. An
// unrecognised listType yields an empty result without touching the network.
//
// Items of the page are fetched concurrently and returned in list order. If
// any read fails the page fails and no partial result is returned.
func (c *Client) ItemList(ctx context.Context, listType string, page, pageSize int) ([]Item, error) {
	lt, ok := ParseListType(listType)
	if !ok {
		return []Item{}, nil
	}
	if page == 0 {
		page = DefaultPage
	}
	if pageSize == 0 {
		pageSize = DefaultPageSize
	}

	ids, err := c.ListIDs(ctx, lt)
	if err != nil {
		return nil, err
	}

	pageIDs := PageIDs(ids, page, pageSize)
	if len(pageIDs) == 0 {
		return []Item{}, nil
	}
	return c.resolve(ctx, pageIDs)
}

// resolve fetches every id in parallel, storing each result at its own index
// so completion order never affects output order.
func (c *Client) resolve(ctx context.Context, ids []int) ([]Item, error) {
	items := make([]Item, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	if c.maxConcurrency > 0 {
		g.SetLimit(c.maxConcurrency)
	}

	for i, id := range ids {
		g.Go(func() error {
			item, err := c.GetItem(gctx, id)
			if err != nil {
				return err
			}
			items[i] = *item
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		c.logger.Warn("page resolution failed",
			"page_size", len(ids),
			"error", err)
		return nil, err
	}
	return items, nil
}

// ItemListMarkdown is ItemList rendered with Markdown.
func (c *Client) ItemListMarkdown(ctx context.Context, listType string, page, pageSize int) (string, error) {
	items, err := c.ItemList(ctx, listType, page, pageSize)
	if err != nil {
		return "", err
	}
	return Markdown(ListType(listType), items), nil
}
