package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListPagesOptions contains options for listing pages.
type ListPagesOptions struct {
	Limit      int
	Cursor     string
	Status     string // current, archived, draft
	Sort       string // title, -title, created-date, -created-date, modified-date, -modified-date
	Title      string // Filter by title (contains)
	BodyFormat string // storage, view
}

// GetPageOptions contains options for getting a page.
type GetPageOptions struct {
	BodyFormat string // storage, view
}

// ListPages returns a list of pages in a space.
func (c *Client) ListPages(ctx context.Context, spaceID string, opts *ListPagesOptions) (*PaginatedResponse[Page], error) {
	params := url.Values{}
	params.Set("limit", "25") // Default limit

	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Cursor != "" {
			params.Set("cursor", opts.Cursor)
		}
		if opts.Status != "" {
			params.Set("status", opts.Status)
		}
		if opts.Sort != "" {
			params.Set("sort", opts.Sort)
		}
		if opts.Title != "" {
			params.Set("title", opts.Title)
		}
		if opts.BodyFormat != "" {
			params.Set("body-format", opts.BodyFormat)
		}
	}

	path := fmt.Sprintf("/api/v2/spaces/%s/pages?%s", spaceID, params.Encode())
	var result PaginatedResponse[Page]
	if err := c.getJSON(ctx, path, &result, "pages"); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListAllPages follows cursors until every page in the space is listed.
// Bodies are not requested.
func (c *Client) ListAllPages(ctx context.Context, spaceID string, status string) ([]Page, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*PaginatedResponse[Page], error) {
		return c.ListPages(ctx, spaceID, &ListPagesOptions{Limit: 250, Status: status, Cursor: cursor})
	})
}

// GetPage returns a single page by ID.
func (c *Client) GetPage(ctx context.Context, pageID string, opts *GetPageOptions) (*Page, error) {
	params := url.Values{}
	if opts != nil && opts.BodyFormat != "" {
		params.Set("body-format", opts.BodyFormat)
	}

	path := fmt.Sprintf("/api/v2/pages/%s", pageID)
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var page Page
	if err := c.getJSON(ctx, path, &page, "page"); err != nil {
		return nil, err
	}

	return &page, nil
}

// GetPageContent fetches a page twice, once per body format, and returns it
// with both the storage and view bodies populated. The v2 API serves one
// representation per request.
func (c *Client) GetPageContent(ctx context.Context, pageID string) (*Page, error) {
	page, err := c.GetPage(ctx, pageID, &GetPageOptions{BodyFormat: BodyFormatStorage})
	if err != nil {
		return nil, fmt.Errorf("fetching storage body: %w", err)
	}

	view, err := c.GetPage(ctx, pageID, &GetPageOptions{BodyFormat: BodyFormatView})
	if err != nil {
		return nil, fmt.Errorf("fetching view body: %w", err)
	}

	if page.Body == nil {
		page.Body = &Body{}
	}
	if view.Body != nil {
		page.Body.View = view.Body.View
	}
	return page, nil
}

// GetPageLabels returns every label on a page.
func (c *Client) GetPageLabels(ctx context.Context, pageID string) ([]Label, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*PaginatedResponse[Label], error) {
		params := url.Values{}
		params.Set("limit", "250")
		if cursor != "" {
			params.Set("cursor", cursor)
		}
		path := fmt.Sprintf("/api/v2/pages/%s/labels?%s", pageID, params.Encode())

		var result PaginatedResponse[Label]
		if err := c.getJSON(ctx, path, &result, "labels"); err != nil {
			return nil, err
		}
		return &result, nil
	})
}
