package api

import (
	"context"
	"net/url"
)

// PaginatedResponse is one page of a cursor-paginated v2 listing.
type PaginatedResponse[T any] struct {
	Results []T   `json:"results"`
	Links   Links `json:"_links,omitempty"`
}

// Links holds the navigation links the API attaches to resources and listings.
type Links struct {
	Next  string `json:"next,omitempty"`
	Base  string `json:"base,omitempty"`
	WebUI string `json:"webui,omitempty"`
}

// HasMore reports whether another page of results follows.
func (p *PaginatedResponse[T]) HasMore() bool {
	return p.Links.Next != ""
}

// NextCursor extracts the cursor query parameter from the next link.
func (p *PaginatedResponse[T]) NextCursor() string {
	if p.Links.Next == "" {
		return ""
	}
	u, err := url.Parse(p.Links.Next)
	if err != nil {
		return ""
	}
	return u.Query().Get("cursor")
}

// collect calls fetch with successive cursors, starting from "", and
// concatenates the results. It stops when the API stops returning a next
// cursor or repeats the one it was given.
func collect[T any](ctx context.Context, fetch func(ctx context.Context, cursor string) (*PaginatedResponse[T], error)) ([]T, error) {
	var all []T
	cursor := ""
	for {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Results...)

		next := page.NextCursor()
		if next == "" || next == cursor {
			return all, nil
		}
		cursor = next
	}
}
