package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// ListSpacesOptions contains options for listing spaces.
type ListSpacesOptions struct {
	Limit  int
	Cursor string
	Type   string   // global, personal
	Status string   // current, archived
	Keys   []string // Filter by space keys
}

// ListSpaces returns a list of spaces.
func (c *Client) ListSpaces(ctx context.Context, opts *ListSpacesOptions) (*PaginatedResponse[Space], error) {
	params := url.Values{}
	params.Set("limit", "25") // Default limit

	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Cursor != "" {
			params.Set("cursor", opts.Cursor)
		}
		if opts.Type != "" {
			params.Set("type", opts.Type)
		}
		if opts.Status != "" {
			params.Set("status", opts.Status)
		}
		for _, key := range opts.Keys {
			params.Add("keys", key)
		}
	}

	path := "/api/v2/spaces?" + params.Encode()
	var result PaginatedResponse[Space]
	if err := c.getJSON(ctx, path, &result, "spaces"); err != nil {
		return nil, err
	}

	return &result, nil
}

// GetSpace returns a single space by ID.
func (c *Client) GetSpace(ctx context.Context, spaceID string) (*Space, error) {
	path := fmt.Sprintf("/api/v2/spaces/%s", spaceID)
	var space Space
	if err := c.getJSON(ctx, path, &space, "space"); err != nil {
		return nil, err
	}

	return &space, nil
}

// GetSpaceByKey returns a space by its key.
func (c *Client) GetSpaceByKey(ctx context.Context, key string) (*Space, error) {
	opts := &ListSpacesOptions{
		Keys:  []string{key},
		Limit: 1,
	}
	result, err := c.ListSpaces(ctx, opts)
	if err != nil {
		return nil, err
	}

	if len(result.Results) == 0 {
		return nil, &ErrorResponse{
			StatusCode: 404,
			Message:    fmt.Sprintf("Space with key '%s' not found", key),
		}
	}

	return &result.Results[0], nil
}

// ResolveSpace accepts either a space key or a numeric space ID. Keys are
// looked up first; an all-digit argument that is not a key is fetched by ID.
func (c *Client) ResolveSpace(ctx context.Context, keyOrID string) (*Space, error) {
	space, err := c.GetSpaceByKey(ctx, keyOrID)
	if err == nil {
		return space, nil
	}
	if !IsNotFound(err) || !isNumeric(keyOrID) {
		return nil, err
	}
	return c.GetSpace(ctx, keyOrID)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
