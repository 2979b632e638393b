package api

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// SearchOptions selects pages with CQL. Type is always page.
type SearchOptions struct {
	CQL   string // Raw CQL query (takes precedence if set)
	Text  string // Full-text search term
	Space string // Space key to filter results
	Title string // Title contains filter
	Label string // Label filter
	Limit int    // Results per request (default 25, max 200)
	Start int
}

// SearchResult represents a single search result from the v1 API.
type SearchResult struct {
	Content      SearchContent `json:"content"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	LastModified string        `json:"lastModified"`
}

// SearchContent contains the content details in a search result.
type SearchContent struct {
	ID     string `json:"id"`
	Type   string `json:"type"`
	Status string `json:"status"`
	Title  string `json:"title"`
}

// SearchResponse represents the v1 search API response.
type SearchResponse struct {
	Results   []SearchResult `json:"results"`
	Start     int            `json:"start"`
	Limit     int            `json:"limit"`
	Size      int            `json:"size"`
	TotalSize int            `json:"totalSize"`
	CQLQuery  string         `json:"cqlQuery"`
}

// HasMore returns true if there are more results available.
func (r *SearchResponse) HasMore() bool {
	return r.Size > 0 && r.Start+r.Size < r.TotalSize
}

// Search performs a Confluence search using CQL.
// Uses the v1 REST API: GET /rest/api/search
func (c *Client) Search(ctx context.Context, opts *SearchOptions) (*SearchResponse, error) {
	params := url.Values{}

	cql := ""
	if opts != nil {
		cql = opts.CQL
		if cql == "" {
			cql = buildCQL(opts)
		}
	}

	if cql == "" {
		return nil, fmt.Errorf("search requires a query or filters")
	}

	params.Set("cql", cql)

	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	} else {
		params.Set("limit", "25")
	}
	if opts.Start > 0 {
		params.Set("start", strconv.Itoa(opts.Start))
	}

	path := "/rest/api/search?" + params.Encode()
	var result SearchResponse
	if err := c.getJSON(ctx, path, &result, "search"); err != nil {
		return nil, err
	}

	return &result, nil
}

// SearchPageIDs pages through every search result and returns the IDs of
// the matching pages, in result order and without duplicates.
func (c *Client) SearchPageIDs(ctx context.Context, opts SearchOptions) ([]string, error) {
	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	var ids []string
	seen := make(map[string]bool)
	for {
		result, err := c.Search(ctx, &opts)
		if err != nil {
			return nil, err
		}
		for _, r := range result.Results {
			if r.Content.ID == "" || seen[r.Content.ID] {
				continue
			}
			if r.Content.Type != "" && r.Content.Type != "page" {
				continue
			}
			seen[r.Content.ID] = true
			ids = append(ids, r.Content.ID)
		}
		if !result.HasMore() {
			return ids, nil
		}
		opts.Start = result.Start + result.Size
	}
}

// buildCQL constructs a CQL query from search options.
func buildCQL(opts *SearchOptions) string {
	var clauses []string

	if opts.Text != "" {
		clauses = append(clauses, fmt.Sprintf(`text ~ %q`, opts.Text))
	}
	if opts.Space != "" {
		clauses = append(clauses, fmt.Sprintf(`space = %q`, opts.Space))
	}
	if opts.Title != "" {
		clauses = append(clauses, fmt.Sprintf(`title ~ %q`, opts.Title))
	}
	if opts.Label != "" {
		clauses = append(clauses, fmt.Sprintf(`label = %q`, opts.Label))
	}

	if len(clauses) == 0 {
		return ""
	}

	return strings.Join(append([]string{`type = "page"`}, clauses...), " AND ")
}
