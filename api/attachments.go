package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// ListAttachmentsOptions contains options for listing attachments.
type ListAttachmentsOptions struct {
	Limit     int
	Cursor    string
	MediaType string
	Filename  string
}

// ListAttachments returns attachments for a page.
func (c *Client) ListAttachments(ctx context.Context, pageID string, opts *ListAttachmentsOptions) (*PaginatedResponse[Attachment], error) {
	params := url.Values{}
	params.Set("limit", "25")

	if opts != nil {
		if opts.Limit > 0 {
			params.Set("limit", strconv.Itoa(opts.Limit))
		}
		if opts.Cursor != "" {
			params.Set("cursor", opts.Cursor)
		}
		if opts.MediaType != "" {
			params.Set("mediaType", opts.MediaType)
		}
		if opts.Filename != "" {
			params.Set("filename", opts.Filename)
		}
	}

	path := fmt.Sprintf("/api/v2/pages/%s/attachments?%s", pageID, params.Encode())
	var result PaginatedResponse[Attachment]
	if err := c.getJSON(ctx, path, &result, "attachments"); err != nil {
		return nil, err
	}

	return &result, nil
}

// ListAllAttachments follows cursors until every attachment of the page is
// listed.
func (c *Client) ListAllAttachments(ctx context.Context, pageID string) ([]Attachment, error) {
	return collect(ctx, func(ctx context.Context, cursor string) (*PaginatedResponse[Attachment], error) {
		return c.ListAttachments(ctx, pageID, &ListAttachmentsOptions{Limit: 250, Cursor: cursor})
	})
}

// GetAttachment returns a single attachment by ID.
func (c *Client) GetAttachment(ctx context.Context, attachmentID string) (*Attachment, error) {
	path := fmt.Sprintf("/api/v2/attachments/%s", attachmentID)
	var att Attachment
	if err := c.getJSON(ctx, path, &att, "attachment"); err != nil {
		return nil, err
	}

	return &att, nil
}

// DownloadAttachment streams an attachment's content. The download endpoint
// redirects to the media host; the HTTP client follows it and drops the
// credentials when the host changes.
func (c *Client) DownloadAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, fmt.Sprintf("/api/v2/attachments/%s/download", attachmentID))
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &ErrorResponse{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("download of attachment %s failed with status %d", attachmentID, resp.StatusCode),
		}
	}
	return resp.Body, nil
}

// DownloadAttachmentBytes downloads an attachment into memory, refusing
// anything larger than maxBytes when maxBytes is positive.
func (c *Client) DownloadAttachmentBytes(ctx context.Context, attachmentID string, maxBytes int64) ([]byte, error) {
	rc, err := c.DownloadAttachment(ctx, attachmentID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()

	r := io.Reader(rc)
	if maxBytes > 0 {
		r = io.LimitReader(rc, maxBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading attachment %s: %w", attachmentID, err)
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("attachment %s exceeds %d bytes", attachmentID, maxBytes)
	}
	return data, nil
}
