// Package api provides the Confluence Cloud REST API client.
package api

import (
	"errors"
	"time"
)

// Body formats accepted by the v2 page endpoints.
const (
	BodyFormatStorage = "storage"
	BodyFormatView    = "view"
)

// Space represents a Confluence space.
type Space struct {
	ID          string            `json:"id"`
	Key         string            `json:"key"`
	Name        string            `json:"name"`
	Type        string            `json:"type"`
	Status      string            `json:"status"`
	HomepageID  string            `json:"homepageId,omitempty"`
	Description *SpaceDescription `json:"description,omitempty"`
	Links       Links             `json:"_links,omitempty"`
}

// SpaceDescription contains space description in various formats.
type SpaceDescription struct {
	Plain *DescriptionValue `json:"plain,omitempty"`
}

// DescriptionValue holds the actual description text.
type DescriptionValue struct {
	Value string `json:"value"`
}

// Page represents a Confluence page.
type Page struct {
	ID        string   `json:"id"`
	Status    string   `json:"status"`
	Title     string   `json:"title"`
	SpaceID   string   `json:"spaceId"`
	ParentID  string   `json:"parentId,omitempty"`
	Position  int      `json:"position,omitempty"`
	AuthorID  string   `json:"authorId,omitempty"`
	CreatedAt Time     `json:"createdAt,omitempty"`
	Version   *Version `json:"version,omitempty"`
	Body      *Body    `json:"body,omitempty"`
	Links     Links    `json:"_links,omitempty"`
}

// VersionNumber returns the page version, or 0 when it is unknown.
func (p *Page) VersionNumber() int {
	if p.Version == nil {
		return 0
	}
	return p.Version.Number
}

// StorageBody returns the storage-format body, or "".
func (p *Page) StorageBody() string {
	if p.Body == nil || p.Body.Storage == nil {
		return ""
	}
	return p.Body.Storage.Value
}

// ViewBody returns the rendered view body, or "".
func (p *Page) ViewBody() string {
	if p.Body == nil || p.Body.View == nil {
		return ""
	}
	return p.Body.View.Value
}

// Version contains page version information.
type Version struct {
	Number    int    `json:"number"`
	Message   string `json:"message,omitempty"`
	AuthorID  string `json:"authorId,omitempty"`
	CreatedAt Time   `json:"createdAt,omitempty"`
}

// Body contains page content in various representations.
type Body struct {
	Storage *BodyRepresentation `json:"storage,omitempty"`
	View    *BodyRepresentation `json:"view,omitempty"`
}

// BodyRepresentation holds content in a specific format.
type BodyRepresentation struct {
	Representation string `json:"representation"`
	Value          string `json:"value"`
}

// Label is a page label.
type Label struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Prefix string `json:"prefix,omitempty"`
}

// Attachment represents a file attachment.
type Attachment struct {
	ID           string   `json:"id"`
	Status       string   `json:"status"`
	Title        string   `json:"title"`
	MediaType    string   `json:"mediaType"`
	FileSize     int64    `json:"fileSize"`
	DownloadLink string   `json:"downloadLink,omitempty"`
	Version      *Version `json:"version,omitempty"`
	Links        Links    `json:"_links,omitempty"`
}

// Time is a wrapper around time.Time for custom JSON parsing.
type Time struct {
	time.Time
}

// UnmarshalJSON parses Confluence's ISO 8601 date format.
func (t *Time) UnmarshalJSON(data []byte) error {
	s := string(data)

	// Handle null or empty
	if s == "null" || s == `""` || s == "" {
		return nil
	}

	// Remove quotes if present
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}

	if s == "" {
		return nil
	}

	parsed, err := time.Parse(time.RFC3339, s)
	if err != nil {
		// Try alternative format
		parsed, err = time.Parse("2006-01-02T15:04:05.000Z", s)
		if err != nil {
			return err
		}
	}

	t.Time = parsed
	return nil
}

// MarshalJSON formats time in ISO 8601 format.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(time.RFC3339) + `"`), nil
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
}

func (e *ErrorResponse) Error() string {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return e.Message
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	var apiErr *ErrorResponse
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == 404
}
