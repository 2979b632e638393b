package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Search_Success(t *testing.T) {
	testData := loadTestData(t, "search.json")

	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/api/search", r.URL.Path)
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, `type = "page" AND space = "DEV" AND label = "runbook"`, r.URL.Query().Get("cql"))

		_, _ = w.Write(testData)
	})

	result, err := client.Search(context.Background(), &SearchOptions{
		Space: "DEV",
		Label: "runbook",
	})

	require.NoError(t, err)
	assert.Len(t, result.Results, 2)
	assert.Equal(t, 50, result.TotalSize)
	assert.True(t, result.HasMore())

	first := result.Results[0]
	assert.Equal(t, "12345", first.Content.ID)
	assert.Equal(t, "page", first.Content.Type)
	assert.Equal(t, "Getting Started Guide", first.Content.Title)
}

func TestClient_Search_RawCQL(t *testing.T) {
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, `type=page AND lastModified > now("-7d")`, r.URL.Query().Get("cql"))

		_, _ = w.Write([]byte(`{"results": [], "totalSize": 0}`))
	})

	_, err := client.Search(context.Background(), &SearchOptions{
		CQL:   `type=page AND lastModified > now("-7d")`,
		Label: "ignored",
	})
	require.NoError(t, err)
}

func TestClient_Search_NoQuery(t *testing.T) {
	client := NewClient("http://unused", "user@example.com", "token")

	_, err := client.Search(context.Background(), &SearchOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "search requires a query or filters")

	_, err = client.Search(context.Background(), nil)
	require.Error(t, err)
}

func TestClient_Search_APIError(t *testing.T) {
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message": "Could not parse cql"}`))
	})

	_, err := client.Search(context.Background(), &SearchOptions{CQL: "bogus ~"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Could not parse cql")
}

func TestClient_SearchPageIDs(t *testing.T) {
	var starts []string
	client := serve(t, func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		starts = append(starts, start)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))

		if start == "" {
			_, _ = w.Write([]byte(`{"results": [
				{"content": {"id": "1", "type": "page"}},
				{"content": {"id": "2", "type": "blogpost"}}
			], "start": 0, "size": 2, "totalSize": 3}`))
			return
		}
		_, _ = w.Write([]byte(`{"results": [
			{"content": {"id": "1", "type": "page"}},
			{"content": {"id": "3", "type": "page"}}
		], "start": 2, "size": 1, "totalSize": 3}`))
	})

	ids, err := client.SearchPageIDs(context.Background(), SearchOptions{Label: "runbook", Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"1", "3"}, ids)
	assert.Equal(t, []string{"", "2"}, starts)
}

func TestBuildCQL(t *testing.T) {
	tests := []struct {
		name string
		opts SearchOptions
		want string
	}{
		{"empty", SearchOptions{}, ""},
		{"text", SearchOptions{Text: "deploy"}, `type = "page" AND text ~ "deploy"`},
		{"title", SearchOptions{Title: "guide"}, `type = "page" AND title ~ "guide"`},
		{
			"combined",
			SearchOptions{Space: "DEV", Title: "guide", Label: "docs"},
			`type = "page" AND space = "DEV" AND title ~ "guide" AND label = "docs"`,
		},
		{"quotes", SearchOptions{Title: `say "hi"`}, `type = "page" AND title ~ "say \"hi\""`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildCQL(&tt.opts))
		})
	}
}

func TestSearchResponse_HasMore(t *testing.T) {
	assert.True(t, (&SearchResponse{Start: 0, Size: 25, TotalSize: 30}).HasMore())
	assert.False(t, (&SearchResponse{Start: 25, Size: 5, TotalSize: 30}).HasMore())
	assert.False(t, (&SearchResponse{Start: 0, Size: 0, TotalSize: 30}).HasMore())
}
