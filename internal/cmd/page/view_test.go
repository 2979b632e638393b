package page

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/confluence-md/api"
)

const viewStorage = `<h1>Setup</h1>` +
	`<ac:structured-macro ac:name="code" ac:macro-id="c1"><ac:parameter ac:name="language">bash</ac:parameter>` +
	`<ac:plain-text-body><![CDATA[make install]]></ac:plain-text-body></ac:structured-macro>`

const viewBody = `<h1 id="Setup">Setup</h1>` +
	`<div class="code panel pdl" data-macro-name="code" data-macro-id="c1"><pre class="syntaxhighlighter-pre">make install</pre></div>`

// mockViewServer serves a single page with both body formats.
func mockViewServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/pages/12345", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{}
		switch r.URL.Query().Get("body-format") {
		case "storage":
			body["storage"] = map[string]string{"value": viewStorage}
		case "view":
			body["view"] = map[string]string{"value": viewBody}
		}
		assert.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"id": "12345", "title": "Setup Guide", "spaceId": "9",
			"version": map[string]int{"number": 3},
			"body":    body,
			"_links":  map[string]string{"webui": "/spaces/DEV/pages/12345"},
		}))
	})
	mux.HandleFunc("GET /api/v2/spaces/9", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "9", "key": "DEV"}`))
	})
	mux.HandleFunc("GET /api/v2/pages/12345/labels", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"id": "1", "name": "howto"}]}`))
	})
	mux.HandleFunc("GET /api/v2/pages/12345/attachments", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	})
	return httptest.NewServer(mux)
}

func TestRunView_Success(t *testing.T) {
	server := mockViewServer(t)
	defer server.Close()

	var buf bytes.Buffer
	client := api.NewClient(server.URL, "test@example.com", "token")
	opts := &viewOptions{noColor: true, out: &buf}

	require.NoError(t, runView(context.Background(), "12345", opts, client))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "---\ntitle: Setup Guide\n"), out)
	assert.Contains(t, out, "confluenceSpaceKey: DEV")
	assert.Contains(t, out, "confluenceLabels:\n  - howto")
	assert.Contains(t, out, "```bash\nmake install\n```")
}

func TestRunView_NoFrontmatter(t *testing.T) {
	server := mockViewServer(t)
	defer server.Close()

	var buf bytes.Buffer
	client := api.NewClient(server.URL, "test@example.com", "token")
	opts := &viewOptions{noMeta: true, noColor: true, out: &buf}

	require.NoError(t, runView(context.Background(), "12345", opts, client))
	assert.NotContains(t, buf.String(), "confluenceId")
	assert.Contains(t, buf.String(), "# Setup")
}

func TestRunView_RawFormat(t *testing.T) {
	server := mockViewServer(t)
	defer server.Close()

	var buf bytes.Buffer
	client := api.NewClient(server.URL, "test@example.com", "token")
	opts := &viewOptions{raw: true, noColor: true, out: &buf}

	require.NoError(t, runView(context.Background(), "12345", opts, client))
	assert.Equal(t, viewStorage+"\n", buf.String())
}

func TestRunView_StorageOnly(t *testing.T) {
	server := mockViewServer(t)
	defer server.Close()

	var buf bytes.Buffer
	client := api.NewClient(server.URL, "test@example.com", "token")
	opts := &viewOptions{storageOnly: true, noColor: true, out: &buf}

	require.NoError(t, runView(context.Background(), "12345", opts, client))
	assert.Contains(t, buf.String(), "```bash\nmake install\n```")
	assert.NotContains(t, buf.String(), "confluenceId")
}

func TestRunView_JSONOutput(t *testing.T) {
	server := mockViewServer(t)
	defer server.Close()

	var buf bytes.Buffer
	client := api.NewClient(server.URL, "test@example.com", "token")
	opts := &viewOptions{output: "json", noColor: true, out: &buf}

	require.NoError(t, runView(context.Background(), "12345", opts, client))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Contains(t, got["markdown"], "make install")
	assert.Contains(t, got, "frontmatter")
}

func TestRunView_InvalidOutputFormat(t *testing.T) {
	opts := &viewOptions{output: "invalid", out: &bytes.Buffer{}}

	err := runView(context.Background(), "12345", opts, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid output format")
}

func TestRunView_PageNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Page not found"}`))
	}))
	defer server.Close()

	client := api.NewClient(server.URL, "test@example.com", "token")
	opts := &viewOptions{noColor: true, out: &bytes.Buffer{}}

	err := runView(context.Background(), "99999", opts, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch page")
}
