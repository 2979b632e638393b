package configcmd

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/confluence-md/internal/config"
)

func testConfig(serverURL string) *config.Config {
	return &config.Config{
		URL:      serverURL,
		Email:    "test@example.com",
		APIToken: "test-token",
	}
}

func TestRunTest_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/spaces", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "test@example.com", user)
		assert.Equal(t, "test-token", pass)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"results": [{"id": "1", "key": "DEV"}]}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	require.NoError(t, runTest(context.Background(), &buf, testConfig(server.URL), true))
	assert.Contains(t, buf.String(), "✓ Authentication successful")
	assert.Contains(t, buf.String(), "Authenticated as: test@example.com")
	assert.NotContains(t, buf.String(), "No spaces are visible")
}

func TestRunTest_NoSpaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results": []}`))
	}))
	defer server.Close()

	var buf bytes.Buffer
	require.NoError(t, runTest(context.Background(), &buf, testConfig(server.URL), true))
	assert.Contains(t, buf.String(), "No spaces are visible")
}

func TestRunTest_Failures(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    string
		wantOut    string
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message": "Unauthorized"}`, "authentication failed", "401 Unauthorized"},
		{"forbidden", http.StatusForbidden, "", "access denied", "403 Forbidden"},
		{"server error", http.StatusInternalServerError, "", "unexpected status code: 500", "Unexpected response: 500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var buf bytes.Buffer
			err := runTest(context.Background(), &buf, testConfig(server.URL), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, buf.String(), tt.wantOut)
		})
	}
}

func TestRunTest_ConnectionFailed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	var buf bytes.Buffer
	err := runTest(context.Background(), &buf, testConfig(url), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection failed")
	assert.Contains(t, buf.String(), "Check your URL with: cfmd config show")
}
