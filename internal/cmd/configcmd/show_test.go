package configcmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/open-cli-collective/confluence-md/internal/config"
)

func TestRunShow_WithConfigFile(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")

	cfg := &config.Config{
		URL:          "https://test.atlassian.net/wiki",
		Email:        "test@example.com",
		APIToken:     "test-token-value",
		DefaultSpace: "DEV",
		Concurrency:  8,
	}
	require.NoError(t, cfg.Save(configPath))

	var buf bytes.Buffer
	require.NoError(t, runShow(&buf, configPath, true))

	out := buf.String()
	assert.Contains(t, out, "https://test.atlassian.net/wiki  (source: config)")
	assert.Contains(t, out, "test********alue")
	assert.NotContains(t, out, "test-token-value")
	assert.Contains(t, out, "8  (source: config)")
	assert.Contains(t, out, "Config file: "+configPath)
	assert.NotContains(t, out, "(file not found)")
}

func TestRunShow_EnvOverride(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, (&config.Config{URL: "https://file.atlassian.net/wiki"}).Save(configPath))
	t.Setenv("CFMD_URL", "https://env.atlassian.net/wiki")

	var buf bytes.Buffer
	require.NoError(t, runShow(&buf, configPath, true))
	assert.Contains(t, buf.String(), "https://env.atlassian.net/wiki  (source: CFMD_URL)")
}

func TestRunShow_NoConfigFile(t *testing.T) {
	clearEnv(t)

	var buf bytes.Buffer
	require.NoError(t, runShow(&buf, filepath.Join(t.TempDir(), "config.yml"), true))
	assert.Contains(t, buf.String(), "(file not found)")
}

func TestRunShow_MalformedFile(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("url: ["), 0600))

	err := runShow(&bytes.Buffer{}, configPath, true)
	require.Error(t, err)
}

func TestMaskToken(t *testing.T) {
	assert.Equal(t, "abcd****mnop", maskToken("API Token", "abcdefghmnop"))
	assert.Equal(t, "short", maskToken("API Token", "short"))
	assert.Equal(t, "abcdefghmnop", maskToken("Email", "abcdefghmnop"))
}
