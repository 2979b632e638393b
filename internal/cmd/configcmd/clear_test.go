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

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range config.EnvVars() {
		t.Setenv(v, "")
	}
}

func TestRunClear_WithExistingConfig(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "cfmd", "config.yml")

	cfg := &config.Config{
		URL:      "https://test.atlassian.net/wiki",
		Email:    "test@example.com",
		APIToken: "test-token",
	}
	require.NoError(t, cfg.Save(configPath))

	var buf bytes.Buffer
	require.NoError(t, runClear(&buf, configPath, true))
	assert.Contains(t, buf.String(), "✓ Configuration cleared from "+configPath)

	_, err := os.Stat(configPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRunClear_NoConfigFile(t *testing.T) {
	clearEnv(t)

	var buf bytes.Buffer
	require.NoError(t, runClear(&buf, filepath.Join(t.TempDir(), "config.yml"), true))
	assert.Equal(t, "✓ No config file to remove\n", buf.String())
}

func TestRunClear_Idempotent(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "config.yml")

	require.NoError(t, runClear(&bytes.Buffer{}, configPath, true))
	require.NoError(t, runClear(&bytes.Buffer{}, configPath, true))
}

func TestRunClear_ReportsEnvVars(t *testing.T) {
	clearEnv(t)
	t.Setenv("CFMD_API_TOKEN", "secret")

	var buf bytes.Buffer
	require.NoError(t, runClear(&buf, filepath.Join(t.TempDir(), "config.yml"), true))
	assert.Contains(t, buf.String(), "Environment variables will still be used: [CFMD_API_TOKEN]")
}
