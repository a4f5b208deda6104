package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BRAINAGE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "tcnl-project", cfg.Security.PlatformToken)
	assert.Equal(t, "ExclusionTask", cfg.Tasks.Exclusion)
	assert.Equal(t, 412, cfg.Scoring.TotalParticipants)
	assert.False(t, cfg.Scoring.UseLegacyCorrection)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	content := []byte("server:\n  port: 9100\nsecurity:\n  platform_token: from-file\n")
	require.NoError(t, os.WriteFile(configFile, content, 0o644))

	t.Setenv("BRAINAGE_CONFIG_FILE", configFile)
	t.Setenv("BRAINAGE_SECURITY_PLATFORM_TOKEN", "from-env")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.Security.PlatformToken)
}

func TestLoadRejectsInvalidPort(t *testing.T) {
	t.Setenv("BRAINAGE_CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("BRAINAGE_SERVER_PORT", "-1")

	_, err := Load()
	assert.Error(t, err)
}

func TestTaskDirJoinsDataDir(t *testing.T) {
	cfg := &Config{}
	cfg.Paths.DataDir = filepath.Join("base", "data")
	cfg.Tasks.GoFitts = "GoFitts"

	assert.Equal(t, filepath.Join("base", "data", "GoFitts"), cfg.TaskDir(cfg.Tasks.GoFitts))
}
