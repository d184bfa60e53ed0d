package context

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	ctx := New()
	assert.False(t, ctx.IsTestMode())
	assert.NotNil(t, ctx.Config())
	assert.Empty(t, ctx.Config().GetConfigMap())

	ctx.SetTestMode(true)
	assert.True(t, ctx.IsTestMode())
}

func TestConfiguration_LayerPriority(t *testing.T) {
	ctx := NewTestContext()
	cfg := ctx.Config()

	configDir := t.TempDir()
	workDir := t.TempDir()
	cfg.SetTestConfigDir(configDir)
	cfg.SetTestWorkingDir(workDir)

	require.NoError(t, os.WriteFile(filepath.Join(configDir, ".env"),
		[]byte("WAYFARER_PLANNER_BACKEND=openai\nWAYFARER_STORE=sqlite\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"),
		[]byte("WAYFARER_STORE=redis\nGOOGLE_MAPS_API_KEY=local-key\n"), 0644))
	cfg.SetTestEnvOverride("GOOGLE_MAPS_API_KEY", "env-key")
	cfg.SetTestEnvOverride("UNRELATED", "ignored")

	cfg.LoadDefaults(map[string]string{
		"WAYFARER_PLANNER_BACKEND": "http",
		"WAYFARER_STORE":           "file",
		"WAYFARER_RESOLVER_QPS":    "10",
	})
	require.NoError(t, cfg.LoadConfigDotEnv())
	require.NoError(t, cfg.LoadLocalDotEnv())
	require.NoError(t, cfg.LoadEnvironmentVariables())

	values := cfg.GetConfigMap()
	assert.Equal(t, "openai", values["WAYFARER_PLANNER_BACKEND"])
	assert.Equal(t, "redis", values["WAYFARER_STORE"])
	assert.Equal(t, "env-key", values["GOOGLE_MAPS_API_KEY"])
	assert.Equal(t, "10", values["WAYFARER_RESOLVER_QPS"])
	_, exists := values["UNRELATED"]
	assert.False(t, exists)
}

func TestConfiguration_LoadDefaultsKeepsExisting(t *testing.T) {
	cfg := NewTestContext().Config()
	cfg.SetConfigValue("WAYFARER_STORE", "memory")
	cfg.LoadDefaults(map[string]string{"WAYFARER_STORE": "file"})

	value, ok := cfg.GetConfigValue("WAYFARER_STORE")
	assert.True(t, ok)
	assert.Equal(t, "memory", value)
}

func TestConfiguration_MissingDotEnvIsNotAnError(t *testing.T) {
	cfg := NewTestContext().Config()
	cfg.SetTestConfigDir(t.TempDir())
	cfg.SetTestWorkingDir(t.TempDir())

	assert.NoError(t, cfg.LoadConfigDotEnv())
	assert.NoError(t, cfg.LoadLocalDotEnv())
}

func TestConfiguration_MalformedDotEnv(t *testing.T) {
	cfg := NewTestContext().Config()
	workDir := t.TempDir()
	cfg.SetTestWorkingDir(workDir)
	require.NoError(t, os.WriteFile(filepath.Join(workDir, ".env"), []byte("KEY='unterminated\n"), 0644))

	err := cfg.LoadLocalDotEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse .env file")
}

func TestConfiguration_GetEnvTestIsolation(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "real")
	ctx := NewTestContext()
	assert.Equal(t, "", ctx.Config().GetEnv("DEEPGRAM_API_KEY"))

	ctx.Config().SetTestEnvOverride("DEEPGRAM_API_KEY", "fake")
	assert.Equal(t, "fake", ctx.Config().GetEnv("DEEPGRAM_API_KEY"))

	ctx.Config().ClearAllTestEnvOverrides()
	assert.Equal(t, "", ctx.Config().GetEnv("DEEPGRAM_API_KEY"))

	ctx.SetTestMode(false)
	assert.Equal(t, "real", ctx.Config().GetEnv("DEEPGRAM_API_KEY"))
}

func TestConfiguration_UserConfigDir(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	dir, err := New().Config().GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/xdg", "wayfarer"), dir)
}
