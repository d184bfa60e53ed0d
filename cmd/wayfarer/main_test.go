package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"wayfarer/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestConfigKey(t *testing.T) {
	assert.Equal(t, services.KeyPlannerURL, configKey("planner.url"))
	assert.Equal(t, services.KeyPartialFailureNotice, configKey("trip.partial_failure_notice"))
	assert.Equal(t, services.KeyGoogleMapsAPIKey, configKey("credentials.google_maps_api_key"))
	assert.Equal(t, services.KeyOpenAIAPIKey, configKey("openai_api_key"))
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
planner:
  backend: openai
  model: gpt-4o
resolver:
  concurrency: 2
credentials:
  openai_api_key: sk-test
`)
	values, err := loadConfigFile(path, true)
	require.NoError(t, err)
	assert.Equal(t, "openai", values[services.KeyPlannerBackend])
	assert.Equal(t, "gpt-4o", values[services.KeyPlannerModel])
	assert.Equal(t, "2", values[services.KeyResolverConcurrency])
	assert.Equal(t, "sk-test", values[services.KeyOpenAIAPIKey])

	values, err = loadConfigFile("", true)
	require.NoError(t, err)
	assert.Empty(t, values)

	_, err = loadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"), true)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Wayfarer v")
}

func TestSessionsCommand(t *testing.T) {
	out, err := execute(t, "sessions", "--test-mode", "--store", "memory", "--config", writeConfig(t, "theme: plain\n"))
	require.NoError(t, err)
	assert.Contains(t, out, "* 1. ")
	assert.Contains(t, out, "(0 messages)")
}

func TestAskCommand(t *testing.T) {
	planner := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"route1":[{"start":"Home","end":"Office","modeOfTransport":"walking","timeTaken":"20 mins"}],
			"route1Info":{"totalTime":"20","distance":"1.5 km","stepsNeeded":0}}`))
	}))
	defer planner.Close()

	directions := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "maps-key", r.URL.Query().Get("key"))
		assert.Equal(t, "walking", r.URL.Query().Get("mode"))
		_, _ = w.Write([]byte(`{"status":"OK","routes":[{"summary":"Queen St",
			"overview_polyline":{"points":"_p~iF~ps|U_ulLnnqC_mqNvxq` + "`" + `@"},
			"legs":[{"distance":{"value":1500,"text":"1.5 km"},"duration":{"value":1200}}]}]}`))
	}))
	defer directions.Close()

	config := writeConfig(t, `
theme: plain
planner:
  url: `+planner.URL+`
directions_url: `+directions.URL+`
credentials:
  google_maps_api_key: maps-key
`)

	out, err := execute(t, "ask", "--test-mode", "--store", "memory", "--planner", "http", "--config", config,
		"walk", "me", "to", "the", "office")
	require.NoError(t, err)
	assert.Contains(t, out, "20 mins  1.5 km")
	assert.Contains(t, out, "1. walking  Home → Office  (20 mins)")
}

func TestAskCommand_RequiresMessage(t *testing.T) {
	_, err := execute(t, "ask", "--test-mode", "--store", "memory")
	assert.Error(t, err)
}
