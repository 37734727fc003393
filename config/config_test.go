package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdegans/mce/errors"
)

const minimalConfig = `{
	"sources": ["rtsp://camera.local/stream"],
	"inference_config": "pie.txt"
}`

func TestParseMinimalAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "mce", cfg.Name)
	assert.Equal(t, 1920, cfg.Output.Width)
	assert.Equal(t, 1080, cfg.Output.Height)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "mce.events", cfg.Telemetry.Subject)
	assert.Equal(t, 9090, cfg.Metrics.Port)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestParseFullDocument(t *testing.T) {
	raw := `{
		"name": "lobby",
		"sources": ["a.mp4", "b.mp4"],
		"inference_config": "pie.txt",
		"model_engine_template": "model_b%d_%s.engine",
		"sink": "fakesink",
		"output": {"width": 1280, "height": 720},
		"platform": {"constrained": true, "int8": true},
		"telemetry": {"url": "nats://localhost:4222", "subject": "lobby.events"},
		"metrics": {"enabled": true, "port": 9100},
		"snapshot_dir": "/tmp/snapshots",
		"log_level": "debug",
		"log_format": "json"
	}`

	cfg, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "lobby", cfg.Name)
	assert.Len(t, cfg.Sources, 2)
	assert.True(t, cfg.Platform.Constrained)
	assert.True(t, cfg.Platform.Int8)
	assert.Equal(t, 1280, cfg.Output.Width)
	assert.Equal(t, "nats://localhost:4222", cfg.Telemetry.URL)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 9100, cfg.Metrics.Port)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	raw := `{
		"sources": ["a.mp4"],
		"inference_config": "pie.txt",
		"sorces": ["typo.mp4"]
	}`

	_, err := Parse([]byte(raw))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sorces")
	assert.True(t, errors.IsInvalid(err))
}

func TestParseRejectsEmptySources(t *testing.T) {
	_, err := Parse([]byte(`{"sources": [], "inference_config": "pie.txt"}`))
	require.Error(t, err)
}

func TestParseRejectsMissingInferenceConfig(t *testing.T) {
	_, err := Parse([]byte(`{"sources": ["a.mp4"]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inference_config")
}

func TestParseRejectsMalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"sources": [`))
	require.Error(t, err)
}

func TestValidateModelTemplate(t *testing.T) {
	cfg := Default()
	cfg.Sources = []string{"a.mp4"}
	cfg.InferenceConfig = "pie.txt"

	cfg.ModelEngineTemplate = "model_b%d_%s.engine"
	assert.NoError(t, cfg.Validate())

	cfg.ModelEngineTemplate = "model.engine"
	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInvalidConfig)
}

func TestValidateLogSettings(t *testing.T) {
	cfg := Default()
	cfg.Sources = []string{"a.mp4"}
	cfg.InferenceConfig = "pie.txt"

	cfg.LogLevel = "verbose"
	require.Error(t, cfg.Validate())

	cfg.LogLevel = "debug"
	cfg.LogFormat = "xml"
	require.Error(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(minimalConfig), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rtsp://camera.local/stream"}, cfg.Sources)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.json")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
