// Package config loads and validates the application configuration.
//
// Configuration is JSON, validated against an embedded schema before any
// field is interpreted, so malformed input fails with a field-level
// message instead of a zero-value surprise deep in pipeline construction.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/mdegans/mce/errors"
)

// Output configures the tiled output dimensions.
type Output struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Platform describes the hardware class the pipeline runs on.
type Platform struct {
	// Constrained selects the reduced-resource hardware profile, which
	// needs an extra transform in front of the default render sink.
	Constrained bool `json:"constrained"`

	// Int8 selects reduced-precision inference models.
	Int8 bool `json:"int8"`
}

// Telemetry configures the optional NATS event publisher.
type Telemetry struct {
	// URL is the NATS server URL. Empty disables telemetry.
	URL string `json:"url"`

	// Subject is the subject prefix events publish under.
	Subject string `json:"subject"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	// Enabled turns the metrics HTTP server on.
	Enabled bool `json:"enabled"`

	// Port is the listen port. Zero selects the default.
	Port int `json:"port"`

	// Path is the metrics path. Empty selects the default.
	Path string `json:"path"`
}

// Config is the complete application configuration.
type Config struct {
	// Name is the pipeline name.
	Name string `json:"name"`

	// Sources are the stream URIs or local file paths to process.
	Sources []string `json:"sources"`

	// InferenceConfig is the path to the primary inference engine's
	// configuration resource.
	InferenceConfig string `json:"inference_config"`

	// ModelEngineTemplate is an optional printf-style template for the
	// serialized model engine path. It receives the batch size and the
	// precision tag.
	ModelEngineTemplate string `json:"model_engine_template"`

	// Sink is the sink node type. Empty selects the default render sink.
	Sink string `json:"sink"`

	Output    Output    `json:"output"`
	Platform  Platform  `json:"platform"`
	Telemetry Telemetry `json:"telemetry"`
	Metrics   Metrics   `json:"metrics"`

	// SnapshotDir is where graph visualization artifacts are written.
	// Empty disables snapshots.
	SnapshotDir string `json:"snapshot_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"log_level"`

	// LogFormat is text or json.
	LogFormat string `json:"log_format"`
}

// Default returns a configuration with defaults applied.
func Default() Config {
	return Config{
		Name: "mce",
		Output: Output{
			Width:  1920,
			Height: 1080,
		},
		Telemetry: Telemetry{
			Subject: "mce.events",
		},
		Metrics: Metrics{
			Port: 9090,
			Path: "/metrics",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// Load reads, validates and parses the configuration file at path.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "Load", "read "+path)
	}
	return Parse(raw)
}

// Parse validates and parses raw JSON configuration. Defaults fill any
// field the document leaves out.
func Parse(raw []byte) (Config, error) {
	if err := validateSchema(raw); err != nil {
		return Config{}, err
	}

	cfg := Default()
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, errors.WrapInvalid(err, "config", "Parse", "decode configuration")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// validateSchema checks raw against the embedded schema and folds all
// violations into one message.
func validateSchema(raw []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(raw),
	)
	if err != nil {
		return errors.WrapInvalid(err, "config", "validateSchema", "run schema validation")
	}
	if result.Valid() {
		return nil
	}

	var violations []string
	for _, desc := range result.Errors() {
		violations = append(violations, desc.String())
	}
	return errors.WrapInvalid(
		fmt.Errorf("%s", strings.Join(violations, "; ")),
		"config", "validateSchema", "configuration is invalid")
}

// Validate applies semantic checks the schema cannot express.
func (c Config) Validate() error {
	if len(c.Sources) == 0 {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate",
			"at least one source is required")
	}
	if c.InferenceConfig == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "config", "Validate",
			"inference_config is required")
	}
	if c.ModelEngineTemplate != "" &&
		(!strings.Contains(c.ModelEngineTemplate, "%d") || !strings.Contains(c.ModelEngineTemplate, "%s")) {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"model_engine_template must contain %d (batch size) and %s (precision)")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"log_level must be one of debug, info, warn, error")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return errors.WrapInvalid(errors.ErrInvalidConfig, "config", "Validate",
			"log_format must be text or json")
	}
	return nil
}
