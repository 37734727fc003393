// Package main implements the entry point for mce, the media composition
// engine. It assembles a batched video inference pipeline from configured
// stream sources, renders annotated tiled output, and runs until end of
// stream, a pipeline error, or a shutdown signal.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/mdegans/mce/config"
	"github.com/mdegans/mce/gstreamer"
	"github.com/mdegans/mce/metric"
	"github.com/mdegans/mce/overlay"
	"github.com/mdegans/mce/pipeline"
	"github.com/mdegans/mce/telemetry"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "mce"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, logger, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	cfg, err := initializeConfiguration(cliCfg)
	if err != nil {
		return err
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	// Re-level the logger now that config is loaded; flags win over config.
	if cliCfg.LogLevel == "" || cliCfg.LogFormat == "" {
		level, format := cfg.LogLevel, cfg.LogFormat
		if cliCfg.LogLevel != "" {
			level = cliCfg.LogLevel
		}
		if cliCfg.LogFormat != "" {
			format = cliCfg.LogFormat
		}
		logger = setupLogger(level, format)
		slog.SetDefault(logger)
	}

	metricsRegistry := metric.NewMetricsRegistry()
	metricsServer := startMetricsServer(cfg, metricsRegistry)
	if metricsServer != nil {
		defer func() {
			if err := metricsServer.Stop(); err != nil {
				slog.Warn("Failed to stop metrics server", "error", err)
			}
		}()
	}

	publisher, err := setupTelemetry(cfg, logger, metricsRegistry.CoreMetrics())
	if err != nil {
		return err
	}
	defer publisher.Close()

	app, err := buildApp(cfg, logger, metricsRegistry, publisher)
	if err != nil {
		return err
	}

	return runWithSignalHandling(app, metricsRegistry)
}

// initializeCLI parses flags and sets up logging
func initializeCLI() (*CLIConfig, *slog.Logger, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, nil, true, nil
	}

	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting mce (media composition engine)",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	return cliCfg, logger, false, nil
}

// initializeConfiguration loads configuration and applies CLI overrides
func initializeConfiguration(cliCfg *CLIConfig) (config.Config, error) {
	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}

	if len(cliCfg.Sources) > 0 {
		cfg.Sources = cliCfg.Sources
	}
	if cliCfg.SnapshotDir != "" {
		cfg.SnapshotDir = cliCfg.SnapshotDir
	}

	return cfg, nil
}

// startMetricsServer starts the Prometheus endpoint when enabled
func startMetricsServer(cfg config.Config, registry *metric.MetricsRegistry) *metric.Server {
	if !cfg.Metrics.Enabled {
		return nil
	}

	server := metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
	go func() {
		slog.Info("Starting metrics server", "address", server.Address())
		if err := server.Start(); err != nil {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	return server
}

// setupTelemetry connects the NATS event publisher when configured. A nil
// publisher is returned when telemetry is disabled.
func setupTelemetry(cfg config.Config, logger *slog.Logger, core *metric.Metrics) (*telemetry.Publisher, error) {
	if cfg.Telemetry.URL == "" {
		slog.Debug("Telemetry disabled, no NATS URL configured")
		return nil, nil
	}

	publisher, err := telemetry.Connect(cfg.Telemetry.URL, cfg.Telemetry.Subject, logger, core)
	if err != nil {
		return nil, fmt.Errorf("connect telemetry: %w", err)
	}
	return publisher, nil
}

// buildApp constructs the pipeline application from configuration
func buildApp(
	cfg config.Config,
	logger *slog.Logger,
	registry *metric.MetricsRegistry,
	publisher *telemetry.Publisher,
) (*pipeline.App, error) {
	framework := gstreamer.New(gstreamer.WithSnapshotDir(cfg.SnapshotDir))

	metrics, err := pipeline.NewMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("register pipeline metrics: %w", err)
	}

	renderer := overlay.NewRenderer(logger)

	opts := pipeline.Options{
		Name:    cfg.Name,
		Sources: cfg.Sources,
		Inference: pipeline.InferenceConfig{
			ConfigPath:    cfg.InferenceConfig,
			ModelTemplate: cfg.ModelEngineTemplate,
			Sink:          cfg.Sink,
			OutWidth:      cfg.Output.Width,
			OutHeight:     cfg.Output.Height,
			Platform: pipeline.Platform{
				Constrained: cfg.Platform.Constrained,
				Int8:        cfg.Platform.Int8,
			},
		},
		Hook: renderer.Probe,
	}
	if publisher != nil {
		opts.Publisher = publisher
	}

	app, err := pipeline.NewApp(framework, opts, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("build pipeline: %w", err)
	}
	return app, nil
}

// runWithSignalHandling runs the app until completion or shutdown signal
func runWithSignalHandling(app *pipeline.App, registry *metric.MetricsRegistry) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	registry.CoreMetrics().RecordAppStatus(2) // running
	defer registry.CoreMetrics().RecordAppStatus(0)

	slog.Info("mce started, pipeline running")
	if err := app.Run(signalCtx); err != nil {
		registry.CoreMetrics().RecordAppStatus(4) // failed
		return fmt.Errorf("pipeline: %w", err)
	}

	slog.Info("mce shutdown complete")
	return nil
}
