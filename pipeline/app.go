package pipeline

import (
	"context"
	"log/slog"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// Options configures an App.
type Options struct {
	// Name is the pipeline name, used in logs and snapshot artifacts.
	Name string

	// Sources are the stream URIs to attach. Local file paths are accepted
	// and normalized to file:// URIs.
	Sources []string

	// Inference configures the inference graph. NumSources is derived from
	// Sources and does not need to be set.
	Inference InferenceConfig

	// SourceManager tunes source attachment.
	SourceManager SourceManagerConfig

	// Hook is an optional per-buffer probe attached to the inference
	// graph's annotation stage.
	Hook media.BufferProbe

	// Publisher receives every bus message. Optional.
	Publisher EventPublisher
}

// App assembles a complete streaming analytics pipeline: the attached
// sources feed a batched inference graph whose tiled, annotated output
// goes to a render sink. It wires the lifecycle controller, the event
// router and the source manager together and runs them as one unit.
type App struct {
	framework  media.Framework
	pipe       media.Pipeline
	inference  *InferenceGraph
	sources    *SourceManager
	controller *Controller
	router     *Router
	logger     *slog.Logger
}

// NewApp builds the pipeline, inference graph and source attachments for
// opts. A source that fails to attach is logged and skipped; NewApp fails
// only when no source could be added at all, or when the fixed topology
// itself cannot be built.
func NewApp(f media.Framework, opts Options, logger *slog.Logger, metrics *Metrics) (*App, error) {
	if f == nil {
		return nil, errors.ErrNoFramework
	}
	if len(opts.Sources) == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyGraph, "App", "NewApp",
			"at least one source is required")
	}
	name := opts.Name
	if name == "" {
		name = "mce"
	}

	pipe, err := f.NewPipeline(name)
	if err != nil {
		return nil, errors.WrapFatal(err, "App", "NewApp", "create pipeline "+name)
	}

	cfg := opts.Inference
	cfg.NumSources = len(opts.Sources)
	graph, err := NewInferenceGraph(f, name+"-inference", cfg, opts.Hook, logger, metrics)
	if err != nil {
		return nil, err
	}
	if err := pipe.Add(graph.Bin()); err != nil {
		return nil, errors.WrapFatal(err, "App", "NewApp",
			"add inference graph to "+name)
	}

	controller := NewController(f, pipe, logger, metrics)
	router := NewRouter(controller, opts.Publisher, logger, metrics)
	router.Attach(pipe.Bus())

	app := &App{
		framework:  f,
		pipe:       pipe,
		inference:  graph,
		sources:    NewSourceManager(f, pipe, graph, opts.SourceManager, logger),
		controller: controller,
		router:     router,
		logger:     logger,
	}

	added := 0
	for _, uri := range opts.Sources {
		if _, err := app.sources.AddSource(uri); err != nil {
			logger.Error("skipping source", "uri", uri, "error", err)
			continue
		}
		added++
	}
	if added == 0 {
		return nil, errors.WrapInvalid(errors.ErrEmptyGraph, "App", "NewApp",
			"no source could be added")
	}

	return app, nil
}

// Inference returns the app's inference graph.
func (a *App) Inference() *InferenceGraph { return a.inference }

// Sources returns the app's source manager.
func (a *App) Sources() *SourceManager { return a.sources }

// Controller returns the app's lifecycle controller.
func (a *App) Controller() *Controller { return a.controller }

// Pipeline returns the root pipeline.
func (a *App) Pipeline() media.Pipeline { return a.pipe }

// Run brings the pipeline up and blocks until end of stream, a pipeline
// error, or ctx cancellation. The pipeline is always torn down before Run
// returns; the returned error is the first error the bus reported, if
// any.
func (a *App) Run(ctx context.Context) error {
	if err := a.controller.Ready(); err != nil {
		a.controller.Quit()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-watchCtx.Done()
		a.controller.Quit()
	}()

	if err := a.controller.Play(); err != nil {
		a.controller.Quit()
		return err
	}

	a.controller.Quit()
	return a.router.Err()
}
