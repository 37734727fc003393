package pipeline

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync/atomic"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/media"
)

// Well-known child names inside an inference graph.
const (
	muxerName     = "stream-muxer"
	inferenceName = "pie"
	converterName = "converter"
	tilerName     = "tiler"
	osdName       = "osd"
	transformName = "transform"
	sinkName      = "sink"
)

// DefaultSink is the sink node type used when none is configured. It is
// the one sink type that requires the platform transform on constrained
// hardware.
const DefaultSink = "nveglglessink"

// videoCapsPrefix identifies raw video ports. Ports whose format does not
// start with this are not attachable to the inference graph.
const videoCapsPrefix = "video/x-raw"

// batchedPushTimeoutUS is the muxer batch formation timeout: one frame of
// 29.97 fps, in microseconds.
const batchedPushTimeoutUS = 33367

// Platform describes the hardware class the graph runs on. It is supplied
// by the caller; this layer performs no detection.
type Platform struct {
	// Constrained is set on the hardware class that needs the extra
	// transform node in front of the default sink.
	Constrained bool

	// Int8 selects reduced-precision inference models where supported.
	Int8 bool
}

// Precision returns the numeric precision tag used in model engine paths.
func (p Platform) Precision() string {
	if p.Int8 {
		return "int8"
	}
	return "fp16"
}

// InferenceConfig configures an inference graph.
type InferenceConfig struct {
	// ConfigPath is the config resource for the primary inference engine.
	ConfigPath string

	// ModelTemplate is a template for the serialized model engine path.
	// It receives the batch size and the precision tag, in that order.
	ModelTemplate string

	// Sink is the sink node type. Defaults to DefaultSink.
	Sink string

	// NumSources sizes the batch: muxer and inference batch size, and the
	// tiler grid, are derived from it.
	NumSources int

	// OutWidth and OutHeight are the tiled output dimensions.
	OutWidth, OutHeight int

	Platform Platform
}

// withDefaults fills zero fields.
func (cfg InferenceConfig) withDefaults() InferenceConfig {
	if cfg.Sink == "" {
		cfg.Sink = DefaultSink
	}
	if cfg.OutWidth == 0 {
		cfg.OutWidth = 1920
	}
	if cfg.OutHeight == 0 {
		cfg.OutHeight = 1080
	}
	if cfg.NumSources < 1 {
		cfg.NumSources = 1
	}
	return cfg
}

// TileGeometry computes the tiler grid for n sources: rows is
// ceil(sqrt(n)) and columns is ceil(n/rows), so the grid never has a fully
// empty row. n < 1 is treated as a single tile.
func TileGeometry(n int) (rows, columns int) {
	if n < 1 {
		return 1, 1
	}
	rows = int(math.Ceil(math.Sqrt(float64(n))))
	columns = (n + rows - 1) / rows
	return rows, columns
}

// InferenceDescription returns the graph description for an inference
// graph sized for cfg.NumSources:
//
//	muxer ! inference ! convert ! tiler ! osd [! transform] ! sink
//
// The transform entry is the absent marker unless the platform is
// constrained and the sink requires it.
func InferenceDescription(cfg InferenceConfig) GraphDescription {
	cfg = cfg.withDefaults()
	rows, columns := TileGeometry(cfg.NumSources)
	inWidth := cfg.OutWidth / columns
	inHeight := cfg.OutHeight / rows

	transform := NodeDescription{} // absent
	if cfg.Platform.Constrained && cfg.Sink == DefaultSink {
		transform = NodeDescription{Type: "nvegltransform", Name: transformName}
	}

	inferProps := map[string]any{
		"config-file-path": cfg.ConfigPath,
		"batch-size":       cfg.NumSources,
	}
	if cfg.ModelTemplate != "" {
		inferProps["model-engine-file"] = fmt.Sprintf(
			cfg.ModelTemplate, cfg.NumSources, cfg.Platform.Precision())
	}

	return GraphDescription{
		{
			Type: "nvstreammux", Name: muxerName,
			Properties: map[string]any{
				"width":                inWidth,
				"height":               inHeight,
				"enable-padding":       1, // maintain aspect ratio
				"batch-size":           cfg.NumSources,
				"batched-push-timeout": batchedPushTimeoutUS,
				"live-source":          true,
			},
		},
		{Type: "nvinfer", Name: inferenceName, Properties: inferProps},
		{Type: "nvvideoconvert", Name: converterName},
		{
			Type: "nvmultistreamtiler", Name: tilerName,
			Properties: map[string]any{
				"rows":    rows,
				"columns": columns,
				"width":   cfg.OutWidth,
				"height":  cfg.OutHeight,
			},
		},
		{Type: "nvdsosd", Name: osdName},
		transform,
		{
			Type: cfg.Sink, Name: sinkName,
			Properties: map[string]any{
				"sync": false,
				"qos":  false,
			},
		},
	}
}

// InferenceGraph is a Composite with a fixed internal inference topology,
// linkable like any other node through ghost ports. New sources attach
// through SinkPort / LinkSource.
type InferenceGraph struct {
	*Composite

	muxer   media.Node
	logger  *slog.Logger
	metrics *Metrics

	// padCounter numbers on-demand muxer sink port requests; it only
	// increases. sourceCounter counts durably linked sources and is
	// incremented optimistically then rolled back on link failure, so it
	// never counts a source that is not linked. Both may be touched from
	// structural callbacks off the loop thread.
	padCounter    atomic.Int64
	sourceCounter atomic.Int64
}

// NewInferenceGraph builds the fixed inference topology and attaches the
// per-buffer hook to the overlay renderer's sink port. hook may be nil.
func NewInferenceGraph(f media.Framework, name string, cfg InferenceConfig,
	hook media.BufferProbe, logger *slog.Logger, metrics *Metrics) (*InferenceGraph, error) {

	composite, err := NewComposite(f, name, InferenceDescription(cfg), true, logger, metrics)
	if err != nil {
		return nil, err
	}

	muxer, ok := composite.ByName(muxerName)
	if !ok {
		return nil, errors.WrapFatal(errors.ErrChildNotFound,
			"InferenceGraph", "NewInferenceGraph", "find "+muxerName)
	}

	g := &InferenceGraph{
		Composite: composite,
		muxer:     muxer,
		logger:    logger,
		metrics:   metrics,
	}

	osd, ok := composite.ByName(osdName)
	if !ok {
		return nil, errors.WrapFatal(errors.ErrChildNotFound,
			"InferenceGraph", "NewInferenceGraph", "find "+osdName)
	}
	osdSink, ok := osd.StaticPort("sink")
	if !ok {
		return nil, &errors.PortNotFoundError{Composite: name, Direction: "sink"}
	}
	if hook != nil {
		osdSink.AddBufferProbe(hook)
	}

	return g, nil
}

// SourceCount returns the number of durably linked sources.
func (g *InferenceGraph) SourceCount() int {
	return int(g.sourceCounter.Load())
}

// SinkPort returns a ghost sink port ready to link a new source into the
// muxer. An existing unlinked muxer sink port is reused when present;
// otherwise a new on-demand port is requested under a strictly increasing
// index.
func (g *InferenceGraph) SinkPort() (media.Port, error) {
	g.logger.Debug("finding unlinked sink port", "composite", g.Name())

	inner, ok := g.bin.FindUnlinkedPort(media.DirectionSink)
	if !ok || inner.Owner().Name() != g.muxer.Name() {
		requestName := fmt.Sprintf("sink_%d", g.padCounter.Load())
		g.logger.Debug("no unlinked muxer sink port, requesting one",
			"muxer", g.muxer.Name(), "port", requestName)
		requested, err := g.muxer.RequestPort(requestName)
		if err != nil {
			return nil, &errors.PortAcquisitionError{
				Node: g.muxer.Name(),
				Port: requestName,
				Err:  err,
			}
		}
		inner = requested
	}
	g.padCounter.Add(1)

	return g.MakeGhost(media.DirectionSink, inner)
}

// LinkSource links a source node's newly exposed port into the muxer.
// Ports that are not raw video are ignored (logged, nil return): a demuxer
// may expose audio or subtitle streams this graph has no use for.
//
// The attached-source counter is incremented before the link is attempted
// and rolled back on any failure, so it only ever reflects durably linked
// sources even though it is touched before the link is confirmed.
func (g *InferenceGraph) LinkSource(source media.Node, srcPort media.Port) error {
	g.logger.Debug("linking source", "source", source.Name(),
		"port", srcPort.Name(), "composite", g.Name())

	if !IsVideoPort(srcPort) {
		g.logger.Debug("ignoring non-video port",
			"source", source.Name(), "caps", srcPort.Caps())
		return nil
	}

	g.sourceCounter.Add(1)
	g.metrics.setSourcesAttached(g.sourceCounter.Load())

	sink, err := g.SinkPort()
	if err != nil {
		g.rollbackSource()
		g.logger.Error("failed to acquire sink port for source",
			"source", source.Name(), "error", err)
		return err
	}

	if err := g.linker.LinkPorts(srcPort, sink); err != nil {
		g.rollbackSource()
		g.logger.Error("failed to link source to stream muxer",
			"source", source.Name(), "error", err)
		return err
	}

	return nil
}

func (g *InferenceGraph) rollbackSource() {
	g.metrics.setSourcesAttached(g.sourceCounter.Add(-1))
}

// IsVideoPort reports whether the port carries raw video.
func IsVideoPort(p media.Port) bool {
	return strings.HasPrefix(p.Caps(), videoCapsPrefix)
}
